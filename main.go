package main

import "github.com/nextlevelbuilder/botcrew/cmd"

func main() {
	cmd.Execute()
}
