package telegram

import "unicode/utf16"

// maxMessageLen stays under Telegram's 4096 character limit, which is
// counted in UTF-16 units.
const maxMessageLen = 4000

// chunkText splits text into pieces of at most limit UTF-16 units, cutting
// only on rune boundaries. A piece ends after its last newline when that
// newline lies in the second half of the piece.
func chunkText(text string, limit int) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		units, cutAt, lastNL := 0, 0, -1
		unitsAtNL := 0
		for cutAt < len(runes) {
			n := utf16.RuneLen(runes[cutAt])
			if n < 0 {
				n = 1 // invalid runes are sent as U+FFFD
			}
			if units+n > limit && cutAt > 0 {
				break
			}
			units += n
			if runes[cutAt] == '\n' {
				lastNL, unitsAtNL = cutAt, units
			}
			cutAt++
		}
		if cutAt < len(runes) && lastNL >= 0 && unitsAtNL-1 > limit/2 {
			cutAt = lastNL + 1
		}
		chunks = append(chunks, string(runes[:cutAt]))
		runes = runes[cutAt:]
	}
	return chunks
}
