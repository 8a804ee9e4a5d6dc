package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"unicode"
	"unicode/utf16"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/botcrew/internal/channels"
	"github.com/nextlevelbuilder/botcrew/internal/config"
	"github.com/nextlevelbuilder/botcrew/internal/persona"
	"github.com/nextlevelbuilder/botcrew/internal/routing"
)

func personasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "Inspect and create persona definitions",
	}
	cmd.AddCommand(personasListCmd())
	cmd.AddCommand(personasResolveCmd())
	cmd.AddCommand(personasNewCmd())
	return cmd
}

// loadPersonas reads config and the persona directory for offline commands.
func loadPersonas() (*config.Config, []*persona.Persona, error) {
	setupLogging()
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, nil, err
	}
	personas, err := persona.LoadDir(cfg.PersonasDir())
	if err != nil {
		return nil, nil, err
	}
	return cfg, personas, nil
}

func personasListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the personas defined in the personas directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, personas, err := loadPersonas()
			if err != nil {
				return err
			}
			if len(personas) == 0 {
				fmt.Printf("No personas in %s\n", cfg.PersonasDir())
				return nil
			}

			defaultWeight := cfg.RoutingSettings().DefaultPersonaProbability
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tBOT ID\tWEIGHT\tNAMES\tWEBHOOK")
			for _, p := range personas {
				weight := p.RandomResponseProbability
				if weight <= 0 {
					weight = defaultWeight
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
					p.ID, p.DisplayName(), p.CredentialPrefix(), weight,
					channels.Truncate(strings.Join(p.NameVariations, ", "), 40),
					channels.Truncate(p.WebhookURL, 50))
			}
			return tw.Flush()
		},
	}
}

type resolveFlags struct {
	private       bool
	receiver      int64
	quote         string
	quoteAuthor   string
	quoteAuthorID int64
	quoteBot      bool
	handles       map[string]string
	seed          uint64
}

func personasResolveCmd() *cobra.Command {
	var f resolveFlags
	cmd := &cobra.Command{
		Use:   "resolve <message text>",
		Short: "Dry-run the routing engine on a message",
		Long: "Shows which personas would answer a message and which rule decided it. " +
			"@handle words are treated as mention entities.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, personas, err := loadPersonas()
			if err != nil {
				return err
			}
			reg := persona.NewRegistry(personas, f.handles)
			msg := f.message(strings.Join(args, " "))

			var rng routing.Rand = routing.DefaultRand
			if cmd.Flags().Changed("seed") {
				rng = rand.New(rand.NewPCG(f.seed, f.seed))
			}

			res := routing.NewEngine(cfg.RoutingSettings()).Explain(msg, reg, rng)
			printResolution(res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&f.private, "private", false, "treat the message as a private chat")
	cmd.Flags().Int64Var(&f.receiver, "receiver", 0, "bot id that received the private message")
	cmd.Flags().StringVar(&f.quote, "quote", "", "text of the replied-to message")
	cmd.Flags().StringVar(&f.quoteAuthor, "quote-author", "", "display name of the replied-to author")
	cmd.Flags().Int64Var(&f.quoteAuthorID, "quote-author-id", 0, "user id of the replied-to author")
	cmd.Flags().BoolVar(&f.quoteBot, "quote-bot", false, "the replied-to author is a bot")
	cmd.Flags().StringToStringVar(&f.handles, "handle", nil, "persona handle, as id=username (repeatable)")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "seed the random rules for a reproducible run")
	return cmd
}

func (f resolveFlags) message(text string) *routing.InboundMessage {
	msg := &routing.InboundMessage{
		Text:       text,
		Kind:       routing.ChatGroup,
		Entities:   mentionEntities(text),
		ReceiverID: f.receiver,
	}
	if f.private {
		msg.Kind = routing.ChatPrivate
	}
	if f.quote != "" || f.quoteAuthorID != 0 {
		msg.Quoted = &routing.QuotedMessage{
			Text:        f.quote,
			AuthorName:  f.quoteAuthor,
			AuthorID:    f.quoteAuthorID,
			AuthorIsBot: f.quoteBot,
		}
	}
	return msg
}

// mentionEntities marks every "@handle" that starts a word as a mention,
// with UTF-16 offsets as Telegram reports them.
func mentionEntities(text string) []routing.Entity {
	var out []routing.Entity
	offset, start := 0, -1
	prevSpace := true
	for _, r := range text {
		if start >= 0 && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			if offset-start > 1 {
				out = append(out, routing.Entity{Offset: start, Length: offset - start, Kind: routing.EntityMention})
			}
			start = -1
		}
		if r == '@' && prevSpace {
			start = offset
		}
		prevSpace = unicode.IsSpace(r)
		offset += utf16.RuneLen(r)
	}
	if start >= 0 && offset-start > 1 {
		out = append(out, routing.Entity{Offset: start, Length: offset - start, Kind: routing.EntityMention})
	}
	return out
}

func printResolution(res routing.Resolution) {
	fmt.Printf("Rule:      %s\n", res.Rule)
	for _, m := range res.Mentions {
		fmt.Printf("Mention:   %s via %s (%q at %d)\n", m.Persona.ID, m.Result.Method, m.Result.NameFound, m.Result.Position)
	}
	if res.Quote.HasQuotedMessage {
		fmt.Printf("Quote:     %s\n", routing.FormatQuote(res.Quote.QuotedText, res.Quote.QuotedAuthor))
		if res.Quote.IsReplyToPersona {
			fmt.Printf("Reply to:  %s\n", res.Quote.ReplyToPersonaID)
		}
	}
	if len(res.Decisions) == 0 {
		fmt.Println("Targets:   none")
		return
	}
	for _, d := range res.Decisions {
		fmt.Printf("Target:    %s (%s, priority %d)\n", d.Persona.ID, d.Reason, d.Priority)
	}
}

func personasNewCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Interactively create a persona definition file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				cfg, err := config.Load(resolveConfigPath())
				if err != nil {
					return err
				}
				dir = cfg.PersonasDir()
			}
			return runPersonaWizard(dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "personas directory (default: from config)")
	return cmd
}

func runPersonaWizard(dir string) error {
	var (
		p           persona.Persona
		variations  string
		probability = "0"
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Persona id").Description("Short unique key, e.g. siphon").
				Value(&p.ID).Validate(requireValue),
			huh.NewInput().Title("Display name").Value(&p.Name).Validate(requireValue),
			huh.NewInput().Title("Telegram bot token").Description("From @BotFather, 123456:ABC...").
				Value(&p.Token).EchoMode(huh.EchoModePassword).Validate(validateToken),
		),
		huh.NewGroup(
			huh.NewInput().Title("Webhook URL").Value(&p.WebhookURL).Validate(requireValue),
			huh.NewInput().Title("Test webhook URL").Description("Optional, tried first").Value(&p.TestWebhookURL),
			huh.NewInput().Title("Name variations").Description("Comma separated, e.g. Siphon, Сифон").
				Value(&variations),
			huh.NewInput().Title("Random response weight").Description("0 uses the configured default").
				Value(&probability).Validate(validateProbability),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	p.NameVariations = splitList(variations)
	p.RandomResponseProbability, _ = strconv.ParseFloat(strings.TrimSpace(probability), 64)
	path, err := writePersona(dir, &p)
	if err != nil {
		return err
	}
	fmt.Printf("Persona written to %s\n", path)
	return nil
}

// writePersona stores p as <dir>/<id>.json5, refusing to overwrite.
func writePersona(dir string, p *persona.Persona) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create personas dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, p.ID+".json5")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("write persona: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return "", fmt.Errorf("write persona: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write persona: %w", err)
	}
	return path, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func requireValue(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}

func validateToken(s string) error {
	prefix, secret, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || secret == "" {
		return errors.New("expected <bot id>:<secret>")
	}
	if _, err := strconv.ParseInt(prefix, 10, 64); err != nil {
		return errors.New("bot id must be numeric")
	}
	return nil
}

func validateProbability(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 || v > 1 {
		return errors.New("enter a number between 0 and 1")
	}
	return nil
}
