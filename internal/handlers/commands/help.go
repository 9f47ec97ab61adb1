package commands

import (
	"context"
	"fmt"
	"strings"

	dg "github.com/bwmarrin/discordgo"
	"github.com/runpod/poddy-sub000/internal/handlers"
	"github.com/runpod/poddy-sub000/internal/language"
	rp "github.com/runpod/poddy-sub000/internal/response"
	"github.com/runpod/poddy-sub000/internal/utils"
)

// maxChoices is Discord's limit on autocomplete choices.
const maxChoices = 25

// Help describes the registered commands. Its command option autocompletes
// over them in the user's locale.
type Help struct {
	r *handlers.Registry
}

func NewHelp(r *handlers.Registry) *Help {
	return &Help{r: r}
}

func (h *Help) Metadata() handlers.Metadata {
	return handlers.Metadata{Name: "help"}
}

func (h *Help) Definition(l *language.Registry) *dg.ApplicationCommand {
	opt := option(l, dg.ApplicationCommandOptionString, "command", "help.command")
	opt.Autocomplete = true

	cmd := localize(l, &dg.ApplicationCommand{}, "help")
	cmd.Options = []*dg.ApplicationCommandOption{opt}
	return cmd
}

// visible returns the commands a user can discover, excluding developer tools.
func (h *Help) visible() []handlers.Handler {
	var out []handlers.Handler
	for _, c := range h.r.Commands() {
		if _, ok := c.(handlers.Definer); !ok || c.Metadata().DevOnly {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (h *Help) Autocomplete(ctx context.Context, inv *handlers.Invocation) ([]*dg.ApplicationCommandOptionChoice, error) {
	query := ""
	if inv.Args.Focused != nil {
		query = strings.ToLower(inv.Args.Focused.Value)
	}

	choices := []*dg.ApplicationCommandOptionChoice{}
	for _, c := range h.visible() {
		key := c.Metadata().Name
		name := inv.Language.Name(key)
		if !strings.Contains(strings.ToLower(name), query) && !strings.Contains(key, query) {
			continue
		}
		choices = append(choices, &dg.ApplicationCommandOptionChoice{Name: name, Value: key})
		if len(choices) == maxChoices {
			break
		}
	}

	return choices, nil
}

func (h *Help) Run(ctx context.Context, inv *handlers.Invocation) error {
	lang := inv.Language
	query := inv.Args.Strings["command"]

	if query == "" {
		var lines []string
		for _, c := range h.visible() {
			key := c.Metadata().Name
			lines = append(lines, fmt.Sprintf("`/%s`: %s", lang.Name(key), lang.Description(key)))
		}
		embed := dg.MessageEmbed{
			Title:       lang.Get("HELP_OVERVIEW_TITLE", nil),
			Description: strings.Join(lines, "\n"),
			Color:       embedColor,
		}
		return inv.Responder.Send(rp.MessageOptions{Embeds: []*dg.MessageEmbed{&embed}, Ephemeral: true})
	}

	c, ok := h.r.Lookup(handlers.KindCommand, query)
	if !ok || c.Metadata().Name != query || c.Metadata().DevOnly {
		return inv.Responder.Fail(utils.Failure{
			Type:    utils.ErrBadInput,
			Message: lang.Get("HELP_UNKNOWN", map[string]any{"command": query}),
		})
	}

	embed := dg.MessageEmbed{
		Title:       lang.Get("HELP_TITLE", map[string]any{"command": lang.Name(query)}),
		Description: lang.Description(query),
		Color:       embedColor,
	}
	return inv.Responder.Send(rp.MessageOptions{Embeds: []*dg.MessageEmbed{&embed}, Ephemeral: true})
}
