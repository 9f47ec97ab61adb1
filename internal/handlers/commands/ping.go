package commands

import (
	"context"
	"time"

	dg "github.com/bwmarrin/discordgo"
	"github.com/runpod/poddy-sub000/internal/handlers"
	"github.com/runpod/poddy-sub000/internal/language"
	rp "github.com/runpod/poddy-sub000/internal/response"
)

// Ping serves both /ping and the text command.
type Ping struct {
	s LatencySource
}

func NewPing(s LatencySource) *Ping {
	return &Ping{s: s}
}

func (p *Ping) Metadata() handlers.Metadata {
	return handlers.Metadata{Name: "ping"}
}

func (p *Ping) Aliases() []string {
	return []string{"latency"}
}

func (p *Ping) Definition(l *language.Registry) *dg.ApplicationCommand {
	return localize(l, &dg.ApplicationCommand{}, "ping")
}

func (p *Ping) Run(ctx context.Context, inv *handlers.Invocation) error {
	embed := dg.MessageEmbed{
		Title:       "Pong!",
		Description: inv.Language.Get("PING_PONG", map[string]any{"latency": p.s.HeartbeatLatency().Round(time.Millisecond)}),
		Color:       embedColor,
	}
	opts := rp.MessageOptions{Embeds: []*dg.MessageEmbed{&embed}, Ephemeral: true}

	if inv.Interaction == nil {
		return inv.Responder.Send(opts)
	}

	// The deferred response is filled in place.
	if err := inv.Responder.Defer(true); err != nil {
		return err
	}
	return inv.Responder.Edit(opts)
}
