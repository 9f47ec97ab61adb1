package commands

import (
	"context"
	"fmt"
	"strings"

	dg "github.com/bwmarrin/discordgo"
	"github.com/runpod/poddy-sub000/internal/handlers"
	"github.com/runpod/poddy-sub000/internal/language"
	rp "github.com/runpod/poddy-sub000/internal/response"
	"github.com/runpod/poddy-sub000/internal/telemetry"
)

var statKinds = []string{"application_command", "autocomplete", "button", "select_menu", "modal", "text_command"}

// Stats shows this shard's interaction counters to developers.
type Stats struct {
	rec *telemetry.Recorder
}

func NewStats(rec *telemetry.Recorder) *Stats {
	return &Stats{rec: rec}
}

func (s *Stats) Metadata() handlers.Metadata {
	return handlers.Metadata{Name: "stats", DevOnly: true}
}

func (s *Stats) Definition(l *language.Registry) *dg.ApplicationCommand {
	return localize(l, &dg.ApplicationCommand{}, "stats")
}

func (s *Stats) Run(ctx context.Context, inv *handlers.Invocation) error {
	lines := make([]string, 0, len(statKinds)+2)
	for _, kind := range statKinds {
		lines = append(lines, fmt.Sprintf("%s: %d", kind, s.rec.Count("interactions", kind)))
	}
	lines = append(lines, fmt.Sprintf("events: %d", s.rec.Total("events")))
	lines = append(lines, fmt.Sprintf("mirrored: %t", s.rec.Mirroring()))

	embed := dg.MessageEmbed{
		Title:       inv.Language.Get("STATS_TITLE", map[string]any{"shard": inv.Shard}),
		Description: "```\n" + strings.Join(lines, "\n") + "\n```",
		Color:       embedColor,
	}
	return inv.Responder.Send(rp.MessageOptions{Embeds: []*dg.MessageEmbed{&embed}, Ephemeral: true})
}
