package commands

import (
	"context"
	"log/slog"
	"time"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"
	"github.com/runpod/poddy-sub000/internal/handlers"
	"github.com/runpod/poddy-sub000/internal/language"
	"github.com/runpod/poddy-sub000/internal/models"
	"github.com/runpod/poddy-sub000/internal/telemetry"
)

const embedColor = 0x673AB7

// GuildStore is the persistence the config command needs.
type GuildStore interface {
	GetGuild(ctx context.Context, id string) (*models.Guild, error)
	AddAutoThreadChannel(ctx context.Context, guildID, channelID string) (bool, error)
	RemoveAutoThreadChannel(ctx context.Context, guildID, channelID string) (bool, error)
}

// SettingsCache drops cached guild settings once they change.
type SettingsCache interface {
	ForgetGuildSettings(ctx context.Context, guildID string)
}

type LatencySource interface {
	HeartbeatLatency() time.Duration
}

type ChannelSource interface {
	Channel(channelID string, options ...dg.RequestOption) (*dg.Channel, error)
}

type ChannelNamer interface {
	ChannelName(ctx context.Context, channelID string) (string, error)
}

// Register adds every built-in handler to r.
func Register(r *handlers.Registry, deps handlers.Dependencies, store GuildStore, rec *telemetry.Recorder, l *slog.Logger) error {
	ping := NewPing(deps.Session)

	var settings SettingsCache
	if deps.Cache != nil {
		settings = deps.Cache
	}

	for _, reg := range []struct {
		kind handlers.Kind
		h    handlers.Handler
	}{
		{handlers.KindCommand, ping},
		{handlers.KindText, ping},
		{handlers.KindCommand, NewHelp(r)},
		{handlers.KindCommand, NewConfig(store, settings)},
		{handlers.KindCommand, NewStats(rec)},
		{handlers.KindButton, NewEscalateButton(deps.Session)},
		{handlers.KindModal, NewEscalateModal(deps, l)},
	} {
		if err := r.Register(reg.kind, reg.h); err != nil {
			return errutil.Wrap(err)
		}
	}

	return nil
}

// localize fills in the name and description localizations of a top-level
// command from the dictionaries.
func localize(l *language.Registry, cmd *dg.ApplicationCommand, key string) *dg.ApplicationCommand {
	def := l.Default()
	cmd.Name = def.Name(key)
	cmd.Description = def.Description(key)

	names := l.NameLocalizations(key)
	descriptions := l.DescriptionLocalizations(key)
	cmd.NameLocalizations = &names
	cmd.DescriptionLocalizations = &descriptions

	return cmd
}

// option builds a localized option. nameKey is the dictionary key of the
// option's name; descKey the key of its description.
func option(l *language.Registry, t dg.ApplicationCommandOptionType, nameKey, descKey string) *dg.ApplicationCommandOption {
	def := l.Default()
	return &dg.ApplicationCommandOption{
		Type:                     t,
		Name:                     def.Name(nameKey),
		Description:              def.Description(descKey),
		NameLocalizations:        l.NameLocalizations(nameKey),
		DescriptionLocalizations: l.DescriptionLocalizations(descKey),
	}
}
