package commands

import (
	"context"
	"errors"
	"strings"

	dg "github.com/bwmarrin/discordgo"
	"github.com/runpod/poddy-sub000/internal/database"
	"github.com/runpod/poddy-sub000/internal/handlers"
	"github.com/runpod/poddy-sub000/internal/language"
	rp "github.com/runpod/poddy-sub000/internal/response"
	"github.com/runpod/poddy-sub000/internal/utils"
)

// Config manages per-guild settings. It serves the whole /config tree.
type Config struct {
	store    GuildStore
	settings SettingsCache
}

// NewConfig returns the config command. settings may be nil.
func NewConfig(store GuildStore, settings SettingsCache) *Config {
	return &Config{store: store, settings: settings}
}

func (c *Config) Metadata() handlers.Metadata {
	return handlers.Metadata{Name: "config", UserPermissions: dg.PermissionManageGuild}
}

func (c *Config) Definition(l *language.Registry) *dg.ApplicationCommand {
	channel := func() *dg.ApplicationCommandOption {
		opt := option(l, dg.ApplicationCommandOptionChannel, "channel", "config.auto_thread_channel.channel")
		opt.Required = true
		opt.ChannelTypes = []dg.ChannelType{dg.ChannelTypeGuildText, dg.ChannelTypeGuildNews}
		return opt
	}

	add := option(l, dg.ApplicationCommandOptionSubCommand, "add", "config.auto_thread_channel.add")
	add.Options = []*dg.ApplicationCommandOption{channel()}
	remove := option(l, dg.ApplicationCommandOptionSubCommand, "remove", "config.auto_thread_channel.remove")
	remove.Options = []*dg.ApplicationCommandOption{channel()}
	list := option(l, dg.ApplicationCommandOptionSubCommand, "list", "config.auto_thread_channel.list")

	group := option(l, dg.ApplicationCommandOptionSubCommandGroup, "auto_thread_channel", "config.auto_thread_channel")
	group.Options = []*dg.ApplicationCommandOption{add, remove, list}

	dm := false
	permissions := int64(dg.PermissionManageGuild)
	cmd := localize(l, &dg.ApplicationCommand{
		DMPermission:             &dm,
		DefaultMemberPermissions: &permissions,
	}, "config")
	cmd.Options = []*dg.ApplicationCommandOption{group}
	return cmd
}

func (c *Config) Run(ctx context.Context, inv *handlers.Invocation) error {
	guildID := inv.GuildID()
	if guildID == "" {
		return inv.Responder.Fail(utils.Failure{Type: utils.ErrBadInput, Message: inv.Language.Get("GUILD_ONLY", nil)})
	}

	switch inv.Name {
	case "config-auto_thread_channel-add":
		return c.add(ctx, inv, guildID)
	case "config-auto_thread_channel-remove":
		return c.remove(ctx, inv, guildID)
	case "config-auto_thread_channel-list":
		return c.list(ctx, inv, guildID)
	}

	return inv.Responder.Fail(utils.Failure{
		Type:    utils.ErrNotFound,
		Message: inv.Language.Get("NON_EXISTENT", map[string]any{"type": "command"}),
	})
}

func (c *Config) add(ctx context.Context, inv *handlers.Invocation, guildID string) error {
	ch := inv.Args.Channels["channel"]
	if ch == nil {
		return inv.Responder.Fail(utils.Failure{Type: utils.ErrBadInput, Message: inv.Language.Get("MISSING_CHANNEL", nil)})
	}

	added, err := c.store.AddAutoThreadChannel(ctx, guildID, ch.ID)
	if err != nil {
		return err
	}

	if added {
		c.forget(ctx, guildID)
	}

	key := "CONFIG_AUTO_THREAD_CHANNEL_ADDED"
	if !added {
		key = "CONFIG_AUTO_THREAD_CHANNEL_ALREADY"
	}
	return reply(inv, inv.Language.Get(key, map[string]any{"channel": utils.FormatChannelMention(ch.ID)}))
}

func (c *Config) remove(ctx context.Context, inv *handlers.Invocation, guildID string) error {
	ch := inv.Args.Channels["channel"]
	if ch == nil {
		return inv.Responder.Fail(utils.Failure{Type: utils.ErrBadInput, Message: inv.Language.Get("MISSING_CHANNEL", nil)})
	}

	removed, err := c.store.RemoveAutoThreadChannel(ctx, guildID, ch.ID)
	if err != nil {
		return err
	}

	if removed {
		c.forget(ctx, guildID)
	}

	key := "CONFIG_AUTO_THREAD_CHANNEL_REMOVED"
	if !removed {
		key = "CONFIG_AUTO_THREAD_CHANNEL_NOT_FOUND"
	}
	return reply(inv, inv.Language.Get(key, map[string]any{"channel": utils.FormatChannelMention(ch.ID)}))
}

func (c *Config) list(ctx context.Context, inv *handlers.Invocation, guildID string) error {
	var channels []string

	g, err := c.store.GetGuild(ctx, guildID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}
	if g != nil {
		channels = g.Settings.AutoThreadChannels
	}

	description := inv.Language.Get("CONFIG_AUTO_THREAD_CHANNEL_LIST_EMPTY", nil)
	if len(channels) > 0 {
		mentions := make([]string, len(channels))
		for i, id := range channels {
			mentions[i] = "- " + utils.FormatChannelMention(id)
		}
		description = strings.Join(mentions, "\n")
	}

	embed := dg.MessageEmbed{
		Title:       inv.Language.Get("CONFIG_AUTO_THREAD_CHANNEL_LIST_TITLE", nil),
		Description: description,
		Color:       embedColor,
	}
	return inv.Responder.Send(rp.MessageOptions{Embeds: []*dg.MessageEmbed{&embed}, Ephemeral: true})
}

func (c *Config) forget(ctx context.Context, guildID string) {
	if c.settings != nil {
		c.settings.ForgetGuildSettings(ctx, guildID)
	}
}

func reply(inv *handlers.Invocation, message string) error {
	embed := dg.MessageEmbed{Description: message, Color: embedColor}
	return inv.Responder.Send(rp.MessageOptions{Embeds: []*dg.MessageEmbed{&embed}, Ephemeral: true})
}
