package bot

import (
	"context"
	"errors"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"
	"github.com/runpod/poddy-sub000/internal/database"
	"github.com/runpod/poddy-sub000/internal/handlers/commands"
	"github.com/runpod/poddy-sub000/internal/language"
	"github.com/runpod/poddy-sub000/internal/models"
	"github.com/runpod/poddy-sub000/internal/utils"
)

const (
	maxThreadNameLength = 100
	threadArchiveMins   = 1440
)

// autoThread opens a thread on every new message posted in a guild's auto
// thread channels and offers the escalation button inside it.
func (b *Bot) autoThread(ctx context.Context, m *dg.Message) error {
	if m.GuildID == "" || m.Author == nil || m.Author.Bot || m.Type != dg.MessageTypeDefault {
		return nil
	}

	settings, err := b.guildSettings(ctx, m.GuildID)
	if err != nil {
		return err
	}
	if !(models.Guild{Settings: settings}).IsAutoThreadChannel(m.ChannelID) {
		return nil
	}

	thread, err := startThread(b.api, b.langs.Default(), m)
	if err != nil {
		return err
	}

	b.l.Info("auto thread started", "guild", m.GuildID, "channel", m.ChannelID, "thread", thread.ID)
	return nil
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) (models.GuildSettings, error) {
	if settings, ok := b.c.GuildSettings(ctx, guildID); ok {
		return settings, nil
	}

	var settings models.GuildSettings
	g, err := b.d.GetGuild(ctx, guildID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return settings, errutil.With(err)
	}
	if g != nil {
		settings = g.Settings
	}

	b.c.SetGuildSettings(ctx, guildID, settings)
	return settings, nil
}

type threadStarter interface {
	MessageThreadStartComplex(channelID, messageID string, data *dg.ThreadStart, options ...dg.RequestOption) (*dg.Channel, error)
	ChannelMessageSendComplex(channelID string, data *dg.MessageSend, options ...dg.RequestOption) (*dg.Message, error)
}

func startThread(s threadStarter, lang *language.Language, m *dg.Message) (*dg.Channel, error) {
	thread, err := s.MessageThreadStartComplex(m.ChannelID, m.ID, &dg.ThreadStart{
		Name:                threadName(lang, m),
		AutoArchiveDuration: threadArchiveMins,
	})
	if err != nil {
		return nil, errutil.With(err)
	}

	if _, err := s.ChannelMessageSendComplex(thread.ID, &dg.MessageSend{
		Content: lang.Get("AUTO_THREAD_WELCOME", map[string]any{"user": utils.FormatUserMention(m.Author.ID)}),
		Components: []dg.MessageComponent{
			dg.ActionsRow{Components: []dg.MessageComponent{
				dg.Button{
					Label:    lang.Get("ESCALATE_BUTTON", nil),
					Style:    dg.PrimaryButton,
					CustomID: commands.EscalateButtonCustomID(thread.ID),
				},
			}},
		},
	}); err != nil {
		return thread, errutil.With(err)
	}

	return thread, nil
}

func threadName(lang *language.Language, m *dg.Message) string {
	name := m.Author.Username
	if m.Author.GlobalName != "" {
		name = m.Author.GlobalName
	}
	if m.Member != nil && m.Member.Nick != "" {
		name = m.Member.Nick
	}

	title := []rune(lang.Get("AUTO_THREAD_NAME", map[string]any{"user": name}))
	if len(title) > maxThreadNameLength {
		title = title[:maxThreadNameLength]
	}
	return string(title)
}
