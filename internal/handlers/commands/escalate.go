package commands

import (
	"context"
	"log/slog"
	"strings"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"
	"github.com/runpod/poddy-sub000/internal/handlers"
	rp "github.com/runpod/poddy-sub000/internal/response"
	"github.com/runpod/poddy-sub000/internal/utils"
)

const (
	EscalateButtonID = "escalateToZendesk"
	EscalateModalID  = "escalateToZendeskModal"

	summaryField = "summary"
)

// EscalateButtonCustomID is the custom ID of the escalation button posted in
// a thread.
func EscalateButtonCustomID(threadID string) string {
	return EscalateButtonID + "." + threadID
}

// EscalateButton opens the escalation form. It only works inside threads.
type EscalateButton struct {
	s ChannelSource
}

func NewEscalateButton(s ChannelSource) *EscalateButton {
	return &EscalateButton{s: s}
}

func (e *EscalateButton) Metadata() handlers.Metadata {
	return handlers.Metadata{Name: EscalateButtonID}
}

func (e *EscalateButton) PreCheck(ctx context.Context, inv *handlers.Invocation) (handlers.Result, error) {
	ch, err := e.s.Channel(inv.ChannelID())
	if err != nil {
		return handlers.Proceed, errutil.With(err)
	}

	if !ch.IsThread() {
		return handlers.Deny(utils.Failure{
			Type:    utils.ErrBadInput,
			Title:   inv.Language.Get("NOT_A_THREAD_TITLE", nil),
			Message: inv.Language.Get("NOT_A_THREAD", nil),
		}), nil
	}

	return handlers.Proceed, nil
}

func (e *EscalateButton) Run(ctx context.Context, inv *handlers.Invocation) error {
	lang := inv.Language
	return inv.Responder.Modal(&dg.InteractionResponseData{
		CustomID: EscalateModalID + "." + inv.ChannelID(),
		Title:    lang.Get("ESCALATE_MODAL_TITLE", nil),
		Components: []dg.MessageComponent{
			dg.ActionsRow{Components: []dg.MessageComponent{
				dg.TextInput{
					CustomID:    summaryField,
					Label:       lang.Get("ESCALATE_MODAL_SUMMARY", nil),
					Placeholder: lang.Get("ESCALATE_MODAL_SUMMARY_PLACEHOLDER", nil),
					Style:       dg.TextInputParagraph,
					Required:    true,
					MaxLength:   1000,
				},
			}},
		},
	})
}

// EscalateModal records a submitted escalation and confirms it in the thread.
type EscalateModal struct {
	channels ChannelNamer
	l        *slog.Logger
}

func NewEscalateModal(channels ChannelNamer, l *slog.Logger) *EscalateModal {
	return &EscalateModal{channels: channels, l: l}
}

func (e *EscalateModal) Metadata() handlers.Metadata {
	return handlers.Metadata{Name: EscalateModalID}
}

func (e *EscalateModal) Run(ctx context.Context, inv *handlers.Invocation) error {
	threadID := strings.TrimPrefix(strings.TrimPrefix(inv.CustomID, EscalateModalID), ".")
	if threadID == "" {
		threadID = inv.ChannelID()
	}

	name, err := e.channels.ChannelName(ctx, threadID)
	if err != nil {
		return err
	}

	user := inv.User()
	summary := inv.Args.Fields[summaryField]
	e.l.Info("escalation requested", "thread", threadID, "thread_name", name, "user", user.ID, "guild", inv.GuildID())

	// A thread is escalated once; the button on the welcome message is
	// disabled and the confirmation follows up.
	if inv.Interaction != nil && inv.Interaction.Message != nil {
		msg := inv.Interaction.Message
		if components, ok := disableEscalation(msg.Components); ok {
			if err := inv.Responder.Update(rp.MessageOptions{Content: msg.Content, Components: components}); err != nil {
				return err
			}
		}
	}

	lang := inv.Language
	embed := dg.MessageEmbed{
		Title:       lang.Get("ESCALATE_MODAL_TITLE", nil),
		Description: lang.Get("ESCALATE_SUBMITTED", nil),
		Color:       embedColor,
		Fields: []*dg.MessageEmbedField{
			{Name: lang.Get("ESCALATE_MODAL_SUMMARY", nil), Value: summary},
			{Name: lang.Get("ESCALATE_FIELD_THREAD", nil), Value: name, Inline: true},
			{Name: lang.Get("ESCALATE_FIELD_USER", nil), Value: utils.FormatUserMention(user.ID), Inline: true},
		},
	}
	return inv.Responder.Send(rp.MessageOptions{Embeds: []*dg.MessageEmbed{&embed}})
}

// disableEscalation copies a message's rows with every escalation button
// disabled. It reports whether any button was found.
func disableEscalation(rows []dg.MessageComponent) ([]dg.MessageComponent, bool) {
	var (
		out   []dg.MessageComponent
		found bool
	)
	for _, c := range rows {
		var children []dg.MessageComponent
		switch row := c.(type) {
		case dg.ActionsRow:
			children = row.Components
		case *dg.ActionsRow:
			children = row.Components
		default:
			out = append(out, c)
			continue
		}

		next := dg.ActionsRow{}
		for _, child := range children {
			var b dg.Button
			switch v := child.(type) {
			case dg.Button:
				b = v
			case *dg.Button:
				b = *v
			default:
				next.Components = append(next.Components, child)
				continue
			}
			if strings.HasPrefix(b.CustomID, EscalateButtonID) {
				b.Disabled = true
				found = true
			}
			next.Components = append(next.Components, b)
		}
		out = append(out, next)
	}
	return out, found
}
