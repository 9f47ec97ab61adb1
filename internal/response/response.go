package response

import (
	"errors"
	"log/slog"
	"sync/atomic"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"
	"github.com/runpod/poddy-sub000/internal/utils"
)

var (
	ErrNotInteraction = errors.New("not an interaction")
	ErrAcknowledged   = errors.New("interaction already acknowledged")
)

// Session is the part of *discordgo.Session used to reply.
type Session interface {
	InteractionRespond(i *dg.Interaction, r *dg.InteractionResponse, options ...dg.RequestOption) error
	InteractionResponseEdit(i *dg.Interaction, newresp *dg.WebhookEdit, options ...dg.RequestOption) (*dg.Message, error)
	FollowupMessageCreate(i *dg.Interaction, wait bool, data *dg.WebhookParams, options ...dg.RequestOption) (*dg.Message, error)
	FollowupMessageEdit(i *dg.Interaction, messageID string, data *dg.WebhookEdit, options ...dg.RequestOption) (*dg.Message, error)
	ChannelMessageSendComplex(channelID string, data *dg.MessageSend, options ...dg.RequestOption) (*dg.Message, error)
}

type MessageOptions struct {
	Content    string
	Embeds     []*dg.MessageEmbed
	Files      []*dg.File
	Components []dg.MessageComponent
	Ephemeral  bool
	MessageID  string
}

// Responder replies to exactly one interaction, or to one message for text
// commands. The first reply becomes the initial interaction response; every
// later one is sent as a followup, so callers never double-acknowledge.
type Responder struct {
	s     Session
	l     *slog.Logger
	i     *dg.Interaction
	m     *dg.Message
	acked atomic.Bool
}

func NewResponder(s Session, l *slog.Logger, i *dg.Interaction) *Responder {
	return &Responder{s: s, l: l, i: i}
}

func NewMessageResponder(s Session, l *slog.Logger, m *dg.Message) *Responder {
	return &Responder{s: s, l: l, m: m}
}

// Acknowledged reports whether an initial response has been sent.
func (r *Responder) Acknowledged() bool {
	return r.acked.Load()
}

func (r *Responder) Defer(ephemeral bool) error {
	resp := &dg.InteractionResponse{Type: dg.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &dg.InteractionResponseData{Flags: dg.MessageFlagsEphemeral}
	}
	return r.initial(resp)
}

// Send replies with a new message: the initial response if none was sent
// yet, a followup otherwise.
func (r *Responder) Send(opts MessageOptions) error {
	if r.m != nil {
		_, err := r.s.ChannelMessageSendComplex(r.m.ChannelID, &dg.MessageSend{
			Content:    opts.Content,
			Embeds:     opts.Embeds,
			Files:      opts.Files,
			Components: opts.Components,
			Reference:  r.m.Reference(),
			AllowedMentions: &dg.MessageAllowedMentions{
				RepliedUser: false,
			},
		})
		if err != nil {
			return errutil.With(err)
		}
		return nil
	}

	if r.acked.CompareAndSwap(false, true) {
		data := &dg.InteractionResponseData{
			Content:    opts.Content,
			Embeds:     opts.Embeds,
			Files:      opts.Files,
			Components: opts.Components,
		}
		if opts.Ephemeral {
			data.Flags = dg.MessageFlagsEphemeral
		}

		err := r.s.InteractionRespond(r.i, &dg.InteractionResponse{
			Type: dg.InteractionResponseChannelMessageWithSource,
			Data: data,
		})
		if err != nil {
			r.acked.Store(false)
			return errutil.With(err)
		}
		return nil
	}

	params := &dg.WebhookParams{
		Content:    opts.Content,
		Embeds:     opts.Embeds,
		Files:      opts.Files,
		Components: opts.Components,
	}
	if opts.Ephemeral {
		params.Flags = dg.MessageFlagsEphemeral
	}

	if _, err := r.s.FollowupMessageCreate(r.i, true, params); err != nil {
		return errutil.With(err)
	}
	return nil
}

// Update replaces the message a component is attached to.
func (r *Responder) Update(opts MessageOptions) error {
	return r.initial(&dg.InteractionResponse{
		Type: dg.InteractionResponseUpdateMessage,
		Data: &dg.InteractionResponseData{
			Content:    opts.Content,
			Embeds:     opts.Embeds,
			Components: opts.Components,
		},
	})
}

// Edit changes the original response, or the followup named by
// opts.MessageID.
func (r *Responder) Edit(opts MessageOptions) error {
	if r.i == nil {
		return errutil.Wrap(ErrNotInteraction)
	}

	edit := &dg.WebhookEdit{
		Content:    &opts.Content,
		Embeds:     &opts.Embeds,
		Components: &opts.Components,
	}

	var err error
	if opts.MessageID == "" {
		_, err = r.s.InteractionResponseEdit(r.i, edit)
	} else {
		_, err = r.s.FollowupMessageEdit(r.i, opts.MessageID, edit)
	}
	if err != nil {
		return errutil.With(err)
	}
	return nil
}

func (r *Responder) Autocomplete(choices []*dg.ApplicationCommandOptionChoice) error {
	if choices == nil {
		choices = []*dg.ApplicationCommandOptionChoice{}
	}
	return r.initial(&dg.InteractionResponse{
		Type: dg.InteractionApplicationCommandAutocompleteResult,
		Data: &dg.InteractionResponseData{Choices: choices},
	})
}

func (r *Responder) Modal(data *dg.InteractionResponseData) error {
	return r.initial(&dg.InteractionResponse{
		Type: dg.InteractionResponseModal,
		Data: data,
	})
}

// Fail renders a failure as an ephemeral embed.
func (r *Responder) Fail(f utils.Failure) error {
	r.l.Warn("handler failure", "type", f.Type, "message", f.Message, "data", f.Data)

	title, color := f.Title, 0
	switch f.Type {
	case utils.ErrInternal:
		if title == "" {
			title = "Something Went Wrong"
		}
		color = 0xFF0000
	case utils.ErrBadInput:
		if title == "" {
			title = "Invalid Input"
		}
		color = 0xFFA500
	case utils.ErrNotAllowed:
		if title == "" {
			title = "Permission Denied"
		}
		color = 0xFF0000
	case utils.ErrNotFound:
		if title == "" {
			title = "Not Found"
		}
		color = 0xFFA500
	case utils.ErrTooLarge:
		if title == "" {
			title = "Response Too Large"
		}
		color = 0xFFEF00
	}

	embed := &dg.MessageEmbed{
		Title:       title,
		Description: f.Message,
		Color:       color,
	}
	if id := f.CorrelationID(); id != "" {
		embed.Footer = &dg.MessageEmbedFooter{Text: id}
	}

	return r.Send(MessageOptions{Embeds: []*dg.MessageEmbed{embed}, Ephemeral: true})
}

func (r *Responder) initial(resp *dg.InteractionResponse) error {
	if r.i == nil {
		return errutil.Wrap(ErrNotInteraction)
	}
	if !r.acked.CompareAndSwap(false, true) {
		return errutil.Wrap(ErrAcknowledged)
	}

	if err := r.s.InteractionRespond(r.i, resp); err != nil {
		r.acked.Store(false)
		return errutil.With(err)
	}
	return nil
}
