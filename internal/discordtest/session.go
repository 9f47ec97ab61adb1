// Package discordtest provides an in-memory stand-in for the discordgo
// session surface the bot calls, recording every reply.
package discordtest

import (
	"net/http"
	"sync"
	"time"

	dg "github.com/bwmarrin/discordgo"
)

type Session struct {
	mu sync.Mutex

	Responses  []*dg.InteractionResponse
	Followups  []*dg.WebhookParams
	Edits      []*dg.WebhookEdit
	Messages   []*dg.MessageSend
	Deleted    []string
	GuildCalls int
	Threads    []*dg.ThreadStart
	Overwrites map[string][]*dg.ApplicationCommand

	Guilds      map[string]*dg.Guild
	Roles       map[string][]*dg.Role
	Channels    map[string]*dg.Channel
	Permissions map[string]int64

	GuildErr    error
	RespondErr  error
	Latency     time.Duration
	handlers    []any
	onceHandler []any
}

func NewSession() *Session {
	return &Session{
		Guilds:      make(map[string]*dg.Guild),
		Roles:       make(map[string][]*dg.Role),
		Channels:    make(map[string]*dg.Channel),
		Permissions: make(map[string]int64),
		Overwrites:  make(map[string][]*dg.ApplicationCommand),
	}
}

func (s *Session) InteractionRespond(i *dg.Interaction, r *dg.InteractionResponse, options ...dg.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RespondErr != nil {
		return s.RespondErr
	}
	s.Responses = append(s.Responses, r)
	return nil
}

func (s *Session) InteractionResponseEdit(i *dg.Interaction, newresp *dg.WebhookEdit, options ...dg.RequestOption) (*dg.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Edits = append(s.Edits, newresp)
	return &dg.Message{}, nil
}

func (s *Session) FollowupMessageCreate(i *dg.Interaction, wait bool, data *dg.WebhookParams, options ...dg.RequestOption) (*dg.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Followups = append(s.Followups, data)
	return &dg.Message{}, nil
}

func (s *Session) FollowupMessageEdit(i *dg.Interaction, messageID string, data *dg.WebhookEdit, options ...dg.RequestOption) (*dg.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Edits = append(s.Edits, data)
	return &dg.Message{ID: messageID}, nil
}

func (s *Session) ChannelMessageSendComplex(channelID string, data *dg.MessageSend, options ...dg.RequestOption) (*dg.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, data)
	return &dg.Message{ChannelID: channelID}, nil
}

func (s *Session) Guild(guildID string, options ...dg.RequestOption) (*dg.Guild, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GuildCalls++
	if s.GuildErr != nil {
		return nil, s.GuildErr
	}
	g, ok := s.Guilds[guildID]
	if !ok {
		return nil, UnknownGuild()
	}
	return g, nil
}

func (s *Session) GuildRoles(guildID string, options ...dg.RequestOption) ([]*dg.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Roles[guildID], nil
}

func (s *Session) Channel(channelID string, options ...dg.RequestOption) (*dg.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.Channels[channelID]
	if !ok {
		return nil, restError(dg.ErrCodeUnknownChannel, "Unknown Channel")
	}
	return c, nil
}

// UserChannelPermissions returns the permissions set for userID, ignoring
// the channel.
func (s *Session) UserChannelPermissions(userID, channelID string, fetchOptions ...dg.RequestOption) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Permissions[userID], nil
}

func (s *Session) ApplicationCommandDelete(appID, guildID, cmdID string, options ...dg.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, cmdID)
	return nil
}

// MessageThreadStartComplex records the thread and returns it with the ID
// "thread-<messageID>".
func (s *Session) MessageThreadStartComplex(channelID, messageID string, data *dg.ThreadStart, options ...dg.RequestOption) (*dg.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Threads = append(s.Threads, data)
	return &dg.Channel{
		ID:       "thread-" + messageID,
		ParentID: channelID,
		Name:     data.Name,
		Type:     dg.ChannelTypeGuildPublicThread,
	}, nil
}

func (s *Session) ApplicationCommandBulkOverwrite(appID, guildID string, commands []*dg.ApplicationCommand, options ...dg.RequestOption) ([]*dg.ApplicationCommand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Overwrites[guildID] = commands
	return commands, nil
}

func (s *Session) HeartbeatLatency() time.Duration {
	return s.Latency
}

func (s *Session) AddHandler(handler any) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
	idx := len(s.handlers) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.handlers[idx] = nil
	}
}

func (s *Session) AddHandlerOnce(handler any) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onceHandler = append(s.onceHandler, handler)
	idx := len(s.onceHandler) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.onceHandler[idx] = nil
	}
}

// Handlers returns the registered, not yet removed handlers.
func (s *Session) Handlers() (persistent, once []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.handlers {
		if h != nil {
			persistent = append(persistent, h)
		}
	}
	for _, h := range s.onceHandler {
		if h != nil {
			once = append(once, h)
		}
	}
	return persistent, once
}

// LastEmbed returns the first embed of the most recent reply of any kind.
func (s *Session) LastEmbed() *dg.MessageEmbed {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.Followups); n > 0 && len(s.Followups[n-1].Embeds) > 0 {
		return s.Followups[n-1].Embeds[0]
	}
	if n := len(s.Messages); n > 0 && len(s.Messages[n-1].Embeds) > 0 {
		return s.Messages[n-1].Embeds[0]
	}
	if n := len(s.Edits); n > 0 && s.Edits[n-1].Embeds != nil && len(*s.Edits[n-1].Embeds) > 0 {
		return (*s.Edits[n-1].Embeds)[0]
	}
	if n := len(s.Responses); n > 0 && s.Responses[n-1].Data != nil && len(s.Responses[n-1].Data.Embeds) > 0 {
		return s.Responses[n-1].Data.Embeds[0]
	}
	return nil
}

// ResponseCount returns how many initial responses were sent.
func (s *Session) ResponseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Responses)
}

func UnknownGuild() error {
	return restError(dg.ErrCodeUnknownGuild, "Unknown Guild")
}

func restError(code int, message string) error {
	return &dg.RESTError{
		Response:     &http.Response{StatusCode: http.StatusNotFound, Status: "404 Not Found"},
		ResponseBody: []byte(message),
		Message:      &dg.APIErrorMessage{Code: code, Message: message},
	}
}
