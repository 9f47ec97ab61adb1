package handlers

import (
	"context"
	"log/slog"
	"time"

	dg "github.com/bwmarrin/discordgo"
	ch "github.com/runpod/poddy-sub000/internal/cache"
	"github.com/runpod/poddy-sub000/internal/language"
	rp "github.com/runpod/poddy-sub000/internal/response"
	"github.com/runpod/poddy-sub000/internal/telemetry"
	"github.com/runpod/poddy-sub000/internal/tracking"
	"github.com/runpod/poddy-sub000/internal/utils"
)

// Session is the part of *discordgo.Session the dispatch core and its
// handlers call.
type Session interface {
	rp.Session
	Guild(guildID string, options ...dg.RequestOption) (*dg.Guild, error)
	GuildRoles(guildID string, options ...dg.RequestOption) ([]*dg.Role, error)
	Channel(channelID string, options ...dg.RequestOption) (*dg.Channel, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...dg.RequestOption) (int64, error)
	ApplicationCommandDelete(appID, guildID, cmdID string, options ...dg.RequestOption) error
	HeartbeatLatency() time.Duration
}

// Dependencies are the collaborators of the dispatcher. Handlers receive
// only what they need through their constructors.
type Dependencies struct {
	Session   Session
	Cache     *ch.Cache
	Languages *language.Registry
	Tracker   *tracking.Tracker
	Telemetry *telemetry.Recorder
	Logger    *slog.Logger
	Admins    []string
}

type Kind int

const (
	KindCommand Kind = iota
	KindAutocomplete
	KindButton
	KindSelectMenu
	KindModal
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "application_command"
	case KindAutocomplete:
		return "autocomplete"
	case KindButton:
		return "button"
	case KindSelectMenu:
		return "select_menu"
	case KindModal:
		return "modal"
	case KindText:
		return "text_command"
	}
	return "unknown"
}

// prefixed reports whether descriptors of this kind are matched by custom-id
// prefix rather than by exact name.
func (k Kind) prefixed() bool {
	return k == KindButton || k == KindSelectMenu || k == KindModal
}

// Metadata is the static description of a registered handler. For
// components Name is a custom-id prefix.
type Metadata struct {
	Name              string
	UserPermissions   int64
	ClientPermissions int64
	OwnerOnly         bool
	DevOnly           bool
}

// Handler is the capability every registered descriptor has.
type Handler interface {
	Metadata() Metadata
	Run(ctx context.Context, inv *Invocation) error
}

// Validator replaces the default owner/developer/permission checks.
type Validator interface {
	Validate(ctx context.Context, inv *Invocation) (Result, error)
}

// PreChecker adds a handler-specific precondition that runs after
// validation passed.
type PreChecker interface {
	PreCheck(ctx context.Context, inv *Invocation) (Result, error)
}

// Definer builds the registration payload of an application command.
type Definer interface {
	Definition(l *language.Registry) *dg.ApplicationCommand
}

// Autocompleter answers autocomplete requests for a command.
type Autocompleter interface {
	Autocomplete(ctx context.Context, inv *Invocation) ([]*dg.ApplicationCommandOptionChoice, error)
}

// Aliased text commands are also reachable under their aliases.
type Aliased interface {
	Aliases() []string
}

// Result is the outcome of a validation stage: proceed, or stop with an
// optional failure to show the user.
type Result struct {
	stop    bool
	failure *utils.Failure
}

// Proceed lets the pipeline continue.
var Proceed = Result{}

// Deny stops the pipeline and replies with f.
func Deny(f utils.Failure) Result {
	return Result{stop: true, failure: &f}
}

// Halt stops the pipeline without a reply; the stage already answered.
func Halt() Result {
	return Result{stop: true}
}

func (r Result) Stopped() bool {
	return r.stop
}

func (r Result) Failure() *utils.Failure {
	return r.failure
}

// Invocation is everything a handler sees for one interaction or text
// command. It is built fresh per dispatch.
type Invocation struct {
	Kind        Kind
	Name        string
	CustomID    string
	Shard       int
	Interaction *dg.Interaction
	Message     *dg.Message
	Language    *language.Language
	Args        Arguments
	Responder   *rp.Responder
}

func (inv *Invocation) User() *dg.User {
	if inv.Interaction != nil {
		if inv.Interaction.Member != nil && inv.Interaction.Member.User != nil {
			return inv.Interaction.Member.User
		}
		return inv.Interaction.User
	}
	if inv.Message != nil {
		return inv.Message.Author
	}
	return nil
}

func (inv *Invocation) GuildID() string {
	if inv.Interaction != nil {
		return inv.Interaction.GuildID
	}
	if inv.Message != nil {
		return inv.Message.GuildID
	}
	return ""
}

func (inv *Invocation) ChannelID() string {
	if inv.Interaction != nil {
		return inv.Interaction.ChannelID
	}
	if inv.Message != nil {
		return inv.Message.ChannelID
	}
	return ""
}

