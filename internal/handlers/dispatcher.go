package handlers

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"
	rp "github.com/runpod/poddy-sub000/internal/response"
	"github.com/runpod/poddy-sub000/internal/utils"
)

var ErrNonExistent = errors.New("no handler registered")

// Dispatcher routes interactions and text commands to registered handlers
// and runs them through validate, pre-check and run.
type Dispatcher struct {
	deps     Dependencies
	registry *Registry
	prefix   string
	clientID atomic.Value
}

func NewDispatcher(deps Dependencies, registry *Registry, prefix string) *Dispatcher {
	return &Dispatcher{deps: deps, registry: registry, prefix: prefix}
}

func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// SetClientID records the bot's own user ID once the gateway is ready.
func (d *Dispatcher) SetClientID(id string) {
	d.clientID.Store(id)
}

func (d *Dispatcher) ClientID() string {
	id, _ := d.clientID.Load().(string)
	return id
}

// HandleInteraction routes an INTERACTION_CREATE by interaction type.
func (d *Dispatcher) HandleInteraction(ctx context.Context, i *dg.Interaction, shard int) {
	switch i.Type {
	case dg.InteractionApplicationCommand:
		d.HandleApplicationCommand(ctx, i, shard)
	case dg.InteractionApplicationCommandAutocomplete:
		d.HandleAutocomplete(ctx, i, shard)
	case dg.InteractionMessageComponent:
		if i.MessageComponentData().ComponentType == dg.ButtonComponent {
			d.HandleButton(ctx, i, shard)
		} else {
			d.HandleSelectMenu(ctx, i, shard)
		}
	case dg.InteractionModalSubmit:
		d.HandleModal(ctx, i, shard)
	default:
		d.deps.Logger.Debug("ignoring interaction", "type", i.Type, "id", i.ID)
	}
}

func (d *Dispatcher) HandleApplicationCommand(ctx context.Context, i *dg.Interaction, shard int) {
	data := i.ApplicationCommandData()
	path, args := commandArguments(d.deps.Languages, i.Locale, data)
	d.dispatchCommand(ctx, d.invocation(KindCommand, strings.Join(path, "-"), i, args, shard), path)
}

func (d *Dispatcher) HandleAutocomplete(ctx context.Context, i *dg.Interaction, shard int) {
	data := i.ApplicationCommandData()
	path, args := commandArguments(d.deps.Languages, i.Locale, data)
	d.dispatchCommand(ctx, d.invocation(KindAutocomplete, strings.Join(path, "-"), i, args, shard), path)
}

func (d *Dispatcher) HandleButton(ctx context.Context, i *dg.Interaction, shard int) {
	data := i.MessageComponentData()
	inv := d.invocation(KindButton, data.CustomID, i, componentArguments(data), shard)
	inv.CustomID = data.CustomID
	d.dispatch(ctx, inv)
}

func (d *Dispatcher) HandleSelectMenu(ctx context.Context, i *dg.Interaction, shard int) {
	data := i.MessageComponentData()
	inv := d.invocation(KindSelectMenu, data.CustomID, i, componentArguments(data), shard)
	inv.CustomID = data.CustomID
	d.dispatch(ctx, inv)
}

func (d *Dispatcher) HandleModal(ctx context.Context, i *dg.Interaction, shard int) {
	data := i.ModalSubmitData()
	inv := d.invocation(KindModal, data.CustomID, i, modalArguments(data), shard)
	inv.CustomID = data.CustomID
	d.dispatch(ctx, inv)
}

// HandleTextCommand runs prefixed messages such as "!ping". Messages that
// are not addressed to a known text command are ignored.
func (d *Dispatcher) HandleTextCommand(ctx context.Context, m *dg.Message, shard int) {
	if m.Author == nil || m.Author.Bot || d.prefix == "" || !strings.HasPrefix(m.Content, d.prefix) {
		return
	}

	words := strings.Fields(strings.TrimPrefix(m.Content, d.prefix))
	if len(words) == 0 {
		return
	}

	h, ok := d.registry.Lookup(KindText, words[0])
	if !ok {
		d.deps.Logger.Debug("ignoring unknown text command", "name", words[0], "channel", m.ChannelID)
		return
	}

	d.deps.Telemetry.Increment(ctx, "interactions", KindText.String())

	inv := &Invocation{
		Kind:      KindText,
		Name:      h.Metadata().Name,
		Shard:     shard,
		Message:   m,
		Language:  d.deps.Languages.Default(),
		Args:      textArguments(words[1:]),
		Responder: rp.NewMessageResponder(d.deps.Session, d.deps.Logger, m),
	}
	d.execute(ctx, inv, h)
}

func (d *Dispatcher) invocation(kind Kind, name string, i *dg.Interaction, args Arguments, shard int) *Invocation {
	return &Invocation{
		Kind:        kind,
		Name:        name,
		Shard:       shard,
		Interaction: i,
		Language:    d.deps.Languages.Get(i.Locale),
		Args:        args,
		Responder:   rp.NewResponder(d.deps.Session, d.deps.Logger, i),
	}
}

// dispatchCommand routes a command or autocomplete interaction by its
// resolved path, falling back to the handler of a parent command.
func (d *Dispatcher) dispatchCommand(ctx context.Context, inv *Invocation, path []string) {
	d.deps.Telemetry.Increment(ctx, "interactions", inv.Kind.String())

	h, ok := d.registry.LookupCommand(inv.Kind, path)
	if !ok {
		d.notFound(ctx, inv)
		return
	}

	d.execute(ctx, inv, h)
}

func (d *Dispatcher) dispatch(ctx context.Context, inv *Invocation) {
	d.deps.Telemetry.Increment(ctx, "interactions", inv.Kind.String())

	h, ok := d.registry.Lookup(inv.Kind, inv.Name)
	if !ok {
		d.notFound(ctx, inv)
		return
	}

	if inv.Kind.prefixed() {
		inv.Name = h.Metadata().Name
	}

	d.execute(ctx, inv, h)
}

// execute runs one handler. Panics and errors are captured, and the user is
// told the correlation ID of the stored report.
func (d *Dispatcher) execute(ctx context.Context, inv *Invocation, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			stack = stack[:runtime.Stack(stack, false)]
			d.deps.Logger.Error("panic recovered", "handler", inv.Name, "kind", inv.Kind, "recovered", r, "stack", stack)
			d.fail(ctx, inv, fmt.Errorf("panic: %v", r))
		}
	}()

	res, err := d.check(ctx, inv, h)
	if err != nil {
		d.fail(ctx, inv, err)
		return
	}
	if res.Stopped() {
		d.deny(inv, res)
		return
	}

	if inv.Kind == KindAutocomplete {
		ac, ok := h.(Autocompleter)
		if !ok {
			d.deny(inv, Halt())
			return
		}
		choices, err := ac.Autocomplete(ctx, inv)
		if err != nil {
			d.fail(ctx, inv, err)
			return
		}
		if err := inv.Responder.Autocomplete(choices); err != nil {
			d.deps.Logger.Error("error responding to autocomplete", "handler", inv.Name, "error", err)
		}
		return
	}

	if err := h.Run(ctx, inv); err != nil {
		d.fail(ctx, inv, err)
	}
}

func (d *Dispatcher) check(ctx context.Context, inv *Invocation, h Handler) (Result, error) {
	var (
		res Result
		err error
	)
	if v, ok := h.(Validator); ok {
		res, err = v.Validate(ctx, inv)
	} else {
		res, err = d.validate(ctx, inv, h.Metadata())
	}
	if err != nil || res.Stopped() {
		return res, err
	}

	if pc, ok := h.(PreChecker); ok {
		return pc.PreCheck(ctx, inv)
	}
	return Proceed, nil
}

func (d *Dispatcher) deny(inv *Invocation, res Result) {
	if inv.Kind == KindAutocomplete {
		if !inv.Responder.Acknowledged() {
			if err := inv.Responder.Autocomplete(nil); err != nil {
				d.deps.Logger.Error("error responding to autocomplete", "handler", inv.Name, "error", err)
			}
		}
		return
	}

	f := res.Failure()
	if f == nil {
		return
	}
	if err := inv.Responder.Fail(*f); err != nil {
		d.deps.Logger.Error("error sending failure", "handler", inv.Name, "error", err)
	}
}

// fail reports an unexpected error and answers with its correlation ID.
func (d *Dispatcher) fail(ctx context.Context, inv *Invocation, err error) {
	id := d.capture(ctx, inv, err)
	d.deny(inv, Deny(internalFailure(inv.Language, id)))
}

func (d *Dispatcher) capture(ctx context.Context, inv *Invocation, err error) string {
	if inv.Interaction != nil {
		return d.deps.Tracker.CaptureWithInteraction(ctx, err, inv.Interaction, inv.Name)
	}

	extras := map[string]any{"handler": inv.Name, "kind": inv.Kind.String()}
	if m := inv.Message; m != nil {
		extras["message_id"] = m.ID
		extras["guild_id"] = m.GuildID
		extras["channel_id"] = m.ChannelID
		if m.Author != nil {
			extras["user_id"] = m.Author.ID
		}
	}
	return d.deps.Tracker.CaptureWithExtras(ctx, err, extras)
}

// notFound handles an interaction no handler claims. Stale application
// commands are deleted so Discord stops offering them.
func (d *Dispatcher) notFound(ctx context.Context, inv *Invocation) {
	i := inv.Interaction
	err := errutil.Wrap(fmt.Errorf("%w: %s %q", ErrNonExistent, inv.Kind, inv.Name))
	d.deps.Logger.Warn("non-existent handler", "kind", inv.Kind, "name", inv.Name, "guild", i.GuildID)
	d.capture(ctx, inv, err)

	if inv.Kind == KindCommand || inv.Kind == KindAutocomplete {
		data := i.ApplicationCommandData()
		if derr := d.deps.Session.ApplicationCommandDelete(i.AppID, i.GuildID, data.ID); derr != nil {
			d.deps.Logger.Warn("error deleting stale command", "name", inv.Name, "id", data.ID, "error", derr)
		}
	}

	lang := inv.Language
	kind := "command"
	if inv.Kind.prefixed() {
		kind = "component"
	}
	d.deny(inv, Deny(utils.Failure{
		Type:    utils.ErrNotFound,
		Title:   lang.Get("NON_EXISTENT_TITLE", nil),
		Message: lang.Get("NON_EXISTENT", map[string]any{"type": kind}),
	}))
}
