package handlers_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	dg "github.com/bwmarrin/discordgo"
	"github.com/runpod/poddy-sub000/internal/cache"
	"github.com/runpod/poddy-sub000/internal/discordtest"
	"github.com/runpod/poddy-sub000/internal/handlers"
	"github.com/runpod/poddy-sub000/internal/language"
	"github.com/runpod/poddy-sub000/internal/models"
	"github.com/runpod/poddy-sub000/internal/response"
	"github.com/runpod/poddy-sub000/internal/telemetry"
	"github.com/runpod/poddy-sub000/internal/tracking"
	"github.com/runpod/poddy-sub000/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stub struct {
	meta    handlers.Metadata
	run     func(ctx context.Context, inv *handlers.Invocation) error
	calls   int
	last    *handlers.Invocation
	choices []*dg.ApplicationCommandOptionChoice
}

func (s *stub) Metadata() handlers.Metadata { return s.meta }

func (s *stub) Run(ctx context.Context, inv *handlers.Invocation) error {
	s.calls++
	s.last = inv
	if s.run != nil {
		return s.run(ctx, inv)
	}
	return inv.Responder.Send(rpOK())
}

func rpOK() response.MessageOptions {
	return response.MessageOptions{Content: "ok"}
}

func utilsFailure(title string) utils.Failure {
	return utils.Failure{Type: utils.ErrBadInput, Title: title, Message: "denied"}
}

type autocompleteStub struct {
	stub
	err error
}

func (s *autocompleteStub) Autocomplete(ctx context.Context, inv *handlers.Invocation) ([]*dg.ApplicationCommandOptionChoice, error) {
	s.last = inv
	return s.choices, s.err
}

type preCheckStub struct {
	stub
	result handlers.Result
}

func (s *preCheckStub) PreCheck(ctx context.Context, inv *handlers.Invocation) (handlers.Result, error) {
	return s.result, nil
}

type reportStore struct {
	mu      sync.Mutex
	reports []models.ErrorReport
}

func (s *reportStore) Create(_ context.Context, m models.Mappable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := m.(models.ErrorReport); ok {
		s.reports = append(s.reports, r)
	}
	return nil
}

type fixture struct {
	s       *discordtest.Session
	r       *handlers.Registry
	d       *handlers.Dispatcher
	rec     *telemetry.Recorder
	tracker *tracking.Tracker
	reports *reportStore
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	langs, err := language.NewRegistry(dg.EnglishUS)
	require.NoError(t, err)

	c, err := cache.NewCache("", discard(), cache.Options{OwnerTTL: time.Hour, ChannelTTL: time.Minute, RolesTTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	f := fixture{
		s:       discordtest.NewSession(),
		r:       handlers.NewRegistry(),
		rec:     telemetry.NewRecorder(discard(), nil),
		reports: &reportStore{},
	}
	f.tracker = tracking.NewTracker(discard(), f.reports)
	f.d = handlers.NewDispatcher(handlers.Dependencies{
		Session:   f.s,
		Cache:     c,
		Languages: langs,
		Tracker:   f.tracker,
		Telemetry: f.rec,
		Logger:    discard(),
		Admins:    []string{"dev"},
	}, f.r, "!")

	return &f
}

func command(name string, perms int64, opts ...*dg.ApplicationCommandInteractionDataOption) *dg.Interaction {
	return &dg.Interaction{
		ID:             "i1",
		AppID:          "app",
		Type:           dg.InteractionApplicationCommand,
		GuildID:        "g1",
		ChannelID:      "c1",
		Locale:         dg.EnglishUS,
		AppPermissions: -1,
		Member: &dg.Member{
			User:        &dg.User{ID: "u1"},
			Permissions: perms,
		},
		Data: dg.ApplicationCommandInteractionData{ID: "cmd1", Name: name, Options: opts},
	}
}

func button(customID string) *dg.Interaction {
	return &dg.Interaction{
		ID:        "i2",
		Type:      dg.InteractionMessageComponent,
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    &dg.Member{User: &dg.User{ID: "u1"}},
		Data:      dg.MessageComponentInteractionData{CustomID: customID, ComponentType: dg.ButtonComponent},
	}
}

func TestLocalizedCommandTreeResolvesToConfig(t *testing.T) {
	f := newFixture(t)
	config := &stub{meta: handlers.Metadata{Name: "config"}}
	events := &stub{meta: handlers.Metadata{Name: "events"}}
	f.r.MustRegister(handlers.KindCommand, config, events)

	i := command("configuracion", 0, &dg.ApplicationCommandInteractionDataOption{
		Name: "canal_hilo_auto",
		Type: dg.ApplicationCommandOptionSubCommandGroup,
		Options: []*dg.ApplicationCommandInteractionDataOption{{
			Name: "agregar",
			Type: dg.ApplicationCommandOptionSubCommand,
			Options: []*dg.ApplicationCommandInteractionDataOption{{
				Name:  "canal",
				Type:  dg.ApplicationCommandOptionChannel,
				Value: "42",
			}},
		}},
	})
	i.Locale = dg.SpanishES

	f.d.HandleInteraction(context.Background(), i, 0)

	require.Equal(t, 1, config.calls)
	assert.Zero(t, events.calls)

	inv := config.last
	assert.Equal(t, "config-auto_thread_channel-add", inv.Name)
	assert.Equal(t, "auto_thread_channel", inv.Args.SubCommandGroup)
	assert.Equal(t, "add", inv.Args.SubCommand)
	require.Contains(t, inv.Args.Channels, "channel")
	assert.Equal(t, "42", inv.Args.Channels["channel"].ID)
	assert.Equal(t, dg.SpanishES, inv.Language.Locale)
	assert.Equal(t, int64(1), f.rec.Count("interactions", "application_command"))
}

func TestMostSpecificCommandHandlerWins(t *testing.T) {
	f := newFixture(t)
	config := &stub{meta: handlers.Metadata{Name: "config"}}
	add := &stub{meta: handlers.Metadata{Name: "config-auto_thread_channel-add"}}
	f.r.MustRegister(handlers.KindCommand, config, add)

	h, ok := f.r.LookupCommand(handlers.KindCommand, []string{"config", "auto_thread_channel", "add"})
	require.True(t, ok)
	assert.Same(t, add, h)

	h, ok = f.r.LookupCommand(handlers.KindCommand, []string{"config", "auto_thread_channel", "list"})
	require.True(t, ok)
	assert.Same(t, config, h)

	_, ok = f.r.LookupCommand(handlers.KindCommand, []string{"events"})
	assert.False(t, ok)

	_, ok = f.r.Lookup(handlers.KindCommand, "config-auto_thread_channel-list")
	assert.False(t, ok)
}

func TestHyphenatedCommandDoesNotFallBackToAnotherCommand(t *testing.T) {
	f := newFixture(t)
	ping := &stub{meta: handlers.Metadata{Name: "ping"}}
	f.r.MustRegister(handlers.KindCommand, ping)

	_, ok := f.r.LookupCommand(handlers.KindCommand, []string{"ping-legacy"})
	assert.False(t, ok)

	f.d.HandleInteraction(context.Background(), command("ping-legacy", 0), 0)

	assert.Zero(t, ping.calls)
	assert.Equal(t, []string{"cmd1"}, f.s.Deleted)
	assert.Equal(t, "No Longer Exists", f.s.LastEmbed().Title)

	sub := command("ping", 0, &dg.ApplicationCommandInteractionDataOption{
		Name: "legacy",
		Type: dg.ApplicationCommandOptionSubCommand,
	})
	f.d.HandleInteraction(context.Background(), sub, 0)
	assert.Equal(t, 1, ping.calls)
	assert.Equal(t, "ping-legacy", ping.last.Name)
}

func TestComponentPrefixMatching(t *testing.T) {
	r := handlers.NewRegistry()
	escalate := &stub{meta: handlers.Metadata{Name: "escalateToZendesk"}}
	thread := &stub{meta: handlers.Metadata{Name: "escalateToZendesk.thread"}}
	r.MustRegister(handlers.KindButton, escalate)

	h, ok := r.Lookup(handlers.KindButton, "escalateToZendesk.thread.1")
	require.True(t, ok)
	assert.Same(t, escalate, h)

	// Prefix matching also claims IDs that merely start with the name.
	h, ok = r.Lookup(handlers.KindButton, "escalateToZendeskExtra")
	require.True(t, ok)
	assert.Same(t, escalate, h)

	_, ok = r.Lookup(handlers.KindButton, "escalate")
	assert.False(t, ok)

	_, ok = r.Lookup(handlers.KindModal, "escalateToZendesk.thread.1")
	assert.False(t, ok)

	r.MustRegister(handlers.KindButton, thread)
	h, ok = r.Lookup(handlers.KindButton, "escalateToZendesk.thread.1")
	require.True(t, ok)
	assert.Same(t, thread, h)
}

func TestDuplicateRegistrationIsRejected(t *testing.T) {
	r := handlers.NewRegistry()
	require.NoError(t, r.Register(handlers.KindButton, &stub{meta: handlers.Metadata{Name: "a"}}))
	assert.ErrorIs(t, r.Register(handlers.KindButton, &stub{meta: handlers.Metadata{Name: "a"}}), handlers.ErrDuplicate)

	require.NoError(t, r.Register(handlers.KindCommand, &stub{meta: handlers.Metadata{Name: "ping"}}))
	assert.ErrorIs(t, r.Register(handlers.KindCommand, &stub{meta: handlers.Metadata{Name: "ping"}}), handlers.ErrDuplicate)

	// Same name under another kind is fine.
	assert.NoError(t, r.Register(handlers.KindText, &stub{meta: handlers.Metadata{Name: "ping"}}))
	assert.Error(t, r.Register(handlers.KindCommand, &stub{}))
}

func TestButtonDispatchUsesPrefixHandler(t *testing.T) {
	f := newFixture(t)
	escalate := &stub{meta: handlers.Metadata{Name: "escalateToZendesk"}}
	f.r.MustRegister(handlers.KindButton, escalate)

	f.d.HandleInteraction(context.Background(), button("escalateToZendesk.thread.1"), 0)

	require.Equal(t, 1, escalate.calls)
	assert.Equal(t, "escalateToZendesk", escalate.last.Name)
	assert.Equal(t, "escalateToZendesk.thread.1", escalate.last.CustomID)
	assert.Equal(t, int64(1), f.rec.Count("interactions", "button"))
}

func TestMissingSingleUserPermission(t *testing.T) {
	f := newFixture(t)
	h := &stub{meta: handlers.Metadata{Name: "config", UserPermissions: dg.PermissionManageGuild}}
	f.r.MustRegister(handlers.KindCommand, h)

	f.d.HandleInteraction(context.Background(), command("config", dg.PermissionSendMessages), 0)

	assert.Zero(t, h.calls)
	embed := f.s.LastEmbed()
	require.NotNil(t, embed)
	assert.Equal(t, "Missing Permissions", embed.Title)
	assert.Equal(t, "You need the Manage Server permission to use this.", embed.Description)
}

func TestMissingSeveralUserPermissions(t *testing.T) {
	f := newFixture(t)
	h := &stub{meta: handlers.Metadata{Name: "config", UserPermissions: dg.PermissionManageGuild | dg.PermissionManageChannels}}
	f.r.MustRegister(handlers.KindCommand, h)

	f.d.HandleInteraction(context.Background(), command("config", 0), 0)

	assert.Zero(t, h.calls)
	assert.Equal(t, "You need the following permissions to use this: Manage Channels and Manage Server.", f.s.LastEmbed().Description)
}

func TestMissingClientPermission(t *testing.T) {
	f := newFixture(t)
	h := &stub{meta: handlers.Metadata{Name: "ping", ClientPermissions: dg.PermissionEmbedLinks}}
	f.r.MustRegister(handlers.KindCommand, h)

	i := command("ping", 0)
	i.AppPermissions = dg.PermissionSendMessages
	f.d.HandleInteraction(context.Background(), i, 0)

	assert.Zero(t, h.calls)
	assert.Equal(t, "I need the Embed Links permission to do this.", f.s.LastEmbed().Description)
}

func TestValidationRejectsExactlyTheFailingChecks(t *testing.T) {
	f := newFixture(t)
	f.s.Guilds["g1"] = &dg.Guild{ID: "g1", OwnerID: "owner"}

	for mask := 0; mask < 16; mask++ {
		for held := 0; held < 16; held++ {
			meta := handlers.Metadata{Name: "x"}
			if mask&1 != 0 {
				meta.OwnerOnly = true
			}
			if mask&2 != 0 {
				meta.DevOnly = true
			}
			if mask&4 != 0 {
				meta.UserPermissions = dg.PermissionManageGuild
			}
			if mask&8 != 0 {
				meta.ClientPermissions = dg.PermissionEmbedLinks
			}

			i := command("x", 0)
			i.AppPermissions = 0
			user := "someone"
			if held&1 != 0 && held&2 != 0 {
				continue // one user cannot be both owner and a different admin
			}
			if held&1 != 0 {
				user = "owner"
			}
			if held&2 != 0 {
				user = "dev"
			}
			i.Member.User.ID = user
			if held&4 != 0 {
				i.Member.Permissions = dg.PermissionManageGuild
			}
			if held&8 != 0 {
				i.AppPermissions = dg.PermissionEmbedLinks
			}

			rejected := (meta.OwnerOnly && user != "owner") ||
				(meta.DevOnly && user != "dev") ||
				(meta.UserPermissions != 0 && held&4 == 0) ||
				(meta.ClientPermissions != 0 && held&8 == 0)

			r := handlers.NewRegistry()
			h := &stub{meta: meta}
			r.MustRegister(handlers.KindCommand, h)
			d := handlers.NewDispatcher(dependencies(f), r, "!")
			d.HandleInteraction(context.Background(), i, 0)

			assert.Equal(t, !rejected, h.calls == 1, "flags %04b held %04b", mask, held)
		}
	}
}

func dependencies(f *fixture) handlers.Dependencies {
	langs, _ := language.NewRegistry(dg.EnglishUS)
	c, _ := cache.NewCache("", discard(), cache.Options{OwnerTTL: time.Hour})
	return handlers.Dependencies{
		Session:   f.s,
		Cache:     c,
		Languages: langs,
		Tracker:   tracking.NewTracker(discard(), nil),
		Telemetry: f.rec,
		Logger:    discard(),
		Admins:    []string{"dev"},
	}
}

func TestOwnerOnlyUsesCachedOwner(t *testing.T) {
	f := newFixture(t)
	f.s.Guilds["g1"] = &dg.Guild{ID: "g1", OwnerID: "owner"}
	h := &stub{meta: handlers.Metadata{Name: "reset", OwnerOnly: true}}
	f.r.MustRegister(handlers.KindCommand, h)

	i := command("reset", 0)
	f.d.HandleInteraction(context.Background(), i, 0)
	assert.Zero(t, h.calls)
	assert.Equal(t, "Owner Only", f.s.LastEmbed().Title)

	i = command("reset", 0)
	i.Member.User.ID = "owner"
	f.d.HandleInteraction(context.Background(), i, 0)
	assert.Equal(t, 1, h.calls)

	assert.Equal(t, 1, f.s.GuildCalls)
}

func TestOwnerOnlyInUnknownGuildIsInternal(t *testing.T) {
	f := newFixture(t)
	h := &stub{meta: handlers.Metadata{Name: "reset", OwnerOnly: true}}
	f.r.MustRegister(handlers.KindCommand, h)

	f.d.HandleInteraction(context.Background(), command("reset", 0), 0)
	f.tracker.Wait()

	assert.Zero(t, h.calls)
	embed := f.s.LastEmbed()
	require.NotNil(t, embed)
	assert.Equal(t, "Something Went Wrong", embed.Title)
	require.NotNil(t, embed.Footer)

	require.Len(t, f.reports.reports, 1)
	report := f.reports.reports[0]
	assert.Equal(t, embed.Footer.Text, report.ID)
	assert.Contains(t, report.Error, "owner of unknown guild g1")
	assert.Contains(t, report.Error, "Unknown Guild")
}

func TestOwnerLookupFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.s.GuildErr = errors.New("gateway timeout")
	h := &stub{meta: handlers.Metadata{Name: "reset", OwnerOnly: true}}
	f.r.MustRegister(handlers.KindCommand, h)

	f.d.HandleInteraction(context.Background(), command("reset", 0), 0)
	f.tracker.Wait()

	assert.Zero(t, h.calls)
	assert.Equal(t, "Something Went Wrong", f.s.LastEmbed().Title)

	require.Len(t, f.reports.reports, 1)
	report := f.reports.reports[0]
	assert.Contains(t, report.Error, "gateway timeout")
	assert.NotContains(t, report.Error, "unknown guild")
}

func TestGuildOwnerKeepsRESTError(t *testing.T) {
	f := newFixture(t)
	deps := dependencies(f)

	_, err := deps.GuildOwner(context.Background(), "missing")

	var rerr *dg.RESTError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, dg.ErrCodeUnknownGuild, rerr.Message.Code)
}

func TestDevOnly(t *testing.T) {
	f := newFixture(t)
	h := &stub{meta: handlers.Metadata{Name: "eval", DevOnly: true}}
	f.r.MustRegister(handlers.KindCommand, h)

	f.d.HandleInteraction(context.Background(), command("eval", 0), 0)
	assert.Zero(t, h.calls)
	assert.Equal(t, "Developers Only", f.s.LastEmbed().Title)

	i := command("eval", 0)
	i.Member.User.ID = "dev"
	f.d.HandleInteraction(context.Background(), i, 0)
	assert.Equal(t, 1, h.calls)
}

func TestRunErrorRepliesWithCorrelationID(t *testing.T) {
	f := newFixture(t)
	h := &stub{
		meta: handlers.Metadata{Name: "ping"},
		run:  func(context.Context, *handlers.Invocation) error { return errors.New("boom") },
	}
	f.r.MustRegister(handlers.KindCommand, h)

	f.d.HandleInteraction(context.Background(), command("ping", 0), 0)

	require.Equal(t, 1, f.s.ResponseCount())
	embed := f.s.LastEmbed()
	require.NotNil(t, embed)
	require.NotNil(t, embed.Footer)
	id := embed.Footer.Text
	assert.NotEmpty(t, id)
	assert.Contains(t, embed.Description, id)
	assert.Equal(t, dg.MessageFlagsEphemeral, f.s.Responses[0].Data.Flags)
}

func TestRunErrorAfterDeferIsFollowup(t *testing.T) {
	f := newFixture(t)
	h := &stub{
		meta: handlers.Metadata{Name: "ping"},
		run: func(_ context.Context, inv *handlers.Invocation) error {
			require.NoError(t, inv.Responder.Defer(true))
			return errors.New("boom")
		},
	}
	f.r.MustRegister(handlers.KindCommand, h)

	f.d.HandleInteraction(context.Background(), command("ping", 0), 0)

	assert.Equal(t, 1, f.s.ResponseCount())
	require.Len(t, f.s.Followups, 1)
	assert.Equal(t, "Something Went Wrong", f.s.LastEmbed().Title)
}

func TestPanicIsRecovered(t *testing.T) {
	f := newFixture(t)
	h := &stub{
		meta: handlers.Metadata{Name: "ping"},
		run:  func(context.Context, *handlers.Invocation) error { panic("kaboom") },
	}
	f.r.MustRegister(handlers.KindCommand, h)

	assert.NotPanics(t, func() {
		f.d.HandleInteraction(context.Background(), command("ping", 0), 0)
	})
	assert.Equal(t, "Something Went Wrong", f.s.LastEmbed().Title)
}

func TestUnknownCommandIsDeletedAndReported(t *testing.T) {
	f := newFixture(t)

	f.d.HandleInteraction(context.Background(), command("events", 0), 0)

	assert.Equal(t, []string{"cmd1"}, f.s.Deleted)
	embed := f.s.LastEmbed()
	require.NotNil(t, embed)
	assert.Equal(t, "No Longer Exists", embed.Title)
	assert.Contains(t, embed.Description, "command")
}

func TestUnknownButtonIsReported(t *testing.T) {
	f := newFixture(t)

	f.d.HandleInteraction(context.Background(), button("gone.1"), 0)

	assert.Empty(t, f.s.Deleted)
	assert.Contains(t, f.s.LastEmbed().Description, "component")
}

func TestPreCheckDenies(t *testing.T) {
	f := newFixture(t)
	h := &preCheckStub{
		stub:   stub{meta: handlers.Metadata{Name: "escalateToZendesk"}},
		result: handlers.Deny(utilsFailure("Not a Thread")),
	}
	f.r.MustRegister(handlers.KindButton, h)

	f.d.HandleInteraction(context.Background(), button("escalateToZendesk.1"), 0)

	assert.Zero(t, h.calls)
	assert.Equal(t, "Not a Thread", f.s.LastEmbed().Title)
}

func TestPreCheckHaltIsSilent(t *testing.T) {
	f := newFixture(t)
	h := &preCheckStub{
		stub:   stub{meta: handlers.Metadata{Name: "escalateToZendesk"}},
		result: handlers.Halt(),
	}
	f.r.MustRegister(handlers.KindButton, h)

	f.d.HandleInteraction(context.Background(), button("escalateToZendesk.1"), 0)

	assert.Zero(t, h.calls)
	assert.Zero(t, f.s.ResponseCount())
}

func TestAutocomplete(t *testing.T) {
	f := newFixture(t)
	h := &autocompleteStub{stub: stub{
		meta:    handlers.Metadata{Name: "help"},
		choices: []*dg.ApplicationCommandOptionChoice{{Name: "ping", Value: "ping"}},
	}}
	f.r.MustRegister(handlers.KindCommand, h)

	i := command("help", 0, &dg.ApplicationCommandInteractionDataOption{
		Name: "command", Type: dg.ApplicationCommandOptionString, Value: "pi", Focused: true,
	})
	i.Type = dg.InteractionApplicationCommandAutocomplete
	f.d.HandleInteraction(context.Background(), i, 0)

	require.Equal(t, 1, f.s.ResponseCount())
	assert.Equal(t, dg.InteractionApplicationCommandAutocompleteResult, f.s.Responses[0].Type)
	assert.Len(t, f.s.Responses[0].Data.Choices, 1)
	require.NotNil(t, h.last.Args.Focused)
	assert.Equal(t, "command", h.last.Args.Focused.Name)
	assert.Equal(t, "pi", h.last.Args.Focused.Value)
	assert.Zero(t, h.calls)
}

func TestAutocompleteErrorAnswersEmpty(t *testing.T) {
	f := newFixture(t)
	h := &autocompleteStub{stub: stub{meta: handlers.Metadata{Name: "help"}}, err: errors.New("boom")}
	f.r.MustRegister(handlers.KindCommand, h)

	i := command("help", 0)
	i.Type = dg.InteractionApplicationCommandAutocomplete
	f.d.HandleInteraction(context.Background(), i, 0)

	require.Equal(t, 1, f.s.ResponseCount())
	assert.Empty(t, f.s.Responses[0].Data.Choices)
}

func TestModalFields(t *testing.T) {
	f := newFixture(t)
	h := &stub{meta: handlers.Metadata{Name: "escalateToZendeskModal"}}
	f.r.MustRegister(handlers.KindModal, h)

	f.d.HandleInteraction(context.Background(), &dg.Interaction{
		ID:     "i3",
		Type:   dg.InteractionModalSubmit,
		Member: &dg.Member{User: &dg.User{ID: "u1"}},
		Data: dg.ModalSubmitInteractionData{
			CustomID: "escalateToZendeskModal.t1",
			Components: []dg.MessageComponent{&dg.ActionsRow{Components: []dg.MessageComponent{
				&dg.TextInput{CustomID: "summary", Value: "it broke"},
			}}},
		},
	}, 0)

	require.Equal(t, 1, h.calls)
	assert.Equal(t, "it broke", h.last.Args.Fields["summary"])
}

func TestTextCommand(t *testing.T) {
	f := newFixture(t)
	h := &stub{meta: handlers.Metadata{Name: "ping"}}
	f.r.MustRegister(handlers.KindText, h)

	ctx := context.Background()
	f.d.HandleTextCommand(ctx, &dg.Message{ID: "m1", ChannelID: "c1", Content: "!PING now", Author: &dg.User{ID: "u1"}}, 0)
	f.d.HandleTextCommand(ctx, &dg.Message{ID: "m2", ChannelID: "c1", Content: "!ping", Author: &dg.User{ID: "b", Bot: true}}, 0)
	f.d.HandleTextCommand(ctx, &dg.Message{ID: "m3", ChannelID: "c1", Content: "!unknown", Author: &dg.User{ID: "u1"}}, 0)
	f.d.HandleTextCommand(ctx, &dg.Message{ID: "m4", ChannelID: "c1", Content: "ping", Author: &dg.User{ID: "u1"}}, 0)

	require.Equal(t, 1, h.calls)
	assert.Equal(t, []string{"now"}, h.last.Args.Text)
	require.Len(t, f.s.Messages, 1)
	assert.Equal(t, "m1", f.s.Messages[0].Reference.MessageID)
}

func TestTextCommandPermissionsFromRoles(t *testing.T) {
	f := newFixture(t)
	f.s.Guilds["g1"] = &dg.Guild{ID: "g1", OwnerID: "owner"}
	f.s.Roles["g1"] = []*dg.Role{
		{ID: "g1", Permissions: dg.PermissionSendMessages},
		{ID: "mod", Permissions: dg.PermissionManageGuild},
	}
	h := &stub{meta: handlers.Metadata{Name: "setup", UserPermissions: dg.PermissionManageGuild}}
	f.r.MustRegister(handlers.KindText, h)

	ctx := context.Background()
	f.d.HandleTextCommand(ctx, &dg.Message{
		ID: "m1", GuildID: "g1", ChannelID: "c1", Content: "!setup",
		Author: &dg.User{ID: "u1"}, Member: &dg.Member{},
	}, 0)
	assert.Zero(t, h.calls)

	f.d.HandleTextCommand(ctx, &dg.Message{
		ID: "m2", GuildID: "g1", ChannelID: "c1", Content: "!setup",
		Author: &dg.User{ID: "u2"}, Member: &dg.Member{Roles: []string{"mod"}},
	}, 0)
	assert.Equal(t, 1, h.calls)
}
