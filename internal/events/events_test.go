package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	dg "github.com/bwmarrin/discordgo"
	"github.com/runpod/poddy-sub000/internal/discordtest"
	"github.com/runpod/poddy-sub000/internal/events"
	"github.com/runpod/poddy-sub000/internal/models"
	"github.com/runpod/poddy-sub000/internal/telemetry"
	"github.com/runpod/poddy-sub000/internal/tracking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, r models.Mappable) error {
	return m.Called(ctx, r).Error(0)
}

func deps(store tracking.Store) events.Dependencies {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	return events.Dependencies{
		Tracker:   tracking.NewTracker(l, store),
		Telemetry: telemetry.NewRecorder(l, nil),
		Logger:    l,
	}
}

func TestListenAndRemove(t *testing.T) {
	s := discordtest.NewSession()
	d := deps(nil)

	var got []string
	l := events.New("GUILD_CREATE", false, func(_ context.Context, e *dg.GuildCreate) error {
		got = append(got, e.ID)
		return nil
	}, d)
	once := events.New("READY", true, func(context.Context, *dg.Ready) error { return nil }, d)

	l.Listen(context.Background(), s)
	once.Listen(context.Background(), s)

	persistent, onceHandlers := s.Handlers()
	require.Len(t, persistent, 1)
	require.Len(t, onceHandlers, 1)

	fn, ok := persistent[0].(func(*dg.Session, *dg.GuildCreate))
	require.True(t, ok)
	fn(nil, &dg.GuildCreate{Guild: &dg.Guild{ID: "g1"}})
	assert.Equal(t, []string{"g1"}, got)
	assert.Equal(t, int64(1), d.Telemetry.Count("events", "GUILD_CREATE"))

	l.RemoveListener()
	l.RemoveListener()
	persistent, _ = s.Handlers()
	assert.Empty(t, persistent)
}

func TestHandleCapturesErrors(t *testing.T) {
	store := &mockStore{}
	store.On("Create", mock.Anything, mock.AnythingOfType("models.ErrorReport")).Return(nil)

	d := deps(store)
	l := events.New("MESSAGE_CREATE", false, func(context.Context, *dg.MessageCreate) error {
		return errors.New("boom")
	}, d)
	l.Handle(context.Background(), &dg.MessageCreate{Message: &dg.Message{ID: "m1"}})
	d.Tracker.Wait()

	store.AssertNumberOfCalls(t, "Create", 1)
	report := store.Calls[0].Arguments.Get(1).(models.ErrorReport)
	assert.Equal(t, "boom", report.Error)
	assert.Equal(t, "MESSAGE_CREATE", report.Extras["event"])
}

func TestHandleRecoversPanics(t *testing.T) {
	store := &mockStore{}
	store.On("Create", mock.Anything, mock.Anything).Return(nil)

	d := deps(store)
	l := events.New("GUILD_DELETE", false, func(context.Context, *dg.GuildDelete) error {
		panic("kaboom")
	}, d)

	assert.NotPanics(t, func() {
		l.Handle(context.Background(), &dg.GuildDelete{Guild: &dg.Guild{ID: "g1"}})
	})
	d.Tracker.Wait()
	store.AssertNumberOfCalls(t, "Create", 1)
	assert.Equal(t, "GUILD_DELETE", l.Name())
}
