package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	dg "github.com/bwmarrin/discordgo"
	"github.com/runpod/poddy-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestFallbackCacheExpires(t *testing.T) {
	clk := &clock{t: time.Unix(1000, 0)}
	fc := NewFallbackCache(10, 0)
	fc.now = clk.now

	fc.Set("channel", []byte("general"), 30*time.Second)

	data, ok := fc.Get("channel")
	require.True(t, ok)
	assert.Equal(t, "general", string(data))

	clk.t = clk.t.Add(30 * time.Second)
	_, ok = fc.Get("channel")
	assert.False(t, ok)

	fc.expire()
	assert.Zero(t, fc.Len())
}

func TestFallbackCacheEvictsClosestToExpiry(t *testing.T) {
	fc := NewFallbackCache(2, 0)

	fc.Set("short", []byte("1"), time.Second)
	fc.Set("long", []byte("2"), time.Hour)
	fc.Set("new", []byte("3"), time.Hour)

	_, ok := fc.Get("short")
	assert.False(t, ok)
	_, ok = fc.Get("long")
	assert.True(t, ok)
	_, ok = fc.Get("new")
	assert.True(t, ok)

	// Overwriting an existing key never evicts.
	fc.Set("long", []byte("4"), time.Hour)
	assert.Equal(t, 2, fc.Len())
}

func TestFallbackCacheCloseIsIdempotent(t *testing.T) {
	fc := NewFallbackCache(1, time.Millisecond)
	fc.Close()
	fc.Close()
}

func TestCircuitBreakerTransitions(t *testing.T) {
	clk := &clock{t: time.Unix(0, 0)}
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = clk.now
	failure := errors.New("connection refused")

	assert.True(t, cb.Allow())
	cb.Record(failure)
	assert.Equal(t, StateClosed, cb.State())
	cb.Record(failure)
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	clk.t = clk.t.Add(2 * time.Minute)
	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())

	for i := 0; i < 3; i++ {
		cb.Record(nil)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreakerReopensOnHalfOpenFailure(t *testing.T) {
	clk := &clock{t: time.Unix(0, 0)}
	cb := NewCircuitBreaker(1, time.Second)
	cb.now = clk.now

	cb.Record(errors.New("boom"))
	clk.t = clk.t.Add(2 * time.Second)
	require.True(t, cb.Allow())

	cb.Record(errors.New("boom"))
	assert.Equal(t, StateOpen, cb.State())
}

func TestCacheWithoutRedis(t *testing.T) {
	c, err := NewCache("", discard(), Options{OwnerTTL: time.Hour, ChannelTTL: time.Minute, RolesTTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	assert.Nil(t, c.Client())

	_, ok := c.GuildOwner(ctx, "g1")
	assert.False(t, ok)

	c.SetGuildOwner(ctx, "g1", "u1")
	owner, ok := c.GuildOwner(ctx, "g1")
	require.True(t, ok)
	assert.Equal(t, "u1", owner)

	c.SetChannelName(ctx, "c1", "support")
	name, ok := c.ChannelName(ctx, "c1")
	require.True(t, ok)
	assert.Equal(t, "support", name)
	c.ForgetChannel(ctx, "c1")
	_, ok = c.ChannelName(ctx, "c1")
	assert.False(t, ok)

	c.SetGuildRoles(ctx, "g1", []*dg.Role{{ID: "g1", Name: "@everyone", Permissions: 1 << 11}})
	roles, ok := c.GuildRoles(ctx, "g1")
	require.True(t, ok)
	require.Len(t, roles, 1)
	assert.Equal(t, int64(1<<11), roles[0].Permissions)

	c.SetGuildSettings(ctx, "g1", models.GuildSettings{AutoThreadChannels: []string{"c1"}})
	settings, ok := c.GuildSettings(ctx, "g1")
	require.True(t, ok)
	assert.Equal(t, []string{"c1"}, settings.AutoThreadChannels)

	c.ForgetGuildSettings(ctx, "g1")
	_, ok = c.GuildSettings(ctx, "g1")
	assert.False(t, ok)
	_, ok = c.GuildOwner(ctx, "g1")
	assert.True(t, ok)

	c.SetGuildSettings(ctx, "g1", settings)
	c.ForgetGuild(ctx, "g1")
	_, ok = c.GuildSettings(ctx, "g1")
	assert.False(t, ok)
	_, ok = c.GuildOwner(ctx, "g1")
	assert.False(t, ok)
	_, ok = c.GuildRoles(ctx, "g1")
	assert.False(t, ok)
}

func TestCacheRejectsBadURL(t *testing.T) {
	_, err := NewCache("not a url", discard(), Options{})
	assert.Error(t, err)
}

func TestCacheFallsBackWhenRedisIsDown(t *testing.T) {
	c, err := NewCache("redis://127.0.0.1:1/0?dial_timeout=50ms&max_retries=-1", discard(), Options{OwnerTTL: time.Hour})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	c.SetGuildOwner(ctx, "g1", "u1")

	owner, ok := c.GuildOwner(ctx, "g1")
	require.True(t, ok)
	assert.Equal(t, "u1", owner)

	for i := 0; i < 5; i++ {
		c.GuildOwner(ctx, "g1")
	}
	assert.Equal(t, StateOpen, c.b.State())
}
