package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	sq "github.com/Masterminds/squirrel"
	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"
	"github.com/runpod/poddy-sub000/internal/cache"
	"github.com/runpod/poddy-sub000/internal/database"
	"github.com/runpod/poddy-sub000/internal/events"
	"github.com/runpod/poddy-sub000/internal/handlers"
	"github.com/runpod/poddy-sub000/internal/handlers/commands"
	"github.com/runpod/poddy-sub000/internal/language"
	"github.com/runpod/poddy-sub000/internal/models"
	"github.com/runpod/poddy-sub000/internal/telemetry"
	"github.com/runpod/poddy-sub000/internal/tracking"
	"github.com/runpod/poddy-sub000/internal/utils"
)

type Config struct {
	Debug         bool
	Token         string
	Intents       int
	DatabaseURL   string
	MigrationsURL string
	CacheURL      string
	ShardID       int
	ShardCount    int
	Admins        []string
	DevGuildID    string
	TextPrefix    string
	DefaultLocale string
	OwnerTTL      time.Duration
	ChannelTTL    time.Duration
	RolesTTL      time.Duration
}

// Session is the REST surface the bot's event handlers call.
type Session interface {
	handlers.Session
	MessageThreadStartComplex(channelID, messageID string, data *dg.ThreadStart, options ...dg.RequestOption) (*dg.Channel, error)
	ApplicationCommandBulkOverwrite(appID, guildID string, commands []*dg.ApplicationCommand, options ...dg.RequestOption) ([]*dg.ApplicationCommand, error)
}

// Store is the persistence the bot's event handlers need.
type Store interface {
	PutGuild(ctx context.Context, guild models.Guild) error
	GetGuild(ctx context.Context, id string) (*models.Guild, error)
	Delete(ctx context.Context, table models.Table, where sq.Eq) error
	Count(ctx context.Context, table models.Table, where sq.Eq) (int, error)
	SetCommandSetHash(ctx context.Context, guildID, hash string) error
}

type listener interface {
	Name() string
	Listen(ctx context.Context, src events.Source)
	RemoveListener()
}

type Bot struct {
	ctx    context.Context
	cancel context.CancelFunc
	conf   Config

	s   *dg.Session
	api Session
	db  *database.Database
	d   Store
	c   *cache.Cache
	l   *slog.Logger

	langs      *language.Registry
	tracker    *tracking.Tracker
	rec        *telemetry.Recorder
	registry   *handlers.Registry
	dispatcher *handlers.Dispatcher
	listeners  []listener
}

func NewBot(conf Config) (*Bot, error) {
	b := Bot{conf: conf}

	ctx, cancel := context.WithCancel(context.Background())
	b.ctx = ctx
	b.cancel = cancel

	if conf.Debug {
		b.l = slog.Default()
	} else {
		b.l = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{AddSource: true}))
	}

	langs, err := language.NewRegistry(dg.Locale(conf.DefaultLocale))
	if err != nil {
		return nil, errutil.With(err)
	}
	b.langs = langs

	database, err := database.NewDatabase(b.l, conf.DatabaseURL, conf.MigrationsURL)
	if err != nil {
		return nil, errutil.With(err)
	}
	b.db = database
	b.d = database

	cache, err := cache.NewCache(conf.CacheURL, b.l, cache.Options{
		OwnerTTL:   conf.OwnerTTL,
		ChannelTTL: conf.ChannelTTL,
		RolesTTL:   conf.RolesTTL,
	})
	if err != nil {
		return nil, errutil.With(err)
	}
	b.c = cache

	session, err := dg.New("Bot " + conf.Token)
	if err != nil {
		return nil, errutil.With(err)
	}
	b.s = session
	b.api = session

	b.s.Identify.Intents = dg.Intent(conf.Intents)

	b.s.ShardID = conf.ShardID
	b.s.ShardCount = conf.ShardCount
	b.l.Info("sharding enabled", "shard_id", conf.ShardID, "shard_count", conf.ShardCount)

	b.tracker = tracking.NewTracker(b.l, database)
	b.rec = telemetry.NewRecorder(b.l, cache.Client())

	deps := handlers.Dependencies{
		Session:   session,
		Cache:     cache,
		Languages: langs,
		Tracker:   b.tracker,
		Telemetry: b.rec,
		Logger:    b.l,
		Admins:    conf.Admins,
	}
	b.registry = handlers.NewRegistry()
	if err := commands.Register(b.registry, deps, database, b.rec, b.l); err != nil {
		return nil, errutil.With(err)
	}
	b.dispatcher = handlers.NewDispatcher(deps, b.registry, conf.TextPrefix)

	b.subscribe()

	if err := b.s.Open(); err != nil {
		return nil, errutil.With(err)
	}

	go b.status()

	return &b, nil
}

// subscribe registers every gateway listener. It runs before the session
// opens so READY is never missed.
func (b *Bot) subscribe() {
	deps := events.Dependencies{Tracker: b.tracker, Telemetry: b.rec, Logger: b.l}

	b.listeners = []listener{
		events.New("READY", false, b.onReady, deps),
		events.New("GUILD_CREATE", false, b.onGuildCreate, deps),
		events.New("GUILD_UPDATE", false, b.onGuildUpdate, deps),
		events.New("GUILD_DELETE", false, b.onGuildDelete, deps),
		events.New("CHANNEL_UPDATE", false, b.onChannelUpdate, deps),
		events.New("CHANNEL_DELETE", false, b.onChannelDelete, deps),
		events.New("GUILD_ROLE_CREATE", false, b.onRoleCreate, deps),
		events.New("GUILD_ROLE_UPDATE", false, b.onRoleUpdate, deps),
		events.New("GUILD_ROLE_DELETE", false, b.onRoleDelete, deps),
		events.New("INTERACTION_CREATE", false, b.onInteraction, deps),
		events.New("MESSAGE_CREATE", false, b.onMessage, deps),
	}

	for _, l := range b.listeners {
		l.Listen(b.ctx, b.s)
	}
}

func (b *Bot) Close() {
	defer b.db.Close()
	defer b.c.Close()
	defer b.s.Close()

	for _, l := range b.listeners {
		l.RemoveListener()
	}
	b.cancel()

	b.tracker.Wait()
	b.rec.Wait()
}

func (b *Bot) onReady(ctx context.Context, r *dg.Ready) error {
	b.dispatcher.SetClientID(r.User.ID)

	b.l.Info("bot connected to gateway",
		"bot", fmt.Sprintf("%s#%s", r.User.Username, r.User.Discriminator),
		"guilds", len(r.Guilds),
		"version", utils.GetCommit(),
		"shard_id", b.conf.ShardID,
		"shard_count", b.conf.ShardCount,
	)
	return nil
}

func (b *Bot) onInteraction(ctx context.Context, i *dg.InteractionCreate) error {
	b.l.Debug("interaction received", "called", utils.FormatInteraction(i.Interaction), "guild", i.GuildID)
	b.dispatcher.HandleInteraction(ctx, i.Interaction, b.conf.ShardID)
	return nil
}

func (b *Bot) onMessage(ctx context.Context, m *dg.MessageCreate) error {
	b.dispatcher.HandleTextCommand(ctx, m.Message, b.conf.ShardID)
	return b.autoThread(ctx, m.Message)
}

func (b *Bot) status() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	s := 0
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			msg, ok := b.statusMessage(s)
			s = (s + 1) % 2
			if !ok {
				continue
			}

			if err := b.s.UpdateStatusComplex(dg.UpdateStatusData{
				Status: string(dg.StatusOnline),
				Activities: []*dg.Activity{
					{
						Name:  b.s.State.User.Username,
						Type:  dg.ActivityTypeCustom,
						State: msg,
					},
				},
			}); err != nil {
				b.l.Error("error setting bot status", "error", err)
			}
		}
	}
}

func (b *Bot) statusMessage(step int) (string, bool) {
	switch step {
	case 0:
		count, err := b.d.Count(b.ctx, models.TableGuilds, sq.Eq{"deleted": nil})
		if err != nil {
			b.l.Error("error counting guilds", "error", err)
			return "", false
		}
		return fmt.Sprintf("Helping %d servers", count), true
	default:
		return fmt.Sprintf("%d interactions handled", b.rec.Total("interactions")), true
	}
}
