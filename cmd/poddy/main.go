package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/runpod/poddy-sub000/internal/bot"
)

type Conf struct {
	Debug         bool          `env:"DEBUG"`
	Token         string        `env:"BOT_TOKEN,required"`
	Intents       int           `env:"BOT_INTENTS" envDefault:"37377"`
	DatabaseURL   string        `env:"DATABASE_URL,required"`
	MigrationsURL string        `env:"MIGRATIONS_URL" envDefault:"file://migrations"`
	CacheURL      string        `env:"REDIS_URL"`
	ShardID       int           `env:"SHARD_ID" envDefault:"0"`
	ShardCount    int           `env:"SHARD_COUNT" envDefault:"1"`
	Admins        []string      `env:"ADMINS" envSeparator:","`
	DevGuildID    string        `env:"DEV_GUILD_ID"`
	TextPrefix    string        `env:"TEXT_PREFIX" envDefault:"!"`
	DefaultLocale string        `env:"DEFAULT_LOCALE" envDefault:"en-US"`
	OwnerTTL      time.Duration `env:"OWNER_CACHE_TTL" envDefault:"1h"`
	ChannelTTL    time.Duration `env:"CHANNEL_CACHE_TTL" envDefault:"30s"`
	RolesTTL      time.Duration `env:"ROLES_CACHE_TTL" envDefault:"5m"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	var conf Conf
	if err := env.Parse(&conf); err != nil {
		panic(err)
	}

	b, err := bot.NewBot(bot.Config{
		Debug:         conf.Debug,
		Token:         conf.Token,
		Intents:       conf.Intents,
		DatabaseURL:   conf.DatabaseURL,
		MigrationsURL: conf.MigrationsURL,
		CacheURL:      conf.CacheURL,
		ShardID:       conf.ShardID,
		ShardCount:    conf.ShardCount,
		Admins:        conf.Admins,
		DevGuildID:    conf.DevGuildID,
		TextPrefix:    conf.TextPrefix,
		DefaultLocale: conf.DefaultLocale,
		OwnerTTL:      conf.OwnerTTL,
		ChannelTTL:    conf.ChannelTTL,
		RolesTTL:      conf.RolesTTL,
	})
	if err != nil {
		panic(err)
	}
	defer b.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
}
