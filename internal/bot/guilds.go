package bot

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"
	"github.com/runpod/poddy-sub000/internal/database"
	"github.com/runpod/poddy-sub000/internal/handlers"
	"github.com/runpod/poddy-sub000/internal/language"
	"github.com/runpod/poddy-sub000/internal/models"
	"github.com/runpod/poddy-sub000/internal/utils"
)

func (b *Bot) onGuildCreate(ctx context.Context, g *dg.GuildCreate) error {
	if err := b.register(ctx, g.Guild); err != nil {
		return err
	}
	return b.load(ctx, g.ID)
}

func (b *Bot) onGuildUpdate(ctx context.Context, g *dg.GuildUpdate) error {
	return b.register(ctx, g.Guild)
}

func (b *Bot) onGuildDelete(ctx context.Context, g *dg.GuildDelete) error {
	// Outages also arrive as GUILD_DELETE; only a real removal forgets the guild.
	if g.Unavailable {
		b.l.Warn("guild unavailable", "id", g.ID)
		return nil
	}
	return b.remove(ctx, g.ID)
}

func (b *Bot) onChannelUpdate(ctx context.Context, c *dg.ChannelUpdate) error {
	b.c.ForgetChannel(ctx, c.ID)
	return nil
}

func (b *Bot) onChannelDelete(ctx context.Context, c *dg.ChannelDelete) error {
	b.c.ForgetChannel(ctx, c.ID)
	return nil
}

func (b *Bot) onRoleCreate(ctx context.Context, r *dg.GuildRoleCreate) error {
	b.c.ForgetGuildRoles(ctx, r.GuildID)
	return nil
}

func (b *Bot) onRoleUpdate(ctx context.Context, r *dg.GuildRoleUpdate) error {
	b.c.ForgetGuildRoles(ctx, r.GuildID)
	return nil
}

func (b *Bot) onRoleDelete(ctx context.Context, r *dg.GuildRoleDelete) error {
	b.c.ForgetGuildRoles(ctx, r.GuildID)
	return nil
}

// register stores a guild, reviving it if it was removed before, and primes
// the owner cache.
func (b *Bot) register(ctx context.Context, g *dg.Guild) error {
	if err := b.d.PutGuild(ctx, models.Guild{ID: g.ID, Name: g.Name, OwnerID: g.OwnerID}); err != nil {
		return errutil.With(err)
	}

	if g.OwnerID != "" {
		b.c.SetGuildOwner(ctx, g.ID, g.OwnerID)
	}

	b.l.Info("registered guild", "id", g.ID, "name", g.Name)
	return nil
}

func (b *Bot) remove(ctx context.Context, guildID string) error {
	if err := b.d.Delete(ctx, models.TableGuilds, sq.Eq{"id": guildID}); err != nil {
		return errutil.With(err)
	}
	b.c.ForgetGuild(ctx, guildID)

	b.l.Info("removed guild", "id", guildID)
	return nil
}

// load syncs the guild's application commands, skipping the overwrite when
// the hash of the command set is unchanged.
func (b *Bot) load(ctx context.Context, guildID string) error {
	start := time.Now()

	g, err := b.d.GetGuild(ctx, guildID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return errutil.With(err)
	}

	cmds, newHash := commandSet(b.registry, b.langs, guildID == b.conf.DevGuildID, b.l)

	if g != nil && g.Settings.CommandSetHash == newHash {
		b.l.Info("command set unchanged", "guild", guildID)
		return nil
	}

	if _, err := b.api.ApplicationCommandBulkOverwrite(b.dispatcher.ClientID(), guildID, cmds); err != nil {
		return errutil.With(err)
	}

	if err := b.d.SetCommandSetHash(ctx, guildID, newHash); err != nil {
		b.l.Warn("error updating command set hash", "error", err, "guild", guildID, "hash", newHash)
	}

	b.l.Info("command set loaded", "guild", guildID, "loaded", len(cmds), "duration", time.Since(start))
	return nil
}

// commandSet builds the registration payloads of every command and the hash
// identifying the set. Developer commands are only included for the
// development guild.
func commandSet(r *handlers.Registry, langs *language.Registry, dev bool, l *slog.Logger) ([]*dg.ApplicationCommand, string) {
	cmds := []*dg.ApplicationCommand{}

	for _, h := range r.Commands() {
		def, ok := h.(handlers.Definer)
		if !ok || (h.Metadata().DevOnly && !dev) {
			continue
		}

		cmd := def.Definition(langs)
		if result := utils.ValidateCommand(cmd); result.WasModified {
			l.Warn("command was modified during validation", "command", cmd.Name, "errors", result.Errors)
		}
		cmds = append(cmds, cmd)
	}

	var hash string
	bytes, err := json.Marshal(cmds)
	if err == nil {
		hash = fmt.Sprintf("%x", sha256.Sum256(bytes))
	}

	return cmds, hash
}
