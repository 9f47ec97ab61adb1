package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/graxinc/errutil"
	"github.com/runpod/poddy-sub000/internal/models"
)

var ErrNotFound = errors.New("not found")

type Database struct {
	l       *slog.Logger
	db      *sql.DB
	builder sq.StatementBuilderType
}

func NewDatabase(l *slog.Logger, databaseURL, migrationsURL string) (*Database, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, errutil.With(err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	cache := sq.NewStmtCache(db)
	database := Database{l: l, db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar).RunWith(cache)}

	if err := database.Migrate(migrationsURL, databaseURL); err != nil {
		return nil, errutil.With(err)
	}

	return &database, nil
}

func (db *Database) Close() error {
	return db.db.Close()
}

func (db *Database) Migrate(migrationsURL, databaseURL string) error {
	m, err := migrate.New(migrationsURL, databaseURL)
	if err != nil {
		return errutil.With(err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errutil.With(err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return errutil.With(err)
	}

	db.l.Info("migrations applied", "version", version, "dirty", dirty)

	return nil
}

func (db *Database) Create(ctx context.Context, m models.Mappable) error {
	data := m.Map()
	data["created"] = time.Now().UTC()
	q := db.builder.
		Insert(string(m.Table())).
		SetMap(data)

	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}

	return nil
}

func (db *Database) Update(ctx context.Context, table models.Table, where sq.Eq, updates map[string]any) error {
	updates["updated"] = time.Now().UTC()
	q := db.builder.
		Update(string(table)).
		SetMap(updates).
		Where(where)
	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}

	return nil
}

// Delete soft-deletes rows of tables that carry a deleted column and removes
// them otherwise.
func (db *Database) Delete(ctx context.Context, table models.Table, where sq.Eq) error {
	var hasDeletedColumn bool
	err := db.builder.
		Select("1").
		From("information_schema.columns").
		Where(sq.And{
			sq.Eq{"table_name": string(table)},
			sq.Eq{"column_name": "deleted"},
		}).
		QueryRowContext(ctx).
		Scan(&hasDeletedColumn)

	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return errutil.With(err)
	}

	if hasDeletedColumn {
		now := time.Now().UTC()
		q := db.builder.
			Update(string(table)).
			SetMap(map[string]any{"deleted": now, "updated": now}).
			Where(where)

		if _, err := q.ExecContext(ctx); err != nil {
			return errutil.With(err)
		}
		return nil
	}

	q := db.builder.
		Delete(string(table)).
		Where(where)

	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}

	return nil
}

func (db *Database) Count(ctx context.Context, table models.Table, where sq.Eq) (int, error) {
	var count int

	q := db.builder.
		Select("COUNT(*)").
		From(string(table)).
		Where(where)

	if err := q.QueryRowContext(ctx).Scan(&count); err != nil {
		return count, errutil.With(err)
	}

	return count, nil
}

// PutGuild inserts a guild or refreshes its name and owner, reviving it if
// it was soft-deleted.
func (db *Database) PutGuild(ctx context.Context, guild models.Guild) error {
	m := guild.Map()
	m["created"] = time.Now().UTC()
	q := db.builder.
		Insert(string(models.TableGuilds)).
		SetMap(m).
		Suffix(`ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, owner_id = EXCLUDED.owner_id, deleted = NULL, updated = now()`)
	if _, err := q.ExecContext(ctx); err != nil {
		return errutil.With(err)
	}

	return nil
}

func (db *Database) GetGuild(ctx context.Context, id string) (*models.Guild, error) {
	var g models.Guild
	var settingsRaw []byte
	var updated sql.NullTime

	q := db.builder.
		Select(
			"id",
			"name",
			"owner_id",
			"settings",
			"created",
			"updated",
			"deleted").
		From(string(models.TableGuilds)).
		Where(sq.Eq{"id": id})

	if err := q.QueryRowContext(ctx).Scan(
		&g.ID,
		&g.Name,
		&g.OwnerID,
		&settingsRaw,
		&g.Created,
		&updated,
		&g.Deleted,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errutil.Wrap(ErrNotFound)
		}
		return nil, errutil.Wrap(err)
	}
	g.Updated = updated.Time

	if len(settingsRaw) > 0 {
		if err := json.Unmarshal(settingsRaw, &g.Settings); err != nil {
			return nil, errutil.With(err)
		}
	}

	return &g, nil
}

// SetCommandSetHash records the hash of the command set last synced to a guild.
func (db *Database) SetCommandSetHash(ctx context.Context, guildID, hash string) error {
	return db.Update(ctx, models.TableGuilds, sq.Eq{"id": guildID}, map[string]any{
		"settings": sq.Expr("jsonb_set(COALESCE(settings, '{}'::jsonb), '{command_set_hash}', to_jsonb(?::text))", hash),
	})
}

// AddAutoThreadChannel appends channelID to the guild's auto thread channels.
// It reports false when the channel was already present.
func (db *Database) AddAutoThreadChannel(ctx context.Context, guildID, channelID string) (bool, error) {
	q := db.builder.
		Update(string(models.TableGuilds)).
		Set("settings", sq.Expr(
			"jsonb_set(COALESCE(settings, '{}'::jsonb), '{auto_thread_channels}', COALESCE(settings->'auto_thread_channels', '[]'::jsonb) || to_jsonb(?::text))",
			channelID,
		)).
		Set("updated", time.Now().UTC()).
		Where(sq.Eq{"id": guildID}).
		Where(sq.Expr("NOT COALESCE(settings->'auto_thread_channels', '[]'::jsonb) ?? ?", channelID))

	return db.execAffected(ctx, q)
}

// RemoveAutoThreadChannel drops channelID from the guild's auto thread
// channels. It reports false when the channel was not present.
func (db *Database) RemoveAutoThreadChannel(ctx context.Context, guildID, channelID string) (bool, error) {
	q := db.builder.
		Update(string(models.TableGuilds)).
		Set("settings", sq.Expr(
			"jsonb_set(settings, '{auto_thread_channels}', (settings->'auto_thread_channels') - ?::text)",
			channelID,
		)).
		Set("updated", time.Now().UTC()).
		Where(sq.Eq{"id": guildID}).
		Where(sq.Expr("COALESCE(settings->'auto_thread_channels', '[]'::jsonb) ?? ?", channelID))

	return db.execAffected(ctx, q)
}

func (db *Database) execAffected(ctx context.Context, q sq.UpdateBuilder) (bool, error) {
	res, err := q.ExecContext(ctx)
	if err != nil {
		return false, errutil.With(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errutil.With(err)
	}

	return n > 0, nil
}
