// Package pgstore keeps timelines, media and channels in PostgreSQL.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"playout/internal/catalog"
	"playout/internal/schedule"
)

// DB is the subset of *pgxpool.Pool the store needs. pgxmock pools satisfy
// it in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements schedule.Store. Media and Channels expose the catalog
// tables.
type Store struct {
	db DB
}

// New wraps an open pool.
func New(db DB) *Store {
	return &Store{db: db}
}

// Open connects to dsn and pings the server.
func Open(ctx context.Context, dsn string) (*Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(pool), pool, nil
}

const itemColumns = `id, channel_id, COALESCE(media_id, ''), title, source_url,
	to_char(scheduled_date, 'YYYY-MM-DD'), start_seconds, duration_seconds,
	order_position, status, created_at, updated_at`

const selectDay = `SELECT ` + itemColumns + `
	FROM scheduled_items
	WHERE channel_id = $1 AND scheduled_date = $2::date
	ORDER BY start_seconds, order_position`

const upsertItem = `INSERT INTO scheduled_items (
	id, channel_id, media_id, title, source_url, scheduled_date,
	start_seconds, duration_seconds, order_position, status, created_at, updated_at
) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6::date, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
	start_seconds = EXCLUDED.start_seconds,
	duration_seconds = EXCLUDED.duration_seconds,
	order_position = EXCLUDED.order_position,
	status = EXCLUDED.status,
	title = EXCLUDED.title,
	updated_at = EXCLUDED.updated_at`

func (s *Store) ListDay(ctx context.Context, channelID string, date schedule.Date) ([]schedule.Item, error) {
	rows, err := s.db.Query(ctx, selectDay, channelID, string(date))
	if err != nil {
		return nil, fmt.Errorf("query day: %w", err)
	}
	return collectItems(rows)
}

func (s *Store) Get(ctx context.Context, id string) (schedule.Item, error) {
	row := s.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM scheduled_items WHERE id = $1`, id)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) || isCode(err, "22P02") {
		return schedule.Item{}, fmt.Errorf("item %s: %w", id, schedule.ErrNotFound)
	}
	if err != nil {
		return schedule.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// Update serialises writers on (channel, date) with a transaction-scoped
// advisory lock, locks the day's rows, and applies fn's changes in the same
// transaction. The exclusion constraint is checked at commit.
func (s *Store) Update(ctx context.Context, channelID string, date schedule.Date, fn func(*schedule.Day) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey(channelID, date)); err != nil {
		return fmt.Errorf("lock day: %w", err)
	}
	rows, err := tx.Query(ctx, selectDay+` FOR UPDATE`, channelID, string(date))
	if err != nil {
		return fmt.Errorf("query day: %w", err)
	}
	items, err := collectItems(rows)
	if err != nil {
		return err
	}

	day := schedule.NewDay(channelID, date, items)
	if err := fn(day); err != nil {
		return err
	}
	if !day.Dirty() {
		return tx.Commit(ctx)
	}

	upserts, deletes := day.Changes()
	if len(deletes) > 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM scheduled_items WHERE id = ANY($1::uuid[])`, deletes); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
	}
	for _, it := range upserts {
		_, err := tx.Exec(ctx, upsertItem,
			it.ID, it.ChannelID, it.MediaID, it.Title, it.SourceURL, string(it.Date),
			int(it.Start), it.DurationSeconds, it.OrderPosition, string(it.Status), it.CreatedAt, it.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert item %s: %w", it.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		if isCode(err, "23P01") {
			return fmt.Errorf("commit day %s/%s: overlapping items: %w", channelID, date, err)
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ItemsOn returns every item of every channel on date whose status is in
// statuses. The on-air poller uses it.
func (s *Store) ItemsOn(ctx context.Context, date schedule.Date, statuses ...schedule.Status) ([]schedule.Item, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	rows, err := s.db.Query(ctx, `SELECT `+itemColumns+`
		FROM scheduled_items
		WHERE scheduled_date = $1::date AND status = ANY($2)
		ORDER BY channel_id, start_seconds`, string(date), names)
	if err != nil {
		return nil, fmt.Errorf("query items on %s: %w", date, err)
	}
	return collectItems(rows)
}

func lockKey(channelID string, date schedule.Date) string {
	return channelID + "|" + string(date)
}

func collectItems(rows pgx.Rows) ([]schedule.Item, error) {
	defer rows.Close()
	var out []schedule.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	return out, nil
}

func scanItem(row pgx.Row) (schedule.Item, error) {
	var (
		it                    schedule.Item
		date, status          string
		start, secs, position int
		createdAt, updatedAt  time.Time
	)
	err := row.Scan(&it.ID, &it.ChannelID, &it.MediaID, &it.Title, &it.SourceURL,
		&date, &start, &secs, &position, &status, &createdAt, &updatedAt)
	if err != nil {
		return schedule.Item{}, err
	}
	it.Date = schedule.Date(date)
	it.Start = schedule.TimeOfDay(start)
	it.DurationSeconds = secs
	it.OrderPosition = position
	it.Status = schedule.Status(status)
	it.CreatedAt = createdAt.UTC()
	it.UpdatedAt = updatedAt.UTC()
	return it, nil
}

func isCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// Media returns the catalog.Library backed by media_assets.
func (s *Store) Media() catalog.Library {
	return mediaLibrary{db: s.db}
}

// Channels returns the catalog.Directory backed by channels.
func (s *Store) Channels() catalog.Directory {
	return channelDirectory{db: s.db}
}

// SyncChannels upserts the configured channels.
func (s *Store) SyncChannels(ctx context.Context, channels []catalog.Channel) error {
	for _, ch := range channels {
		_, err := s.db.Exec(ctx, `INSERT INTO channels (id, name, kind) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, kind = EXCLUDED.kind, updated_at = now()`,
			ch.ID, ch.Name, string(ch.Kind))
		if err != nil {
			return fmt.Errorf("sync channel %s: %w", ch.ID, err)
		}
	}
	return nil
}

const mediaColumns = `id, title, kind, duration_ms, source_url, thumbnail_url, active`

type mediaLibrary struct{ db DB }

func (l mediaLibrary) Get(ctx context.Context, id string) (catalog.MediaAsset, error) {
	row := l.db.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media_assets WHERE id = $1`, id)
	m, err := scanMedia(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.MediaAsset{}, catalog.NotFoundf("media %s", id)
	}
	if err != nil {
		return catalog.MediaAsset{}, fmt.Errorf("get media: %w", err)
	}
	return m, nil
}

func (l mediaLibrary) List(ctx context.Context) ([]catalog.MediaAsset, error) {
	rows, err := l.db.Query(ctx, `SELECT `+mediaColumns+` FROM media_assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()
	var out []catalog.MediaAsset
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (l mediaLibrary) Add(ctx context.Context, m catalog.MediaAsset) (catalog.MediaAsset, error) {
	_, err := l.db.Exec(ctx, `INSERT INTO media_assets (`+mediaColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, kind = EXCLUDED.kind, duration_ms = EXCLUDED.duration_ms,
			source_url = EXCLUDED.source_url, thumbnail_url = EXCLUDED.thumbnail_url,
			active = EXCLUDED.active, updated_at = now()`,
		m.ID, m.Title, string(m.Kind), m.DurationMs, m.SourceURL, m.ThumbnailURL, m.Active)
	if err != nil {
		return catalog.MediaAsset{}, fmt.Errorf("add media: %w", err)
	}
	return m, nil
}

func (l mediaLibrary) UpdateDuration(ctx context.Context, id string, ms int64) error {
	tag, err := l.db.Exec(ctx, `UPDATE media_assets SET duration_ms = $2, updated_at = now() WHERE id = $1`, id, ms)
	if err != nil {
		return fmt.Errorf("update media duration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.NotFoundf("media %s", id)
	}
	return nil
}

func scanMedia(row pgx.Row) (catalog.MediaAsset, error) {
	var (
		m    catalog.MediaAsset
		kind string
	)
	if err := row.Scan(&m.ID, &m.Title, &kind, &m.DurationMs, &m.SourceURL, &m.ThumbnailURL, &m.Active); err != nil {
		return catalog.MediaAsset{}, err
	}
	m.Kind = catalog.MediaKind(kind)
	return m, nil
}

type channelDirectory struct{ db DB }

func (d channelDirectory) List(ctx context.Context) ([]catalog.Channel, error) {
	rows, err := d.db.Query(ctx, `SELECT id, name, kind FROM channels ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()
	var out []catalog.Channel
	for rows.Next() {
		var (
			ch   catalog.Channel
			kind string
		)
		if err := rows.Scan(&ch.ID, &ch.Name, &kind); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		ch.Kind = catalog.ChannelKind(kind)
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (d channelDirectory) Get(ctx context.Context, id string) (catalog.Channel, error) {
	var (
		ch   catalog.Channel
		kind string
	)
	err := d.db.QueryRow(ctx, `SELECT id, name, kind FROM channels WHERE id = $1`, id).Scan(&ch.ID, &ch.Name, &kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Channel{}, catalog.NotFoundf("channel %s", id)
	}
	if err != nil {
		return catalog.Channel{}, fmt.Errorf("get channel: %w", err)
	}
	ch.Kind = catalog.ChannelKind(kind)
	return ch, nil
}
