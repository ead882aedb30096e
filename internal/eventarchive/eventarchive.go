// Package eventarchive tails the lifecycle event stream and stores every
// entry in Postgres. Entries are keyed by stream id, so replaying the stream
// after a restart is harmless.
package eventarchive

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS room_events (
	id      TEXT PRIMARY KEY,
	kind    TEXT NOT NULL,
	room_id TEXT NOT NULL,
	peer_id TEXT NOT NULL DEFAULT '',
	role    TEXT NOT NULL DEFAULT '',
	at      TIMESTAMPTZ NOT NULL
)`

const insertEvent = `INSERT INTO room_events (id, kind, room_id, peer_id, role, at)
	             VALUES ($1, $2, $3, $4, $5, $6)
	             ON CONFLICT DO NOTHING`

// EnsureSchema creates the archive table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

type archiver struct {
	rdc    *redis.Client
	db     *sql.DB
	stream string
	lastID string
}

// Run tails the Redis stream and persists every event.
func Run(ctx context.Context, rdc *redis.Client, db *sql.DB, stream string) {
	a := &archiver{rdc: rdc, db: db, stream: stream, lastID: "0-0"}
	go a.loop(ctx, time.Second)
}

func (a *archiver) loop(ctx context.Context, retry time.Duration) {
	for ctx.Err() == nil {
		if err := a.step(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			zap.L().Warn("eventarchive.step", zap.Error(err))
			if !wait(ctx, retry) {
				return
			}
		}
	}
}

// wait pauses for d and reports false if ctx ends first.
func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// step reads one batch (blocking up to 2 s) and stores it.
func (a *archiver) step(ctx context.Context) error {
	res, err := a.rdc.XRead(ctx, a.readArgs()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	if len(res) == 0 || len(res[0].Messages) == 0 {
		return nil
	}
	entries := res[0].Messages
	if err := persist(ctx, a.db, entries); err != nil {
		return err
	}
	a.lastID = entries[len(entries)-1].ID
	return nil
}

func (a *archiver) readArgs() *redis.XReadArgs {
	return &redis.XReadArgs{
		Streams: []string{a.stream, a.lastID},
		Count:   100,
		Block:   2000 * time.Millisecond,
	}
}

func persist(ctx context.Context, db *sql.DB, msgs []redis.XMessage) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		at := time.UnixMilli(atoi(str(m.Values, "at"))).UTC()
		if _, err := tx.ExecContext(ctx, insertEvent,
			m.ID,
			str(m.Values, "kind"),
			str(m.Values, "room_id"),
			str(m.Values, "peer_id"),
			str(m.Values, "role"),
			at,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// helpers
func str(values map[string]interface{}, key string) string {
	s, _ := values[key].(string)
	return s
}

func atoi(s string) int64 {
	i, _ := strconv.ParseInt(s, 10, 64)
	return i
}
