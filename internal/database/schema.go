package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema 啟動時確保 schema 存在（冪等，可重複執行）
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id SERIAL PRIMARY KEY,
		name VARCHAR(50) UNIQUE NOT NULL,
		total_tickets INT NOT NULL,
		tickets_left INT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS bookings (
		id SERIAL PRIMARY KEY,
		user_id INT NOT NULL,
		event_id INT NOT NULL REFERENCES events(id),
		dedupe_key TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- 結算的 exactly-once 靠這個唯一索引擋住重複投遞
	CREATE UNIQUE INDEX IF NOT EXISTS ux_bookings_dedupe_key ON bookings(dedupe_key);
	CREATE INDEX IF NOT EXISTS idx_bookings_event_id ON bookings(event_id);
	`

	_, err := pool.Exec(ctx, schema)
	return err
}
