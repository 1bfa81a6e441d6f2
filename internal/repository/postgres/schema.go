package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"toolshare-backend/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	username      TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tools (
	id             BIGINT PRIMARY KEY,
	owner_username TEXT NOT NULL REFERENCES users(username),
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	tool_type      TEXT NOT NULL,
	brand          TEXT NOT NULL DEFAULT '',
	condition      TEXT NOT NULL DEFAULT '',
	hourly_rate    NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (hourly_rate >= 0),
	daily_rate     NUMERIC(12,2) NOT NULL CHECK (daily_rate > 0),
	deposit        NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (deposit >= 0),
	available      BOOLEAN NOT NULL DEFAULT TRUE,
	neighborhood   TEXT NOT NULL DEFAULT '',
	latitude       DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude      DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating         DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_count   INTEGER NOT NULL DEFAULT 0,
	image_path     TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	version        BIGINT NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS tools_owner_username_idx ON tools(owner_username);

CREATE TABLE IF NOT EXISTS bookings (
	id              BIGINT PRIMARY KEY,
	tool_id         BIGINT NOT NULL REFERENCES tools(id),
	owner_username  TEXT NOT NULL REFERENCES users(username),
	renter_username TEXT NOT NULL REFERENCES users(username),
	start_date      DATE NOT NULL,
	end_date        DATE NOT NULL CHECK (end_date >= start_date),
	total_cost      NUMERIC(12,2) NOT NULL CHECK (total_cost >= 0),
	status          TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	version         BIGINT NOT NULL DEFAULT 1,
	CHECK (owner_username <> renter_username)
);
CREATE INDEX IF NOT EXISTS bookings_tool_id_idx ON bookings(tool_id);
CREATE INDEX IF NOT EXISTS bookings_owner_username_idx ON bookings(owner_username);
CREATE INDEX IF NOT EXISTS bookings_renter_username_idx ON bookings(renter_username);

CREATE TABLE IF NOT EXISTS swaps (
	id                BIGINT PRIMARY KEY,
	proposer_username TEXT NOT NULL REFERENCES users(username),
	proposer_tool_id  BIGINT NOT NULL REFERENCES tools(id),
	receiver_username TEXT NOT NULL REFERENCES users(username),
	receiver_tool_id  BIGINT NOT NULL REFERENCES tools(id),
	status            TEXT NOT NULL,
	proposed_date     TIMESTAMPTZ NOT NULL,
	accepted_date     TIMESTAMPTZ,
	version           BIGINT NOT NULL DEFAULT 1,
	CHECK (proposer_username <> receiver_username)
);
CREATE INDEX IF NOT EXISTS swaps_receiver_username_idx ON swaps(receiver_username);
CREATE INDEX IF NOT EXISTS swaps_proposer_username_idx ON swaps(proposer_username);
`

// Migrate creates the tables and indices when they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	logger.DatabaseCall("migrate", "schema")
	if _, err := db.ExecContext(ctx, schema); err != nil {
		logger.DatabaseResult("migrate", 0, err)
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.DatabaseResult("migrate", 0, nil)
	return nil
}
