package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS booking_drafts (
	id               TEXT PRIMARY KEY,
	account_id       TEXT NOT NULL,
	trip_id          TEXT NOT NULL DEFAULT '',
	offer_id         TEXT NOT NULL,
	offer            JSONB NOT NULL,
	offer_expires_at TIMESTAMPTZ,
	state            TEXT NOT NULL,
	version          BIGINT NOT NULL DEFAULT 1,
	passengers       JSONB NOT NULL,
	extras           JSONB NOT NULL DEFAULT '[]',
	currency         CHAR(3) NOT NULL,
	base_amount      BIGINT NOT NULL,
	extras_amount    BIGINT NOT NULL,
	grand_amount     BIGINT NOT NULL CHECK (grand_amount = base_amount + extras_amount),
	booking_id       TEXT,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	expires_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS booking_drafts_account_idx ON booking_drafts (account_id);
CREATE INDEX IF NOT EXISTS booking_drafts_open_idx ON booking_drafts (state)
	WHERE state IN ('draft', 'extras_selected', 'ready_for_payment');

CREATE TABLE IF NOT EXISTS bookings (
	id                   TEXT PRIMARY KEY,
	account_id           TEXT NOT NULL,
	trip_id              TEXT NOT NULL DEFAULT '',
	draft_id             TEXT NOT NULL UNIQUE REFERENCES booking_drafts (id),
	offer_id             TEXT NOT NULL,
	order_id             TEXT NOT NULL DEFAULT '',
	reference            TEXT NOT NULL DEFAULT '',
	outbound             JSONB NOT NULL,
	return_segment       JSONB,
	passengers           JSONB NOT NULL,
	extras               JSONB NOT NULL DEFAULT '[]',
	policy               JSONB NOT NULL,
	currency             CHAR(3) NOT NULL,
	total_amount         BIGINT NOT NULL,
	base_amount          BIGINT NOT NULL,
	extras_amount        BIGINT NOT NULL,
	status               TEXT NOT NULL,
	failure_reason       TEXT NOT NULL DEFAULT '',
	support_reference    TEXT NOT NULL DEFAULT '',
	confirmation_sent_at TIMESTAMPTZ,
	confirmation_claimed_at TIMESTAMPTZ,
	created_at           TIMESTAMPTZ NOT NULL,
	confirmed_at         TIMESTAMPTZ,
	updated_at           TIMESTAMPTZ NOT NULL
);

ALTER TABLE bookings ADD COLUMN IF NOT EXISTS confirmation_claimed_at TIMESTAMPTZ;

CREATE INDEX IF NOT EXISTS bookings_account_idx ON bookings (account_id, created_at DESC);
CREATE INDEX IF NOT EXISTS bookings_unsent_idx ON bookings (confirmed_at)
	WHERE status = 'confirmed' AND confirmation_sent_at IS NULL;

CREATE TABLE IF NOT EXISTS booking_links (
	token      TEXT PRIMARY KEY,
	booking_id TEXT NOT NULL REFERENCES bookings (id),
	expires_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS booking_links_booking_idx ON booking_links (booking_id, expires_at DESC);
`

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
