package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const draftColumns = `id, account_id, trip_id, offer, state, version, passengers, extras,
	currency, base_amount, extras_amount, grand_amount, COALESCE(booking_id, ''), created_at, updated_at, expires_at`

type PGDraftRepository struct {
	db *pgxpool.Pool
}

func NewDraftRepository(db *pgxpool.Pool) DraftRepository {
	return &PGDraftRepository{db: db}
}

func (r *PGDraftRepository) Create(ctx context.Context, d *domain.BookingDraft) error {
	offer, passengers, extras, err := marshalDraft(d)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `INSERT INTO booking_drafts (id, account_id, trip_id, offer_id, offer, offer_expires_at, state, version,
		passengers, extras, currency, base_amount, extras_amount, grand_amount, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		d.ID, d.AccountID, d.TripID, d.Offer.ID, offer, d.Offer.ExpiresAt, d.State, d.Version,
		passengers, extras, d.Totals.Grand.Currency, d.Totals.Base.Amount, d.Totals.Extras.Amount, d.Totals.Grand.Amount,
		d.CreatedAt, d.UpdatedAt, d.ExpiresAt)
	return err
}

func (r *PGDraftRepository) Get(ctx context.Context, id string) (*domain.BookingDraft, error) {
	d, err := scanDraft(r.db.QueryRow(ctx, `SELECT `+draftColumns+` FROM booking_drafts WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrDraftNotFound
	}
	return d, err
}

func (r *PGDraftRepository) Update(ctx context.Context, d *domain.BookingDraft, expected domain.DraftState) error {
	_, passengers, extras, err := marshalDraft(d)
	if err != nil {
		return err
	}

	cmd, err := r.db.Exec(ctx, `UPDATE booking_drafts
		SET state=$1, version=version+1, passengers=$2, extras=$3,
			base_amount=$4, extras_amount=$5, grand_amount=$6, updated_at=$7
		WHERE id=$8 AND state=$9 AND version=$10`,
		d.State, passengers, extras, d.Totals.Base.Amount, d.Totals.Extras.Amount, d.Totals.Grand.Amount, d.UpdatedAt,
		d.ID, expected, d.Version)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.Get(ctx, d.ID); err != nil {
			return err
		}
		return domain.ErrConcurrentUpdate
	}
	d.Version++
	return nil
}

func (r *PGDraftRepository) Complete(ctx context.Context, d *domain.BookingDraft, b *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `UPDATE booking_drafts
		SET state=$1, version=version+1, booking_id=$2, updated_at=$3
		WHERE id=$4 AND state=$5 AND version=$6`,
		domain.DraftStateCompleted, b.ID, d.UpdatedAt, d.ID, domain.DraftStateReadyForPayment, d.Version)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrConcurrentUpdate
	}

	if err := insertBooking(ctx, tx, b); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	d.Version++
	return nil
}

func (r *PGDraftRepository) ExpireBefore(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx, `UPDATE booking_drafts
		SET state=$1, version=version+1, updated_at=$2
		WHERE state IN ($3, $4, $5)
			AND ((offer_expires_at IS NOT NULL AND offer_expires_at <= $2) OR (expires_at IS NOT NULL AND expires_at <= $2))
		RETURNING id`,
		domain.DraftStateExpired, now, domain.DraftStateDraft, domain.DraftStateExtrasSelected, domain.DraftStateReadyForPayment)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func marshalDraft(d *domain.BookingDraft) (offer, passengers, extras []byte, err error) {
	if offer, err = json.Marshal(d.Offer); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal offer: %w", err)
	}
	if passengers, err = json.Marshal(d.Passengers); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal passengers: %w", err)
	}
	if d.Extras == nil {
		extras = []byte("[]")
	} else if extras, err = json.Marshal(d.Extras); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal extras: %w", err)
	}
	return offer, passengers, extras, nil
}

func scanDraft(row pgx.Row) (*domain.BookingDraft, error) {
	var (
		d                               domain.BookingDraft
		offer, passengers, extras       []byte
		currency                        string
		baseAmount, extrasAmt, grandAmt int64
	)
	if err := row.Scan(&d.ID, &d.AccountID, &d.TripID, &offer, &d.State, &d.Version, &passengers, &extras,
		&currency, &baseAmount, &extrasAmt, &grandAmt, &d.BookingID, &d.CreatedAt, &d.UpdatedAt, &d.ExpiresAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(offer, &d.Offer); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	if err := json.Unmarshal(passengers, &d.Passengers); err != nil {
		return nil, fmt.Errorf("decode passengers: %w", err)
	}
	if err := json.Unmarshal(extras, &d.Extras); err != nil {
		return nil, fmt.Errorf("decode extras: %w", err)
	}
	d.Totals = domain.Totals{
		Base:   domain.Money{Amount: baseAmount, Currency: currency},
		Extras: domain.Money{Amount: extrasAmt, Currency: currency},
		Grand:  domain.Money{Amount: grandAmt, Currency: currency},
	}
	return &d, nil
}

var _ DraftRepository = (*PGDraftRepository)(nil)
