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

const bookingColumns = `id, account_id, trip_id, draft_id, offer_id, order_id, reference, outbound, return_segment,
	passengers, extras, policy, currency, total_amount, base_amount, extras_amount, status, failure_reason,
	support_reference, confirmation_sent_at, created_at, confirmed_at, updated_at`

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) Get(ctx context.Context, id string) (*domain.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
}

func (r *PGBookingRepository) GetByDraftID(ctx context.Context, draftID string) (*domain.Booking, error) {
	return r.getOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE draft_id=$1`, draftID)
}

func (r *PGBookingRepository) ListByAccount(ctx context.Context, accountID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE account_id=$1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) ListUnsentConfirmations(ctx context.Context, confirmedBefore time.Time, limit int) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE status=$1 AND confirmation_sent_at IS NULL AND confirmed_at <= $2
		ORDER BY confirmed_at LIMIT $3`, domain.BookingStatusConfirmed, confirmedBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id string, from, to domain.BookingStatus, change StatusChange) (*domain.Booking, error) {
	var row pgx.Row
	switch to {
	case domain.BookingStatusConfirmed:
		row = r.db.QueryRow(ctx, `UPDATE bookings
			SET status=$1, order_id=$2, reference=$3, confirmed_at=$4, updated_at=$4
			WHERE id=$5 AND status=$6 RETURNING `+bookingColumns,
			to, change.OrderID, change.Reference, change.At, id, from)
	case domain.BookingStatusFailed:
		row = r.db.QueryRow(ctx, `UPDATE bookings
			SET status=$1, failure_reason=$2, updated_at=$3
			WHERE id=$4 AND status=$5 RETURNING `+bookingColumns,
			to, change.FailureReason, change.At, id, from)
	case domain.BookingStatusCancelled, domain.BookingStatusPendingPayment:
		row = r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=$2
			WHERE id=$3 AND status=$4 RETURNING `+bookingColumns,
			to, change.At, id, from)
	default:
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidTransition, to)
	}

	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrInvalidTransition
	}
	return b, err
}

func (r *PGBookingRepository) MarkConfirmationSent(ctx context.Context, id string, at time.Time) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET confirmation_sent_at=$1, updated_at=$1
		WHERE id=$2 AND confirmation_sent_at IS NULL`, at, id)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *PGBookingRepository) ClaimConfirmation(ctx context.Context, id string, at time.Time, lease time.Duration) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET confirmation_claimed_at=$1
		WHERE id=$2 AND status=$3 AND confirmation_sent_at IS NULL
			AND (confirmation_claimed_at IS NULL OR confirmation_claimed_at <= $4)`,
		at, id, domain.BookingStatusConfirmed, at.Add(-lease))
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *PGBookingRepository) ReleaseConfirmationClaim(ctx context.Context, id string, claimedAt time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE bookings SET confirmation_claimed_at=NULL
		WHERE id=$1 AND confirmation_claimed_at=$2`, id, claimedAt)
	return err
}

func (r *PGBookingRepository) SetSupportReference(ctx context.Context, id, reference string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET support_reference=$1, updated_at=now()
		WHERE id=$2 AND support_reference=''`, reference, id)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *PGBookingRepository) getOne(ctx context.Context, query string, arg any) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return b, err
}

func insertBooking(ctx context.Context, tx pgx.Tx, b *domain.Booking) error {
	outbound, err := json.Marshal(b.Outbound)
	if err != nil {
		return fmt.Errorf("marshal outbound: %w", err)
	}
	var ret []byte
	if b.Return != nil {
		if ret, err = json.Marshal(b.Return); err != nil {
			return fmt.Errorf("marshal return: %w", err)
		}
	}
	passengers, err := json.Marshal(b.Passengers)
	if err != nil {
		return fmt.Errorf("marshal passengers: %w", err)
	}
	extras, err := json.Marshal(b.Extras)
	if err != nil {
		return fmt.Errorf("marshal extras: %w", err)
	}
	policy, err := json.Marshal(b.Policy)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}

	_, err = tx.Exec(ctx, `INSERT INTO bookings (id, account_id, trip_id, draft_id, offer_id, outbound, return_segment,
		passengers, extras, policy, currency, total_amount, base_amount, extras_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)`,
		b.ID, b.AccountID, b.TripID, b.DraftID, b.OfferID, outbound, ret,
		passengers, extras, policy, b.Total.Currency, b.Total.Amount, b.BasePrice.Amount, b.ExtrasTotal.Amount,
		b.Status, b.CreatedAt)
	return err
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b                                 domain.Booking
		outbound, ret, passengers, extras []byte
		policy                            []byte
		currency                          string
		total, base, extrasAmount         int64
	)
	if err := row.Scan(&b.ID, &b.AccountID, &b.TripID, &b.DraftID, &b.OfferID, &b.OrderID, &b.Reference,
		&outbound, &ret, &passengers, &extras, &policy, &currency, &total, &base, &extrasAmount,
		&b.Status, &b.FailureReason, &b.SupportReference, &b.ConfirmationSentAt, &b.CreatedAt, &b.ConfirmedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(outbound, &b.Outbound); err != nil {
		return nil, fmt.Errorf("decode outbound: %w", err)
	}
	if len(ret) > 0 {
		b.Return = &domain.Segment{}
		if err := json.Unmarshal(ret, b.Return); err != nil {
			return nil, fmt.Errorf("decode return: %w", err)
		}
	}
	if err := json.Unmarshal(passengers, &b.Passengers); err != nil {
		return nil, fmt.Errorf("decode passengers: %w", err)
	}
	if err := json.Unmarshal(extras, &b.Extras); err != nil {
		return nil, fmt.Errorf("decode extras: %w", err)
	}
	if err := json.Unmarshal(policy, &b.Policy); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}

	b.Total = domain.Money{Amount: total, Currency: currency}
	b.BasePrice = domain.Money{Amount: base, Currency: currency}
	b.ExtrasTotal = domain.Money{Amount: extrasAmount, Currency: currency}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
