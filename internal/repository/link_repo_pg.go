package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"

	linkColumns = `token, booking_id, expires_at, created_at`
)

type PGLinkRepository struct {
	db *pgxpool.Pool
}

func NewLinkRepository(db *pgxpool.Pool) LinkRepository {
	return &PGLinkRepository{db: db}
}

func (r *PGLinkRepository) Create(ctx context.Context, link *domain.BookingLink) error {
	_, err := r.db.Exec(ctx, `INSERT INTO booking_links (`+linkColumns+`) VALUES ($1, $2, $3, $4)`,
		link.Token, link.BookingID, link.ExpiresAt, link.CreatedAt)
	return linkInsertError(err)
}

func (r *PGLinkRepository) CreateUnlessActive(ctx context.Context, link *domain.BookingLink, now time.Time) (*domain.BookingLink, bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	// the booking row lock serializes issuers of the same booking
	var bookingID string
	err = tx.QueryRow(ctx, `SELECT id FROM bookings WHERE id=$1 FOR NO KEY UPDATE`, link.BookingID).Scan(&bookingID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, false, err
	}

	var active domain.BookingLink
	err = tx.QueryRow(ctx, `SELECT `+linkColumns+` FROM booking_links
		WHERE booking_id=$1 AND expires_at >= $2 ORDER BY expires_at DESC LIMIT 1`, bookingID, now).
		Scan(&active.Token, &active.BookingID, &active.ExpiresAt, &active.CreatedAt)
	switch {
	case err == nil:
		return &active, false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, false, err
	}

	if _, err := tx.Exec(ctx, `INSERT INTO booking_links (`+linkColumns+`) VALUES ($1, $2, $3, $4)`,
		link.Token, link.BookingID, link.ExpiresAt, link.CreatedAt); err != nil {
		return nil, false, linkInsertError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return link, true, nil
}

func linkInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return ErrDuplicateToken
		case foreignKeyViolation:
			return domain.ErrBookingNotFound
		}
	}
	return err
}

func (r *PGLinkRepository) GetByToken(ctx context.Context, token string) (*domain.BookingLink, error) {
	return r.getOne(ctx, `SELECT `+linkColumns+` FROM booking_links WHERE token=$1`, token)
}

func (r *PGLinkRepository) LatestForBooking(ctx context.Context, bookingID string) (*domain.BookingLink, error) {
	return r.getOne(ctx, `SELECT `+linkColumns+` FROM booking_links
		WHERE booking_id=$1 ORDER BY expires_at DESC LIMIT 1`, bookingID)
}

func (r *PGLinkRepository) SetExpiry(ctx context.Context, token string, expiresAt time.Time) error {
	cmd, err := r.db.Exec(ctx, `UPDATE booking_links SET expires_at=$1 WHERE token=$2`, expiresAt, token)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrTokenNotFound
	}
	return nil
}

func (r *PGLinkRepository) getOne(ctx context.Context, query string, arg string) (*domain.BookingLink, error) {
	var l domain.BookingLink
	err := r.db.QueryRow(ctx, query, arg).Scan(&l.Token, &l.BookingID, &l.ExpiresAt, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

var _ LinkRepository = (*PGLinkRepository)(nil)
