package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
)

// MemoryStore keeps drafts, bookings and links in process. All three views share
// one lock so draft completion and booking insertion are atomic.
type MemoryStore struct {
	mu       sync.Mutex
	drafts   map[string]*domain.BookingDraft
	bookings map[string]*domain.Booking
	byDraft  map[string]string
	links    map[string]*domain.BookingLink
	claims   map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts:   make(map[string]*domain.BookingDraft),
		bookings: make(map[string]*domain.Booking),
		byDraft:  make(map[string]string),
		links:    make(map[string]*domain.BookingLink),
		claims:   make(map[string]time.Time),
	}
}

func (s *MemoryStore) Drafts() DraftRepository     { return memoryDrafts{s} }
func (s *MemoryStore) Bookings() BookingRepository { return memoryBookings{s} }
func (s *MemoryStore) Links() LinkRepository       { return memoryLinks{s} }

type memoryDrafts struct{ s *MemoryStore }

func (r memoryDrafts) Create(_ context.Context, draft *domain.BookingDraft) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.drafts[draft.ID]; ok {
		return domain.ErrConcurrentUpdate
	}
	r.s.drafts[draft.ID] = draft.Clone()
	return nil
}

func (r memoryDrafts) Get(_ context.Context, id string) (*domain.BookingDraft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.drafts[id]
	if !ok {
		return nil, domain.ErrDraftNotFound
	}
	return d.Clone(), nil
}

func (r memoryDrafts) Update(_ context.Context, draft *domain.BookingDraft, expected domain.DraftState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.drafts[draft.ID]
	if !ok {
		return domain.ErrDraftNotFound
	}
	if cur.State != expected || cur.Version != draft.Version {
		return domain.ErrConcurrentUpdate
	}
	draft.Version++
	r.s.drafts[draft.ID] = draft.Clone()
	return nil
}

func (r memoryDrafts) Complete(_ context.Context, draft *domain.BookingDraft, booking *domain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.drafts[draft.ID]
	if !ok {
		return domain.ErrDraftNotFound
	}
	if cur.State != domain.DraftStateReadyForPayment || cur.Version != draft.Version {
		return domain.ErrConcurrentUpdate
	}
	if _, dup := r.s.byDraft[draft.ID]; dup {
		return domain.ErrConcurrentUpdate
	}

	draft.Version++
	r.s.drafts[draft.ID] = draft.Clone()
	r.s.bookings[booking.ID] = booking.Clone()
	r.s.byDraft[draft.ID] = booking.ID
	return nil
}

func (r memoryDrafts) ExpireBefore(_ context.Context, now time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var ids []string
	for id, d := range r.s.drafts {
		if d.State.Terminal() || d.Elapsed(now) == nil {
			continue
		}
		d.State = domain.DraftStateExpired
		d.Version++
		d.UpdatedAt = now
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type memoryBookings struct{ s *MemoryStore }

func (r memoryBookings) Get(_ context.Context, id string) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (r memoryBookings) GetByDraftID(_ context.Context, draftID string) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id, ok := r.s.byDraft[draftID]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return r.s.bookings[id].Clone(), nil
}

func (r memoryBookings) ListByAccount(_ context.Context, accountID string) ([]domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Booking, 0)
	for _, b := range r.s.bookings {
		if b.AccountID == accountID {
			out = append(out, *b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memoryBookings) UpdateStatus(_ context.Context, id string, from, to domain.BookingStatus, change StatusChange) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	if b.Status != from {
		return nil, domain.ErrInvalidTransition
	}

	b.Status = to
	b.UpdatedAt = change.At
	switch to {
	case domain.BookingStatusConfirmed:
		b.OrderID = change.OrderID
		b.Reference = change.Reference
		at := change.At
		b.ConfirmedAt = &at
	case domain.BookingStatusFailed:
		b.FailureReason = change.FailureReason
	case domain.BookingStatusCancelled, domain.BookingStatusPendingPayment:
	}
	return b.Clone(), nil
}

func (r memoryBookings) MarkConfirmationSent(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return false, domain.ErrBookingNotFound
	}
	if b.ConfirmationSentAt != nil {
		return false, nil
	}
	b.ConfirmationSentAt = &at
	return true, nil
}

func (r memoryBookings) ClaimConfirmation(_ context.Context, id string, at time.Time, lease time.Duration) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return false, domain.ErrBookingNotFound
	}
	if b.Status != domain.BookingStatusConfirmed || b.ConfirmationSentAt != nil {
		return false, nil
	}
	if prev, held := r.s.claims[id]; held && prev.After(at.Add(-lease)) {
		return false, nil
	}
	r.s.claims[id] = at
	return true, nil
}

func (r memoryBookings) ReleaseConfirmationClaim(_ context.Context, id string, claimedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if prev, held := r.s.claims[id]; held && prev.Equal(claimedAt) {
		delete(r.s.claims, id)
	}
	return nil
}

func (r memoryBookings) SetSupportReference(_ context.Context, id, reference string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.bookings[id]
	if !ok {
		return false, domain.ErrBookingNotFound
	}
	if b.SupportReference != "" {
		return false, nil
	}
	b.SupportReference = reference
	return true, nil
}

func (r memoryBookings) ListUnsentConfirmations(_ context.Context, confirmedBefore time.Time, limit int) ([]domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Booking, 0)
	for _, b := range r.s.bookings {
		if b.Status != domain.BookingStatusConfirmed || b.ConfirmationSentAt != nil || b.ConfirmedAt == nil {
			continue
		}
		if !b.ConfirmedAt.After(confirmedBefore) {
			out = append(out, *b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConfirmedAt.Before(*out[j].ConfirmedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memoryLinks struct{ s *MemoryStore }

func (r memoryLinks) Create(_ context.Context, link *domain.BookingLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.links[link.Token]; ok {
		return ErrDuplicateToken
	}
	if _, ok := r.s.bookings[link.BookingID]; !ok {
		return domain.ErrBookingNotFound
	}
	l := *link
	r.s.links[link.Token] = &l
	return nil
}

func (r memoryLinks) GetByToken(_ context.Context, token string) (*domain.BookingLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.links[token]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	c := *l
	return &c, nil
}

func (r memoryLinks) LatestForBooking(_ context.Context, bookingID string) (*domain.BookingLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var latest *domain.BookingLink
	for _, l := range r.s.links {
		if l.BookingID != bookingID {
			continue
		}
		if latest == nil || l.ExpiresAt.After(latest.ExpiresAt) {
			latest = l
		}
	}
	if latest == nil {
		return nil, domain.ErrTokenNotFound
	}
	c := *latest
	return &c, nil
}

func (r memoryLinks) CreateUnlessActive(_ context.Context, link *domain.BookingLink, now time.Time) (*domain.BookingLink, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.bookings[link.BookingID]; !ok {
		return nil, false, domain.ErrBookingNotFound
	}
	var active *domain.BookingLink
	for _, l := range r.s.links {
		if l.BookingID == link.BookingID && !l.Expired(now) && (active == nil || l.ExpiresAt.After(active.ExpiresAt)) {
			active = l
		}
	}
	if active != nil {
		c := *active
		return &c, false, nil
	}
	if _, ok := r.s.links[link.Token]; ok {
		return nil, false, ErrDuplicateToken
	}
	l := *link
	r.s.links[link.Token] = &l
	return link, true, nil
}

func (r memoryLinks) SetExpiry(_ context.Context, token string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.links[token]
	if !ok {
		return domain.ErrTokenNotFound
	}
	l.ExpiresAt = expiresAt
	return nil
}

var (
	_ DraftRepository   = memoryDrafts{}
	_ BookingRepository = memoryBookings{}
	_ LinkRepository    = memoryLinks{}
)
