package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Domenick1991/tripbooking/api"
	"github.com/Domenick1991/tripbooking/config"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/email"
	"github.com/Domenick1991/tripbooking/internal/offer"
	"github.com/Domenick1991/tripbooking/internal/service/booking"
	"github.com/Domenick1991/tripbooking/internal/service/draft"
	"github.com/Domenick1991/tripbooking/internal/service/link"
	"github.com/Domenick1991/tripbooking/internal/service/notification"
	"github.com/Domenick1991/tripbooking/internal/service/offers"
	"github.com/Domenick1991/tripbooking/internal/token"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls atomic.Int32
	last  email.Message
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Send(_ context.Context, msg email.Message) (email.Receipt, error) {
	p.calls.Add(1)
	p.last = msg
	return email.Receipt{Provider: p.Name(), MessageID: "msg-1"}, nil
}

type scenario struct {
	t          *testing.T
	router     *gin.Engine
	storage    *Storage
	dispatcher *notification.Dispatcher
	provider   *countingProvider
}

func newScenario(t *testing.T) *scenario {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger, _ := test.NewNullLogger()

	body, err := os.ReadFile("../offer/testdata/offer_OFF1.json")
	require.NoError(t, err)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/offers/OFF1" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		HTTP:    config.HTTPConfig{WebhookSecret: "s3cret", GuestBaseURL: "https://trips.example.com/guest/bookings"},
		Storage: config.StorageConfig{Driver: config.StorageDriverMemory},
		Booking: config.BookingConfig{LinkTTLHours: 30 * 24},
	}
	storage, err := OpenStorage(context.Background(), cfg)
	require.NoError(t, err)

	gateway := offer.NewHTTPGateway(upstream.URL, "", time.Second)
	bookingService := booking.NewBookingService(storage.Bookings, logger)
	draftService := draft.NewDraftService(storage.Drafts, storage.Bookings, gateway, logger, draft.WithBookingNotifier(bookingService))
	linkService := link.NewLinkService(storage.Links, storage.Bookings, token.NewGenerator(), logger)

	provider := &countingProvider{}
	dispatcher := notification.NewDispatcher(storage.Bookings, provider, logger,
		notification.WithGuestLinks(linkService, cfg.HTTP.GuestBaseURL))

	return &scenario{
		t: t,
		router: NewRouter(cfg, Services{
			Offers:   offers.NewOfferService(gateway, time.Now),
			Drafts:   draftService,
			Bookings: bookingService,
			Links:    linkService,
		}, logger),
		storage:    storage,
		dispatcher: dispatcher,
		provider:   provider,
	}
}

func (s *scenario) do(method, path string, body any, out any) int {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.AccountHeader, "acc-1")
	req.Header.Set(api.SecretHeader, "s3cret")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if out != nil && w.Code < 300 && w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

type draftBody struct {
	ID     string            `json:"id"`
	State  domain.DraftState `json:"state"`
	Totals domain.Totals     `json:"totals"`
}

func TestScenario_DraftToGuestLink(t *testing.T) {
	s := newScenario(t)

	var d draftBody
	require.Equal(t, http.StatusCreated, s.do("POST", "/api/v1/drafts", map[string]string{"offer_id": "OFF1"}, &d))
	assert.Equal(t, domain.DraftStateDraft, d.State)
	assert.Equal(t, int64(20000), d.Totals.Grand.Amount)

	for _, p := range []struct{ id, given, mail string }{
		{"pas_1", "Ada", "ada@example.com"},
		{"pas_2", "Charles", "charles@example.com"},
	} {
		code := s.do("PATCH", "/api/v1/drafts/"+d.ID+"/passengers/"+p.id, map[string]any{
			"given_name":    p.given,
			"family_name":   "Babbage",
			"date_of_birth": "1985-01-02T00:00:00Z",
			"gender":        "f",
			"email":         p.mail,
		}, nil)
		require.Equal(t, http.StatusOK, code)
	}

	require.Equal(t, http.StatusOK, s.do("PUT", "/api/v1/drafts/"+d.ID+"/extras", map[string]any{
		"items": []map[string]any{{"service_id": "bag_23kg", "passenger_id": "pas_1", "segment_id": "seg_out", "quantity": 1}},
	}, &d))
	assert.Equal(t, domain.DraftStateExtrasSelected, d.State)
	assert.Equal(t, int64(3000), d.Totals.Extras.Amount)
	assert.Equal(t, int64(23000), d.Totals.Grand.Amount)

	require.Equal(t, http.StatusOK, s.do("POST", "/api/v1/drafts/"+d.ID+"/ready", nil, &d))
	assert.Equal(t, domain.DraftStateReadyForPayment, d.State)

	webhook := map[string]string{"draft_id": d.ID, "order_id": "ORD1", "reference": "ABC123", "status": "succeeded"}
	var paid struct {
		BookingID string               `json:"booking_id"`
		Status    domain.BookingStatus `json:"status"`
		Duplicate bool                 `json:"duplicate"`
	}
	require.Equal(t, http.StatusOK, s.do("POST", "/api/v1/payments/webhook", webhook, &paid))
	assert.Equal(t, domain.BookingStatusConfirmed, paid.Status)
	assert.False(t, paid.Duplicate)
	bookingID := paid.BookingID

	require.Equal(t, http.StatusOK, s.do("POST", "/api/v1/payments/webhook", webhook, &paid))
	assert.True(t, paid.Duplicate)
	assert.Equal(t, bookingID, paid.BookingID)

	var status draft.StatusView
	require.Equal(t, http.StatusOK, s.do("GET", "/api/v1/drafts/"+d.ID+"/status", nil, &status))
	assert.Equal(t, domain.DraftStateCompleted, status.State)
	assert.Equal(t, bookingID, status.BookingID)
	assert.Equal(t, http.StatusConflict, s.do("PUT", "/api/v1/drafts/"+d.ID+"/extras", map[string]any{"items": []any{}}, nil))

	ctx := context.Background()
	first, err := s.dispatcher.SendConfirmation(ctx, bookingID)
	require.NoError(t, err)
	assert.False(t, first.AlreadySent)
	second, err := s.dispatcher.SendConfirmation(ctx, bookingID)
	require.NoError(t, err)
	assert.True(t, second.AlreadySent)
	assert.Equal(t, int32(1), s.provider.calls.Load())
	assert.ElementsMatch(t, []string{"ada@example.com", "charles@example.com"}, s.provider.last.To)
	assert.Contains(t, s.provider.last.Text, "230.00 EUR")
	assert.Contains(t, s.provider.last.Text, "https://trips.example.com/guest/bookings/")

	var issued struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.Equal(t, http.StatusCreated, s.do("POST", "/api/v1/bookings/"+bookingID+"/links", nil, &issued))
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), issued.ExpiresAt, time.Minute)

	var view domain.GuestView
	require.Equal(t, http.StatusOK, s.do("GET", "/guest/bookings/"+issued.Token, nil, &view))
	assert.Equal(t, "ABC123", view.Reference)
	assert.Equal(t, int64(23000), view.Total.Amount)

	require.NoError(t, s.storage.Links.SetExpiry(ctx, issued.Token, time.Now().Add(-time.Hour)))
	assert.Equal(t, http.StatusGone, s.do("GET", "/guest/bookings/"+issued.Token, nil, nil))
}
