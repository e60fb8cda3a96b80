package offer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
)

const maxOfferBody = 4 << 20

// HTTPGateway reads offers from the upstream REST API.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) GetOffer(ctx context.Context, offerID string) (*domain.OfferSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/offers/"+url.PathEscape(offerID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOfferUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone:
		return nil, domain.ErrOfferExpired
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: offer %s not found", domain.ErrOfferUnavailable, offerID)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: upstream status %s", domain.ErrOfferUnavailable, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOfferBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrOfferUnavailable, err)
	}
	snap, err := ParseOffer(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOfferUnavailable, err)
	}
	if snap.ID != offerID {
		return nil, fmt.Errorf("%w: upstream returned offer %s for %s", domain.ErrOfferUnavailable, snap.ID, offerID)
	}
	return snap, nil
}

var _ Gateway = (*HTTPGateway)(nil)
