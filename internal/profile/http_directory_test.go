package profile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDirectory_ProfileExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		switch r.URL.Path {
		case "/accounts/acc-1/travelers/prof-1":
			w.WriteHeader(http.StatusOK)
		case "/accounts/acc-1/travelers/deleted":
			w.WriteHeader(http.StatusGone)
		case "/accounts/acc-1/travelers/boom":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	dir := NewHTTPDirectory(srv.URL+"/", time.Second)
	ctx := context.Background()

	ok, err := dir.ProfileExists(ctx, "acc-1", "prof-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.ProfileExists(ctx, "acc-1", "deleted")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = dir.ProfileExists(ctx, "acc-2", "prof-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = dir.ProfileExists(ctx, "acc-1", "boom")
	assert.ErrorContains(t, err, "unexpected status 502")
}
