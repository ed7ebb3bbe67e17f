package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(Options{
		BaseURL: srv.URL,
		APIKey:  "k",
		Timeout: time.Second,
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return c
}

func TestLookupFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/catalog", r.URL.Path)
		assert.Equal(t, "Heat", r.URL.Query().Get("title"))
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title":"Heat","genre":"Thriller","posterUrl":" http://img/heat.jpg ","leadActors":["Al Pacino"," ","Robert De Niro"]}`))
	})

	res, err := c.Lookup(context.Background(), "Heat")
	require.NoError(t, err)
	require.NotNil(t, res.Genre)
	assert.Equal(t, "thriller", *res.Genre)
	require.NotNil(t, res.PosterURL)
	assert.Equal(t, "http://img/heat.jpg", *res.PosterURL)
	assert.Equal(t, []string{"Al Pacino", "Robert De Niro"}, res.LeadActors)
}

func TestLookupNotFoundDoesNotTrip(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	for i := 0; i < 10; i++ {
		_, err := c.Lookup(context.Background(), "Nope")
		require.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, "closed", c.State())
}

func TestLookupTripsBreaker(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := c.Lookup(context.Background(), "Heat")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrUnavailable))
	}
	assert.Equal(t, "open", c.State())

	_, err := c.Lookup(context.Background(), "Heat")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 5, calls.Load(), "open breaker must not reach upstream")
}

func TestNewHTTPClientRejectsRelativeURL(t *testing.T) {
	_, err := NewHTTPClient(Options{BaseURL: "catalog.local"})
	assert.Error(t, err)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Lookup(context.Background(), "Heat")
	assert.ErrorIs(t, err, ErrNotFound)
}
