package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("per_page"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client())
	resp, err := c.Get(context.Background(), srv.URL, Options{
		Params: map[string][]string{"per_page": {"5"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), resp.Body)
	assert.Equal(t, "application/json", resp.ContentType())
}

func TestGet_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(srv.Client())
	resp, err := c.Get(context.Background(), srv.URL, Options{MaxTries: 4})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_ExhaustsTries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.Client())
	_, err := c.Get(context.Background(), srv.URL, Options{MaxTries: 3})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_NoRetryAcrossCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(srv.Client())
	_, err := c.Get(ctx, srv.URL, Options{MaxTries: 4})
	require.Error(t, err)
}

func TestGet_RetryAfterCapped(t *testing.T) {
	wait := retryAfter(http.Header{"Retry-After": []string{"3600"}})
	assert.Equal(t, 10*time.Second, wait)

	wait = retryAfter(http.Header{})
	assert.Equal(t, 2*time.Second, wait)
}
