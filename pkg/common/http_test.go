package common

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Heliometric/"+Version(), r.Header.Get("User-Agent"), "User-Agent should match expected format")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	timeout := 5 * time.Second
	client := HTTPClient(timeout)
	assert.Equal(t, timeout, client.Timeout, "Timeout should be set correctly")
	assert.NotNil(t, client.Transport, "Transport should not be nil")

	req, err := http.NewRequest("GET", server.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		switch r.URL.Path {
		case "/ok":
			w.Write([]byte(`{"value": 4.2}`))
		case "/bad":
			w.Write([]byte(`{"value":`))
		default:
			http.Error(w, "no such thing", http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := HTTPClient(time.Second)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		var out struct {
			Value float64 `json:"value"`
		}
		require.NoError(t, GetJSON(ctx, client, server.URL+"/ok", &out))
		assert.Equal(t, 4.2, out.Value)
	})

	t.Run("status", func(t *testing.T) {
		var out map[string]any
		err := GetJSON(ctx, client, server.URL+"/missing", &out)
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusNotFound, se.StatusCode)
		assert.Equal(t, "no such thing", se.Body)
	})

	t.Run("decode", func(t *testing.T) {
		var out map[string]any
		err := GetJSON(ctx, client, server.URL+"/bad", &out)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode response")
	})

	t.Run("canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		var out map[string]any
		assert.ErrorIs(t, GetJSON(cctx, client, server.URL+"/ok", &out), context.Canceled)
	})
}
