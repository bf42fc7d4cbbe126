package fxrate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/finhub/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(WithBaseURL(server.URL), WithRateLimit(1000))
}

func TestGetRate(t *testing.T) {
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.Write([]byte(`[0.8312, "ignored"]`))
	})

	r, err := c.GetRate(context.Background(), "usd", "eur", models.NewDate(2021, time.May, 3))
	require.NoError(t, err)
	assert.Equal(t, 0.8312, r)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/ajax/currencyConverter_Exchangerate/USD/EUR/2021-05-03", path)
}

func TestGetRate_StringValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`["0,83"]`))
	})
	r, err := c.GetRate(context.Background(), "USD", "EUR", models.NewDate(2021, time.May, 3))
	require.NoError(t, err)
	assert.Equal(t, 0.83, r)
}

func TestGetRate_SameCurrency(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	r, err := c.GetRate(context.Background(), "EUR", "EUR", models.NewDate(2021, time.May, 3))
	require.NoError(t, err)
	assert.Equal(t, 1.0, r)
}

func TestGetRate_BadPayload(t *testing.T) {
	for _, body := range []string{`[]`, `{"rate": 1}`, `[0]`, `["n/a"]`} {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
		_, err := c.GetRate(context.Background(), "USD", "EUR", models.NewDate(2021, time.May, 3))
		require.Error(t, err, body)
		assert.Equal(t, "fx_payload", models.CheckOf(err), body)
	}
}

func TestGetRate_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.GetRate(context.Background(), "USD", "EUR", models.NewDate(2021, time.May, 3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrExternal))
}
