package justetf

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

const profilePage = `<!DOCTYPE html>
<html><body>
<h1><span class="h1">iShares Core MSCI World
  UCITS ETF USD (Acc)</span></h1>
<div class="infobox">
  <div class="val"><span>EUR</span><span>1.070,12</span></div>
  <div class="vallabel">Kurs</div>
</div>
<div class="infobox">
  <div class="val">EUR 48.123 Mio.</div>
  <div class="vallabel">Fondsgröße</div>
</div>
<div class="infobox">
  <div class="val">0,20% p.a.</div>
  <div class="vallabel">Gesamtkostenquote (TER)</div>
</div>
<table>
  <tr><td>Replikationsmethode</td><td>Physisch (Optimiertes Sampling)</td></tr>
  <tr><td>Fondswährung</td><td>USD</td></tr>
  <tr><td>Ausschüttung</td><td>Thesaurierend</td></tr>
  <tr><td>Fondsdomizil</td><td>Irland</td></tr>
  <tr><td>Wirtschaftsprüfer</td><td>Deloitte</td></tr>
  <tr><td>Ignored</td><td>a</td><td>b</td></tr>
</table>
</body></html>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(
		WithBaseURL(server.URL+"/de/etf-profile.html"),
		WithRateLimit(1000),
		WithToday(func() models.Date { return models.NewDate(2021, time.May, 3) }),
	)
}

func TestGetPrice(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("isin")
		w.Write([]byte(profilePage))
	})

	obs, err := c.GetPrice(context.Background(), "IE00B4L5Y983")
	require.NoError(t, err)
	assert.Equal(t, "IE00B4L5Y983", gotQuery)
	assert.Equal(t, "IE00B4L5Y983", obs.ISIN)
	assert.Equal(t, "EUR", obs.Currency)
	assert.Equal(t, 1070.12, obs.Price)
	assert.Equal(t, models.NewDate(2021, time.May, 3), obs.Date)
}

func TestGetProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(profilePage))
	})

	p, err := c.GetProfile(context.Background(), "IE00B4L5Y983")
	require.NoError(t, err)
	assert.Equal(t, "IE00B4L5Y983", p.ISIN)
	assert.Equal(t, "iShares Core MSCI World UCITS ETF USD (Acc)", p.Name)
	assert.Equal(t, 48123e6, p.FundSize)
	assert.Equal(t, 0.2, p.TER)
	assert.Equal(t, "Physisch (Optimiertes Sampling)", p.Replication)
	assert.Equal(t, "Thesaurierend", p.Distribution)
	assert.Equal(t, "USD", p.FundCurrency)
	assert.Equal(t, "Irland", p.Domicile)
	assert.Equal(t, "Deloitte", p.Auditor)
	assert.Equal(t, models.Physical, models.ParseReplication(p.Replication))
}

func TestGetProfile_FundSizeNotInEUR(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h1><span class="h1">X</span></h1>
<div class="infobox"><div class="val">USD 12 Mio.</div><div class="vallabel">Fondsgröße</div></div></body></html>`))
	})
	_, err := c.GetProfile(context.Background(), "X")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrExternal))
	assert.Equal(t, "fund_size_unit", models.CheckOf(err))
}

func TestGetPrice_ChangedPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>maintenance</p></body></html>`))
	})
	_, err := c.GetPrice(context.Background(), "X")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrExternal))
}

func TestGetPrice_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	})
	_, err := c.GetPrice(context.Background(), "X")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.True(t, errors.Is(err, models.ErrExternal))
}
