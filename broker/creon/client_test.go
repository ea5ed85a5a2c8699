package creon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/daytrader/broker"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "test-token")
}

func TestPing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/status", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]bool{"connected": true})
	})

	assert.NoError(t, c.Ping(context.Background()))
}

func TestPingDisconnected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"connected": false})
	})

	assert.Error(t, c.Ping(context.Background()))
}

func TestGetQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/quote/A069500", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"last": 35000.0, "ask": 35010.0, "bid": 34990.0,
			"time": "2026-03-04T10:30:00+09:00",
		})
	})

	q, err := c.GetQuote(context.Background(), "A069500")
	require.NoError(t, err)
	assert.Equal(t, "A069500", q.Instrument)
	assert.Equal(t, 35000.0, q.Last)
	assert.Equal(t, 35010.0, q.Ask)
	assert.Equal(t, 34990.0, q.Bid)
	assert.False(t, q.Time.IsZero())
}

func TestGetDailyBars(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/bars/A069500/daily", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("count"))
		json.NewEncoder(w).Encode(map[string]any{
			"instrument": "A069500",
			"bars": []map[string]any{
				{"date": "20260304", "open": 100.0, "high": 103.0, "low": 99.0, "close": 101.0},
				{"date": "20260303", "open": 95.0, "high": 120.0, "low": 110.0, "close": 105.0},
			},
		})
	})

	bars, err := c.GetDailyBars(context.Background(), "A069500", 5)
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, 2026, bars[0].Date.Year())
	assert.Equal(t, time.March, bars[0].Date.Month())
	assert.Equal(t, 4, bars[0].Date.Day())
	assert.Equal(t, KST, bars[0].Date.Location())
	assert.Equal(t, 120.0, bars[1].High)
}

func TestGetDailyBarsValidation(t *testing.T) {
	c := NewClient("", "")

	_, err := c.GetDailyBars(context.Background(), "", 5)
	assert.Error(t, err)

	_, err = c.GetDailyBars(context.Background(), "A069500", 0)
	assert.Error(t, err)
}

func TestGetPositionsAndCash(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/account/positions":
			json.NewEncoder(w).Encode(map[string]any{
				"positions": []map[string]any{
					{"code": "A069500", "name": "KODEX 200", "qty": 10},
				},
			})
		case "/v1/account/cash":
			json.NewEncoder(w).Encode(map[string]any{"available": 1500000.0})
		default:
			http.NotFound(w, r)
		}
	})

	positions, err := c.GetPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "A069500", positions[0].Instrument)
	assert.Equal(t, "KODEX 200", positions[0].Name)
	assert.Equal(t, int64(10), positions[0].Quantity)

	cash, err := c.GetAvailableCash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1500000.0, cash)
}

func TestResolveName(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/instruments/A005930", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"code": "A005930", "name": "Samsung Electronics"})
	})

	name, err := c.ResolveName(context.Background(), "A005930")
	require.NoError(t, err)
	assert.Equal(t, "Samsung Electronics", name)
}

func TestSubmitAccepted(t *testing.T) {
	var got orderPayload
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	status, err := c.Submit(context.Background(), broker.OrderRequest{
		ClientID:   "01TEST",
		Side:       broker.Buy,
		Instrument: "A069500",
		Quantity:   10,
		TIF:        broker.FOK,
		PriceMode:  broker.MostFavorable,
	})
	require.NoError(t, err)
	assert.Equal(t, broker.OK, status.Code)

	assert.Equal(t, "01TEST", got.ClientID)
	assert.Equal(t, "buy", got.Side)
	assert.Equal(t, "A069500", got.Code)
	assert.Equal(t, int64(10), got.Qty)
	assert.Equal(t, "FOK", got.TIF)
	assert.Equal(t, "most_favorable", got.PriceMode)
}

func TestSubmitRateLimitedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]int64{"retry_after_ms": 15700})
	})

	status, err := c.Submit(context.Background(), broker.OrderRequest{
		Side: broker.Buy, Instrument: "A069500", Quantity: 1,
		TIF: broker.FOK, PriceMode: broker.MostFavorable,
	})
	require.NoError(t, err)
	assert.Equal(t, broker.RateLimited, status.Code)
	assert.Equal(t, 15700*time.Millisecond, status.RetryAfter)
}

func TestSubmitRateLimitedHeaderFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "16")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	status, err := c.Submit(context.Background(), broker.OrderRequest{
		Side: broker.Sell, Instrument: "A069500", Quantity: 1,
		TIF: broker.IOC, PriceMode: broker.MostFavorable,
	})
	require.NoError(t, err)
	assert.Equal(t, broker.RateLimited, status.Code)
	assert.Equal(t, 16*time.Second, status.RetryAfter)
}

func TestSubmitRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"code": "INSUFFICIENT_FUNDS", "message": "not enough cash",
		})
	})

	status, err := c.Submit(context.Background(), broker.OrderRequest{
		Side: broker.Buy, Instrument: "A069500", Quantity: 1,
		TIF: broker.FOK, PriceMode: broker.MostFavorable,
	})
	require.NoError(t, err)
	assert.Equal(t, broker.Rejected, status.Code)
	assert.Equal(t, "not enough cash", status.Reason)
}

func TestSubmitValidation(t *testing.T) {
	c := NewClient("", "")

	_, err := c.Submit(context.Background(), broker.OrderRequest{Quantity: 1})
	assert.Error(t, err)

	_, err = c.Submit(context.Background(), broker.OrderRequest{Instrument: "A069500"})
	assert.Error(t, err)
}
