// Package creon implements the broker contracts against a Creon bridge
// gateway: a small REST service that fronts the venue's COM trading API on
// the same host. The bridge speaks JSON and reports order rejections with
// conventional HTTP codes, including 429 for the venue's continuous-order
// frequency guard.
package creon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"context"

	"github.com/rustyeddy/daytrader/broker"
	"github.com/rustyeddy/daytrader/market"
)

// DefaultBaseURL is where the bridge listens when run with stock settings.
const DefaultBaseURL = "http://127.0.0.1:8899"

// KST is the venue's exchange time zone. Daily bar dates are calendar days
// in this zone. A fixed zone avoids a tzdata dependency; KST has no DST.
var KST = time.FixedZone("KST", 9*60*60)

const dateLayout = "20060102"

// Client is a broker.Gateway backed by the bridge's REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a bridge client. An empty baseURL selects
// DefaultBaseURL.
func NewClient(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

var _ broker.Gateway = (*Client)(nil)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// apiError decodes the bridge's error body, falling back to the raw text.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Message != "" {
		return fmt.Errorf("bridge error (status %d, code %s): %s", resp.StatusCode, er.Code, er.Message)
	}
	return fmt.Errorf("bridge error (status %d): %s", resp.StatusCode, string(body))
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Ping verifies the bridge is reachable and its venue session is connected.
func (c *Client) Ping(ctx context.Context) error {
	var status struct {
		Connected bool `json:"connected"`
	}
	if err := c.get(ctx, "/v1/status", &status); err != nil {
		return err
	}
	if !status.Connected {
		return fmt.Errorf("bridge is up but venue session is not connected")
	}
	return nil
}

type quoteResponse struct {
	Last float64 `json:"last"`
	Ask  float64 `json:"ask"`
	Bid  float64 `json:"bid"`
	Time string  `json:"time"`
}

// GetQuote fetches the current price snapshot for an instrument.
func (c *Client) GetQuote(ctx context.Context, instrument string) (market.Quote, error) {
	if instrument == "" {
		return market.Quote{}, fmt.Errorf("instrument is required")
	}

	var qr quoteResponse
	if err := c.get(ctx, "/v1/quote/"+url.PathEscape(instrument), &qr); err != nil {
		return market.Quote{}, err
	}

	q := market.Quote{
		Instrument: instrument,
		Last:       qr.Last,
		Ask:        qr.Ask,
		Bid:        qr.Bid,
	}
	if qr.Time != "" {
		t, err := time.Parse(time.RFC3339, qr.Time)
		if err != nil {
			return market.Quote{}, fmt.Errorf("parse quote time %s: %w", qr.Time, err)
		}
		q.Time = t
	}
	return q, nil
}

type apiBar struct {
	Date  string  `json:"date"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

type barsResponse struct {
	Instrument string   `json:"instrument"`
	Bars       []apiBar `json:"bars"`
}

// GetDailyBars fetches up to count daily bars. The bridge emits whatever
// order the venue returned; no ordering is promised to callers.
func (c *Client) GetDailyBars(ctx context.Context, instrument string, count int) ([]market.Bar, error) {
	if instrument == "" {
		return nil, fmt.Errorf("instrument is required")
	}
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}

	params := url.Values{}
	params.Set("count", strconv.Itoa(count))

	var br barsResponse
	path := fmt.Sprintf("/v1/bars/%s/daily?%s", url.PathEscape(instrument), params.Encode())
	if err := c.get(ctx, path, &br); err != nil {
		return nil, err
	}

	bars := make([]market.Bar, 0, len(br.Bars))
	for _, ab := range br.Bars {
		d, err := time.ParseInLocation(dateLayout, ab.Date, KST)
		if err != nil {
			return nil, fmt.Errorf("parse bar date %s: %w", ab.Date, err)
		}
		bars = append(bars, market.Bar{
			Date:  d,
			Open:  ab.Open,
			High:  ab.High,
			Low:   ab.Low,
			Close: ab.Close,
		})
	}
	return bars, nil
}

type apiPosition struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Qty  int64  `json:"qty"`
}

type positionsResponse struct {
	Positions []apiPosition `json:"positions"`
}

// GetPositions returns the broker-side view of current holdings. This is the
// authoritative state the session ledger caches.
func (c *Client) GetPositions(ctx context.Context) ([]market.Position, error) {
	var pr positionsResponse
	if err := c.get(ctx, "/v1/account/positions", &pr); err != nil {
		return nil, err
	}

	positions := make([]market.Position, 0, len(pr.Positions))
	for _, ap := range pr.Positions {
		positions = append(positions, market.Position{
			Instrument: ap.Code,
			Name:       ap.Name,
			Quantity:   ap.Qty,
		})
	}
	return positions, nil
}

// GetAvailableCash returns the cash available for full-margin orders.
func (c *Client) GetAvailableCash(ctx context.Context) (float64, error) {
	var cr struct {
		Available float64 `json:"available"`
	}
	if err := c.get(ctx, "/v1/account/cash", &cr); err != nil {
		return 0, err
	}
	return cr.Available, nil
}

// ResolveName looks up the venue's display name for an instrument code.
func (c *Client) ResolveName(ctx context.Context, instrument string) (string, error) {
	var ir struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}
	if err := c.get(ctx, "/v1/instruments/"+url.PathEscape(instrument), &ir); err != nil {
		return "", err
	}
	return ir.Name, nil
}

type orderPayload struct {
	ClientID   string  `json:"client_id"`
	Side       string  `json:"side"`
	Code       string  `json:"code"`
	Qty        int64   `json:"qty"`
	TIF        string  `json:"tif"`
	PriceMode  string  `json:"price_mode"`
	LimitPrice float64 `json:"limit_price,omitempty"`
}

type rateLimitResponse struct {
	RetryAfterMs int64 `json:"retry_after_ms"`
}

// Submit routes an order through the bridge and maps the HTTP outcome onto a
// broker.SubmitStatus. A transport failure returns a non-nil error; every
// venue-level rejection is reported in the status instead.
func (c *Client) Submit(ctx context.Context, req broker.OrderRequest) (broker.SubmitStatus, error) {
	if req.Instrument == "" {
		return broker.SubmitStatus{}, fmt.Errorf("instrument is required")
	}
	if req.Quantity <= 0 {
		return broker.SubmitStatus{}, fmt.Errorf("quantity must be positive, got %d", req.Quantity)
	}

	payload := orderPayload{
		ClientID:   req.ClientID,
		Side:       string(req.Side),
		Code:       req.Instrument,
		Qty:        req.Quantity,
		TIF:        string(req.TIF),
		PriceMode:  string(req.PriceMode),
		LimitPrice: req.LimitPrice,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return broker.SubmitStatus{}, fmt.Errorf("marshal order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return broker.SubmitStatus{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return broker.SubmitStatus{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return broker.SubmitStatus{Code: broker.OK}, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return broker.SubmitStatus{
			Code:       broker.RateLimited,
			RetryAfter: retryAfter(resp),
		}, nil

	default:
		raw, _ := io.ReadAll(resp.Body)
		reason := ""
		var er errorResponse
		if err := json.Unmarshal(raw, &er); err == nil && er.Message != "" {
			reason = er.Message
		} else {
			reason = fmt.Sprintf("status %d: %s", resp.StatusCode, string(raw))
		}
		return broker.SubmitStatus{Code: broker.Rejected, Reason: reason}, nil
	}
}

// retryAfter extracts the venue-reported cooldown from a 429. The bridge
// reports milliseconds in the body; the Retry-After header (seconds) is the
// fallback.
func retryAfter(resp *http.Response) time.Duration {
	var rl rateLimitResponse
	if err := json.NewDecoder(resp.Body).Decode(&rl); err == nil && rl.RetryAfterMs > 0 {
		return time.Duration(rl.RetryAfterMs) * time.Millisecond
	}
	if h := resp.Header.Get("Retry-After"); h != "" {
		if secs, err := strconv.Atoi(h); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
