package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	portfolioPath = "/v1/portfolio"
	quotePath     = "/v1/quote"
	closesPath    = "/v1/closes"
)

// GatewayOptions parameterise the broker gateway client.
type GatewayOptions struct {
	BaseURL   string
	AuthToken string
	Timeout   time.Duration
	UserAgent string
}

// Gateway talks to the broker aggregation gateway over HTTP. It serves all
// three fetcher roles: snapshot, quote, and daily-close history.
type Gateway struct {
	opts    GatewayOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewGateway constructs a broker gateway client.
func NewGateway(opts GatewayOptions, logger zerolog.Logger) *Gateway {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Gateway{
		opts:    opts,
		logger:  logger.With().Str("component", "broker_gateway").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchSnapshot retrieves the combined account snapshot.
func (g *Gateway) FetchSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := g.getJSON(ctx, portfolioPath, nil, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("fetch snapshot: %w", err)
	}
	return snap, nil
}

// FetchLast retrieves the last traded price for a ticker.
func (g *Gateway) FetchLast(ctx context.Context, ticker string) (float64, error) {
	var payload struct {
		Ticker string  `json:"ticker"`
		Last   float64 `json:"last"`
	}
	query := url.Values{"ticker": {ticker}}
	if err := g.getJSON(ctx, quotePath, query, &payload); err != nil {
		return 0, fmt.Errorf("fetch quote %s: %w", ticker, err)
	}
	if payload.Last <= 0 {
		return 0, fmt.Errorf("fetch quote %s: 无效报价 %v", ticker, payload.Last)
	}
	return payload.Last, nil
}

// FetchCloses retrieves up to days daily closes for a ticker, oldest first.
func (g *Gateway) FetchCloses(ctx context.Context, ticker string, days int) ([]float64, error) {
	var payload struct {
		Ticker string    `json:"ticker"`
		Closes []float64 `json:"closes"`
	}
	query := url.Values{
		"ticker": {ticker},
		"days":   {strconv.Itoa(days)},
	}
	if err := g.getJSON(ctx, closesPath, query, &payload); err != nil {
		return nil, fmt.Errorf("fetch closes %s: %w", ticker, err)
	}
	return payload.Closes, nil
}

func (g *Gateway) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	if g.baseURL == "" {
		return fmt.Errorf("broker gateway base url not configured")
	}

	endpoint := g.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(g.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "foliowatch/1.0")
	}
	if g.opts.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+g.opts.AuthToken)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway 响应码异常: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

var (
	_ SnapshotFetcher = (*Gateway)(nil)
	_ QuoteFetcher    = (*Gateway)(nil)
	_ HistoryFetcher  = (*Gateway)(nil)
)
