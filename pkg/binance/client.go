package binance

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://api.binance.com"
	DefaultPageSize = 500

	// maxLimit is the largest page the historicalTrades endpoint serves.
	maxLimit = 1000
)

type Config struct {
	BaseURL           string
	Timeout           time.Duration
	APIKey            string
	SecretKey         string
	PageSize          int
	RequestsPerMinute int // 0 disables pacing
}

// Client is the venue collaborator: symbol listing and historical trades.
// It is safe for concurrent use; all calls share one rate limiter.
type Client struct {
	api      *gobinance.Client
	limiter  *rate.Limiter
	pageSize int
}

func NewClient(cfg Config) *Client {
	api := gobinance.NewClient(cfg.APIKey, cfg.SecretKey)
	api.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if api.BaseURL == "" {
		api.BaseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	api.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: &guardTransport{base: http.DefaultTransport},
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	return &Client{api: api, limiter: limiter, pageSize: pageSize}
}

// PageSize is the venue page size the fetch window is computed from.
func (c *Client) PageSize() int { return c.pageSize }

// ListSymbols returns every symbol the venue currently prices, sorted.
func (c *Client) ListSymbols(ctx context.Context) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	prices, err := c.api.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", Classify(err))
	}

	seen := make(map[string]bool, len(prices))
	symbols := make([]string, 0, len(prices))
	for _, p := range prices {
		if p == nil || p.Symbol == "" || seen[p.Symbol] {
			continue
		}
		seen[p.Symbol] = true
		symbols = append(symbols, p.Symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// HistoricalTrades returns one page of trades for symbol. With a nil fromID
// the most recent page is returned; otherwise the page starts at *fromID.
// The request asks for PageSize()+1 trades so a window starting at
// minID-PageSize()-1 ends exactly below minID.
func (c *Client) HistoricalTrades(ctx context.Context, symbol string, fromID *int64) ([]Trade, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	svc := c.api.NewHistoricalTradesService().Symbol(symbol).Limit(min(c.pageSize+1, maxLimit))
	if fromID != nil {
		svc = svc.FromID(*fromID)
	}
	raw, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("historical trades %s: %w", symbol, Classify(err))
	}

	trades, err := ParseTradeList(raw)
	if err != nil {
		return nil, fmt.Errorf("historical trades %s: %w", symbol, err)
	}
	return trades, nil
}
