package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"PairSentinel/internal/model"
)

// Fetcher defines the interface for fetching daily price history.
type Fetcher interface {
	// FetchDailyHistory returns every available daily bar for symbol.
	FetchDailyHistory(ctx context.Context, symbol string) ([]model.OHLCV, error)
	Name() string
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
