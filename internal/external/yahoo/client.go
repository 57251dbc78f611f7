package yahoo

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/config"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/logger"
)

// Client handles communication with the Yahoo Finance API. Requests are
// paced with a local rate limiter; a 429 from Yahoo is normalized to
// contracts.ErrRateLimited so the acquisition layer can drive its retry
// policy off a single condition.
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
	baseURL    string
	limiter    *rate.Limiter
}

// NewClient creates a new Yahoo Finance client.
func NewClient(cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Yahoo.Timeout,
		},
		logger:  log.WithField("client", "yahoo"),
		baseURL: cfg.Yahoo.BaseURL,
		limiter: rate.NewLimiter(rate.Limit(cfg.Yahoo.RequestsPerSecond), 1),
	}
}

// fetch performs a paced GET and returns the response body. Yahoo blocks
// requests without a browser-like User-Agent.
func (c *Client) fetch(ctx context.Context, fullURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 999 {
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, contracts.ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}
