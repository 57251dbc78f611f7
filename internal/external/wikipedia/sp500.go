package wikipedia

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/httputil"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/logger"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/redis"
)

// constituentsURL is the reference universe source: the S&P 500 constituent
// table on Wikipedia.
const constituentsURL = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"

var symbolRe = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]*$`)

// Provider implements contracts.UniverseProvider by scraping the constituent
// table. Results are cached per calendar day so a range run does not
// re-scrape for every date.
type Provider struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	cache      *redis.Cache
	url        string
}

// NewProvider creates a new universe provider.
func NewProvider(log *logger.Logger, cache *redis.Cache) *Provider {
	return &Provider{
		httpClient: httputil.NewWithTimeout(log, 30*time.Second),
		logger:     log.WithField("provider", "wikipedia"),
		cache:      cache,
		url:        constituentsURL,
	}
}

// ListConstituents returns the current S&P 500 ticker symbols, normalized
// for the pricing provider.
func (p *Provider) ListConstituents(ctx context.Context) ([]string, error) {
	cacheKey := redis.UniverseKey(time.Now().UTC().Format(contracts.DateFormat))

	var cached []string
	if found, err := p.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		p.logger.WithField("count", len(cached)).Debug("Universe served from cache")
		return cached, nil
	}

	symbols, err := p.scrape(ctx)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, cacheKey, symbols, redis.TTLDaily); err != nil {
		p.logger.WithError(err).Warn("Failed to cache universe list")
	}

	p.logger.WithField("count", len(symbols)).Info("Fetched constituent universe")
	return symbols, nil
}

// scrape downloads and parses the constituent table.
func (p *Provider) scrape(ctx context.Context) ([]string, error) {
	resp, err := p.httpClient.GetWithHeaders(ctx, p.url, map[string]string{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
	})
	if err != nil {
		return nil, fmt.Errorf("fetch constituents page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	symbols, err := parseConstituents(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no constituents found in page")
	}
	return symbols, nil
}

// parseConstituents extracts ticker symbols from the first column of the
// constituents table. The table carries id="constituents"; the first page
// table is the fallback for older page revisions.
func parseConstituents(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	table := doc.Find("table#constituents")
	if table.Length() == 0 {
		table = doc.Find("table.wikitable").First()
	}

	var symbols []string
	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if cell.Length() == 0 {
			return // header row
		}
		symbol := strings.TrimSpace(cell.Text())
		if !symbolRe.MatchString(symbol) {
			return
		}
		symbols = append(symbols, NormalizeSymbol(symbol))
	})

	return symbols, nil
}

// NormalizeSymbol rewrites share-class punctuation for the pricing provider
// (BRK.B -> BRK-B).
func NormalizeSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, ".", "-")
}
