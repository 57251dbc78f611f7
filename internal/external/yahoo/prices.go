package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
)

// sparkResponse is the envelope of the multi-symbol spark endpoint. Each
// result carries the same payload shape as the single-symbol chart API.
type sparkResponse struct {
	Spark struct {
		Result []struct {
			Symbol   string        `json:"symbol"`
			Response []chartResult `json:"response"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"spark"`
}

// chartResult is the per-symbol time series payload.
type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
	Meta struct {
		ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	} `json:"meta"`
}

// DailyCloses downloads daily closing prices for up to a provider batch of
// symbols between start (inclusive) and end (exclusive). The result maps
// symbol -> date string -> close. Symbols with no data in the window are
// absent from the map.
func (c *Client) DailyCloses(ctx context.Context, symbols []string, start, end time.Time) (map[string]map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]map[string]float64{}, nil
	}

	params := url.Values{
		"symbols":  {strings.Join(symbols, ",")},
		"period1":  {fmt.Sprintf("%d", start.Unix())},
		"period2":  {fmt.Sprintf("%d", end.Unix())},
		"interval": {"1d"},
	}
	fullURL := fmt.Sprintf("%s/v8/finance/spark?%s", c.baseURL, params.Encode())

	body, err := c.fetch(ctx, fullURL)
	if err != nil {
		return nil, err
	}

	closes, err := parseSparkCloses(body)
	if err != nil {
		return nil, fmt.Errorf("parse spark response: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"priced":  len(closes),
	}).Debug("Fetched daily closes")

	return closes, nil
}

// parseSparkCloses flattens the spark payload into symbol -> date -> close.
// Null closes (halted or unpriced sessions) are skipped.
func parseSparkCloses(body []byte) (map[string]map[string]float64, error) {
	var parsed sparkResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	closes := make(map[string]map[string]float64)
	for _, result := range parsed.Spark.Result {
		if len(result.Response) == 0 {
			continue
		}
		series := result.Response[0]
		if len(series.Indicators.Quote) == 0 {
			continue
		}

		quote := series.Indicators.Quote[0]
		for i, ts := range series.Timestamp {
			if i >= len(quote.Close) || quote.Close[i] == nil {
				continue
			}
			date := time.Unix(ts, 0).UTC().Format(contracts.DateFormat)
			if closes[result.Symbol] == nil {
				closes[result.Symbol] = make(map[string]float64)
			}
			closes[result.Symbol][date] = *quote.Close[i]
		}
	}

	return closes, nil
}
