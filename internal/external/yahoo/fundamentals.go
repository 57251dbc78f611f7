package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
)

// timeseriesResponse is the envelope of the fundamentals timeseries API.
type timeseriesResponse struct {
	Timeseries struct {
		Result []struct {
			Meta struct {
				Type []string `json:"type"`
			} `json:"meta"`
			QuarterlyOrdinarySharesNumber []*struct {
				AsOfDate      string `json:"asOfDate"`
				ReportedValue struct {
					Raw float64 `json:"raw"`
				} `json:"reportedValue"`
			} `json:"quarterlyOrdinarySharesNumber"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"timeseries"`
}

// quarterlySharesLookback bounds how far back the fundamentals query reaches.
// Five years comfortably covers the report dates any market-cap computation
// will ask for.
const quarterlySharesLookback = 5 * 365 * 24 * time.Hour

// QuarterlyShares fetches the quarterly ordinary-shares history for one
// symbol. A symbol whose balance sheet lacks the field yields an empty slice,
// never an error; that case is the caller's to log.
func (c *Client) QuarterlyShares(ctx context.Context, symbol string) ([]contracts.SharesObservation, error) {
	now := time.Now().UTC()
	params := url.Values{
		"type":    {"quarterlyOrdinarySharesNumber"},
		"period1": {fmt.Sprintf("%d", now.Add(-quarterlySharesLookback).Unix())},
		"period2": {fmt.Sprintf("%d", now.Unix())},
	}
	fullURL := fmt.Sprintf("%s/ws/fundamentals-timeseries/v1/finance/timeseries/%s?%s",
		c.baseURL, url.PathEscape(symbol), params.Encode())

	body, err := c.fetch(ctx, fullURL)
	if err != nil {
		return nil, err
	}

	observations, err := parseQuarterlyShares(symbol, body)
	if err != nil {
		return nil, fmt.Errorf("parse timeseries response for %s: %w", symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(observations),
	}).Debug("Fetched quarterly shares")

	return observations, nil
}

// parseQuarterlyShares extracts (report date, shares) pairs. Null entries in
// the series mean the quarter was not reported and are skipped.
func parseQuarterlyShares(symbol string, body []byte) ([]contracts.SharesObservation, error) {
	var parsed timeseriesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	var observations []contracts.SharesObservation
	for _, result := range parsed.Timeseries.Result {
		for _, point := range result.QuarterlyOrdinarySharesNumber {
			if point == nil || point.AsOfDate == "" {
				continue
			}
			reportDate, err := time.Parse(contracts.DateFormat, point.AsOfDate)
			if err != nil {
				continue
			}
			observations = append(observations, contracts.SharesObservation{
				Ticker:            symbol,
				ReportDate:        reportDate,
				SharesOutstanding: point.ReportedValue.Raw,
			})
		}
	}

	return observations, nil
}
