package yahoo

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/config"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/logger"
)

// 2025-01-02 and 2025-01-03 close timestamps (UTC midnight)
const sparkFixture = `{
	"spark": {
		"result": [
			{
				"symbol": "AAPL",
				"response": [
					{
						"timestamp": [1735776000, 1735862400],
						"indicators": {"quote": [{"close": [243.85, 243.36]}]},
						"meta": {"exchangeTimezoneName": "America/New_York"}
					}
				]
			},
			{
				"symbol": "HALT",
				"response": [
					{
						"timestamp": [1735776000, 1735862400],
						"indicators": {"quote": [{"close": [null, 12.5]}]},
						"meta": {"exchangeTimezoneName": "America/New_York"}
					}
				]
			},
			{
				"symbol": "EMPTY",
				"response": []
			}
		],
		"error": null
	}
}`

const timeseriesFixture = `{
	"timeseries": {
		"result": [
			{
				"meta": {"type": ["quarterlyOrdinarySharesNumber"]},
				"quarterlyOrdinarySharesNumber": [
					{"asOfDate": "2024-09-30", "reportedValue": {"raw": 15100000000}},
					null,
					{"asOfDate": "2024-12-31", "reportedValue": {"raw": 15000000000}}
				]
			}
		],
		"error": null
	}
}`

const timeseriesMissingFieldFixture = `{
	"timeseries": {
		"result": [
			{"meta": {"type": ["quarterlyOrdinarySharesNumber"]}}
		],
		"error": null
	}
}`

func TestParseSparkCloses(t *testing.T) {
	closes, err := parseSparkCloses([]byte(sparkFixture))
	require.NoError(t, err)

	require.Contains(t, closes, "AAPL")
	assert.Equal(t, 243.85, closes["AAPL"]["2025-01-02"])
	assert.Equal(t, 243.36, closes["AAPL"]["2025-01-03"])

	// Null close on the first day is skipped, not zeroed.
	require.Contains(t, closes, "HALT")
	assert.NotContains(t, closes["HALT"], "2025-01-02")
	assert.Equal(t, 12.5, closes["HALT"]["2025-01-03"])

	// Symbols with no response rows are absent entirely.
	assert.NotContains(t, closes, "EMPTY")
}

func TestParseQuarterlyShares(t *testing.T) {
	observations, err := parseQuarterlyShares("AAPL", []byte(timeseriesFixture))
	require.NoError(t, err)

	require.Len(t, observations, 2)
	assert.Equal(t, "AAPL", observations[0].Ticker)
	assert.Equal(t, "2024-09-30", observations[0].ReportDate.Format(contracts.DateFormat))
	assert.Equal(t, 15.1e9, observations[0].SharesOutstanding)
	assert.Equal(t, 15.0e9, observations[1].SharesOutstanding)
}

func TestParseQuarterlySharesMissingField(t *testing.T) {
	observations, err := parseQuarterlyShares("BRK-B", []byte(timeseriesMissingFieldFixture))
	require.NoError(t, err)
	assert.Empty(t, observations)
}

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()

	cfg := &config.Config{
		Yahoo: config.YahooConfig{
			BaseURL:           serverURL,
			RequestsPerSecond: 1000,
			Timeout:           5 * time.Second,
		},
	}
	return NewClient(cfg, logger.NewWithWriter(io.Discard, "error"))
}

func TestDailyClosesRateLimitSignal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	_, err := client.DailyCloses(context.Background(), []string{"AAPL"}, time.Now().AddDate(0, 0, -1), time.Now())
	assert.ErrorIs(t, err, contracts.ErrRateLimited)
}

func TestDailyClosesAgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/spark")
		assert.Equal(t, "AAPL,MSFT", r.URL.Query().Get("symbols"))
		w.Write([]byte(sparkFixture))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	closes, err := client.DailyCloses(context.Background(), []string{"AAPL", "MSFT"},
		time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 243.85, closes["AAPL"]["2025-01-02"])
}

func TestQuarterlySharesAgainstServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/ws/fundamentals-timeseries/v1/finance/timeseries/AAPL")
		assert.Equal(t, "quarterlyOrdinarySharesNumber", r.URL.Query().Get("type"))
		w.Write([]byte(timeseriesFixture))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	observations, err := client.QuarterlyShares(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, observations, 2)
}
