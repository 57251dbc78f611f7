package index

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/config"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/logger"
)

// memStore is an in-memory contracts.Store mirroring the SQL semantics of
// the real gateway.
type memStore struct {
	mu           sync.Mutex
	shares       map[string]map[string]float64                // ticker -> report date -> shares
	caps         map[string]map[string]contracts.MarketCapRecord // date -> ticker -> record
	compositions map[string][]contracts.CompositionEntry      // date -> entries
	values       map[string]float64                           // date -> index value
}

func newMemStore() *memStore {
	return &memStore{
		shares:       make(map[string]map[string]float64),
		caps:         make(map[string]map[string]contracts.MarketCapRecord),
		compositions: make(map[string][]contracts.CompositionEntry),
		values:       make(map[string]float64),
	}
}

func (m *memStore) UpsertQuarterlyShares(_ context.Context, rows []contracts.SharesObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		if m.shares[row.Ticker] == nil {
			m.shares[row.Ticker] = make(map[string]float64)
		}
		m.shares[row.Ticker][row.ReportDate.Format(contracts.DateFormat)] = row.SharesOutstanding
	}
	return nil
}

func (m *memStore) UpsertMarketCaps(_ context.Context, rows []contracts.MarketCapRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		key := row.Date.Format(contracts.DateFormat)
		if m.caps[key] == nil {
			m.caps[key] = make(map[string]contracts.MarketCapRecord)
		}
		m.caps[key][row.Ticker] = row
	}
	return nil
}

func (m *memStore) LatestSharesOnOrBefore(_ context.Context, ticker string, date time.Time) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := date.Format(contracts.DateFormat)

	best := ""
	for reportDate := range m.shares[ticker] {
		if reportDate <= cutoff && reportDate > best {
			best = reportDate
		}
	}
	if best == "" {
		return 0, false, nil
	}
	return m.shares[ticker][best], true, nil
}

func (m *memStore) Top100ByMarketCap(_ context.Context, date time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]contracts.MarketCapRecord, 0)
	for _, rec := range m.caps[date.Format(contracts.DateFormat)] {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].MarketCap != records[j].MarketCap {
			return records[i].MarketCap > records[j].MarketCap
		}
		return records[i].Ticker < records[j].Ticker
	})

	var top []string
	for i, rec := range records {
		if i == 100 {
			break
		}
		top = append(top, rec.Ticker)
	}
	return top, nil
}

func (m *memStore) MostRecentCompositionBefore(_ context.Context, date time.Time) (*contracts.CompositionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := date.Format(contracts.DateFormat)

	best := ""
	for snapDate := range m.compositions {
		if snapDate < cutoff && snapDate > best {
			best = snapDate
		}
	}
	if best == "" {
		return nil, nil
	}

	snapDate, _ := time.Parse(contracts.DateFormat, best)
	entries := append([]contracts.CompositionEntry(nil), m.compositions[best]...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Ticker < entries[j].Ticker })
	return &contracts.CompositionSnapshot{Date: snapDate, Entries: entries}, nil
}

func (m *memStore) ReplaceComposition(_ context.Context, date time.Time, entries []contracts.CompositionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compositions[date.Format(contracts.DateFormat)] = append([]contracts.CompositionEntry(nil), entries...)
	return nil
}

func (m *memStore) UpsertIndexValue(_ context.Context, date time.Time, value float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[date.Format(contracts.DateFormat)] = value
	return nil
}

func (m *memStore) PreviousIndexValue(_ context.Context, date time.Time) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := date.Format(contracts.DateFormat)

	best := ""
	for valueDate := range m.values {
		if valueDate < cutoff && valueDate > best {
			best = valueDate
		}
	}
	if best == "" {
		return 0, false, nil
	}
	return m.values[best], true, nil
}

// fakeMarket scripts trading days, per-date prices and fundamentals.
type fakeMarket struct {
	tradingDays  map[string]bool
	prices       map[string]map[string]float64 // date -> ticker -> close
	fundamentals map[string][]contracts.SharesObservation
	fetchErr     error

	mu           sync.Mutex
	refreshCalls []string
}

func (f *fakeMarket) IsTradingDay(_ context.Context, _ string, date time.Time) (bool, error) {
	return f.tradingDays[date.Format(contracts.DateFormat)], nil
}

func (f *fakeMarket) FetchClosingPrices(_ context.Context, tickers []string, date time.Time) (map[string]float64, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}

	dayPrices := f.prices[date.Format(contracts.DateFormat)]
	result := make(map[string]float64)
	for _, ticker := range tickers {
		if price, ok := dayPrices[ticker]; ok {
			result[ticker] = price
		}
	}
	return result, nil
}

func (f *fakeMarket) FetchQuarterlyShares(_ context.Context, ticker string) ([]contracts.SharesObservation, error) {
	f.mu.Lock()
	f.refreshCalls = append(f.refreshCalls, ticker)
	f.mu.Unlock()

	obs, ok := f.fundamentals[ticker]
	if !ok {
		return nil, nil
	}
	return obs, nil
}

func (f *fakeMarket) PreviousTradingDate(_ context.Context, _ string, _ time.Time) (time.Time, error) {
	return time.Time{}, contracts.ErrNoPreviousTradingDate
}

type fakeUniverse struct {
	tickers []string
}

func (f *fakeUniverse) ListConstituents(_ context.Context) ([]string, error) {
	return f.tickers, nil
}

func testEngine(store contracts.Store, market contracts.MarketData, universe contracts.UniverseProvider) *Engine {
	cfg := config.IndexConfig{
		ReferenceTicker: "AAPL",
		ChunkSize:       20,
		RefreshWorkers:  3,
		InterDateDelay:  0,
	}
	return New(store, market, universe, cfg, logger.NewWithWriter(io.Discard, "error"))
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(contracts.DateFormat, s)
	require.NoError(t, err)
	return d
}

// scenario builds a 105-ticker universe where ranks follow ticker numbers:
// T000 has the largest cap. Prices per date can then be nudged to move
// tickers across the top-100 boundary.
func scenarioFixtures(t *testing.T) (*memStore, *fakeMarket, *fakeUniverse) {
	t.Helper()

	store := newMemStore()
	universe := &fakeUniverse{}
	market := &fakeMarket{
		tradingDays: map[string]bool{
			"2025-01-02": true,
			"2025-01-03": true,
			"2025-01-06": true,
		},
		prices:       map[string]map[string]float64{},
		fundamentals: map[string][]contracts.SharesObservation{},
	}

	reportDate := mustDate(t, "2024-12-31")
	var sharesRows []contracts.SharesObservation
	day1 := map[string]float64{}
	for i := 0; i < 105; i++ {
		ticker := fmt.Sprintf("T%03d", i)
		universe.tickers = append(universe.tickers, ticker)
		sharesRows = append(sharesRows, contracts.SharesObservation{
			Ticker: ticker, ReportDate: reportDate, SharesOutstanding: 1e6,
		})
		day1[ticker] = float64(1050 - i) // descending caps by ticker number
	}
	require.NoError(t, store.UpsertQuarterlyShares(context.Background(), sharesRows))
	market.prices["2025-01-02"] = day1

	return store, market, universe
}

func copyPrices(prices map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(prices))
	for k, v := range prices {
		out[k] = v
	}
	return out
}

func TestComputeDayFirstRun(t *testing.T) {
	store, market, universe := scenarioFixtures(t)
	engine := testEngine(store, market, universe)

	result, err := engine.ComputeDay(context.Background(), mustDate(t, "2025-01-02"), false)
	require.NoError(t, err)

	// First computed day: base value and a forced rebalance snapshot.
	assert.True(t, result.TradingDay)
	assert.Equal(t, BaseValue, result.IndexValue)
	assert.True(t, result.Rebalanced)
	assert.Equal(t, 100, result.Constituents)

	assert.Equal(t, BaseValue, store.values["2025-01-02"])

	entries := store.compositions["2025-01-02"]
	require.Len(t, entries, 100)

	// The snapshot revalues to exactly the index value at rebalance prices.
	total := 0.0
	for _, entry := range entries {
		total += entry.Qty * market.prices["2025-01-02"][entry.Ticker]
	}
	assert.InDelta(t, BaseValue, total, 1e-6)

	// T100..T104 have the smallest caps and stay out.
	for _, entry := range entries {
		assert.Less(t, entry.Ticker, "T100")
	}
}

func TestComputeDayHolidayIsNoOp(t *testing.T) {
	store, market, universe := scenarioFixtures(t)
	engine := testEngine(store, market, universe)

	result, err := engine.ComputeDay(context.Background(), mustDate(t, "2025-01-04"), false)
	require.NoError(t, err)

	assert.False(t, result.TradingDay)
	assert.Empty(t, store.values)
	assert.Empty(t, store.compositions)
	assert.Empty(t, store.caps)
}

func TestComputeDayUnchangedComposition(t *testing.T) {
	store, market, universe := scenarioFixtures(t)
	engine := testEngine(store, market, universe)
	ctx := context.Background()

	_, err := engine.ComputeDay(ctx, mustDate(t, "2025-01-02"), false)
	require.NoError(t, err)

	// Day 2: every price up 2%, membership unchanged.
	day2 := copyPrices(market.prices["2025-01-02"])
	for ticker := range day2 {
		day2[ticker] *= 1.02
	}
	market.prices["2025-01-03"] = day2

	result, err := engine.ComputeDay(ctx, mustDate(t, "2025-01-03"), false)
	require.NoError(t, err)

	// Value moves with prices, derived from the unchanged day-1 snapshot.
	assert.InDelta(t, BaseValue*1.02, result.IndexValue, 1e-6)
	assert.False(t, result.Rebalanced)

	// No new snapshot row for day 2.
	assert.NotContains(t, store.compositions, "2025-01-03")
	assert.Contains(t, store.compositions, "2025-01-02")
}

func TestComputeDayRebalanceOnMembershipChange(t *testing.T) {
	store, market, universe := scenarioFixtures(t)
	engine := testEngine(store, market, universe)
	ctx := context.Background()

	_, err := engine.ComputeDay(ctx, mustDate(t, "2025-01-02"), false)
	require.NoError(t, err)

	day2 := copyPrices(market.prices["2025-01-02"])
	market.prices["2025-01-03"] = day2
	_, err = engine.ComputeDay(ctx, mustDate(t, "2025-01-03"), false)
	require.NoError(t, err)

	// Day 3: T099 collapses below T100, swapping the boundary seats.
	day3 := copyPrices(day2)
	day3["T099"] = 1.0
	market.prices["2025-01-06"] = day3

	result, err := engine.ComputeDay(ctx, mustDate(t, "2025-01-06"), false)
	require.NoError(t, err)

	assert.True(t, result.Rebalanced)
	require.Contains(t, store.compositions, "2025-01-06")

	entries := store.compositions["2025-01-06"]
	require.Len(t, entries, 100)

	tickers := make(map[string]bool)
	for _, entry := range entries {
		tickers[entry.Ticker] = true
	}
	assert.False(t, tickers["T099"], "dropped constituent must leave the snapshot")
	assert.True(t, tickers["T100"], "next-ranked ticker must enter the snapshot")

	// Continuity: the day-3 value comes from the day-1 holdings at day-3
	// prices, and the new snapshot revalues to exactly that.
	prevEntries := store.compositions["2025-01-02"]
	expected := 0.0
	for _, entry := range prevEntries {
		expected += entry.Qty * day3[entry.Ticker]
	}
	assert.InDelta(t, expected, result.IndexValue, 1e-6)

	total := 0.0
	for _, entry := range entries {
		total += entry.Qty * day3[entry.Ticker]
	}
	assert.InDelta(t, result.IndexValue, total, 1e-6)
}

func TestComputeDayIdempotentRerun(t *testing.T) {
	store, market, universe := scenarioFixtures(t)
	engine := testEngine(store, market, universe)
	ctx := context.Background()
	date := mustDate(t, "2025-01-02")

	first, err := engine.ComputeDay(ctx, date, false)
	require.NoError(t, err)
	firstComposition := append([]contracts.CompositionEntry(nil), store.compositions["2025-01-02"]...)

	second, err := engine.ComputeDay(ctx, date, false)
	require.NoError(t, err)

	assert.Equal(t, first.IndexValue, second.IndexValue)
	assert.Equal(t, firstComposition, store.compositions["2025-01-02"])
	assert.Len(t, store.values, 1)
	assert.Len(t, store.compositions, 1)
}

func TestComputeDayExcludesTickersWithoutShares(t *testing.T) {
	store, market, universe := scenarioFixtures(t)

	// GHOST trades at a huge price but has no shares observation.
	universe.tickers = append(universe.tickers, "GHOST")
	market.prices["2025-01-02"]["GHOST"] = 1e9

	engine := testEngine(store, market, universe)
	_, err := engine.ComputeDay(context.Background(), mustDate(t, "2025-01-02"), false)
	require.NoError(t, err)

	assert.NotContains(t, store.caps["2025-01-02"], "GHOST")
	for _, entry := range store.compositions["2025-01-02"] {
		assert.NotEqual(t, "GHOST", entry.Ticker)
	}
}

func TestComputeDayRateLimitExhaustedAborts(t *testing.T) {
	store, market, universe := scenarioFixtures(t)
	market.fetchErr = contracts.ErrRateLimitExhausted

	engine := testEngine(store, market, universe)
	_, err := engine.ComputeDay(context.Background(), mustDate(t, "2025-01-02"), false)

	assert.ErrorIs(t, err, contracts.ErrRateLimitExhausted)
	assert.Empty(t, store.values)
	assert.Empty(t, store.compositions)
}

func TestComputeRangeRefreshesFundamentalsOnceAndSkipsHolidays(t *testing.T) {
	store, market, universe := scenarioFixtures(t)

	market.prices["2025-01-03"] = copyPrices(market.prices["2025-01-02"])
	market.fundamentals["T000"] = []contracts.SharesObservation{
		{Ticker: "T000", ReportDate: mustDate(t, "2024-12-31"), SharesOutstanding: 2e6},
	}

	engine := testEngine(store, market, universe)

	// 2025-01-04/05 fall on a weekend in the scripted calendar.
	results, err := engine.ComputeRange(context.Background(), mustDate(t, "2025-01-02"), mustDate(t, "2025-01-05"), true)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results[0].TradingDay)
	assert.True(t, results[1].TradingDay)
	assert.False(t, results[2].TradingDay)
	assert.False(t, results[3].TradingDay)

	// One refresh pass over the universe, on the first date only.
	assert.Len(t, market.refreshCalls, len(universe.tickers))
}

func TestRefreshFundamentalsBatchesAndSkipsFailures(t *testing.T) {
	store := newMemStore()
	market := &fakeMarket{
		fundamentals: map[string][]contracts.SharesObservation{
			"AAA": {{Ticker: "AAA", ReportDate: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), SharesOutstanding: 1e6}},
			"BBB": {{Ticker: "BBB", ReportDate: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), SharesOutstanding: 2e6}},
			// CCC has no fundamentals: logged and skipped.
		},
	}
	engine := testEngine(store, market, &fakeUniverse{})

	err := engine.RefreshFundamentals(context.Background(), []string{"AAA", "BBB", "CCC"})
	require.NoError(t, err)

	assert.Len(t, market.refreshCalls, 3)
	assert.Contains(t, store.shares, "AAA")
	assert.Contains(t, store.shares, "BBB")
	assert.NotContains(t, store.shares, "CCC")
}
