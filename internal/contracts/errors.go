package contracts

import "errors"

var (
	// ErrRateLimited signals a single rate-limited provider response. The
	// acquisition layer retries on it; it never escapes the adapter.
	ErrRateLimited = errors.New("provider rate limited")

	// ErrRateLimitExhausted means retries ran out on a price-fetch chunk.
	// Fatal for the date's run; the caller decides when to re-invoke.
	ErrRateLimitExhausted = errors.New("rate limit retries exhausted")

	// ErrNoPreviousTradingDate means the lookback window used to resolve the
	// last trading day contained no priced data.
	ErrNoPreviousTradingDate = errors.New("no previous trading date found in lookback window")

	// ErrEmptyResult is returned by read queries that found no rows. It is a
	// caller-facing condition, not a pipeline failure.
	ErrEmptyResult = errors.New("empty result set")
)
