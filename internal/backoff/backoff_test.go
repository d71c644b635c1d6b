package backoff

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsRateLimitRecognizesCommonSignals(t *testing.T) {
	cases := []string{
		"HTTP 429 Too Many Requests",
		"rate_limit_error: please slow down",
		"Rate Limit exceeded",
		"overloaded_error",
	}
	for _, c := range cases {
		require.True(t, IsRateLimit(c), c)
	}
	require.False(t, IsRateLimit("internal server error"))
}

func TestExtractRetryAfterClamps(t *testing.T) {
	d, ok := ExtractRetryAfter("0.1")
	require.True(t, ok)
	require.Equal(t, minRetryAfter, d)

	d, ok = ExtractRetryAfter("999999999")
	require.True(t, ok)
	require.Equal(t, maxRetryAfter, d)

	_, ok = ExtractRetryAfter("not-a-number")
	require.False(t, ok)
}

func TestExtractResetAtCorrectsPastTimestamps(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour).Unix()
	d, ok := ExtractResetAt(strconv.FormatInt(past, 10), now)
	require.True(t, ok)
	require.InDelta(t, (23 * time.Hour).Seconds(), d.Seconds(), 5)
}

func TestExponentialBackoffSaturates(t *testing.T) {
	p := New(1)
	var last time.Duration
	for i := 0; i < 15; i++ {
		last = p.NextRateLimitDelay("w1", 0)
	}
	require.LessOrEqual(t, last, expCap+expCap/10)
}

func TestLinearBackoffCapsAndResets(t *testing.T) {
	p := New(1)
	for i := 0; i < 20; i++ {
		p.NextErrorDelay("w2")
	}
	require.Equal(t, linearCap, p.NextErrorDelay("w2"))

	p.ResetOnSuccess("w2")
	require.Equal(t, linearUnit, p.NextErrorDelay("w2"))
}

func TestRateLimitAndErrorCountersAreIndependent(t *testing.T) {
	p := New(1)
	p.NextRateLimitDelay("w3", 0)
	p.NextErrorDelay("w3")
	p.ResetOnSuccess("w3")
	require.Equal(t, time.Duration(0), time.Duration(p.rateLimitHits["w3"]))
	require.Equal(t, time.Duration(0), time.Duration(p.errorHits["w3"]))
}
