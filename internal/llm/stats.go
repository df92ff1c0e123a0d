package llm

import (
	"sort"
	"sync"
	"time"
)

type call struct {
	at         time.Time
	durationMs int64
	failed     bool
}

// StatsSnapshot aggregates the summarizer calls still inside the window.
// Latency figures include failed calls.
type StatsSnapshot struct {
	Count     int     `json:"count"`
	Errors    int     `json:"errors"`
	ErrorRate float64 `json:"error_rate"`
	MinMs     int64   `json:"min_ms"`
	MaxMs     int64   `json:"max_ms"`
	AvgMs     float64 `json:"avg_ms"`
	P50Ms     float64 `json:"p50_ms"`
	P95Ms     float64 `json:"p95_ms"`
	P99Ms     float64 `json:"p99_ms"`
}

// Stats keeps summarizer calls from the last maxAge for the /api/stats/llm
// endpoint. A nil *Stats is valid and records nothing.
type Stats struct {
	mu     sync.Mutex
	calls  []call
	maxAge time.Duration
	now    func() time.Time
}

// NewStats returns a Stats with a rolling window of maxAge, one hour when
// maxAge is not positive.
func NewStats(maxAge time.Duration) *Stats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Stats{
		calls:  make([]call, 0, 256),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Record adds one summarizer call. A non-nil err counts it as a failure;
// these are the calls the refiner answers with the fallback summary.
func (s *Stats) Record(durationMs int64, err error) {
	if s == nil {
		return
	}
	if durationMs < 0 {
		durationMs = 0
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	s.calls = append(s.calls, call{at: now, durationMs: durationMs, failed: err != nil})
}

// Snapshot summarizes the calls inside the window. It returns the zero
// value when there are none.
func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	if len(s.calls) == 0 {
		return StatsSnapshot{}
	}

	durations := make([]int64, 0, len(s.calls))
	var sum int64
	failed := 0
	for _, c := range s.calls {
		durations = append(durations, c.durationMs)
		sum += c.durationMs
		if c.failed {
			failed++
		}
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	n := len(durations)
	return StatsSnapshot{
		Count:     n,
		Errors:    failed,
		ErrorRate: float64(failed) / float64(n),
		MinMs:     durations[0],
		MaxMs:     durations[n-1],
		AvgMs:     float64(sum) / float64(n),
		P50Ms:     percentile(durations, 50),
		P95Ms:     percentile(durations, 95),
		P99Ms:     percentile(durations, 99),
	}
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	i := sort.Search(len(s.calls), func(i int) bool { return !s.calls[i].at.Before(cutoff) })
	if i > 0 {
		s.calls = append(s.calls[:0], s.calls[i:]...)
	}
}

// percentile interpolates between the two nearest ranks of a sorted slice.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	pos := float64(len(sorted)-1) * pct / 100
	lo := int(pos)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + float64(sorted[lo+1]-sorted[lo])*frac
}
