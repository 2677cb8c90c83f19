package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dkress/wppmon/pkg/wpp"
)

// Metric selects which market the backend ranks plays for.
type Metric string

const (
	MetricSpread    Metric = "spread"
	MetricMoneyline Metric = "ml"
	MetricTotal     Metric = "total"
)

// ParseMetric maps a string onto the metric enum, defaulting to spread.
func ParseMetric(s string) Metric {
	switch Metric(s) {
	case MetricMoneyline:
		return MetricMoneyline
	case MetricTotal:
		return MetricTotal
	default:
		return MetricSpread
	}
}

// Target probability bounds. Values outside the range are clamped, not
// rejected.
const (
	MinTargetProb = 0.55
	MaxTargetProb = 0.75
)

// ClampTargetProb forces a target probability into the valid range.
func ClampTargetProb(p float64) float64 {
	if p < MinTargetProb {
		return MinTargetProb
	}
	if p > MaxTargetProb {
		return MaxTargetProb
	}
	return p
}

// Params are the inputs that determine what to fetch. Any change to either
// field triggers a new fetch cycle.
type Params struct {
	Metric     Metric  `json:"metric"`
	TargetProb float64 `json:"target_prob"`
}

// Clamped returns the params with the target probability clamped.
func (p Params) Clamped() Params {
	p.TargetProb = ClampTargetProb(p.TargetProb)
	return p
}

// RateInfo is the backend's request-quota diagnostics.
type RateInfo struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// CacheInfo is the backend's cache diagnostics.
type CacheInfo struct {
	Status string `json:"status"`
	TTL    int    `json:"ttl"`
}

// Result is one fetch cycle's outcome. Results are swapped wholesale into
// display state, never merged.
type Result struct {
	Fire      []Row          `json:"fire"`
	Watch     []Row          `json:"watch"`
	Garbage   []Row          `json:"garbage"`
	ByTier    map[string]int `json:"by_tier"`
	Rate      RateInfo       `json:"rate"`
	Cache     CacheInfo      `json:"cache"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Rows returns the row set for a tier.
func (r *Result) Rows(tier Tier) []Row {
	switch tier {
	case TierFire:
		return r.Fire
	case TierWatch:
		return r.Watch
	default:
		return r.Garbage
	}
}

// BackendClient is the slice of the wpp client the fetcher uses.
type BackendClient interface {
	GetReport(ctx context.Context, metric string, targetProb float64) (*wpp.Report, *wpp.Diagnostics, error)
	GetBestEdges(ctx context.Context, tier, metric string, n int, targetProb float64) (*wpp.EdgesResponse, error)
}

// DefaultTopEdges is how many garbage-tier edges are fetched per cycle.
const DefaultTopEdges = 25

// Fetcher issues the two backend queries for one refresh cycle and merges
// the responses into a Result.
type Fetcher struct {
	client   BackendClient
	topEdges int
}

// NewFetcher creates a fetcher over a backend client. topEdges <= 0 selects
// the default.
func NewFetcher(client BackendClient, topEdges int) *Fetcher {
	if topEdges <= 0 {
		topEdges = DefaultTopEdges
	}
	return &Fetcher{client: client, topEdges: topEdges}
}

// Refresh runs the report and garbage-edges calls concurrently and joins
// them. Failure of either call fails the whole cycle; nothing partial is
// returned.
func (f *Fetcher) Refresh(ctx context.Context, params Params) (*Result, error) {
	params = params.Clamped()

	var (
		wg        sync.WaitGroup
		report    *wpp.Report
		diag      *wpp.Diagnostics
		reportErr error
		edges     *wpp.EdgesResponse
		edgesErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		report, diag, reportErr = f.client.GetReport(ctx, string(params.Metric), params.TargetProb)
	}()
	go func() {
		defer wg.Done()
		edges, edgesErr = f.client.GetBestEdges(ctx, "garbage", string(params.Metric), f.topEdges, params.TargetProb)
	}()
	wg.Wait()

	if reportErr != nil {
		return nil, fmt.Errorf("report fetch: %w", reportErr)
	}
	if edgesErr != nil {
		return nil, fmt.Errorf("best edges fetch: %w", edgesErr)
	}

	res := &Result{
		Fire:      normalizeAll(report.Sections.Fire),
		Watch:     normalizeAll(report.Sections.Watch),
		Garbage:   normalizeAll(edges.Plays),
		ByTier:    report.Summary.ByTier,
		FetchedAt: time.Now(),
	}
	if res.ByTier == nil {
		res.ByTier = map[string]int{}
	}
	if diag != nil {
		res.Rate = RateInfo{Limit: diag.RateLimit, Remaining: diag.RateRemaining}
		res.Cache = CacheInfo{Status: diag.CacheStatus, TTL: diag.CacheTTL}
	}

	return res, nil
}

func normalizeAll(plays []wpp.Play) []Row {
	rows := make([]Row, 0, len(plays))
	for _, p := range plays {
		rows = append(rows, Normalize(p))
	}
	return rows
}
