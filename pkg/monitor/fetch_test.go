package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dkress/wppmon/pkg/wpp"
)

type stubBackend struct {
	mu sync.Mutex

	report    *wpp.Report
	diag      *wpp.Diagnostics
	reportErr error
	edges     *wpp.EdgesResponse
	edgesErr  error

	reportProbs []float64
	edgeN       []int
}

func (s *stubBackend) GetReport(ctx context.Context, metric string, targetProb float64) (*wpp.Report, *wpp.Diagnostics, error) {
	s.mu.Lock()
	s.reportProbs = append(s.reportProbs, targetProb)
	s.mu.Unlock()
	return s.report, s.diag, s.reportErr
}

func (s *stubBackend) GetBestEdges(ctx context.Context, tier, metric string, n int, targetProb float64) (*wpp.EdgesResponse, error) {
	s.mu.Lock()
	s.edgeN = append(s.edgeN, n)
	s.mu.Unlock()
	return s.edges, s.edgesErr
}

func okBackend() *stubBackend {
	return &stubBackend{
		report: &wpp.Report{
			Sections: wpp.ReportSections{
				Fire:  []wpp.Play{{Tier: "Fire", Recommendation: "home"}},
				Watch: []wpp.Play{{Tier: "Watch"}, {Tier: "Watch"}},
			},
			Summary: wpp.ReportSummary{ByTier: map[string]int{"Fire": 1, "Watch": 2, "Garbage": 9}},
		},
		diag: &wpp.Diagnostics{RateLimit: 60, RateRemaining: 41, CacheStatus: "HIT", CacheTTL: 12},
		edges: &wpp.EdgesResponse{
			Plays: []wpp.Play{{Reason: "no value"}, {Reason: "line moved"}},
		},
	}
}

func TestRefreshMergesBothCalls(t *testing.T) {
	backend := okBackend()
	f := NewFetcher(backend, 25)

	res, err := f.Refresh(context.Background(), Params{Metric: MetricSpread, TargetProb: 0.65})
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if len(res.Fire) != 1 || len(res.Watch) != 2 || len(res.Garbage) != 2 {
		t.Errorf("row counts fire=%d watch=%d garbage=%d", len(res.Fire), len(res.Watch), len(res.Garbage))
	}
	if res.ByTier["Garbage"] != 9 {
		t.Errorf("ByTier = %v", res.ByTier)
	}
	if res.Rate.Remaining != 41 || res.Cache.Status != "HIT" || res.Cache.TTL != 12 {
		t.Errorf("diagnostics = %+v / %+v", res.Rate, res.Cache)
	}
	if res.FetchedAt.IsZero() {
		t.Error("FetchedAt not set")
	}
	// Edge plays with no tier land in Garbage.
	if res.Garbage[0].Tier != TierGarbage || res.Garbage[0].Reason != "no value" {
		t.Errorf("garbage row = %+v", res.Garbage[0])
	}
	if backend.edgeN[0] != 25 {
		t.Errorf("edge n = %d, want 25", backend.edgeN[0])
	}
}

func TestRefreshClampsTargetProb(t *testing.T) {
	backend := okBackend()
	f := NewFetcher(backend, 0)

	if _, err := f.Refresh(context.Background(), Params{Metric: MetricSpread, TargetProb: 0.9}); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if backend.reportProbs[0] != MaxTargetProb {
		t.Errorf("target prob = %v, want clamped %v", backend.reportProbs[0], MaxTargetProb)
	}
}

func TestRefreshReportFailureFailsCycle(t *testing.T) {
	backend := okBackend()
	backend.reportErr = &wpp.StatusError{Endpoint: "/report", Status: 503}
	f := NewFetcher(backend, 25)

	_, err := f.Refresh(context.Background(), Params{Metric: MetricSpread, TargetProb: 0.65})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "/report") || !strings.Contains(err.Error(), "503") {
		t.Errorf("error should name endpoint and status: %v", err)
	}

	var se *wpp.StatusError
	if !errors.As(err, &se) {
		t.Errorf("StatusError not preserved through wrapping: %v", err)
	}
}

func TestRefreshEdgesFailureFailsCycle(t *testing.T) {
	backend := okBackend()
	backend.edgesErr = &wpp.StatusError{Endpoint: "/best_edges", Status: 500}
	f := NewFetcher(backend, 25)

	_, err := f.Refresh(context.Background(), Params{Metric: MetricSpread, TargetProb: 0.65})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "/best_edges") || !strings.Contains(err.Error(), "500") {
		t.Errorf("error should name endpoint and status: %v", err)
	}
}

func TestRefreshNilSummaryYieldsEmptyMap(t *testing.T) {
	backend := okBackend()
	backend.report.Summary.ByTier = nil
	f := NewFetcher(backend, 25)

	res, err := f.Refresh(context.Background(), Params{Metric: MetricSpread, TargetProb: 0.65})
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if res.ByTier == nil {
		t.Error("ByTier should never be nil")
	}
}

func TestDefaultTopEdges(t *testing.T) {
	backend := okBackend()
	f := NewFetcher(backend, 0)

	if _, err := f.Refresh(context.Background(), Params{Metric: MetricSpread, TargetProb: 0.65}); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if backend.edgeN[0] != DefaultTopEdges {
		t.Errorf("edge n = %d, want default %d", backend.edgeN[0], DefaultTopEdges)
	}
}
