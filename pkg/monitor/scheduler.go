package monitor

import (
	"context"
	"sync"
	"time"
)

// State is the scheduler's refresh state.
type State string

const (
	StateIdle     State = "idle"
	StateFetching State = "fetching"
	StateError    State = "error"
)

// Refresher runs one fetch cycle. *Fetcher is the production
// implementation.
type Refresher interface {
	Refresh(ctx context.Context, params Params) (*Result, error)
}

// SchedulerConfig configures the refresh scheduler.
type SchedulerConfig struct {
	// Params is the initial metric / target probability.
	Params Params
	// Debounce is the quiescence window applied to target-probability
	// changes so rapid slider drags collapse into one fetch.
	Debounce time.Duration
	// Interval is the auto-refresh period.
	Interval time.Duration
	// MinInterval floors the auto-refresh period.
	MinInterval time.Duration
}

// DefaultSchedulerConfig returns default configuration.
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Params:      Params{Metric: MetricSpread, TargetProb: 0.65},
		Debounce:    250 * time.Millisecond,
		Interval:    30 * time.Second,
		MinInterval: 5 * time.Second,
	}
}

// Scheduler owns the polling state machine. It debounces target-probability
// changes, runs an optional fixed-interval timer, and tags every fetch with
// a monotonically increasing generation so that only the most recently
// requested parameters can update displayed state (last-request-wins).
// Superseded fetches are dropped on completion, not aborted.
type Scheduler struct {
	refresher Refresher
	metrics   *Metrics
	debounce  time.Duration
	minIvl    time.Duration

	mu            sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
	params        Params
	gen           uint64
	state         State
	result        *Result
	lastErr       string
	lastUpdated   time.Time
	debounceTimer *time.Timer
	interval      time.Duration
	autoStop      chan struct{}

	onResult func(*Result)
	onError  func(error)
}

// NewScheduler creates a scheduler over a refresher. A nil config uses
// defaults.
func NewScheduler(r Refresher, cfg *SchedulerConfig) *Scheduler {
	if cfg == nil {
		cfg = DefaultSchedulerConfig()
	}
	defaults := DefaultSchedulerConfig()
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaults.Debounce
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaults.MinInterval
	}
	if cfg.Interval < cfg.MinInterval {
		cfg.Interval = cfg.MinInterval
	}
	if cfg.Params.Metric == "" {
		cfg.Params.Metric = MetricSpread
	}

	return &Scheduler{
		refresher: r,
		debounce:  cfg.Debounce,
		minIvl:    cfg.MinInterval,
		params:    cfg.Params.Clamped(),
		state:     StateIdle,
		interval:  cfg.Interval,
	}
}

// WithMetrics attaches a metrics collector. Call before Start.
func (s *Scheduler) WithMetrics(m *Metrics) *Scheduler {
	s.metrics = m
	return s
}

// OnResult sets the callback invoked when a fetch result is committed.
func (s *Scheduler) OnResult(fn func(*Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResult = fn
}

// OnError sets the callback invoked when a fetch cycle fails.
func (s *Scheduler) OnError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

// Start binds the scheduler to a context. Fetches launched after Stop (or
// after the parent context is done) are not issued.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx, s.cancel = context.WithCancel(ctx)
}

// Stop disables auto-refresh, drops any pending debounce, and cancels the
// scheduler's context. In-flight completions are discarded.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAutoLocked()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
	// Bump the generation so a completion racing with shutdown cannot
	// commit.
	s.gen++
	if s.cancel != nil {
		s.cancel()
	}
}

// SetMetric changes the ranked metric. A change fetches immediately and
// supersedes any pending debounced fetch.
func (s *Scheduler) SetMetric(m Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.params.Metric == m {
		return
	}
	s.params.Metric = m
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
		s.debounceTimer = nil
	}
	s.startFetchLocked()
}

// SetTargetProb changes the target probability, clamped to the valid
// range. The fetch is debounced: only after the value has been quiet for
// the debounce window does one cycle run, using the final value.
func (s *Scheduler) SetTargetProb(p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = ClampTargetProb(p)
	if s.params.TargetProb == p {
		return
	}
	s.params.TargetProb = p
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.debounce, s.debouncedFetch)
}

func (s *Scheduler) debouncedFetch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounceTimer = nil
	s.startFetchLocked()
}

// Refresh triggers a fetch cycle immediately, independent of timer and
// debounce state.
func (s *Scheduler) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startFetchLocked()
}

// SetAutoRefresh enables or disables the fixed-interval timer. Enabling
// restarts the timer from zero; disabling cancels pending ticks
// immediately.
func (s *Scheduler) SetAutoRefresh(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if enabled {
		s.startAutoLocked()
	} else {
		s.stopAutoLocked()
	}
}

// SetInterval changes the auto-refresh period, floored at the configured
// minimum. If auto-refresh is running the timer restarts from zero.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < s.minIvl {
		d = s.minIvl
	}
	s.interval = d
	if s.autoStop != nil {
		s.startAutoLocked()
	}
}

func (s *Scheduler) startAutoLocked() {
	s.stopAutoLocked()
	stop := make(chan struct{})
	s.autoStop = stop

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	interval := s.interval

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				// A disable that raced the tick wins.
				if s.autoStop == stop {
					s.startFetchLocked()
				}
				s.mu.Unlock()
			}
		}
	}()
}

func (s *Scheduler) stopAutoLocked() {
	if s.autoStop != nil {
		close(s.autoStop)
		s.autoStop = nil
	}
}

// startFetchLocked launches a fetch for the current parameters under a new
// generation. Callers hold s.mu.
func (s *Scheduler) startFetchLocked() {
	if s.ctx == nil || s.ctx.Err() != nil {
		return
	}
	s.gen++
	gen := s.gen
	params := s.params
	s.state = StateFetching
	go s.runFetch(s.ctx, gen, params)
}

func (s *Scheduler) runFetch(ctx context.Context, gen uint64, params Params) {
	start := time.Now()
	res, err := s.refresher.Refresh(ctx, params)
	elapsed := time.Since(start).Seconds()

	s.mu.Lock()
	if gen != s.gen {
		// A newer request superseded this one while it was in
		// flight. Its result must not overwrite fresher state.
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordStaleDrop()
		}
		return
	}

	if err != nil {
		s.state = StateError
		s.lastErr = err.Error()
		cb := s.onError
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordRefresh("error", elapsed)
		}
		if cb != nil {
			cb(err)
		}
		return
	}

	s.state = StateIdle
	s.result = res
	s.lastErr = ""
	s.lastUpdated = time.Now()
	cb := s.onResult
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordRefresh("ok", elapsed)
		s.metrics.RecordResult(res)
	}
	if cb != nil {
		cb(res)
	}
}

// Result returns the currently displayed fetch result, or nil before the
// first successful cycle.
func (s *Scheduler) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// State returns the current refresh state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Params returns the current refresh parameters.
func (s *Scheduler) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

// AutoEnabled reports whether the interval timer is running.
func (s *Scheduler) AutoEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoStop != nil
}

// Status is a point-in-time snapshot for the status API.
type Status struct {
	State       State          `json:"state"`
	Params      Params         `json:"params"`
	AutoRefresh bool           `json:"auto_refresh"`
	IntervalSec float64        `json:"interval_seconds"`
	LastUpdated *time.Time     `json:"last_updated,omitempty"`
	LastError   string         `json:"last_error,omitempty"`
	ByTier      map[string]int `json:"by_tier,omitempty"`
	Rate        *RateInfo      `json:"rate,omitempty"`
	Cache       *CacheInfo     `json:"cache,omitempty"`
}

// Snapshot returns the current status.
func (s *Scheduler) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:       s.state,
		Params:      s.params,
		AutoRefresh: s.autoStop != nil,
		IntervalSec: s.interval.Seconds(),
		LastError:   s.lastErr,
	}
	if !s.lastUpdated.IsZero() {
		t := s.lastUpdated
		st.LastUpdated = &t
	}
	if s.result != nil {
		st.ByTier = s.result.ByTier
		rate := s.result.Rate
		cache := s.result.Cache
		st.Rate = &rate
		st.Cache = &cache
	}
	return st
}
