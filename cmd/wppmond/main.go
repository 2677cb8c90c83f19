// wppmond is the win-probability-play monitor daemon. It polls the report
// backend, keeps a last-writer-wins snapshot of ranked plays, and serves
// the snapshot over HTTP and WebSocket with sorting and CSV export.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dkress/wppmon/pkg/config"
	"github.com/dkress/wppmon/pkg/monitor"
	"github.com/dkress/wppmon/pkg/streaming"
	"github.com/dkress/wppmon/pkg/wpp"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file")
	httpAddr   = flag.String("http", "", "HTTP server address (overrides config)")
	baseURL    = flag.String("base-url", "", "Report backend base URL (overrides config)")
	metric     = flag.String("metric", "", "Initial metric: spread, ml, total (overrides config)")
	targetProb = flag.Float64("target-prob", 0, "Initial target probability (overrides config)")
	interval   = flag.Duration("interval", 0, "Auto-refresh interval (overrides config)")
	autoOn     = flag.Bool("auto", false, "Enable auto-refresh on start")
	verbose    = flag.Bool("verbose", false, "Verbose logging")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("Starting wppmon daemon")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	app := newApp(cfg)
	app.sched.Start(ctx)

	app.sched.OnResult(func(res *monitor.Result) {
		if *verbose {
			log.Printf("[REFRESH] fire=%d watch=%d garbage=%d cache=%s remaining=%d",
				len(res.Fire), len(res.Watch), len(res.Garbage),
				res.Cache.Status, res.Rate.Remaining)
		}
		app.hub.BroadcastRefresh(res)
		app.hub.BroadcastStatus(app.sched.Snapshot())
	})
	app.sched.OnError(func(err error) {
		log.Printf("[ERROR] refresh failed: %v", err)
		app.hub.BroadcastError(err, "refresh")
	})

	go app.hub.Run()
	go app.serveHTTP(cfg.Server.Addr)

	// Initial load, then the configured auto-refresh policy.
	app.sched.Refresh()
	if cfg.Refresh.Auto {
		app.sched.SetAutoRefresh(true)
	}

	log.Printf("Monitoring %s at p(target)=%.2f (backend %s, http %s)",
		cfg.Refresh.Metric, monitor.ClampTargetProb(cfg.Refresh.TargetProb),
		cfg.Backend.BaseURL, cfg.Server.Addr)

	<-sigCh
	log.Println("Shutting down...")
	app.sched.Stop()
	cancel()
	log.Println("Goodbye!")
}

func applyFlags(cfg *config.Config) {
	if *httpAddr != "" {
		cfg.Server.Addr = *httpAddr
	}
	if *baseURL != "" {
		cfg.Backend.BaseURL = *baseURL
	}
	if *metric != "" {
		cfg.Refresh.Metric = *metric
	}
	if *targetProb != 0 {
		cfg.Refresh.TargetProb = *targetProb
	}
	if *interval != 0 {
		cfg.Refresh.Interval = *interval
	}
	if *autoOn {
		cfg.Refresh.Auto = true
	}
}

type app struct {
	sched   *monitor.Scheduler
	hub     *streaming.Hub
	metrics *monitor.Metrics
}

func newApp(cfg *config.Config) *app {
	client := wpp.NewClient(
		wpp.WithBaseURL(cfg.Backend.BaseURL),
		wpp.WithHTTPClient(&http.Client{Timeout: cfg.Backend.Timeout}),
		wpp.WithRateLimit(cfg.Backend.RateLimit, cfg.Backend.Burst),
	)
	fetcher := monitor.NewFetcher(client, cfg.Backend.TopEdges)
	metrics := monitor.NewMetrics()

	schedCfg := monitor.DefaultSchedulerConfig()
	schedCfg.Params = monitor.Params{
		Metric:     monitor.ParseMetric(cfg.Refresh.Metric),
		TargetProb: cfg.Refresh.TargetProb,
	}
	if cfg.Refresh.Debounce > 0 {
		schedCfg.Debounce = cfg.Refresh.Debounce
	}
	if cfg.Refresh.Interval > 0 {
		schedCfg.Interval = cfg.Refresh.Interval
	}

	return &app{
		sched:   monitor.NewScheduler(fetcher, schedCfg).WithMetrics(metrics),
		hub:     streaming.NewHub(),
		metrics: metrics,
	}
}

func (a *app) serveHTTP(addr string) {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	r.Get("/status", a.handleStatus)
	r.Get("/rows", a.handleRows)
	r.Get("/export.csv", a.handleExport)
	r.Post("/refresh", a.handleRefresh)
	r.Post("/params", a.handleParams)
	r.Post("/auto", a.handleAuto)
	r.Handle("/metrics", promhttp.HandlerFor(a.metrics.Registry(), promhttp.HandlerOpts{}))
	r.Get("/ws", a.hub.ServeWS)

	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("HTTP server listening on %s", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Printf("HTTP server error: %v", err)
	}
}

func (a *app) handleStatus(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, a.sched.Snapshot())
}

// rowView is a row plus its derived explanation, as served to displays.
type rowView struct {
	monitor.Row
	Explanation string `json:"explanation"`
}

func (a *app) handleRows(w http.ResponseWriter, req *http.Request) {
	res := a.sched.Result()
	if res == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	tier := monitor.ParseTier(req.URL.Query().Get("tier"))
	rows := res.Rows(tier)

	if key := req.URL.Query().Get("sort"); key != "" {
		dir := monitor.Direction(req.URL.Query().Get("dir"))
		if dir != monitor.Descending {
			dir = monitor.Ascending
		}
		rows = monitor.SortRows(rows, key, dir)
	}

	views := make([]rowView, len(rows))
	for i, row := range rows {
		views[i] = rowView{Row: row, Explanation: monitor.Explain(row)}
	}
	writeJSON(w, views)
}

func (a *app) handleExport(w http.ResponseWriter, req *http.Request) {
	res := a.sched.Result()
	if res == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	tier := monitor.ParseTier(req.URL.Query().Get("tier"))
	params := a.sched.Params()
	filename := monitor.ExportFilename(tier, params.Metric, params.TargetProb)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write([]byte(monitor.ToCSV(res.Rows(tier))))
}

func (a *app) handleRefresh(w http.ResponseWriter, req *http.Request) {
	a.sched.Refresh()
	writeJSON(w, map[string]string{"status": "refreshing"})
}

func (a *app) handleParams(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Metric     *string  `json:"metric"`
		TargetProb *float64 `json:"target_prob"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.Metric != nil {
		a.sched.SetMetric(monitor.ParseMetric(*body.Metric))
	}
	if body.TargetProb != nil {
		a.sched.SetTargetProb(*body.TargetProb)
	}
	writeJSON(w, a.sched.Params())
}

func (a *app) handleAuto(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Enabled         *bool    `json:"enabled"`
		IntervalSeconds *float64 `json:"interval_seconds"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if body.IntervalSeconds != nil {
		a.sched.SetInterval(time.Duration(*body.IntervalSeconds * float64(time.Second)))
	}
	if body.Enabled != nil {
		a.sched.SetAutoRefresh(*body.Enabled)
	}
	writeJSON(w, map[string]bool{"auto_refresh": a.sched.AutoEnabled()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
