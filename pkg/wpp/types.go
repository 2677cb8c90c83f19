package wpp

// Play is one recommended bet as returned by the backend. Every nested block
// is optional; absent blocks mean the backend had no value for those fields.
type Play struct {
	Tier           string    `json:"tier"`
	Recommendation string    `json:"recommendation"`
	Game           Game      `json:"game"`
	Market         *Market   `json:"market"`
	Fair           *Fair     `json:"fair"`
	Required       *Required `json:"required"`
	Prob           *Prob     `json:"prob"`
	Pricing        *Pricing  `json:"pricing"`
	Reason         string    `json:"reason"`
}

// Game identifies the matchup.
type Game struct {
	Away string `json:"away"`
	Home string `json:"home"`
}

// Market carries the current market line. The backend has shipped the home
// spread under two shapes over time: market.spread_home and
// market.spread.home. Both are kept so either payload decodes.
type Market struct {
	SpreadHome *float64      `json:"spread_home"`
	Spread     *MarketSpread `json:"spread"`
}

// MarketSpread is the nested spread shape.
type MarketSpread struct {
	Home *float64 `json:"home"`
}

// Fair carries the model's fair line.
type Fair struct {
	HomeSpread *float64 `json:"home_spread"`
}

// Required carries the point-buy needed to reach the target line.
type Required struct {
	BuyPoints *float64 `json:"buy_points"`
	BuyToLine *float64 `json:"buy_to_line"`
}

// Prob carries win probabilities in [0,1].
type Prob struct {
	Current *float64 `json:"current"`
	Target  *float64 `json:"target"`
	Buy     *float64 `json:"buy"`
}

// Pricing carries American-odds prices and the backend's EV verdict.
type Pricing struct {
	FinalPrice         *int  `json:"final_price"`
	MaxAcceptablePrice *int  `json:"max_acceptable_price"`
	EVOK               *bool `json:"ev_ok"`
}

// Report is the ranked report returned by GET /report.
type Report struct {
	Sections ReportSections `json:"sections"`
	Summary  ReportSummary  `json:"summary"`
}

// ReportSections holds the actionable tiers.
type ReportSections struct {
	Fire  []Play `json:"fire"`
	Watch []Play `json:"watch"`
}

// ReportSummary holds the tier-count summary.
type ReportSummary struct {
	ByTier map[string]int `json:"by_tier"`
}

// EdgesResponse is returned by GET /best_edges.
type EdgesResponse struct {
	Plays []Play `json:"plays"`
}

// Diagnostics is read from the report response headers. Missing headers
// default to zero counts and a MISS cache status.
type Diagnostics struct {
	RateLimit     int    `json:"rate_limit"`
	RateRemaining int    `json:"rate_remaining"`
	CacheStatus   string `json:"cache_status"`
	CacheTTL      int    `json:"cache_ttl"`
}
