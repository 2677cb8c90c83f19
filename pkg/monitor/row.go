// Package monitor implements the data-refresh pipeline: row normalization
// and tier explanation, sorting, CSV export, fetch orchestration, and the
// refresh scheduler.
package monitor

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dkress/wppmon/pkg/wpp"
)

// Tier classifies a play: actionable now, actionable after a point-buy, or
// not actionable.
type Tier string

const (
	TierFire    Tier = "Fire"
	TierWatch   Tier = "Watch"
	TierGarbage Tier = "Garbage"
)

// ParseTier maps a raw tier string onto the enum. Anything unrecognized,
// including the empty string, is Garbage.
func ParseTier(s string) Tier {
	switch s {
	case "Fire", "fire":
		return TierFire
	case "Watch", "watch":
		return TierWatch
	default:
		return TierGarbage
	}
}

// Row is the flattened, display-ready record for one play. Nil pointer
// fields are unknown. Rows are value objects: built fresh each fetch cycle
// and never mutated in place.
type Row struct {
	Tier              Tier     `json:"tier"`
	Side              string   `json:"side"`
	Away              string   `json:"away"`
	Home              string   `json:"home"`
	MarketSpreadHome  *float64 `json:"marketSpreadHome"`
	FairHomeSpread    *float64 `json:"fairHomeSpread"`
	RequiredBuyPoints *float64 `json:"requiredBuyPoints"`
	BuyToLine         *float64 `json:"buyToLine"`
	PCurrent          *float64 `json:"pCurrent"`
	PTarget           *float64 `json:"pTarget"`
	PBuy              *float64 `json:"pBuy"`
	PriceEst          *int     `json:"priceEst"`
	PriceMaxOK        *int     `json:"priceMaxOk"`
	EVOK              *bool    `json:"evOk"`
	Reason            string   `json:"reason,omitempty"`
}

// Matchup is the synthetic "away @ home" label used for sorting.
func (r Row) Matchup() string {
	return r.Away + " @ " + r.Home
}

// Normalize flattens a raw play into a Row. Each field is resolved once
// here through its ordered fallback chain; downstream code never re-checks
// payload shapes.
func Normalize(p wpp.Play) Row {
	r := Row{
		Tier: ParseTier(p.Tier),
		Side: p.Recommendation,
		Away: p.Game.Away,
		Home: p.Game.Home,
	}

	if p.Market != nil {
		// Old payloads ship market.spread_home, newer ones
		// market.spread.home. First non-nil wins.
		r.MarketSpreadHome = p.Market.SpreadHome
		if r.MarketSpreadHome == nil && p.Market.Spread != nil {
			r.MarketSpreadHome = p.Market.Spread.Home
		}
	}
	if p.Fair != nil {
		r.FairHomeSpread = p.Fair.HomeSpread
	}
	if p.Required != nil {
		r.RequiredBuyPoints = p.Required.BuyPoints
		r.BuyToLine = p.Required.BuyToLine
	}
	if p.Prob != nil {
		r.PCurrent = p.Prob.Current
		r.PTarget = p.Prob.Target
		r.PBuy = p.Prob.Buy
	}
	if p.Pricing != nil {
		r.PriceEst = p.Pricing.FinalPrice
		r.PriceMaxOK = p.Pricing.MaxAcceptablePrice
		// ev_ok is only meaningful when both prices are known.
		if r.PriceEst != nil && r.PriceMaxOK != nil {
			r.EVOK = p.Pricing.EVOK
		}
	}
	r.Reason = p.Reason

	return r
}

// Explain produces the human-readable rationale for a row. A backend
// supplied reason is authoritative and returned verbatim.
func Explain(r Row) string {
	if r.Reason != "" {
		return r.Reason
	}

	switch r.Tier {
	case TierFire:
		return fmt.Sprintf("Fire because p(now) %s ≥ p(target) %s (no/cheap buys).",
			FormatProb(r.PCurrent), FormatProb(r.PTarget)) + evClause(r)
	case TierWatch:
		return fmt.Sprintf("Watch: buy %s pts to reach %s, p(buy) %s ≥ p(target) %s.",
			FormatPoints(r.RequiredBuyPoints), FormatPoints(r.BuyToLine),
			FormatProb(r.PBuy), FormatProb(r.PTarget)) + evClause(r)
	default:
		if r.PBuy != nil && r.PTarget != nil && *r.PBuy < *r.PTarget {
			return fmt.Sprintf("Garbage: p(buy) %s < p(target) %s.",
				FormatProb(r.PBuy), FormatProb(r.PTarget))
		}
		return "required buy or price violates rules, or value insufficient"
	}
}

// evClause renders the EV-check sentence when both prices are known. The
// backend verdict wins; without one the estimate passes when it is no worse
// than the max acceptable price.
func evClause(r Row) string {
	if r.PriceEst == nil || r.PriceMaxOK == nil {
		return ""
	}
	ok := *r.PriceEst >= *r.PriceMaxOK
	if r.EVOK != nil {
		ok = *r.EVOK
	}
	verdict := "FAIL"
	if ok {
		verdict = "OK"
	}
	return fmt.Sprintf(" EV check: est %s vs max %s: %s.",
		FormatPrice(r.PriceEst), FormatPrice(r.PriceMaxOK), verdict)
}

// missingValue renders unknown fields in explanations.
const missingValue = "—"

var hundred = decimal.NewFromInt(100)

// FormatProb renders a probability as a percentage with one decimal place.
func FormatProb(p *float64) string {
	if p == nil {
		return missingValue
	}
	return decimal.NewFromFloat(*p).Mul(hundred).StringFixed(1) + "%"
}

// FormatPoints renders a line or buy-point value without trailing zeros.
func FormatPoints(v *float64) string {
	if v == nil {
		return missingValue
	}
	return decimal.NewFromFloat(*v).String()
}

// FormatPrice renders American odds with an explicit sign for positive
// prices.
func FormatPrice(p *int) string {
	if p == nil {
		return missingValue
	}
	return fmt.Sprintf("%+d", *p)
}
