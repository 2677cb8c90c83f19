package monitor

import (
	"sort"
	"strconv"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// sortValue is one row's value under a sort key, resolved to either a
// number or a string, or marked null when the field is unknown.
type sortValue struct {
	num   float64
	str   string
	isNum bool
	null  bool
}

func numValue(v *float64) sortValue {
	if v == nil {
		return sortValue{null: true}
	}
	return sortValue{num: *v, isNum: true}
}

func intValue(v *int) sortValue {
	if v == nil {
		return sortValue{null: true}
	}
	return sortValue{num: float64(*v), isNum: true}
}

func strValue(s string) sortValue {
	return sortValue{str: s}
}

func boolValue(v *bool) sortValue {
	if v == nil {
		return sortValue{null: true}
	}
	return sortValue{str: strconv.FormatBool(*v)}
}

// valueFor resolves a sort key against a row. "matchup" is synthetic,
// computed for comparison only and never materialized on the row. Unknown
// keys sort every row as null.
func valueFor(r Row, key string) sortValue {
	switch key {
	case "tier":
		return strValue(string(r.Tier))
	case "side":
		return strValue(r.Side)
	case "away":
		return strValue(r.Away)
	case "home":
		return strValue(r.Home)
	case "matchup":
		return strValue(r.Matchup())
	case "marketSpreadHome":
		return numValue(r.MarketSpreadHome)
	case "fairHomeSpread":
		return numValue(r.FairHomeSpread)
	case "requiredBuyPoints":
		return numValue(r.RequiredBuyPoints)
	case "buyToLine":
		return numValue(r.BuyToLine)
	case "pCurrent":
		return numValue(r.PCurrent)
	case "pTarget":
		return numValue(r.PTarget)
	case "pBuy":
		return numValue(r.PBuy)
	case "priceEst":
		return intValue(r.PriceEst)
	case "priceMaxOk":
		return intValue(r.PriceMaxOK)
	case "evOk":
		return boolValue(r.EVOK)
	default:
		return sortValue{null: true}
	}
}

// SortRows returns a new ordering of rows by the given key and direction.
// The input slice is never mutated. Null values sort last regardless of
// direction; numeric keys compare numerically and everything else compares
// as locale-aware case-sensitive strings. Equal keys keep their incoming
// order.
func SortRows(rows []Row, key string, dir Direction) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)

	cl := collate.New(language.English)

	sort.SliceStable(out, func(i, j int) bool {
		a := valueFor(out[i], key)
		b := valueFor(out[j], key)

		// Nulls last is absolute, applied before direction inversion.
		if a.null || b.null {
			return !a.null && b.null
		}

		var c int
		if a.isNum && b.isNum {
			switch {
			case a.num < b.num:
				c = -1
			case a.num > b.num:
				c = 1
			}
		} else {
			c = cl.CompareString(a.str, b.str)
		}

		if dir == Descending {
			c = -c
		}
		return c < 0
	})

	return out
}

// SortState tracks the active sort column and direction. Toggling the
// active key flips direction; selecting a new key resets to ascending.
type SortState struct {
	Key string    `json:"key"`
	Dir Direction `json:"dir"`
}

// Toggle applies a column selection to the state.
func (s *SortState) Toggle(key string) {
	if s.Key == key {
		if s.Dir == Ascending {
			s.Dir = Descending
		} else {
			s.Dir = Ascending
		}
		return
	}
	s.Key = key
	s.Dir = Ascending
}

// Apply sorts rows under the current state. With no key selected the rows
// come back in their natural (backend-ranked) order.
func (s SortState) Apply(rows []Row) []Row {
	if s.Key == "" {
		out := make([]Row, len(rows))
		copy(out, rows)
		return out
	}
	return SortRows(rows, s.Key, s.Dir)
}
