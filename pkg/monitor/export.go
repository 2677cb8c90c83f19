package monitor

import (
	"fmt"
	"strconv"
	"strings"
)

// csvColumns is the fixed export column order. Column names are the row's
// data keys; tier is intentionally not exported since each file already
// covers a single tier.
var csvColumns = []string{
	"side",
	"away",
	"home",
	"marketSpreadHome",
	"fairHomeSpread",
	"requiredBuyPoints",
	"buyToLine",
	"pCurrent",
	"pTarget",
	"pBuy",
	"priceEst",
	"priceMaxOk",
	"evOk",
}

// ToCSV serializes rows to CSV text: a header line followed by one line per
// row, every field double-quoted with embedded quotes doubled, unknown
// values empty. Non-null numeric values round-trip exactly.
func ToCSV(rows []Row) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, csvLine(csvColumns))
	for _, r := range rows {
		lines = append(lines, csvLine(csvFields(r)))
	}
	return strings.Join(lines, "\n")
}

func csvLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

func csvFields(r Row) []string {
	return []string{
		r.Side,
		r.Away,
		r.Home,
		csvFloat(r.MarketSpreadHome),
		csvFloat(r.FairHomeSpread),
		csvFloat(r.RequiredBuyPoints),
		csvFloat(r.BuyToLine),
		csvFloat(r.PCurrent),
		csvFloat(r.PTarget),
		csvFloat(r.PBuy),
		csvInt(r.PriceEst),
		csvInt(r.PriceMaxOK),
		csvBool(r.EVOK),
	}
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func csvInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func csvBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

// ExportFilename names a CSV download for one tier at the current
// parameters.
func ExportFilename(tier Tier, metric Metric, targetProb float64) string {
	return fmt.Sprintf("wpp-%s-%s-p%s.csv",
		strings.ToLower(string(tier)), metric,
		strconv.FormatFloat(targetProb, 'g', -1, 64))
}
