package reports

import (
	"math"
	"strings"

	"channel-insights/internal/models"

	"github.com/dustin/go-humanize"
)

const (
	currencySymbol = "$"
	twoDecimals    = "#,###.##"
	notAvailable   = "N/A"
)

// ValueKind selects how a metric cell is rendered.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindCurrency
	// KindPercent is for metrics the API already reports in percent.
	KindPercent
	// KindFraction is a 0..1 ratio rendered as a percentage.
	KindFraction
	KindSeconds
)

// FormatValue renders v according to kind.
func FormatValue(v float64, kind ValueKind) string {
	switch kind {
	case KindCurrency:
		return FormatCurrency(v)
	case KindPercent:
		return FormatPercent(v)
	case KindFraction:
		return FormatPercent(v * 100)
	case KindSeconds:
		return FormatNumber(v) + "s"
	default:
		return FormatNumber(v)
	}
}

// FormatNumber rounds to two decimals with thousands separators. Whole numbers
// drop the decimals, so counts read as "1,000".
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	rounded := math.Round(v*100) / 100
	if rounded == math.Trunc(rounded) && math.Abs(rounded) < 1<<53 {
		return humanize.Comma(int64(rounded))
	}
	return humanize.FormatFloat(twoDecimals, rounded)
}

// FormatCurrency always shows two decimals: 50.5 renders as "$50.50".
func FormatCurrency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	rounded := math.Round(v*100) / 100
	if rounded < 0 {
		return "-" + currencySymbol + humanize.FormatFloat(twoDecimals, -rounded)
	}
	return currencySymbol + humanize.FormatFloat(twoDecimals, rounded)
}

// FormatPercent renders an already-scaled percentage with two decimals.
func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return notAvailable
	}
	rounded := math.Round(v*100) / 100
	return humanize.FormatFloat(twoDecimals, rounded) + "%"
}

// LikeRatio renders likes / (likes + dislikes) as a percentage, or "N/A" when
// there are no ratings.
func LikeRatio(likes, dislikes float64) string {
	total := likes + dislikes
	if total == 0 {
		return notAvailable
	}
	return FormatValue(likes/total, KindFraction)
}

// RangeLabel is "MM/DD - MM/DD" within one year, otherwise each side carries
// its own year as "MM/DD-YYYY".
func RangeLabel(rng models.DateRange) string {
	if rng.Start.Year() == rng.End.Year() {
		return rng.Start.Format("01/02") + " - " + rng.End.Format("01/02")
	}
	return rng.Start.Format("01/02-2006") + " - " + rng.End.Format("01/02-2006")
}

// Humanize turns API enum labels such as "WHATS_APP" into "WHATS APP".
func Humanize(label string) string {
	return strings.ReplaceAll(label, "_", " ")
}

// kindForHeader maps the API's declared data type to a rendering kind.
func kindForHeader(h models.ColumnHeader) ValueKind {
	switch strings.ToUpper(h.DataType) {
	case "CURRENCY":
		return KindCurrency
	}
	return KindNumber
}
