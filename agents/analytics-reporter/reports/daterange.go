package reports

import (
	"strconv"
	"strings"
	"time"

	"channel-insights/internal/models"
)

// InputLayout is the fully qualified form accepted from users.
const InputLayout = "01/02/2006"

// channelEpoch is the earliest date the analytics API holds data for.
var channelEpoch = time.Date(2005, time.February, 14, 0, 0, 0, 0, time.UTC)

type tokenShape int

const (
	shapeMonthDay tokenShape = iota
	shapeShortYear
	shapeFullYear
)

type dateToken struct {
	raw   string
	shape tokenShape
	month int
	day   int
	year  int // zero for shapeMonthDay
}

// Resolver turns loose mm/dd style tokens into canonical date ranges.
type Resolver struct {
	now func() time.Time
}

func NewResolver(now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{now: now}
}

func (r *Resolver) today() time.Time {
	return dateOnly(r.now())
}

// Resolve canonicalizes a start/end token pair. Accepted tokens are MM/DD,
// MM/DD/YY and MM/DD/YYYY.
//
// Year-less tokens take the current year, or the previous one when the start
// would otherwise lie in the future. A year-less pair that starts on the 1st
// and ends on the 1st-3rd of the same month is read as "last month": the
// whole previous calendar month is returned.
func (r *Resolver) Resolve(startRaw, endRaw string) (models.DateRange, error) {
	start, err := parseToken(startRaw)
	if err != nil {
		return models.DateRange{}, err
	}
	end, err := parseToken(endRaw)
	if err != nil {
		return models.DateRange{}, err
	}

	today := r.today()
	currentYear := today.Year()
	if start.shape == shapeMonthDay && end.shape == shapeMonthDay {
		if start.month <= 12 && start.day <= 31 &&
			time.Date(currentYear, time.Month(start.month), start.day, 0, 0, 0, 0, time.UTC).After(today) {
			currentYear--
		}
		if isMonthBoundary(start, end) {
			return previousMonth(start.month, currentYear), nil
		}
	}

	startDate, err := start.date(currentYear)
	if err != nil {
		return models.DateRange{}, err
	}
	endDate, err := end.date(currentYear)
	if err != nil {
		return models.DateRange{}, err
	}

	if startDate.After(endDate) {
		return models.DateRange{}, &DateParseError{
			Input:  strings.TrimSpace(startRaw) + " - " + strings.TrimSpace(endRaw),
			Reason: "start date is after end date",
		}
	}
	return models.DateRange{Start: startDate, End: endDate}, nil
}

func isMonthBoundary(start, end dateToken) bool {
	return start.day == 1 && start.month == end.month && end.day >= 1 && end.day <= 3
}

func previousMonth(month, year int) models.DateRange {
	prev := month - 1
	if month == 1 {
		prev = 12
		year--
	}
	return fullMonth(year, time.Month(prev))
}

func fullMonth(year int, month time.Month) models.DateRange {
	return models.DateRange{
		Start: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, month, daysIn(year, month), 0, 0, 0, 0, time.UTC),
	}
}

func parseToken(raw string) (dateToken, error) {
	tok := dateToken{raw: strings.TrimSpace(raw)}
	parts := strings.Split(tok.raw, "/")

	switch len(parts) {
	case 2:
		tok.shape = shapeMonthDay
	case 3:
		switch len(parts[2]) {
		case 2:
			tok.shape = shapeShortYear
		case 4:
			tok.shape = shapeFullYear
		default:
			return tok, &DateParseError{Input: tok.raw, Reason: "year must have 2 or 4 digits"}
		}
	default:
		return tok, &DateParseError{Input: tok.raw, Reason: "expected mm/dd, mm/dd/yy or mm/dd/yyyy"}
	}

	fields := make([]int, len(parts))
	for i, p := range parts {
		if p == "" || (i < 2 && len(p) > 2) {
			return tok, &DateParseError{Input: tok.raw, Reason: "expected mm/dd, mm/dd/yy or mm/dd/yyyy"}
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || strings.ContainsAny(p, "+-") {
			return tok, &DateParseError{Input: tok.raw, Reason: "date parts must be numbers"}
		}
		fields[i] = n
	}

	tok.month, tok.day = fields[0], fields[1]
	switch tok.shape {
	case shapeShortYear:
		// 00-99 always means 2000-2099.
		tok.year = 2000 + fields[2]
	case shapeFullYear:
		tok.year = fields[2]
	}

	if tok.month < 1 || tok.month > 12 {
		return tok, &DateParseError{Input: tok.raw, Reason: "month must be between 01 and 12"}
	}
	if tok.day < 1 || tok.day > 31 {
		return tok, &DateParseError{Input: tok.raw, Reason: "day must be between 01 and 31"}
	}
	return tok, nil
}

// date builds the calendar day, using fallbackYear for year-less tokens.
func (t dateToken) date(fallbackYear int) (time.Time, error) {
	year := t.year
	if t.shape == shapeMonthDay {
		year = fallbackYear
	}
	month := time.Month(t.month)
	if t.day > daysIn(year, month) {
		return time.Time{}, &DateParseError{
			Input:  t.raw,
			Reason: month.String() + " " + strconv.Itoa(year) + " has " + strconv.Itoa(daysIn(year, month)) + " days",
		}
	}
	return time.Date(year, month, t.day, 0, 0, 0, 0, time.UTC), nil
}

// daysIn handles leap years through time's normalization of day 0.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthToDate is the default range: the first of the current month through today.
func (r *Resolver) MonthToDate() models.DateRange {
	today := r.today()
	return models.DateRange{
		Start: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC),
		End:   today,
	}
}

// LastMonth is the previous full calendar month.
func (r *Resolver) LastMonth() models.DateRange {
	today := r.today()
	return previousMonth(int(today.Month()), today.Year())
}

// Lifetime spans from the platform's first day of data through today.
func (r *Resolver) Lifetime() models.DateRange {
	return models.DateRange{Start: channelEpoch, End: r.today()}
}

// Month resolves "MM/YYYY" or "MM/YY" to that whole calendar month. An empty
// period means the current month.
func (r *Resolver) Month(period string) (models.DateRange, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		today := r.today()
		return fullMonth(today.Year(), today.Month()), nil
	}

	parts := strings.Split(period, "/")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 {
		return models.DateRange{}, &DateParseError{Input: period, Reason: "expected mm/yyyy or mm/yy"}
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return models.DateRange{}, &DateParseError{Input: period, Reason: "month must be between 01 and 12"}
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || year < 0 {
		return models.DateRange{}, &DateParseError{Input: period, Reason: "year must be a number"}
	}
	switch len(parts[1]) {
	case 2:
		year += 2000
	case 4:
	default:
		return models.DateRange{}, &DateParseError{Input: period, Reason: "year must have 2 or 4 digits"}
	}
	return fullMonth(year, time.Month(month)), nil
}

// FormatInput renders a day in the fully qualified input form, so a resolved
// range can be fed back through Resolve.
func FormatInput(t time.Time) string {
	return t.Format(InputLayout)
}
