package models

import (
	"fmt"
	"time"
)

// APIDateLayout is the dashed form the analytics API requires for startDate/endDate.
const APIDateLayout = "2006-01-02"

// DateRange is a canonical, inclusive pair of calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r DateRange) StartDate() string { return r.Start.Format(APIDateLayout) }

func (r DateRange) EndDate() string { return r.End.Format(APIDateLayout) }

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", r.StartDate(), r.EndDate())
}

// QueryShape declares a single analytics call.
type QueryShape struct {
	Dimensions []string          `yaml:"dimensions" json:"dimensions"`
	Metrics    []string          `yaml:"metrics" json:"metrics"`
	Sort       string            `yaml:"sort" json:"sort"`
	Filters    map[string]string `yaml:"filters" json:"filters,omitempty"`
}

// Columns returns the positional column names of a row produced by this shape.
func (s QueryShape) Columns() []string {
	cols := make([]string, 0, len(s.Dimensions)+len(s.Metrics))
	cols = append(cols, s.Dimensions...)
	return append(cols, s.Metrics...)
}

// ColumnHeader describes one positional column of a query result.
type ColumnHeader struct {
	Name       string `json:"name"`
	ColumnType string `json:"column_type"` // DIMENSION or METRIC
	DataType   string `json:"data_type"`   // STRING, INTEGER, FLOAT, CURRENCY
}

// MetricsRow is one result row; cell meaning is positional.
type MetricsRow []any

// Float returns cell i as a number. Non-numeric or missing cells read as 0.
func (r MetricsRow) Float(i int) float64 {
	if i < 0 || i >= len(r) {
		return 0
	}
	switch v := r[i].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Text returns cell i as text.
func (r MetricsRow) Text(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	if s, ok := r[i].(string); ok {
		return s
	}
	return fmt.Sprint(r[i])
}

// QueryResult is the decoded response of one analytics call.
type QueryResult struct {
	Headers []ColumnHeader `json:"column_headers"`
	Rows    []MetricsRow   `json:"rows"`
}

// EntityKind selects the catalog resource used in a join step.
type EntityKind string

const (
	EntityVideo    EntityKind = "video"
	EntityPlaylist EntityKind = "playlist"
)

type EntityMetadata struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
