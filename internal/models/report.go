package models

import "time"

// Field is a named value inside a multi-value row.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Row is one labelled line of a report. Single-value rows use Value,
// multi-value rows use Fields.
type Row struct {
	Label  string  `json:"label"`
	Value  string  `json:"value,omitempty"`
	Fields []Field `json:"fields,omitempty"`
}

// Report is a rendered answer to one analytics question over a date range.
type Report struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	RangeLabel string    `json:"range_label"`
	Range      DateRange `json:"range"`
	Rows       []Row     `json:"rows"`
	Body       string    `json:"body"`
}

// Heading is the display title including the range label.
func (r *Report) Heading() string {
	return r.Title + " (" + r.RangeLabel + ")"
}

// Row looks up a row by label.
func (r *Report) Row(label string) (Row, bool) {
	for _, row := range r.Rows {
		if row.Label == label {
			return row, true
		}
	}
	return Row{}, false
}

// DigestEntry is one report of a digest, or the message explaining why it is missing.
type DigestEntry struct {
	ReportID string  `json:"report_id"`
	Report   *Report `json:"report,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// Digest is the scheduled e-mail bundle of all reports for one period.
type Digest struct {
	Date       time.Time     `json:"date"`
	Period     string        `json:"period"`
	RangeLabel string        `json:"range_label"`
	Entries    []DigestEntry `json:"entries"`
	Commentary string        `json:"commentary,omitempty"`
	Failed     int           `json:"failed"`
}
