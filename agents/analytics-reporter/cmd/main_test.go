package main

import (
	"bytes"
	"strings"
	"testing"

	"channel-insights/agents/analytics-reporter/reports"
	"channel-insights/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestDateArgs(t *testing.T) {
	start, end := dateArgs(nil)
	assert.Empty(t, start+end)

	start, end = dateArgs([]string{"03/01", "03/15"})
	assert.Equal(t, "03/01", start)
	assert.Equal(t, "03/15", end)
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	err := printResults(&buf, []reports.Result{
		{ReportID: "stats", Report: &models.Report{Body: "YouTube Analytics Report (03/01 - 03/31)\n\nViews:\t1,000"}},
		{ReportID: "shares", Err: &reports.RemoteQueryError{Service: "analytics", Status: 500}},
		{ReportID: "playlist", Err: &reports.EmptyResultError{ReportID: "playlist"}},
	})

	assert.EqualError(t, err, "1 of 3 reports failed")
	out := buf.String()
	assert.Contains(t, out, "Views:\t1,000")
	assert.Contains(t, out, "shares: The analytics service returned an error (status 500).")
	assert.Contains(t, out, "playlist: No data for the requested range")
}

func TestPrintSpecs(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, printSpecs(&buf, reports.NewRegistry(nil).Specs()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 11)
	assert.True(t, strings.HasPrefix(lines[0], "REPORT"))
	assert.Contains(t, lines[2], "top-revenue")
	assert.Contains(t, lines[2], "10")
}

func TestPrintReportUsesUserMessage(t *testing.T) {
	var buf bytes.Buffer
	err := printReport(&buf, nil, &reports.DateParseError{Input: "13/01", Reason: "month must be between 01 and 12"})
	assert.ErrorContains(t, err, "Use mm/dd, mm/dd/yy or mm/dd/yyyy.")
	assert.Empty(t, buf.String())
}
