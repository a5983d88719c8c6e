package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"channel-insights/internal/models"
	"channel-insights/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func digestWith(bodies ...string) *models.Digest {
	d := &models.Digest{RangeLabel: "05/01 - 05/31"}
	for i, body := range bodies {
		d.Entries = append(d.Entries, models.DigestEntry{
			ReportID: string(rune('a' + i)),
			Report:   &models.Report{Body: body},
		})
	}
	d.Entries = append(d.Entries, models.DigestEntry{ReportID: "missing", Message: "no data"})
	return d
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(digestWith("Views:\t1,000", "CPM:\t$4.25"))

	assert.Contains(t, prompt, "PERIOD: 05/01 - 05/31")
	assert.Contains(t, prompt, "Views:\t1,000\n\nCPM:\t$4.25")
	assert.NotContains(t, prompt, "no data")

	assert.Empty(t, BuildPrompt(&models.Digest{Entries: []models.DigestEntry{{ReportID: "x", Message: "gone"}}}))
}

func TestBuildPromptTruncatesLongReports(t *testing.T) {
	prompt := BuildPrompt(digestWith(strings.Repeat("x", maxReportChars+50)))
	assert.Contains(t, prompt, strings.Repeat("x", maxReportChars)+"...")
	assert.NotContains(t, prompt, strings.Repeat("x", maxReportChars+1))
}

func TestNewSummarizerRequiresKey(t *testing.T) {
	_, err := NewSummarizer(context.Background(), &config.AIConfig{Model: "gemini-2.5-flash"})
	assert.Error(t, err)
}

func TestCommentary(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": [{"content": {"role": "model", "parts": [{"text": "  Views held steady.  "}]}}]}`))
	}))
	defer srv.Close()

	s, err := newSummarizer(context.Background(),
		&config.AIConfig{GeminiAPIKey: "test-key", Model: "gemini-2.5-flash"},
		genai.HTTPOptions{BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	text, err := s.Commentary(context.Background(), digestWith("Views:\t1,000"))
	require.NoError(t, err)
	assert.Equal(t, "Views held steady.", text)
	assert.Contains(t, path, "gemini-2.5-flash:generateContent")

	_, err = s.Commentary(context.Background(), &models.Digest{})
	assert.ErrorIs(t, err, ErrNoContent)
}
