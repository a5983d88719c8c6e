package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"channel-insights/internal/models"
	"channel-insights/shared/config"

	"google.golang.org/genai"
)

// ErrNoContent means the model answered without any text.
var ErrNoContent = errors.New("empty response from model")

// maxReportChars bounds how much of each report body goes into the prompt.
const maxReportChars = 2000

// Summarizer writes a short narrative over a digest's reports with Gemini.
type Summarizer struct {
	client *genai.Client
	model  string
}

func NewSummarizer(ctx context.Context, cfg *config.AIConfig) (*Summarizer, error) {
	return newSummarizer(ctx, cfg, genai.HTTPOptions{})
}

func newSummarizer(ctx context.Context, cfg *config.AIConfig, httpOptions genai.HTTPOptions) (*Summarizer, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required for commentary")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.GeminiAPIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Summarizer{client: client, model: cfg.Model}, nil
}

// Commentary returns a few sentences highlighting what changed in the digest.
func (s *Summarizer) Commentary(ctx context.Context, digest *models.Digest) (string, error) {
	if digest == nil {
		return "", fmt.Errorf("digest cannot be nil")
	}

	prompt := BuildPrompt(digest)
	if prompt == "" {
		return "", ErrNoContent
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}

	result, err := s.client.Models.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate commentary: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", ErrNoContent
	}
	return text, nil
}

// BuildPrompt lays out every available report body for the model. It returns
// an empty string when no report in the digest has data.
func BuildPrompt(digest *models.Digest) string {
	var sections []string
	for _, entry := range digest.Entries {
		if entry.Report == nil {
			continue
		}
		sections = append(sections, truncateString(entry.Report.Body, maxReportChars))
	}
	if len(sections) == 0 {
		return ""
	}

	return fmt.Sprintf(`You are an assistant that reviews YouTube channel analytics for the channel owner.

PERIOD: %s

REPORTS:
%s

INSTRUCTIONS:
1. Write 3-5 plain sentences for the channel owner.
2. Call out revenue, views and subscriber movement, and the strongest video or country.
3. Use only the numbers above. Do not invent comparisons with other periods.
4. No headings, no lists, no markdown.`,
		digest.RangeLabel,
		strings.Join(sections, "\n\n"),
	)
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength] + "..."
}
