package reports

import (
	"context"

	"channel-insights/internal/models"

	"github.com/rs/zerolog"
)

// Result is the outcome of one report in a batch.
type Result struct {
	ReportID string
	Report   *models.Report
	Err      error
}

// BuildAll runs each report independently, in the given order. A failing
// report never stops the rest. An empty ids list means every registered report.
func (a *Assembler) BuildAll(ctx context.Context, ids []string, rng models.DateRange, limit int) []Result {
	if len(ids) == 0 {
		ids = a.registry.IDs()
	}

	logger := zerolog.Ctx(ctx)
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			results = append(results, Result{ReportID: id, Err: err})
			continue
		}

		report, err := a.Build(ctx, id, rng, limit)
		if err != nil && !IsBenign(err) {
			logger.Warn().Err(err).Str("report", id).Msg("report failed in batch")
		}
		results = append(results, Result{ReportID: id, Report: report, Err: err})
	}
	return results
}

// Failed counts results that ended in a real error; empty ranges do not count.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil && !IsBenign(r.Err) {
			n++
		}
	}
	return n
}
