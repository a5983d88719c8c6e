package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"channel-insights/internal/models"
	"channel-insights/shared/monitoring"

	"github.com/rs/zerolog"
)

// QueryClient runs the two kinds of remote calls a report needs. Implementations
// must not retry; a failed call surfaces immediately.
type QueryClient interface {
	QueryMetrics(ctx context.Context, shape models.QueryShape, rng models.DateRange, limit int) (*models.QueryResult, error)
	LookupEntities(ctx context.Context, kind models.EntityKind, ids []string) (map[string]models.EntityMetadata, error)
}

// Assembler builds reports from registry specs.
type Assembler struct {
	client   QueryClient
	registry *Registry
}

func NewAssembler(client QueryClient, registry *Registry) *Assembler {
	return &Assembler{client: client, registry: registry}
}

func (a *Assembler) Registry() *Registry { return a.registry }

// Build runs the report named by id (or alias) over rng. A limit of zero uses
// the report's default.
func (a *Assembler) Build(ctx context.Context, id string, rng models.DateRange, limit int) (*models.Report, error) {
	spec, err := a.registry.Lookup(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report, err := a.build(ctx, spec, rng, a.registry.EffectiveLimit(spec, limit))
	monitoring.ObserveReport(spec.ID, outcome(err), time.Since(start))
	return report, err
}

func (a *Assembler) build(ctx context.Context, spec *Spec, rng models.DateRange, limit int) (*models.Report, error) {
	logger := zerolog.Ctx(ctx).With().Str("report", spec.ID).Str("range", rng.String()).Logger()

	result, err := a.client.QueryMetrics(ctx, spec.Shape, rng, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", spec.ID, err)
	}
	if len(result.Rows) == 0 {
		logger.Info().Msg("no rows for range")
		return nil, &EmptyResultError{ReportID: spec.ID, Range: rng}
	}

	columns := spec.Shape.Columns()
	for i, row := range result.Rows {
		if len(row) != len(columns) {
			internal := NewInternalError(fmt.Errorf("%w: row %d has %d columns, want %d",
				ErrMalformedResponse, i, len(row), len(columns)))
			logger.Error().Str("error_id", internal.ID).Err(internal.Err).Msg("unexpected analytics response")
			return nil, internal
		}
	}

	var entities map[string]models.EntityMetadata
	if spec.JoinRequired() {
		entities, err = a.client.LookupEntities(ctx, spec.Join, distinctColumn(result.Rows, 0))
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s titles for %s: %w", spec.Join, spec.ID, err)
		}
	}

	in := &renderInput{
		spec:     spec,
		limit:    limit,
		columns:  columns,
		result:   result,
		entities: entities,
	}

	report := &models.Report{
		ID:         spec.ID,
		Title:      spec.title(limit),
		RangeLabel: RangeLabel(rng),
		Range:      rng,
		Rows:       spec.render(in),
	}
	report.Body = RenderText(report)

	logger.Debug().Int("rows", len(report.Rows)).Msg("report assembled")
	return report, nil
}

// RenderText produces the plain-text body of a report.
func RenderText(report *models.Report) string {
	var b strings.Builder
	b.WriteString(report.Heading())
	b.WriteString("\n\n")
	for _, row := range report.Rows {
		if len(row.Fields) == 0 {
			fmt.Fprintf(&b, "%s:\t%s\n", row.Label, row.Value)
			continue
		}
		fmt.Fprintf(&b, "%s:\n", row.Label)
		for _, f := range row.Fields {
			fmt.Fprintf(&b, "\t%s:\t%s\n", f.Name, f.Value)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func distinctColumn(rows []models.MetricsRow, col int) []string {
	seen := make(map[string]bool, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		id := row.Text(col)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func outcome(err error) string {
	var (
		authErr   *AuthExpiredError
		remoteErr *RemoteQueryError
	)
	switch {
	case err == nil:
		return "success"
	case IsBenign(err):
		return "empty"
	case errors.As(err, &authErr):
		return "auth_expired"
	case errors.As(err, &remoteErr):
		return "remote_error"
	}
	return "internal_error"
}

type renderFunc func(in *renderInput) []models.Row

type renderInput struct {
	spec     *Spec
	limit    int
	columns  []string
	result   *models.QueryResult
	entities map[string]models.EntityMetadata
}

func (in *renderInput) rows() []models.MetricsRow { return in.result.Rows }

// col returns the positional index of a named column, or -1.
func (in *renderInput) col(name string) int {
	for i, c := range in.columns {
		if c == name {
			return i
		}
	}
	return -1
}

func (in *renderInput) num(row models.MetricsRow, name string) float64 {
	return row.Float(in.col(name))
}

// title resolves an entity id from the join step, falling back to the id.
func (in *renderInput) title(id string) string {
	if meta, ok := in.entities[id]; ok && meta.Title != "" {
		return meta.Title
	}
	return id
}

// headers returns the column headers, synthesizing them from the query shape
// when the response did not carry a matching set.
func (in *renderInput) headers() []models.ColumnHeader {
	if len(in.result.Headers) == len(in.columns) {
		return in.result.Headers
	}
	headers := make([]models.ColumnHeader, len(in.columns))
	for i, name := range in.columns {
		headers[i] = models.ColumnHeader{Name: name}
	}
	return headers
}
