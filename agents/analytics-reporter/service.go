package analyticsreporter

import (
	"context"
	"strings"

	"channel-insights/agents/analytics-reporter/reports"
	"channel-insights/agents/analytics-reporter/youtube"
	"channel-insights/internal/models"
)

// TokenRefresher is the part of the credential provider the service needs.
type TokenRefresher interface {
	Refresh(ctx context.Context, explicitToken string) youtube.RefreshResult
}

// Service answers on-demand report requests.
type Service struct {
	assembler *reports.Assembler
	resolver  *reports.Resolver
	tokens    TokenRefresher
}

func NewService(assembler *reports.Assembler, resolver *reports.Resolver, tokens TokenRefresher) *Service {
	return &Service{assembler: assembler, resolver: resolver, tokens: tokens}
}

// Range resolves user date tokens. With neither token the range is the
// current month to date.
func (s *Service) Range(start, end string) (models.DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		return s.resolver.MonthToDate(), nil
	case start == "" || end == "":
		return models.DateRange{}, &reports.DateParseError{Reason: "both a start and an end date are required"}
	}
	return s.resolver.Resolve(start, end)
}

// Report builds one report by id or alias. A limit of zero uses the report's default.
func (s *Service) Report(ctx context.Context, id, start, end string, limit int) (*models.Report, error) {
	rng, err := s.Range(start, end)
	if err != nil {
		return nil, err
	}
	return s.assembler.Build(ctx, id, rng, limit)
}

// All builds every registered report over one range, in batch order.
func (s *Service) All(ctx context.Context, start, end string, limit int) (models.DateRange, []reports.Result, error) {
	rng, err := s.Range(start, end)
	if err != nil {
		return models.DateRange{}, nil, err
	}
	return rng, s.assembler.BuildAll(ctx, nil, rng, limit), nil
}

// Month is the channel summary for one calendar month ("MM/YYYY" or "MM/YY").
func (s *Service) Month(ctx context.Context, period string) (*models.Report, error) {
	rng, err := s.resolver.Month(period)
	if err != nil {
		return nil, err
	}
	return s.assembler.Build(ctx, reports.ReportStats, rng, 0)
}

// LastMonth is the channel summary for the previous calendar month.
func (s *Service) LastMonth(ctx context.Context) (*models.Report, error) {
	return s.assembler.Build(ctx, reports.ReportStats, s.resolver.LastMonth(), 0)
}

// Lifetime is the channel summary since the platform's first day of data.
func (s *Service) Lifetime(ctx context.Context) (*models.Report, error) {
	return s.assembler.Build(ctx, reports.ReportStats, s.resolver.Lifetime(), 0)
}

// Specs lists the registered reports in batch order.
func (s *Service) Specs() []*reports.Spec {
	return s.assembler.Registry().Specs()
}

// RefreshToken forces a token refresh, or installs explicitToken when given.
func (s *Service) RefreshToken(ctx context.Context, explicitToken string) youtube.RefreshResult {
	return s.tokens.Refresh(ctx, explicitToken)
}
