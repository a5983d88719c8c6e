package analyticsreporter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"channel-insights/agents/analytics-reporter/reports"
	"channel-insights/internal/models"
	"channel-insights/shared/ai"
	"channel-insights/shared/config"
	"channel-insights/shared/email"
	"channel-insights/shared/monitoring"
	"channel-insights/shared/scheduler"
	"channel-insights/shared/storage"

	"github.com/rs/zerolog"
)

// ledgerRetention keeps delivered periods for a little over a year.
const ledgerRetention = 400 * 24 * time.Hour

// Mailer delivers a rendered digest.
type Mailer interface {
	SendDigest(digest *models.Digest) error
}

// Commentator writes the optional narrative on top of a digest.
type Commentator interface {
	Commentary(ctx context.Context, digest *models.Digest) (string, error)
}

// DigestMetrics summarizes one scheduled run.
type DigestMetrics struct {
	Period     string `json:"period"`
	Reports    int    `json:"reports"`
	Failed     int    `json:"failed"`
	Empty      int    `json:"empty"`
	Delivered  bool   `json:"delivered"`
	Skipped    bool   `json:"skipped"`
	Commentary bool   `json:"commentary"`
}

// GetSummary implements the scheduler.Metrics interface
func (m DigestMetrics) GetSummary() string {
	switch {
	case m.Skipped:
		return fmt.Sprintf("digest for %s already delivered", m.Period)
	case !m.Delivered:
		return fmt.Sprintf("no data for %s, digest not sent", m.Period)
	case m.Failed > 0:
		return fmt.Sprintf("digest for %s sent with %d/%d reports (%d failed)", m.Period, m.Reports-m.Failed-m.Empty, m.Reports, m.Failed)
	}
	return fmt.Sprintf("digest for %s sent with %d/%d reports", m.Period, m.Reports-m.Empty, m.Reports)
}

// DigestAgent implements the scheduler.Agent interface. Each run builds the
// configured reports for one period and mails them once.
type DigestAgent struct {
	config      *config.Config
	assembler   *reports.Assembler
	resolver    *reports.Resolver
	mailer      Mailer
	commentator Commentator
	ledger      *storage.PeriodLedger
	logger      zerolog.Logger
	now         func() time.Time
}

func NewDigestAgent(cfg *config.Config, assembler *reports.Assembler, resolver *reports.Resolver, logger zerolog.Logger) *DigestAgent {
	return &DigestAgent{
		config:    cfg,
		assembler: assembler,
		resolver:  resolver,
		logger:    logger,
		now:       time.Now,
	}
}

func (d *DigestAgent) Name() string {
	return "Analytics Digest"
}

func (d *DigestAgent) Initialize() error {
	d.logger.Info().Msgf("Initializing %s...", d.Name())

	for _, id := range d.config.Digest.Reports {
		if _, err := d.assembler.Registry().Lookup(id); err != nil {
			return fmt.Errorf("digest.reports: %w", err)
		}
	}

	if d.mailer == nil {
		d.mailer = email.NewSender(&d.config.Email)
		d.logger.Info().Msg("Email sender initialized")
	}

	if d.commentator == nil && d.config.AI.GeminiAPIKey != "" {
		summarizer, err := ai.NewSummarizer(context.Background(), &d.config.AI)
		if err != nil {
			d.logger.Warn().Err(err).Msg("Commentary disabled")
		} else {
			d.commentator = summarizer
			d.logger.Info().Str("model", d.config.AI.Model).Msg("AI commentary initialized")
		}
	}

	if d.ledger == nil {
		ledger, err := storage.NewPeriodLedger(d.config.Digest.DataDir, ledgerRetention)
		if err != nil {
			return fmt.Errorf("failed to create digest ledger: %w", err)
		}
		d.ledger = ledger
		d.logger.Info().Int("delivered", ledger.Count()).Msg("Digest ledger initialized")
	}

	return nil
}

// Range is the period the next digest covers.
func (d *DigestAgent) Range() models.DateRange {
	if d.config.Digest.Range == config.DigestRangeMonthToDate {
		return d.resolver.MonthToDate()
	}
	return d.resolver.LastMonth()
}

func (d *DigestAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	rng := d.Range()
	metrics := DigestMetrics{Period: rng.String()}
	logger := d.logger.With().Str("period", metrics.Period).Logger()
	ctx = logger.WithContext(ctx)

	if d.ledger.IsDelivered(metrics.Period) {
		logger.Info().Msg("Digest already delivered, skipping")
		metrics.Skipped = true
		if events != nil && events.OnSuccess != nil {
			events.OnSuccess(metrics, time.Since(startTime))
		}
		return nil
	}

	results := d.assembler.BuildAll(ctx, d.config.Digest.Reports, rng, 0)
	metrics.Reports = len(results)
	metrics.Failed = reports.Failed(results)

	digest := &models.Digest{
		Date:       d.now(),
		Period:     metrics.Period,
		RangeLabel: reports.RangeLabel(rng),
		Failed:     metrics.Failed,
	}
	for _, r := range results {
		var authErr *reports.AuthExpiredError
		if errors.As(r.Err, &authErr) {
			return fmt.Errorf("digest aborted: %w", r.Err)
		}
		if reports.IsBenign(r.Err) {
			metrics.Empty++
		}
		entry := models.DigestEntry{ReportID: r.ReportID, Report: r.Report}
		if r.Err != nil {
			entry.Message = reports.UserMessage(r.Err)
		}
		digest.Entries = append(digest.Entries, entry)
	}

	if metrics.Failed > 0 && metrics.Failed == metrics.Reports {
		return fmt.Errorf("all %d reports failed", metrics.Reports)
	}
	if metrics.Empty+metrics.Failed == metrics.Reports {
		logger.Info().Msg("No report has data for the period")
		if events != nil && events.OnSuccess != nil {
			events.OnSuccess(metrics, time.Since(startTime))
		}
		return nil
	}

	if d.commentator != nil {
		commentary, err := d.commentator.Commentary(ctx, digest)
		if err != nil {
			logger.Warn().Err(err).Msg("Commentary failed, sending digest without it")
			if events != nil && events.OnPartialFailure != nil {
				events.OnPartialFailure(fmt.Errorf("commentary: %w", err), time.Since(startTime))
			}
		} else {
			digest.Commentary = commentary
			metrics.Commentary = true
		}
	}

	if err := d.mailer.SendDigest(digest); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}
	metrics.Delivered = true
	monitoring.RecordDigestSent()

	if err := d.ledger.MarkDelivered(metrics.Period); err != nil {
		logger.Warn().Err(err).Msg("Failed to record delivered digest")
		if events != nil && events.OnPartialFailure != nil {
			events.OnPartialFailure(fmt.Errorf("ledger: %w", err), time.Since(startTime))
		}
	}

	if metrics.Failed > 0 && events != nil && events.OnPartialFailure != nil {
		events.OnPartialFailure(fmt.Errorf("%d of %d reports failed", metrics.Failed, metrics.Reports), time.Since(startTime))
	}

	duration := time.Since(startTime)
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, duration)
	}
	logger.Info().
		Int("reports", metrics.Reports).
		Int("failed", metrics.Failed).
		Int("empty", metrics.Empty).
		Dur("duration", duration).
		Msg("Digest delivered")
	return nil
}
