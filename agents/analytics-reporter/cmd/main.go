package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	analyticsreporter "channel-insights/agents/analytics-reporter"
	"channel-insights/agents/analytics-reporter/reports"
	"channel-insights/agents/analytics-reporter/youtube"
	"channel-insights/internal/models"
	"channel-insights/shared/config"
	"channel-insights/shared/scheduler"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var limit int

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rootCmd := &cobra.Command{
		Use:           "channel-insights",
		Short:         "YouTube channel analytics reports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	reportCmd := &cobra.Command{
		Use:   "report <name> [start end]",
		Short: "Build one report; dates are mm/dd, mm/dd/yy or mm/dd/yyyy (default: month to date)",
		Args:  cobra.RangeArgs(1, 3),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			start, end := dateArgs(args[1:])
			report, err := a.service.Report(ctx, args[0], start, end, limit)
			return printReport(cmd.OutOrStdout(), report, err)
		}),
	}
	reportCmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of results (default: per report)")

	allCmd := &cobra.Command{
		Use:     "all [start end]",
		Aliases: []string{"everything", "allstats"},
		Short:   "Build every report over one range",
		Args:    cobra.MaximumNArgs(2),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			start, end := dateArgs(args)
			_, results, err := a.service.All(ctx, start, end, limit)
			if err != nil {
				return userError(err)
			}
			return printResults(cmd.OutOrStdout(), results)
		}),
	}
	allCmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of results for limited reports (default: per report)")

	monthCmd := &cobra.Command{
		Use:   "month [mm/yyyy]",
		Short: "Channel summary for one calendar month (default: current month)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			period := ""
			if len(args) == 1 {
				period = args[0]
			}
			report, err := a.service.Month(ctx, period)
			return printReport(cmd.OutOrStdout(), report, err)
		}),
	}

	lastMonthCmd := &cobra.Command{
		Use:     "last-month",
		Aliases: []string{"lastMonth"},
		Short:   "Channel summary for the previous calendar month",
		Args:    cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			report, err := a.service.LastMonth(ctx)
			return printReport(cmd.OutOrStdout(), report, err)
		}),
	}

	lifetimeCmd := &cobra.Command{
		Use:     "lifetime",
		Aliases: []string{"alltime"},
		Short:   "Channel summary since the channel's first day of data",
		Args:    cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			report, err := a.service.Lifetime(ctx)
			return printReport(cmd.OutOrStdout(), report, err)
		}),
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the available reports and their aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printSpecs(cmd.OutOrStdout(), reports.NewRegistry(nil).Specs())
		},
	}

	refreshCmd := &cobra.Command{
		Use:   "refresh [refresh-token]",
		Short: "Refresh the OAuth token, or install a new refresh token",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			}
			res := a.service.RefreshToken(ctx, token)
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			if !res.Success {
				return errors.New("token refresh failed")
			}
			return nil
		}),
	}

	authorizeCmd := &cobra.Command{
		Use:   "authorize",
		Short: "Authorize the channel with the device flow and store the token",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			return a.creds.Authorize(ctx, cmd.OutOrStdout())
		}),
	}

	digestCmd := &cobra.Command{
		Use:   "digest",
		Short: "Build and mail the digest for the configured period now",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			agent := analyticsreporter.NewDigestAgent(a.cfg, a.assembler, a.resolver, a.logger)
			if err := agent.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize agent: %w", err)
			}
			return scheduler.New(a.cfg, agent, a.logger).RunOnce(ctx)
		}),
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the digest schedule, token refresh and health server",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a *app, _ *cobra.Command, _ []string) error {
			if !a.cfg.Digest.Enabled {
				return errors.New("digest.enabled is false, nothing to schedule")
			}
			agent := analyticsreporter.NewDigestAgent(a.cfg, a.assembler, a.resolver, a.logger)
			s := scheduler.New(a.cfg, agent, a.logger)
			s.AddTask(analyticsreporter.NewTokenRefreshTask(a.creds, a.cfg.YouTube.TokenRefreshMinutes, a.logger))

			err := s.Start(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}),
	}

	rootCmd.AddCommand(reportCmd, allCmd, monthCmd, lastMonthCmd, lifetimeCmd, listCmd,
		refreshCmd, authorizeCmd, digestCmd, serveCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app holds the wiring shared by every command that talks to YouTube.
type app struct {
	cfg       *config.Config
	logger    zerolog.Logger
	creds     *youtube.CredentialProvider
	resolver  *reports.Resolver
	assembler *reports.Assembler
	service   *analyticsreporter.Service
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	creds, err := youtube.NewCredentialProvider(cfg.CredentialSource(), logger)
	if err != nil {
		return nil, err
	}

	client, err := youtube.NewClient(ctx, creds, cfg.YouTube.RequestTimeout)
	if err != nil {
		return nil, err
	}

	resolver := reports.NewResolver(nil)
	assembler := reports.NewAssembler(client, reports.NewRegistry(cfg.Reports.DefaultLimits))

	return &app{
		cfg:       cfg,
		logger:    logger,
		creds:     creds,
		resolver:  resolver,
		assembler: assembler,
		service:   analyticsreporter.NewService(assembler, resolver, creds),
	}, nil
}

type appFunc func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error

func withApp(fn appFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		return fn(a.logger.WithContext(cmd.Context()), a, cmd, args)
	}
}

func dateArgs(args []string) (string, string) {
	switch len(args) {
	case 0:
		return "", ""
	case 1:
		return args[0], ""
	}
	return args[0], args[1]
}

// userError swaps err for the message a user should see.
func userError(err error) error {
	return errors.New(reports.UserMessage(err))
}

func printReport(w io.Writer, report *models.Report, err error) error {
	if err != nil {
		return userError(err)
	}
	_, err = fmt.Fprintln(w, report.Body)
	return err
}

func printResults(w io.Writer, results []reports.Result) error {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if r.Err != nil {
			fmt.Fprintf(w, "%s: %s\n", r.ReportID, reports.UserMessage(r.Err))
			continue
		}
		fmt.Fprintln(w, r.Report.Body)
	}
	if failed := reports.Failed(results); failed > 0 {
		return fmt.Errorf("%d of %d reports failed", failed, len(results))
	}
	return nil
}

func printSpecs(w io.Writer, specs []*reports.Spec) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REPORT\tLIMIT\tALIASES")
	for _, s := range specs {
		defaultLimit := "-"
		if s.Limited() {
			defaultLimit = fmt.Sprint(s.DefaultLimit)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, defaultLimit, strings.Join(s.Aliases, ", "))
	}
	return tw.Flush()
}
