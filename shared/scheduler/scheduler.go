package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"channel-insights/shared/config"
	"channel-insights/shared/monitoring"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Metrics defines the common interface for agent metrics
type Metrics interface {
	// GetSummary returns a human-readable summary of the run
	GetSummary() string
}

// AgentEvents provides callbacks for monitoring agent execution
type AgentEvents struct {
	OnSuccess         func(metrics Metrics, duration time.Duration)
	OnPartialFailure  func(err error, duration time.Duration)
	OnCriticalFailure func(err error, duration time.Duration)
}

// Agent defines the interface that all agents must implement
type Agent interface {
	Name() string
	RunOnce(ctx context.Context, events *AgentEvents) error
	Initialize() error
}

// Task is an auxiliary job that runs on its own schedule next to the agent.
type Task struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// Scheduler manages the execution of agents on a schedule
type Scheduler struct {
	config  *config.Config
	monitor *monitoring.Monitor
	agent   Agent
	tasks   []Task
	cron    *cron.Cron
	logger  zerolog.Logger
}

func New(cfg *config.Config, agent Agent, logger zerolog.Logger) *Scheduler {
	cronLog := cronLogger{logger: logger}
	return &Scheduler{
		config:  cfg,
		monitor: monitoring.NewMonitor(logger),
		agent:   agent,
		logger:  logger,
		// Prevent overlapping runs
		cron: cron.New(cron.WithSeconds(), cron.WithLogger(cronLog), cron.WithChain(cron.SkipIfStillRunning(cronLog))),
	}
}

// Monitor exposes the run monitor backing the health server.
func (s *Scheduler) Monitor() *monitoring.Monitor {
	return s.monitor
}

// AddTask registers an auxiliary job. It must be called before Start.
func (s *Scheduler) AddTask(task Task) {
	s.tasks = append(s.tasks, task)
}

func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.agent.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize agent: %w", err)
	}

	if err := s.register(ctx); err != nil {
		return err
	}

	healthServer := monitoring.NewHealthServer(s.monitor, strconv.Itoa(s.config.Monitoring.HealthPort), s.logger)
	healthServer.Start()

	s.logger.Info().
		Str("agent", s.agent.Name()).
		Str("schedule", s.config.Digest.Schedule).
		Int("tasks", len(s.tasks)).
		Msg("Scheduler started")
	s.cron.Start()

	// Keep the scheduler running indefinitely until context is cancelled
	<-ctx.Done()
	s.logger.Info().Str("agent", s.agent.Name()).Msg("Scheduler stopped")
	<-s.cron.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("Health server shutdown failed")
	}
	return ctx.Err()
}

func (s *Scheduler) register(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.config.Digest.Schedule, func() {
		if err := s.RunOnce(ctx); err != nil {
			s.logger.Error().Err(err).Str("agent", s.agent.Name()).Msg("Scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	for _, task := range s.tasks {
		task := task
		_, err := s.cron.AddFunc(task.Schedule, func() {
			if err := task.Run(ctx); err != nil {
				s.logger.Warn().Err(err).Str("task", task.Name).Msg("Task failed")
			}
		})
		if err != nil {
			return fmt.Errorf("failed to add %s task: %w", task.Name, err)
		}
	}
	return nil
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	startTime := time.Now()
	agentName := s.agent.Name()

	s.logger.Info().Str("agent", agentName).Msg("Starting run")

	// Create event handlers for monitoring
	events := &AgentEvents{
		OnSuccess: func(metrics Metrics, duration time.Duration) {
			s.monitor.RecordSuccess(metrics.GetSummary(), duration)
		},
		OnPartialFailure: func(err error, duration time.Duration) {
			s.monitor.RecordPartialFailure(fmt.Errorf("%s partial failure: %w", agentName, err), duration)
		},
		OnCriticalFailure: func(err error, duration time.Duration) {
			s.monitor.RecordCriticalFailure(fmt.Errorf("%s critical failure: %w", agentName, err), duration)
		},
	}

	if err := s.agent.RunOnce(ctx, events); err != nil {
		duration := time.Since(startTime)
		s.monitor.RecordCriticalFailure(fmt.Errorf("%s failed: %w", agentName, err), duration)
		return fmt.Errorf("%s run failed: %w", agentName, err)
	}

	return nil
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
