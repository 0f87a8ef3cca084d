package workflow

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"taskpilot/internal/config"
)

// runTimeout bounds one scheduled trigger run, capability calls and
// persistence included.
const runTimeout = 2 * time.Minute

// Executor runs a named trigger end to end, persistence included. The
// assistant facade implements it.
type Executor interface {
	RunWorkflow(ctx context.Context, name string) (Result, error)
}

// Scheduler drives the periodic triggers on their configured cron
// expressions.
type Scheduler struct {
	cron   *cron.Cron
	exec   Executor
	cfg    config.WorkflowsConfig
	logger zerolog.Logger
}

// NewScheduler builds a scheduler over exec. Nothing runs until Start.
func NewScheduler(exec Executor, cfg config.WorkflowsConfig, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		exec:   exec,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers every trigger with a non-empty expression and starts
// the cron loop. A bad expression fails startup rather than silently
// dropping a trigger.
func (s *Scheduler) Start() error {
	specs := map[string]string{
		DailyReminder:      s.cfg.DailyReminder,
		ProductivityReport: s.cfg.ProductivityReport,
		AutoSchedule:       s.cfg.AutoSchedule,
		PriorityReview:     s.cfg.PriorityReview,
	}
	for _, name := range Names {
		spec := specs[name]
		if spec == "" {
			s.logger.Debug().Str("workflow", name).Msg("no schedule configured, trigger disabled")
			continue
		}
		name := name
		if _, err := s.cron.AddFunc(spec, func() { s.run(name) }); err != nil {
			return err
		}
		s.logger.Info().Str("workflow", name).Str("schedule", spec).Msg("workflow scheduled")
	}
	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("workflow scheduler stopped")
}

func (s *Scheduler) run(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	if _, err := s.exec.RunWorkflow(ctx, name); err != nil {
		s.logger.Error().Err(err).Str("workflow", name).Msg("scheduled workflow run failed")
	}
}
