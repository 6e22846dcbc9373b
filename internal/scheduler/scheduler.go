package scheduler

import (
	"context"
	"time"

	"storefront-be/internal/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	AutoCancelSpec    = "*/10 * * * *"
	MonthlyReportSpec = "0 8 1 * *"
)

// Task is one scheduled unit of work. The context carries the job name and
// run id for logging.
type Task func(ctx context.Context) error

type Scheduler struct {
	cron *cron.Cron
	base context.Context
}

// New builds a scheduler in loc. A job whose previous run is still going is
// skipped rather than queued.
func New(ctx context.Context, loc *time.Location) *Scheduler {
	cl := cronLogger{log: logger.L().Named("cron").Sugar()}

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		base: ctx,
	}
}

func (s *Scheduler) Add(spec, name string, task Task) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, func() {
		runID := uuid.NewString()
		ctx := logger.WithJobRun(s.base, name, runID)
		log := logger.FromCtx(ctx)

		start := time.Now()
		log.Info("job started")
		if err := task(ctx); err != nil {
			log.Error("job failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
			return
		}
		log.Info("job finished", zap.Duration("duration", time.Since(start)))
	})
}

func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and returns a context that is done once running jobs
// have returned.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
