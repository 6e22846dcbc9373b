package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-be/internal/lock"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/order"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const JobName = "orders:auto-cancel-unpaid"

const (
	defaultThreshold = time.Hour
	defaultPageSize  = 100
)

var ErrPassInProgress = errors.New("settlement pass already in progress")

// Store is the slice of the order service a pass needs.
type Store interface {
	ListStaleOrderIDs(
		ctx context.Context,
		cutoff time.Time,
		afterID uint,
		limit int,
		skipMethods []order.PaymentMethod,
	) ([]uint, error)
	CancelStale(ctx context.Context, orderID uint, cutoff time.Time) error
}

type Clock func() time.Time

type Config struct {
	Threshold   time.Duration
	PageSize    int
	SkipMethods []order.PaymentMethod
	LockName    string
}

type Failure struct {
	OrderID uint   `json:"order_id"`
	Reason  string `json:"reason"`
}

type Result struct {
	Scanned   int           `json:"scanned"`
	Cancelled int           `json:"cancelled"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Failures  []Failure     `json:"failures,omitempty"`
	Cutoff    time.Time     `json:"cutoff"`
	Duration  time.Duration `json:"duration"`
}

type Job struct {
	store  Store
	locker lock.Locker
	cfg    Config
	clock  Clock
}

func NewJob(store Store, locker lock.Locker, cfg Config, clock Clock) *Job {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.LockName == "" {
		cfg.LockName = JobName
	}
	if clock == nil {
		clock = time.Now
	}

	return &Job{store: store, locker: locker, cfg: cfg, clock: clock}
}

// RunSettlementPass cancels every unpaid order older than the threshold.
// Only one pass runs at a time across all processes; a concurrent call gets
// ErrPassInProgress and touches nothing.
func (j *Job) RunSettlementPass(ctx context.Context) (*Result, error) {
	ctx = logger.WithJobRun(ctx, JobName, uuid.NewString())
	log := logger.FromCtx(ctx)

	release, err := j.locker.TryAcquire(ctx, j.cfg.LockName)
	if errors.Is(err, lock.ErrNotAcquired) {
		log.Info("settlement pass skipped, another run holds the lock")
		return nil, ErrPassInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("acquire settlement lock: %w", err)
	}
	defer release()

	timer := metrics.StartTimer()
	res := &Result{Cutoff: j.clock().Add(-j.cfg.Threshold)}

	log.Info("settlement pass started",
		zap.Time("cutoff", res.Cutoff),
		zap.Int("page_size", j.cfg.PageSize),
	)

	err = j.sweep(ctx, res)

	res.Duration = timer.Duration()
	metrics.RecordSettlement(res.Cancelled, res.Skipped, res.Failed, res.Duration)

	fields := []zap.Field{
		zap.Int("scanned", res.Scanned),
		zap.Int("cancelled", res.Cancelled),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", res.Duration),
	}
	if err != nil {
		log.Error("settlement pass aborted", append(fields, zap.Error(err))...)
		return res, err
	}
	log.Info("settlement pass finished", fields...)
	return res, nil
}

func (j *Job) sweep(ctx context.Context, res *Result) error {
	log := logger.FromCtx(ctx)

	var afterID uint
	for {
		ids, err := j.store.ListStaleOrderIDs(ctx, res.Cutoff, afterID, j.cfg.PageSize, j.cfg.SkipMethods)
		if err != nil {
			return fmt.Errorf("list stale orders after %d: %w", afterID, err)
		}

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			res.Scanned++
			afterID = id

			err := j.store.CancelStale(ctx, id, res.Cutoff)
			switch {
			case err == nil:
				res.Cancelled++
				log.Info("order cancelled for unpaid timeout", zap.Uint("order_id", id))
			case errors.Is(err, order.ErrStaleTransition), errors.Is(err, order.ErrOrderNotFound):
				res.Skipped++
				log.Info("order no longer eligible", zap.Uint("order_id", id), zap.Error(err))
			default:
				res.Failed++
				res.Failures = append(res.Failures, Failure{OrderID: id, Reason: err.Error()})
				log.Error("failed to cancel order", zap.Uint("order_id", id), zap.Error(err))
			}
		}

		if len(ids) < j.cfg.PageSize {
			return nil
		}
	}
}
