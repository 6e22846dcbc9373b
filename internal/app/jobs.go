package app

import (
	"context"
	"errors"

	"storefront-be/internal/logger"
	"storefront-be/internal/report"
	"storefront-be/internal/scheduler"
	"storefront-be/internal/settlement"

	"go.uber.org/zap"
)

// RunAutoCancel runs one settlement pass. A pass held by another process is
// not an error.
func (a *App) RunAutoCancel(ctx context.Context) error {
	res, err := a.Settlement.RunSettlementPass(ctx)
	if errors.Is(err, settlement.ErrPassInProgress) {
		return nil
	}
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		logger.FromCtx(ctx).Warn("settlement pass had failures",
			zap.Int("failed", res.Failed),
			zap.Any("failures", res.Failures),
		)
	}
	return nil
}

func (a *App) SendMonthlyReport(ctx context.Context) error {
	rep, err := a.Reports.SendMonthly(ctx)
	if err != nil {
		return err
	}
	logger.FromCtx(ctx).Info("monthly report sent",
		zap.Time("period_start", rep.PeriodStart),
		zap.Int64("orders", rep.OrderCount),
	)
	return nil
}

// RegisterJobs adds the recurring jobs to s.
func (a *App) RegisterJobs(s *scheduler.Scheduler) error {
	if _, err := s.Add(scheduler.AutoCancelSpec, settlement.JobName, a.RunAutoCancel); err != nil {
		return err
	}
	if _, err := s.Add(scheduler.MonthlyReportSpec, report.JobName, a.SendMonthlyReport); err != nil {
		return err
	}
	return nil
}
