package main

import (
	"context"

	"storefront-be/internal/app"
	"storefront-be/internal/logger"
	"storefront-be/internal/scheduler"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run recurring jobs until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, runSchedule)
		},
	}
}

func runSchedule(ctx context.Context, a *app.App) error {
	s := scheduler.New(ctx, a.Config.Location())
	if err := a.RegisterJobs(s); err != nil {
		return err
	}

	s.Start()
	logger.L().Info("scheduler started",
		zap.String("timezone", a.Config.Location().String()),
		zap.Int("jobs", len(s.Entries())),
	)

	<-ctx.Done()

	logger.L().Info("scheduler stopping, waiting for running jobs")
	<-s.Stop().Done()
	return nil
}
