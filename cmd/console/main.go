package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront-be/internal/app"
	"storefront-be/internal/config"
	"storefront-be/internal/logger"
	"storefront-be/internal/report"
	"storefront-be/internal/settlement"

	"github.com/spf13/cobra"
)

var newAppFunc = app.New

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd().ExecuteContext(ctx)
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "console",
		Short:         "Storefront maintenance jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(autoCancelCmd())
	root.AddCommand(sendReportCmd())
	root.AddCommand(scheduleCmd())

	return root
}

// withApp loads config, builds the app, runs fn and tears everything down.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newAppFunc(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func autoCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   settlement.JobName,
		Short: "Cancel unpaid orders older than the settlement threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Settlement.RunSettlementPass(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "scanned=%d cancelled=%d skipped=%d failed=%d duration=%s\n",
					res.Scanned, res.Cancelled, res.Skipped, res.Failed, res.Duration)
				for _, f := range res.Failures {
					fmt.Fprintf(out, "  order %d: %s\n", f.OrderID, f.Reason)
				}
				return nil
			})
		},
	}
}

func sendReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   report.JobName,
		Short: "Mail last month's sales report to the admins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				rep, err := a.Reports.SendMonthly(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "report for %s sent: orders=%d paid=%d cancelled=%d revenue=%s\n",
					rep.PeriodStart.Format("01/2006"), rep.OrderCount, rep.PaidCount, rep.CancelledCount, rep.Revenue.String())
				return nil
			})
		},
	}
}
