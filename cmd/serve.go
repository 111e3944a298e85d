package main

import (
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/expanders360/vendor-match/internal/analytics"
	"github.com/expanders360/vendor-match/internal/match"
	"github.com/expanders360/vendor-match/internal/monitoring"
	"github.com/expanders360/vendor-match/internal/scheduler"
	"github.com/expanders360/vendor-match/internal/server"
	"github.com/expanders360/vendor-match/internal/sla"
	"github.com/expanders360/vendor-match/internal/stats"
	"github.com/expanders360/vendor-match/pkg/docstore"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and HTTP trigger server",
	Long: `Runs the long-lived service: the daily match refresh, the daily SLA
check, and the weekly statistics report on their UTC schedules, plus an
HTTP surface for manual triggers and the analytics view.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "serve: migrate")
		}

		mail := newMailer()
		docs := docstore.NewClient(cfg.Docstore.Key, docstore.WithBaseURL(cfg.Docstore.BaseURL))

		engine := match.NewEngine(st, mail)
		monitor := sla.NewMonitor(st)
		aggregator := stats.NewAggregator(st)
		analyticsSvc := analytics.New(st, docs)

		refreshJob := scheduler.NewRefreshJob(st, engine, mail, cfg.Mail.AdminEmail, cfg.Scheduler.Pacing())
		slaJob := scheduler.NewSLAJob(monitor, mail, cfg.Mail.AdminEmail)
		statsJob := scheduler.NewStatsJob(aggregator, mail, cfg.Mail.AdminEmail)

		metrics := monitoring.NewMetrics()
		sched := scheduler.New(metrics)
		sched.Register(scheduler.Daily{Hour: cfg.Scheduler.RefreshHour, Minute: cfg.Scheduler.RefreshMinute}, refreshJob)
		sched.Register(scheduler.Daily{Hour: cfg.Scheduler.SLAHour, Minute: cfg.Scheduler.SLAMinute}, slaJob)
		sched.Register(scheduler.Weekly{
			Weekday: time.Weekday(cfg.Scheduler.StatsWeekday),
			Hour:    cfg.Scheduler.StatsHour,
			Minute:  cfg.Scheduler.StatsMinute,
		}, statsJob)

		srv := server.New(sched, refreshJob, slaJob, engine, analyticsSvc, metrics)

		schedDone := make(chan struct{})
		go func() {
			defer close(schedDone)
			sched.Run(ctx)
		}()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		err = srv.ListenAndServe(ctx, port)

		<-schedDone
		zap.L().Info("service stopped")

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve: http server")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
