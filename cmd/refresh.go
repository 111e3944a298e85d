package main

import (
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/expanders360/vendor-match/internal/match"
	"github.com/expanders360/vendor-match/internal/scheduler"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [projectID]",
	Short: "Rebuild matches for one project or every active project",
	Long: `Recomputes vendor matches. With a project ID, rebuilds that single
project and prints its match set. Without arguments, sweeps every active
project with the same pacing and failure isolation as the scheduled job.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		mail := newMailer()
		engine := match.NewEngine(st, mail)

		if len(args) == 1 {
			projectID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return eris.Errorf("refresh: invalid project id %q", args[0])
			}

			matches, err := engine.Rebuild(ctx, projectID)
			if err != nil {
				return eris.Wrapf(err, "refresh: project %d", projectID)
			}

			fmt.Printf("project %d: %d match(es)\n", projectID, len(matches))
			for _, m := range matches {
				fmt.Printf("  vendor %-6d score %6.2f  updated %s\n",
					m.VendorID, m.Score, m.UpdatedAt.UTC().Format("2006-01-02 15:04"))
			}
			return nil
		}

		job := scheduler.NewRefreshJob(st, engine, mail, cfg.Mail.AdminEmail, cfg.Scheduler.Pacing())
		report := job.Run(ctx)
		fmt.Printf("refresh complete: %s (%d projects, %d succeeded, %d failed)\n",
			report.Outcome, report.Total, report.Succeeded, report.Failed)
		if report.Outcome == scheduler.OutcomeFailed {
			if report.Err != nil {
				return report.Err
			}
			return eris.New("refresh: every project failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
