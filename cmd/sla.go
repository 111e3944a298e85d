package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/expanders360/vendor-match/internal/sla"
)

var slaCmd = &cobra.Command{
	Use:   "sla",
	Short: "Check vendor SLA compliance",
	Long: `Evaluates the most recent match of every vendor against its response
SLA and lists the vendors past their deadline. Exits zero on full
compliance; no alert email is sent.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		monitor := sla.NewMonitor(st)
		expired, err := monitor.FindExpired(ctx, time.Now().UTC())
		if err != nil {
			return eris.Wrap(err, "sla: check")
		}

		if len(expired) == 0 {
			fmt.Println("all vendors within SLA")
			return nil
		}

		fmt.Printf("%d vendor(s) past SLA:\n", len(expired))
		for _, e := range expired {
			fmt.Printf("  %-30s project %-6d deadline %s  %dh overdue\n",
				e.Vendor.Name, e.Match.ProjectID,
				e.Deadline.UTC().Format("2006-01-02 15:04"), e.HoursOverdue)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(slaCmd)
}
