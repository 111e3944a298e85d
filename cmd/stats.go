package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/expanders360/vendor-match/internal/stats"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print windowed matching statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		windowStart := time.Now().UTC().AddDate(0, 0, -statsDays)
		summary, err := stats.NewAggregator(st).Weekly(ctx, windowStart)
		if err != nil {
			return eris.Wrap(err, "stats: aggregate")
		}

		fmt.Printf("window since %s UTC\n", summary.WindowStart.Format("2006-01-02 15:04"))
		fmt.Printf("  total matches:   %d\n", summary.TotalMatches)
		fmt.Printf("  average score:   %.2f\n", summary.AverageScore)
		fmt.Printf("  unique projects: %d\n", summary.UniqueProjects)
		fmt.Printf("  unique vendors:  %d\n", summary.UniqueVendors)
		if len(summary.TopVendors) > 0 {
			fmt.Println("  top vendors:")
			for i, v := range summary.TopVendors {
				fmt.Printf("    %2d. %-30s avg %6.2f over %d match(es)\n",
					i+1, v.VendorName, v.AverageScore, v.MatchCount)
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "window length in days")
	rootCmd.AddCommand(statsCmd)
}
