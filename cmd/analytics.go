package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/expanders360/vendor-match/internal/analytics"
	"github.com/expanders360/vendor-match/pkg/docstore"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Print top vendors per country with research document counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		docs := docstore.NewClient(cfg.Docstore.Key, docstore.WithBaseURL(cfg.Docstore.BaseURL))
		result, err := analytics.New(st, docs).TopVendorsWithResearch(ctx)
		if err != nil {
			return eris.Wrap(err, "analytics: top vendors")
		}

		if len(result) == 0 {
			fmt.Println("no matches in the analytics window")
			return nil
		}

		for _, country := range result {
			fmt.Printf("%s (%d research doc(s)):\n", country.Country, country.ResearchDocCount)
			for i, v := range country.TopVendors {
				fmt.Printf("  %d. %-30s avg %6.2f\n", i+1, v.VendorName, v.AverageScore)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyticsCmd)
}
