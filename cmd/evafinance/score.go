package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Koolhand111/eva-finance/internal/config"
)

func newScoreNowCommand(cfg *config.Config) *cobra.Command {
	var dayFlag string

	cmd := &cobra.Command{
		Use:   "score-now",
		Short: "Run one pass of aggregation, scoring, and recommendation drafting for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().UTC()
			if dayFlag != "" {
				parsed, err := time.Parse("2006-01-02", dayFlag)
				if err != nil {
					return userError(err)
				}
				day = parsed
			}
			return runScoreOnce(cfg, day)
		},
	}

	cmd.Flags().StringVar(&dayFlag, "day", "", "day to score, YYYY-MM-DD (default: today, UTC)")
	return cmd
}
