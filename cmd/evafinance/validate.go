package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/validate"
)

func newValidateBrandCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate-brand <brand>",
		Short: "Run the search-interest validator for a brand and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brand := args[0]
			validator := validate.NewSearchValidator(cfg.Trends, log.Logger.With().Str("stage", "validate").Logger())
			result := validator.Validate(context.Background(), brand)

			fmt.Printf("brand:             %s\n", result.Brand)
			fmt.Printf("search_interest:   %.2f\n", result.SearchInterest)
			fmt.Printf("trend_direction:   %s\n", result.TrendDirection)
			fmt.Printf("validates_signal:  %v\n", result.ValidatesSignal)
			fmt.Printf("confidence_boost:  %.2f\n", result.ConfidenceBoost)
			fmt.Printf("validation_status: %s\n", result.ValidationStatus)
			return nil
		},
	}
}
