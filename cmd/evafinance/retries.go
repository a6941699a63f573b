package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Koolhand111/eva-finance/internal/config"
)

func newResetRetriesCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-retries <draft-id>",
		Short: "Reset a poisoned draft's attempt count so the notifier claims it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return userError(fmt.Errorf("invalid draft id %q: %w", args[0], err))
			}

			_, st, err := openStore(cfg)
			if err != nil {
				return err
			}
			if err := st.Drafts.ResetAttempts(context.Background(), id); err != nil {
				return storeError(err)
			}

			fmt.Printf("reset attempts for draft %d\n", id)
			return nil
		},
	}
}
