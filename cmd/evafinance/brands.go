package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Koolhand111/eva-finance/internal/config"
	"github.com/Koolhand111/eva-finance/internal/domain"
)

func newListUnmappedBrandsCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list-unmapped-brands",
		Short: "List brands with no ticker mapping that have produced a signal event",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := openStore(cfg)
			if err != nil {
				return err
			}
			brands, err := st.BrandTickers.ListUnmapped(context.Background())
			if err != nil {
				return storeError(err)
			}
			if len(brands) == 0 {
				fmt.Println("no unmapped brands")
				return nil
			}
			for _, b := range brands {
				fmt.Println(b)
			}
			return nil
		},
	}
}

func newMapBrandCommand(cfg *config.Config) *cobra.Command {
	var material bool
	var parent string
	var exchange string

	cmd := &cobra.Command{
		Use:   "map-brand <brand> <ticker>",
		Short: "Map a brand to a public ticker",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			brand, ticker := args[0], args[1]
			if brand == "" || ticker == "" {
				return userError(fmt.Errorf("brand and ticker must not be empty"))
			}

			_, st, err := openStore(cfg)
			if err != nil {
				return err
			}

			mapping := domain.BrandTickerMap{
				Brand:    brand,
				Ticker:   &ticker,
				Parent:   parent,
				Material: material,
				Exchange: exchange,
			}
			if err := st.BrandTickers.Upsert(context.Background(), mapping); err != nil {
				return storeError(err)
			}

			fmt.Printf("mapped %s -> %s (material=%v)\n", brand, ticker, material)
			return nil
		},
	}

	cmd.Flags().BoolVar(&material, "material", false, "mark the brand as a material revenue driver of the ticker")
	cmd.Flags().StringVar(&parent, "parent", "", "parent company name, if different from the brand")
	cmd.Flags().StringVar(&exchange, "exchange", "", "listing exchange")

	return cmd
}
