package main

import (
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"bargain-backend/model"

	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var req model.SearchRequest

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one comparison and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Query == "" || req.MaxPrice <= 0 {
				return errors.New("--query and a positive --max-price are required")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			res := a.coordinator.Execute(ctx, req)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			if err := enc.Encode(res); err != nil {
				return err
			}
			if !res.Success {
				return errors.New(res.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Query, "query", "q", "", "What to look for")
	cmd.Flags().Float64Var(&req.MaxPrice, "max-price", 0, "Highest acceptable price")
	cmd.Flags().StringVar(&req.Credentials.Username, "username", "buyer", "Marketplace username")
	cmd.Flags().StringVar(&req.Credentials.Password, "password", "", "Marketplace password")

	return cmd
}
