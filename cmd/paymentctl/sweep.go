package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tair/marketplace-payments/internal/payment/usecase/command"
)

func sweepCmd(configPath *string) *cobra.Command {
	var (
		olderThan time.Duration
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Ask the provider about pending intents whose callback is overdue",
		Long: `Runs one pass of the pending intent sweeper.

Intents pending for longer than --older-than are queried at the provider and
resolved exactly as a callback would resolve them. Intents the provider is
still processing stay pending.

Examples:
  paymentctl sweep
  paymentctl sweep --older-than 30m --limit 200`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}

			a, err := openApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.svc.Sweeper.Handler.Handle(cmd.Context(), command.SweepPendingCommand{
				OlderThan: olderThan,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 10*time.Minute, "only check intents pending for at least this long")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum intents to check")

	return cmd
}
