package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tair/marketplace-payments/kafka"
)

func eventsCmd(configPath *string) *cobra.Command {
	var (
		fromBeginning bool
		groupID       string
	)

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail payment.resolved events",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if len(cfg.Kafka.Brokers) == 0 {
				return fmt.Errorf("kafka.brokers is not configured")
			}
			if groupID == "" {
				groupID = cfg.Kafka.GroupID
			}

			consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, groupID, []string{cfg.Kafka.Topic}, fromBeginning)
			if err != nil {
				return err
			}
			defer consumer.Close()

			out := cmd.OutOrStdout()
			consumer.RegisterHandler(kafka.EventTypePaymentResolved, func(ctx context.Context, event kafka.PaymentResolvedEvent) error {
				return writeEvent(out, event)
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return consumer.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&fromBeginning, "from-beginning", false, "start from the oldest retained event")
	cmd.Flags().StringVar(&groupID, "group", "", "consumer group (default kafka.group_id)")

	return cmd
}

// writeEvent prints one event per line.
func writeEvent(w io.Writer, event kafka.PaymentResolvedEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(line))
	return err
}
