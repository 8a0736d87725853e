/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/minishop/apiserver/config"
	"github.com/minishop/apiserver/internal/mq"
	"github.com/minishop/apiserver/internal/server"
	"github.com/minishop/apiserver/internal/services"
	"github.com/spf13/cobra"
)

// workerCmd consumes order-created events from the configured broker.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes order events for fulfillment",
	Long: `Consumes order-created events from the configured message broker
and logs fulfillment receipts. Usage:

	shopd worker
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		broker, err := server.NewBroker(cmd.Context(), cfg.MQ)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect broker: %v\n", err)
			os.Exit(1)
		}
		if broker == nil {
			fmt.Fprintln(os.Stderr, "MQ_BACKEND is required for the worker")
			os.Exit(1)
		}
		defer broker.Close()

		err = broker.Subscribe(cmd.Context(), cfg.MQ.OrderChannel, handleOrderEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "worker error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func handleOrderEvent(ctx context.Context, msg mq.Message) error {
	var event services.OrderCreatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		// Malformed payloads are dropped; requeueing cannot fix them.
		log.Printf("dropping malformed order event %s: %v", msg.ID, err)
		return nil
	}
	log.Printf("order %d: user %d bought %d of product %d",
		event.OrderID, event.UserID, event.Quantity, event.ProductID)
	return nil
}
