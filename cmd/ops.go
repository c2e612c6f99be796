package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const opsTimeout = 30 * time.Second

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ratesCommands prints the current quote of every exchangeable currency.
func ratesCommands(app *appInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "rates",
		Short: "print current exchange rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opsTimeout)
			defer cancel()

			quotes, err := app.bancocred.GetRates(ctx)
			if err != nil {
				return err
			}
			return printJSON(quotes)
		},
	}
}

// replayCommands rebuilds balances from the transaction history of the
// given accounts and reports drift. The command fails if any account is
// inconsistent.
func replayCommands(app *appInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <account-id>...",
		Short: "verify account balances against their history",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opsTimeout)
			defer cancel()

			drifted := 0
			for _, id := range args {
				result, err := app.bancocred.ReplayAccount(ctx, id)
				if err != nil {
					return fmt.Errorf("replay %s: %w", id, err)
				}
				if err := printJSON(result); err != nil {
					return err
				}
				if !result.Consistent {
					drifted++
				}
			}
			if drifted > 0 {
				return fmt.Errorf("%d account(s) drifted from their history", drifted)
			}
			return nil
		},
	}
}
