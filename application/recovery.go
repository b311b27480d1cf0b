package application

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Recover rebuilds in-memory state after a restart. Balances are restored first
// because duel and raffle recovery may refund or pay out.
func Recover(ctx context.Context, balances BalanceLoader, ledger BalanceRestorer, duels, raffle Restorer) error {
	loaded, err := balances.LoadBalances(ctx)
	if err != nil {
		return fmt.Errorf("failed to load balances: %w", err)
	}
	ledger.Restore(loaded)
	log.WithField("accounts", len(loaded)).Info("Balances restored")

	if err := duels.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore duels: %w", err)
	}
	if err := raffle.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore raffle: %w", err)
	}

	log.Info("Startup recovery completed")
	return nil
}
