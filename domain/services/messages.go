package services

import (
	"fmt"
	"strings"

	"dicebank/domain/entities"
)

// Notification texts sent through the Notifier. Chat rendering lives outside
// this module, these are plain-text fallbacks.

func duelResultMessage(duel *entities.Duel, userID int64, settlement entities.Settlement, balance int64) string {
	own, other := duel.RollsFor(userID)

	var b strings.Builder
	fmt.Fprintf(&b, "Dice #%d\n", duel.ID)
	fmt.Fprintf(&b, "Bank: %d\nCommission: %d (%d%%)\n\n", settlement.Bank, settlement.Commission, entities.CommissionPercent)
	fmt.Fprintf(&b, "Your roll: %d\nOpponent roll: %d\n\n", own, other)
	if duel.WinnerID() == userID {
		fmt.Fprintf(&b, "You won %d!\n", settlement.Prize)
	} else {
		b.WriteString("You lost this one.\n")
	}
	fmt.Fprintf(&b, "Balance: %d", balance)
	return b.String()
}

func raffleResultMessage(result *entities.RaffleResult, userID int64, balance int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Banker round #%d finished\n\n", result.Round.ID)
	fmt.Fprintf(&b, "Bank: %d\nCommission: %d (%d%%)\n", result.Settlement.Bank, result.Settlement.Commission, entities.CommissionPercent)
	fmt.Fprintf(&b, "Winner: ID%d\n", result.WinnerID)
	if result.WinnerID == userID {
		fmt.Fprintf(&b, "\nCongratulations! You won %d after commission.", result.Settlement.Prize)
	} else {
		b.WriteString("\nNot this time. Try again!")
	}
	fmt.Fprintf(&b, "\n\nBalance: %d", balance)
	return b.String()
}

func raffleRefundMessage(roundID, refunded, balance int64) string {
	return fmt.Sprintf("Banker round #%d cancelled: not enough participants. %d returned to your balance.\n\nBalance: %d",
		roundID, refunded, balance)
}

func transferReceivedMessage(transfer *entities.Transfer, balance int64) string {
	return fmt.Sprintf("You received %d from ID%d.\n\nBalance: %d", transfer.Amount, transfer.FromID, balance)
}
