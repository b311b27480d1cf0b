package services

import (
	"context"
	"fmt"
	"sync"

	"dicebank/domain/entities"
	"dicebank/domain/events"
	"dicebank/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// Ledger is the single writer of user balances. Each user has its own lock,
// so adjustments to different users never contend.
type Ledger struct {
	mu              sync.Mutex // guards accounts; taken before an account lock, never after
	accounts        map[int64]*account
	startingBalance int64
	store           interfaces.BalanceStore
	publisher       interfaces.EventPublisher
}

type account struct {
	mu      sync.Mutex
	balance int64
}

// NewLedger creates a ledger. store receives a mirror of every mutation and is
// expected to be asynchronous.
func NewLedger(startingBalance int64, store interfaces.BalanceStore, publisher interfaces.EventPublisher) *Ledger {
	return &Ledger{
		accounts:        make(map[int64]*account),
		startingBalance: startingBalance,
		store:           store,
		publisher:       publisher,
	}
}

// Restore seeds balances loaded from the store. Existing in-memory accounts win.
func (l *Ledger) Restore(balances map[int64]int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for userID, balance := range balances {
		if _, exists := l.accounts[userID]; exists {
			continue
		}
		l.accounts[userID] = &account{balance: balance}
	}

	log.WithField("accounts", len(balances)).Info("Ledger restored from store")
}

// account returns the user's account, opening it at the starting balance on first access
func (l *Ledger) account(ctx context.Context, userID int64) *account {
	l.mu.Lock()
	acc, exists := l.accounts[userID]
	if !exists {
		// Locked before publication so the default is mirrored ahead of any adjustment
		acc = &account{balance: l.startingBalance}
		acc.mu.Lock()
		l.accounts[userID] = acc
	}
	l.mu.Unlock()

	if !exists {
		l.mirror(ctx, userID, acc.balance)
		acc.mu.Unlock()
		log.WithFields(log.Fields{
			"user_id": userID,
			"balance": l.startingBalance,
		}).Debug("Opened ledger account")
	}
	return acc
}

// GetBalance returns the user's current balance
func (l *Ledger) GetBalance(ctx context.Context, userID int64) int64 {
	acc := l.account(ctx, userID)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.balance
}

// Adjust applies delta without any funds check and returns the new balance.
// Payouts, refunds and admin corrections use it.
func (l *Ledger) Adjust(ctx context.Context, userID, delta int64, txType entities.TransactionType) int64 {
	acc := l.account(ctx, userID)

	acc.mu.Lock()
	old := acc.balance
	acc.balance += delta
	newBalance := acc.balance
	l.mirror(ctx, userID, newBalance)
	acc.mu.Unlock()

	l.recordChange(userID, old, newBalance, txType)
	return newBalance
}

// Debit subtracts amount only if the balance covers it. The check and the
// subtraction happen under the same lock.
func (l *Ledger) Debit(ctx context.Context, userID, amount int64, txType entities.TransactionType) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: debit amount must be positive, got %d", ErrInvalidInput, amount)
	}

	acc := l.account(ctx, userID)

	acc.mu.Lock()
	old := acc.balance
	if old < amount {
		acc.mu.Unlock()
		return old, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, old, amount)
	}
	acc.balance -= amount
	newBalance := acc.balance
	l.mirror(ctx, userID, newBalance)
	acc.mu.Unlock()

	l.recordChange(userID, old, newBalance, txType)
	return newBalance, nil
}

// SetBalance overrides the balance and returns the previous value
func (l *Ledger) SetBalance(ctx context.Context, userID, value int64) int64 {
	acc := l.account(ctx, userID)

	acc.mu.Lock()
	old := acc.balance
	acc.balance = value
	l.mirror(ctx, userID, value)
	acc.mu.Unlock()

	log.WithFields(log.Fields{
		"user_id":     userID,
		"old_balance": old,
		"new_balance": value,
	}).Warn("Balance overridden")

	l.recordChange(userID, old, value, entities.TransactionTypeAdmin)
	return old
}

// mirror hands the new balance to the store. Called with the account locked so
// that mirror writes for one user are issued in mutation order.
func (l *Ledger) mirror(ctx context.Context, userID, balance int64) {
	if l.store == nil {
		return
	}
	if err := l.store.SaveBalance(ctx, userID, balance); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id": userID,
			"balance": balance,
		}).Error("Failed to mirror balance")
	}
}

func (l *Ledger) recordChange(userID, old, newBalance int64, txType entities.TransactionType) {
	log.WithFields(log.Fields{
		"user_id":          userID,
		"old_balance":      old,
		"new_balance":      newBalance,
		"change_amount":    newBalance - old,
		"transaction_type": txType,
	}).Debug("Balance changed")

	if l.publisher == nil {
		return
	}
	l.publisher.Publish(events.BalanceChangeEvent{
		UserID:          userID,
		OldBalance:      old,
		NewBalance:      newBalance,
		ChangeAmount:    newBalance - old,
		TransactionType: txType,
	})
}
