package services

import (
	"context"
	"fmt"
	"time"

	"dicebank/domain/entities"
	"dicebank/domain/events"
	"dicebank/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// TransferService moves balance between users
type TransferService struct {
	ledger    interfaces.Ledger
	store     interfaces.TransferStore
	notifier  interfaces.Notifier
	publisher interfaces.EventPublisher
	now       interfaces.Clock
}

// NewTransferService creates a transfer service
func NewTransferService(ledger interfaces.Ledger, store interfaces.TransferStore, notifier interfaces.Notifier, publisher interfaces.EventPublisher) *TransferService {
	return &TransferService{
		ledger:    ledger,
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
}

// Transfer debits amount from fromID and credits it to toID
func (s *TransferService) Transfer(ctx context.Context, fromID, toID, amount int64) (*entities.Transfer, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive", ErrInvalidInput)
	}
	if fromID == toID {
		return nil, fmt.Errorf("%w: cannot transfer to yourself", ErrInvalidInput)
	}

	if _, err := s.ledger.Debit(ctx, fromID, amount, entities.TransactionTypeTransferOut); err != nil {
		return nil, fmt.Errorf("failed to debit transfer: %w", err)
	}
	recipientBalance := s.ledger.Adjust(ctx, toID, amount, entities.TransactionTypeTransferIn)

	transfer := &entities.Transfer{
		FromID:    fromID,
		ToID:      toID,
		Amount:    amount,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.SaveTransfer(ctx, transfer); err != nil {
		log.WithError(err).Error("Failed to persist transfer")
	}

	log.WithFields(log.Fields{
		"from_id": fromID,
		"to_id":   toID,
		"amount":  amount,
	}).Info("Transfer completed")

	if s.publisher != nil {
		s.publisher.Publish(events.TransferMadeEvent{FromID: fromID, ToID: toID, Amount: amount})
	}
	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, toID, transferReceivedMessage(transfer, recipientBalance)); err != nil {
			log.WithError(err).WithField("user_id", toID).Warn("Failed to notify transfer recipient")
		}
	}
	return transfer, nil
}
