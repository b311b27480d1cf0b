package events

import (
	"dicebank/domain/entities"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange   EventType = "balance_change"
	EventTypeDuelCreated     EventType = "duel_created"
	EventTypeDuelCancelled   EventType = "duel_cancelled"
	EventTypeDuelResolved    EventType = "duel_resolved"
	EventTypeRaffleBetPlaced EventType = "raffle_bet_placed"
	EventTypeRaffleArmed     EventType = "raffle_armed"
	EventTypeRaffleDrawn     EventType = "raffle_drawn"
	EventTypeTransferMade    EventType = "transfer_made"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change applied by the ledger
type BalanceChangeEvent struct {
	UserID          int64                    `json:"user_id"`
	OldBalance      int64                    `json:"old_balance"`
	NewBalance      int64                    `json:"new_balance"`
	ChangeAmount    int64                    `json:"change_amount"`
	TransactionType entities.TransactionType `json:"transaction_type"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// DuelCreatedEvent is emitted when a duel opens
type DuelCreatedEvent struct {
	DuelID    int64 `json:"duel_id"`
	CreatorID int64 `json:"creator_id"`
	Stake     int64 `json:"stake"`
}

func (e DuelCreatedEvent) Type() EventType {
	return EventTypeDuelCreated
}

// DuelCancelledEvent is emitted when a creator withdraws an open duel
type DuelCancelledEvent struct {
	DuelID    int64 `json:"duel_id"`
	CreatorID int64 `json:"creator_id"`
	Stake     int64 `json:"stake"`
}

func (e DuelCancelledEvent) Type() EventType {
	return EventTypeDuelCancelled
}

// DuelResolvedEvent is emitted once a duel has paid out
type DuelResolvedEvent struct {
	DuelID     int64 `json:"duel_id"`
	WinnerID   int64 `json:"winner_id"`
	LoserID    int64 `json:"loser_id"`
	Stake      int64 `json:"stake"`
	WinnerRoll int   `json:"winner_roll"`
	LoserRoll  int   `json:"loser_roll"`
	Prize      int64 `json:"prize"`
	Commission int64 `json:"commission"`
	Rerolls    int   `json:"rerolls"`
}

func (e DuelResolvedEvent) Type() EventType {
	return EventTypeDuelResolved
}

// RaffleBetPlacedEvent is emitted for every accepted raffle entry
type RaffleBetPlacedEvent struct {
	RoundID  int64 `json:"round_id"`
	UserID   int64 `json:"user_id"`
	Amount   int64 `json:"amount"`
	Sequence int   `json:"sequence"`
	Bank     int64 `json:"bank"`
}

func (e RaffleBetPlacedEvent) Type() EventType {
	return EventTypeRaffleBetPlaced
}

// RaffleArmedEvent is emitted when a round reaches two participants
type RaffleArmedEvent struct {
	RoundID int64 `json:"round_id"`
	DrawAt  int64 `json:"draw_at_unix"`
}

func (e RaffleArmedEvent) Type() EventType {
	return EventTypeRaffleArmed
}

// RaffleDrawnEvent is emitted when a round finishes, by draw or by refund
type RaffleDrawnEvent struct {
	RoundID      int64 `json:"round_id"`
	WinnerID     int64 `json:"winner_id,omitempty"`
	Bank         int64 `json:"bank"`
	Prize        int64 `json:"prize"`
	Commission   int64 `json:"commission"`
	Participants int   `json:"participants"`
	Entries      int   `json:"entries"`
	Refunded     bool  `json:"refunded"`
}

func (e RaffleDrawnEvent) Type() EventType {
	return EventTypeRaffleDrawn
}

// TransferMadeEvent is emitted for user-to-user transfers
type TransferMadeEvent struct {
	FromID int64 `json:"from_id"`
	ToID   int64 `json:"to_id"`
	Amount int64 `json:"amount"`
}

func (e TransferMadeEvent) Type() EventType {
	return EventTypeTransferMade
}
