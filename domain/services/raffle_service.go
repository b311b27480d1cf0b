package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dicebank/domain/entities"
	"dicebank/domain/events"
	"dicebank/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// minRaffleParticipants is the distinct-bettor count that arms the draw
const minRaffleParticipants = 2

// RaffleConfig holds the Banker round rules
type RaffleConfig struct {
	MinBet         int64
	MaxBetsPerUser int
	Timer          time.Duration
	RetryDelay     time.Duration
	HouseAccountID int64
}

// RaffleService owns the current Banker round. Only one round accepts bets at a
// time; a finished round is replaced by the next bet.
type RaffleService struct {
	ledger    interfaces.Ledger
	store     interfaces.RaffleStore
	random    interfaces.RandomSource
	notifier  interfaces.Notifier
	publisher interfaces.EventPublisher
	scheduler interfaces.DrawScheduler
	config    RaffleConfig
	now       interfaces.Clock

	mu      sync.Mutex // guards current and nextID; taken before a round lock, never after
	current *roundSlot
	nextID  int64
}

type roundSlot struct {
	id       int64
	mu       sync.Mutex
	round    *entities.RaffleRound
	finished atomic.Bool // mirrors round.Finished for readers not holding mu
}

// NewRaffleService creates a raffle manager. store, notifier and publisher must not block.
func NewRaffleService(
	ledger interfaces.Ledger,
	store interfaces.RaffleStore,
	random interfaces.RandomSource,
	notifier interfaces.Notifier,
	publisher interfaces.EventPublisher,
	scheduler interfaces.DrawScheduler,
	config RaffleConfig,
) *RaffleService {
	return &RaffleService{
		ledger:    ledger,
		store:     store,
		random:    random,
		notifier:  notifier,
		publisher: publisher,
		scheduler: scheduler,
		config:    config,
		now:       time.Now,
		nextID:    1,
	}
}

// PlaceBet adds one entry for userID to the current round, opening a round if needed.
// The first bet fixes the stake; the bet that brings the second distinct bettor arms the draw.
func (s *RaffleService) PlaceBet(ctx context.Context, userID, amount int64) (*entities.RaffleBetReceipt, error) {
	if amount < s.config.MinBet {
		return nil, fmt.Errorf("%w: minimum is %d, got %d", ErrBelowMinimum, s.config.MinBet, amount)
	}
	if balance := s.ledger.GetBalance(ctx, userID); balance < amount {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, balance, amount)
	}

	for {
		slot := s.currentRound(ctx)

		slot.mu.Lock()
		if slot.round.Finished {
			// Drawn between lookup and lock, the next pass opens a fresh round
			slot.mu.Unlock()
			continue
		}

		receipt, batch, err := s.placeLocked(ctx, slot, userID, amount)
		slot.mu.Unlock()
		if err != nil {
			return nil, err
		}

		batch.Flush(s.publish)
		return receipt, nil
	}
}

func (s *RaffleService) placeLocked(ctx context.Context, slot *roundSlot, userID, amount int64) (*entities.RaffleBetReceipt, *events.Batch, error) {
	round := slot.round

	if round.HasStake() && amount != round.Stake {
		return nil, nil, fmt.Errorf("%w: round %d is fixed at %d", ErrStakeMismatch, round.ID, round.Stake)
	}
	if round.BetCountFor(userID) >= s.config.MaxBetsPerUser {
		return nil, nil, fmt.Errorf("%w: %d bets per round", ErrLimitExceeded, s.config.MaxBetsPerUser)
	}

	balance, err := s.ledger.Debit(ctx, userID, amount, entities.TransactionTypeRaffleBet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to debit raffle bet: %w", err)
	}

	now := s.now().UTC()
	bet := round.AddBet(userID, amount, now)

	batch := &events.Batch{}
	batch.Add(events.RaffleBetPlacedEvent{
		RoundID:  round.ID,
		UserID:   userID,
		Amount:   amount,
		Sequence: bet.Sequence,
		Bank:     round.Bank,
	})

	armed := false
	if round.ParticipantCount() >= minRaffleParticipants && round.Arm(now.Add(s.config.Timer)) {
		armed = true
		roundID := round.ID
		s.scheduler.Schedule(roundID, s.config.Timer, func() { s.runScheduledDraw(roundID) })
		batch.Add(events.RaffleArmedEvent{RoundID: roundID, DrawAt: round.DrawAt.Unix()})

		log.WithFields(log.Fields{
			"round_id":     roundID,
			"draw_at":      round.DrawAt,
			"participants": round.ParticipantCount(),
		}).Info("Raffle round armed")
	}

	s.persistRound(ctx, round)
	if err := s.store.SaveBet(ctx, round.ID, bet); err != nil {
		log.WithError(err).WithField("round_id", round.ID).Error("Failed to persist raffle bet")
	}

	log.WithFields(log.Fields{
		"round_id": round.ID,
		"user_id":  userID,
		"amount":   amount,
		"sequence": bet.Sequence,
		"bank":     round.Bank,
	}).Info("Raffle bet placed")

	return &entities.RaffleBetReceipt{
		RaffleStatus: round.StatusFor(userID, now),
		Bet:          bet,
		Balance:      balance,
		Armed:        armed,
	}, batch, nil
}

// GetCurrentRaffleStatus describes the current round from userID's point of view
func (s *RaffleService) GetCurrentRaffleStatus(ctx context.Context, userID int64) entities.RaffleStatus {
	s.mu.Lock()
	slot := s.current
	s.mu.Unlock()

	if slot == nil {
		return entities.RaffleStatus{}
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.round.StatusFor(userID, s.now())
}

// Draw settles the round. It is a no-op with ErrNotFound when roundID is no longer
// the current round and with ErrAlreadyFinished when another attempt already settled it.
func (s *RaffleService) Draw(ctx context.Context, roundID int64) (*entities.RaffleResult, error) {
	s.mu.Lock()
	slot := s.current
	s.mu.Unlock()

	if slot == nil || slot.id != roundID {
		return nil, fmt.Errorf("%w: raffle round %d is not current", ErrNotFound, roundID)
	}

	slot.mu.Lock()
	if slot.round.Finished {
		slot.mu.Unlock()
		return nil, fmt.Errorf("%w: raffle round %d", ErrAlreadyFinished, roundID)
	}

	result, err := s.settleLocked(ctx, slot.round)
	if err != nil {
		slot.mu.Unlock()
		log.WithError(err).WithField("round_id", roundID).Error("Raffle draw failed, retrying later")
		s.scheduler.Schedule(roundID, s.config.RetryDelay, func() { s.runScheduledDraw(roundID) })
		return nil, err
	}
	slot.finished.Store(true)
	s.persistRound(ctx, slot.round)
	result.Round = slot.round.Clone()
	slot.mu.Unlock()

	// Drop a still-pending timer when the draw was triggered directly
	s.scheduler.Cancel(roundID)

	s.afterDraw(ctx, result)
	return result, nil
}

// settleLocked pays out or refunds the round. The caller holds the round lock.
// The random pick happens before any credit.
func (s *RaffleService) settleLocked(ctx context.Context, round *entities.RaffleRound) (*entities.RaffleResult, error) {
	now := s.now().UTC()

	if round.ParticipantCount() < minRaffleParticipants {
		for userID, amount := range round.RefundsByUser() {
			s.ledger.Adjust(ctx, userID, amount, entities.TransactionTypeRaffleRefund)
		}
		round.FinishRefunded(now)
		return &entities.RaffleResult{Refunded: true}, nil
	}

	winning, err := WeightedPick(s.random, round.Bets)
	if err != nil {
		return nil, fmt.Errorf("failed to pick raffle winner: %w", err)
	}
	settlement := entities.SettleBank(round.Bank)

	round.FinishWithWinner(winning.UserID, now)
	s.ledger.Adjust(ctx, winning.UserID, settlement.Prize, entities.TransactionTypeRafflePayout)
	if settlement.Commission > 0 {
		s.ledger.Adjust(ctx, s.config.HouseAccountID, settlement.Commission, entities.TransactionTypeCommission)
	}

	return &entities.RaffleResult{
		Settlement: settlement,
		WinnerID:   winning.UserID,
	}, nil
}

// afterDraw publishes and notifies outside the round lock
func (s *RaffleService) afterDraw(ctx context.Context, result *entities.RaffleResult) {
	round := result.Round

	s.publish(events.RaffleDrawnEvent{
		RoundID:      round.ID,
		WinnerID:     result.WinnerID,
		Bank:         round.Bank,
		Prize:        result.Settlement.Prize,
		Commission:   result.Settlement.Commission,
		Participants: round.ParticipantCount(),
		Entries:      len(round.Bets),
		Refunded:     result.Refunded,
	})

	if result.Refunded {
		log.WithFields(log.Fields{
			"round_id": round.ID,
			"bank":     round.Bank,
			"entries":  len(round.Bets),
		}).Info("Raffle round refunded")

		for userID, amount := range round.RefundsByUser() {
			balance := s.ledger.GetBalance(ctx, userID)
			s.notify(ctx, userID, raffleRefundMessage(round.ID, amount, balance))
		}
		return
	}

	log.WithFields(log.Fields{
		"round_id":     round.ID,
		"winner_id":    result.WinnerID,
		"bank":         round.Bank,
		"prize":        result.Settlement.Prize,
		"commission":   result.Settlement.Commission,
		"participants": round.ParticipantCount(),
		"entries":      len(round.Bets),
	}).Info("Raffle round drawn")

	for _, userID := range round.Participants {
		balance := s.ledger.GetBalance(ctx, userID)
		s.notify(ctx, userID, raffleResultMessage(result, userID, balance))
	}
}

// runScheduledDraw is the job armed on the scheduler
func (s *RaffleService) runScheduledDraw(roundID int64) {
	_, err := s.Draw(context.Background(), roundID)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyFinished) {
		log.WithError(err).WithField("round_id", roundID).Debug("Scheduled raffle draw skipped")
	}
}

// Restore reloads unfinished rounds. The newest becomes current and is re-armed
// with whatever time it had left; any older unfinished round is refunded.
func (s *RaffleService) Restore(ctx context.Context) error {
	rounds, err := s.store.LoadUnfinishedRaffleRounds(ctx)
	if err != nil {
		return fmt.Errorf("failed to load unfinished raffle rounds: %w", err)
	}
	maxID, err := s.store.MaxRaffleRoundID(ctx)
	if err != nil {
		return fmt.Errorf("failed to load max raffle round id: %w", err)
	}

	for _, round := range rounds {
		round.Rebuild()
		if round.ID > maxID {
			maxID = round.ID
		}
	}

	s.mu.Lock()
	if maxID >= s.nextID {
		s.nextID = maxID + 1
	}
	nextID := s.nextID
	s.mu.Unlock()

	if len(rounds) == 0 {
		log.WithField("next_id", nextID).Info("No raffle rounds to restore")
		return nil
	}

	for _, stale := range rounds[:len(rounds)-1] {
		var refunded int64
		for userID, amount := range stale.RefundsByUser() {
			s.ledger.Adjust(ctx, userID, amount, entities.TransactionTypeRaffleRefund)
			refunded += amount
		}
		stale.FinishRefunded(s.now().UTC())
		s.persistRound(ctx, stale)
		log.WithFields(log.Fields{
			"round_id": stale.ID,
			"refunded": refunded,
		}).Warn("Refunded stale raffle round on restore")
	}

	latest := rounds[len(rounds)-1]
	if latest.UserBets == nil {
		latest.UserBets = make(map[int64]int)
	}
	slot := &roundSlot{id: latest.ID, round: latest}

	s.mu.Lock()
	s.current = slot
	s.mu.Unlock()

	slot.mu.Lock()
	if latest.ParticipantCount() >= minRaffleParticipants {
		now := s.now().UTC()
		if latest.Arm(now.Add(s.config.Timer)) {
			s.persistRound(ctx, latest)
		}
		delay := latest.DrawAt.Sub(now)
		if delay < 0 {
			delay = 0
		}
		roundID := latest.ID
		s.scheduler.Schedule(roundID, delay, func() { s.runScheduledDraw(roundID) })
	}
	slot.mu.Unlock()

	log.WithFields(log.Fields{
		"round_id":     latest.ID,
		"entries":      len(latest.Bets),
		"participants": latest.ParticipantCount(),
		"next_id":      nextID,
	}).Info("Raffle round restored")
	return nil
}

// currentRound returns the round accepting bets, opening a new one if the
// current round is finished or none exists yet
func (s *RaffleService) currentRound(ctx context.Context) *roundSlot {
	s.mu.Lock()
	if s.current != nil && !s.current.finished.Load() {
		slot := s.current
		s.mu.Unlock()
		return slot
	}

	id := s.nextID
	s.nextID++
	round := entities.NewRaffleRound(id, s.now().UTC())
	slot := &roundSlot{id: id, round: round}
	// Locked before publication so the header is persisted ahead of any bet
	slot.mu.Lock()
	s.current = slot
	s.mu.Unlock()

	s.persistRound(ctx, round)
	slot.mu.Unlock()

	log.WithField("round_id", id).Info("Raffle round opened")
	return slot
}

func (s *RaffleService) persistRound(ctx context.Context, round *entities.RaffleRound) {
	if err := s.store.SaveRaffleRound(ctx, round.Clone()); err != nil {
		log.WithError(err).WithField("round_id", round.ID).Error("Failed to persist raffle round")
	}
}

func (s *RaffleService) publish(event events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

func (s *RaffleService) notify(ctx context.Context, userID int64, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, message); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Failed to notify user")
	}
}
