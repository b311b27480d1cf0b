package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"dicebank/domain/entities"
	"dicebank/domain/events"
	"dicebank/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// DuelConfig holds the duel rules
type DuelConfig struct {
	MinStake               int64
	CancelWindow           time.Duration
	HouseAccountID         int64
	HistoryLimit           int
	ResolveJoinedOnRestore bool
}

// DuelService owns the active set of dice duels and drives their state machine.
// Every duel has its own lock; the registry lock only guards the map and id counter.
type DuelService struct {
	ledger    interfaces.Ledger
	store     interfaces.DuelStore
	random    interfaces.RandomSource
	notifier  interfaces.Notifier
	publisher interfaces.EventPublisher
	config    DuelConfig
	now       interfaces.Clock

	mu     sync.Mutex
	duels  map[int64]*duelSlot
	nextID int64
}

type duelSlot struct {
	mu   sync.Mutex
	duel *entities.Duel
}

// duelResolution carries what the caller needs once the duel lock is released
type duelResolution struct {
	settlement entities.Settlement
	rerolls    int
}

// NewDuelService creates a duel manager. store, notifier and publisher must not block.
func NewDuelService(
	ledger interfaces.Ledger,
	store interfaces.DuelStore,
	random interfaces.RandomSource,
	notifier interfaces.Notifier,
	publisher interfaces.EventPublisher,
	config DuelConfig,
) *DuelService {
	return &DuelService{
		ledger:    ledger,
		store:     store,
		random:    random,
		notifier:  notifier,
		publisher: publisher,
		config:    config,
		now:       time.Now,
		duels:     make(map[int64]*duelSlot),
		nextID:    1,
	}
}

// CreateDuel debits the stake from creator and opens a new duel
func (s *DuelService) CreateDuel(ctx context.Context, creatorID, stake int64) (*entities.Duel, error) {
	if stake < s.config.MinStake {
		return nil, fmt.Errorf("%w: minimum is %d, got %d", ErrInvalidStake, s.config.MinStake, stake)
	}

	if _, err := s.ledger.Debit(ctx, creatorID, stake, entities.TransactionTypeDuelStake); err != nil {
		return nil, fmt.Errorf("failed to debit duel stake: %w", err)
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	slot := &duelSlot{duel: entities.NewDuel(id, creatorID, stake, s.now().UTC())}
	// Held until the open state is persisted so a racing join is saved after it
	slot.mu.Lock()
	s.duels[id] = slot
	s.mu.Unlock()

	s.persist(ctx, slot.duel)
	snapshot := slot.duel.Clone()
	slot.mu.Unlock()

	log.WithFields(log.Fields{
		"duel_id":    id,
		"creator_id": creatorID,
		"stake":      stake,
	}).Info("Duel created")

	s.publish(events.DuelCreatedEvent{DuelID: id, CreatorID: creatorID, Stake: stake})
	return snapshot, nil
}

// CancelDuel returns the stake to the creator and withdraws an unjoined duel.
// Outside the cancel window it fails with ErrWindowExpired whatever the opponent state.
func (s *DuelService) CancelDuel(ctx context.Context, duelID, requesterID int64) (*entities.Duel, error) {
	slot := s.lookup(duelID)
	if slot == nil {
		return nil, fmt.Errorf("%w: duel %d", ErrNotFound, duelID)
	}

	slot.mu.Lock()
	duel := slot.duel

	if duel.Status == entities.DuelStatusCancelled {
		slot.mu.Unlock()
		return nil, fmt.Errorf("%w: duel %d", ErrNotFound, duelID)
	}
	if duel.CreatorID != requesterID {
		slot.mu.Unlock()
		return nil, fmt.Errorf("%w: duel %d belongs to %d", ErrNotOwner, duelID, duel.CreatorID)
	}
	now := s.now().UTC()
	if now.Sub(duel.CreatedAt) >= s.config.CancelWindow {
		slot.mu.Unlock()
		return nil, fmt.Errorf("%w: duel %d is older than %s", ErrWindowExpired, duelID, s.config.CancelWindow)
	}
	if !duel.IsOpen() {
		slot.mu.Unlock()
		return nil, fmt.Errorf("%w: duel %d", ErrAlreadyJoined, duelID)
	}

	duel.Cancel(now)
	balance := s.ledger.Adjust(ctx, duel.CreatorID, duel.Stake, entities.TransactionTypeDuelRefund)
	s.persist(ctx, duel)
	snapshot := duel.Clone()
	slot.mu.Unlock()

	s.remove(duelID)

	log.WithFields(log.Fields{
		"duel_id":    duelID,
		"creator_id": snapshot.CreatorID,
		"stake":      snapshot.Stake,
		"balance":    balance,
	}).Info("Duel cancelled")

	s.publish(events.DuelCancelledEvent{DuelID: duelID, CreatorID: snapshot.CreatorID, Stake: snapshot.Stake})
	return snapshot, nil
}

// JoinDuel debits the stake from opponent and resolves the duel.
// When resolution fails the duel stays joined with both stakes held.
func (s *DuelService) JoinDuel(ctx context.Context, duelID, opponentID int64) (*entities.Duel, error) {
	slot := s.lookup(duelID)
	if slot == nil {
		return nil, fmt.Errorf("%w: duel %d", ErrNotFound, duelID)
	}

	slot.mu.Lock()
	duel := slot.duel

	if duel.Status == entities.DuelStatusCancelled {
		slot.mu.Unlock()
		return nil, fmt.Errorf("%w: duel %d", ErrNotFound, duelID)
	}
	if !duel.IsOpen() {
		slot.mu.Unlock()
		return nil, fmt.Errorf("%w: duel %d", ErrAlreadyJoined, duelID)
	}
	if duel.CreatorID == opponentID {
		slot.mu.Unlock()
		return nil, ErrSelfJoin
	}

	// The ledger lock is a leaf lock, so taking it under the duel lock cannot cycle
	if _, err := s.ledger.Debit(ctx, opponentID, duel.Stake, entities.TransactionTypeDuelStake); err != nil {
		slot.mu.Unlock()
		return nil, fmt.Errorf("failed to debit duel stake: %w", err)
	}

	duel.Join(opponentID)
	s.persist(ctx, duel)

	log.WithFields(log.Fields{
		"duel_id":     duelID,
		"opponent_id": opponentID,
		"stake":       duel.Stake,
	}).Info("Duel joined")

	var batch events.Batch
	res, err := s.resolveLocked(ctx, duel, &batch)
	snapshot := duel.Clone()
	slot.mu.Unlock()

	if err != nil {
		return snapshot, err
	}

	s.afterResolve(ctx, snapshot, res, &batch)
	return snapshot, nil
}

// ResolveStalledDuel resolves a duel that was left joined, for example after a restart
func (s *DuelService) ResolveStalledDuel(ctx context.Context, duelID int64) (*entities.Duel, error) {
	slot := s.lookup(duelID)
	if slot == nil {
		return nil, fmt.Errorf("%w: duel %d", ErrNotFound, duelID)
	}

	slot.mu.Lock()
	duel := slot.duel

	switch duel.Status {
	case entities.DuelStatusResolved:
		slot.mu.Unlock()
		return nil, fmt.Errorf("%w: duel %d", ErrAlreadyFinished, duelID)
	case entities.DuelStatusCancelled:
		slot.mu.Unlock()
		return nil, fmt.Errorf("%w: duel %d", ErrNotFound, duelID)
	case entities.DuelStatusOpen:
		slot.mu.Unlock()
		return nil, fmt.Errorf("%w: duel %d has no opponent", ErrInvalidInput, duelID)
	}

	var batch events.Batch
	res, err := s.resolveLocked(ctx, duel, &batch)
	snapshot := duel.Clone()
	slot.mu.Unlock()

	if err != nil {
		return snapshot, err
	}

	s.afterResolve(ctx, snapshot, res, &batch)
	return snapshot, nil
}

// resolveLocked rolls until decisive and pays out. The caller holds the duel lock.
// Settlement is computed before any credit so a failure leaves balances untouched.
func (s *DuelService) resolveLocked(ctx context.Context, duel *entities.Duel, batch *events.Batch) (*duelResolution, error) {
	creatorRoll, opponentRoll, rerolls, err := rollDecisive(s.random)
	if err != nil {
		log.WithError(err).WithField("duel_id", duel.ID).Error("Failed to roll duel, stakes remain held")
		return nil, fmt.Errorf("failed to resolve duel %d: %w", duel.ID, err)
	}

	settlement := entities.SettleBank(duel.Bank())

	duel.Resolve(creatorRoll, opponentRoll, s.now().UTC())
	winnerID := duel.WinnerID()
	loserID := duel.CreatorID
	if winnerID == duel.CreatorID {
		loserID = *duel.OpponentID
	}

	s.ledger.Adjust(ctx, winnerID, settlement.Prize, entities.TransactionTypeDuelPayout)
	if settlement.Commission > 0 {
		s.ledger.Adjust(ctx, s.config.HouseAccountID, settlement.Commission, entities.TransactionTypeCommission)
	}
	s.persist(ctx, duel)

	winnerRoll, loserRoll := duel.RollsFor(winnerID)
	batch.Add(events.DuelResolvedEvent{
		DuelID:     duel.ID,
		WinnerID:   winnerID,
		LoserID:    loserID,
		Stake:      duel.Stake,
		WinnerRoll: winnerRoll,
		LoserRoll:  loserRoll,
		Prize:      settlement.Prize,
		Commission: settlement.Commission,
		Rerolls:    rerolls,
	})

	return &duelResolution{settlement: settlement, rerolls: rerolls}, nil
}

// afterResolve runs outside the duel lock: it drops the duel from the active set,
// flushes events and notifies both players.
func (s *DuelService) afterResolve(ctx context.Context, duel *entities.Duel, res *duelResolution, batch *events.Batch) {
	s.remove(duel.ID)
	batch.Flush(s.publish)

	log.WithFields(log.Fields{
		"duel_id":       duel.ID,
		"winner_id":     duel.WinnerID(),
		"creator_roll":  *duel.CreatorRoll,
		"opponent_roll": *duel.OpponentRoll,
		"prize":         res.settlement.Prize,
		"commission":    res.settlement.Commission,
		"rerolls":       res.rerolls,
	}).Info("Duel resolved")

	for _, userID := range []int64{duel.CreatorID, *duel.OpponentID} {
		balance := s.ledger.GetBalance(ctx, userID)
		s.notify(ctx, userID, duelResultMessage(duel, userID, res.settlement, balance))
	}
}

// ListOpenDuels returns duels awaiting an opponent, newest first
func (s *DuelService) ListOpenDuels(ctx context.Context) []*entities.Duel {
	s.mu.Lock()
	slots := make([]*duelSlot, 0, len(s.duels))
	for _, slot := range s.duels {
		slots = append(slots, slot)
	}
	s.mu.Unlock()

	open := make([]*entities.Duel, 0, len(slots))
	for _, slot := range slots {
		slot.mu.Lock()
		if slot.duel.IsOpen() {
			open = append(open, slot.duel.Clone())
		}
		slot.mu.Unlock()
	}

	sort.Slice(open, func(i, j int) bool { return open[i].ID > open[j].ID })
	return open
}

// GetDuel returns a snapshot of an active duel
func (s *DuelService) GetDuel(ctx context.Context, duelID int64) (*entities.Duel, error) {
	slot := s.lookup(duelID)
	if slot == nil {
		return nil, fmt.Errorf("%w: duel %d", ErrNotFound, duelID)
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.duel.Clone(), nil
}

// GetDuelHistory returns the user's finished duels, newest first
func (s *DuelService) GetDuelHistory(ctx context.Context, userID int64) ([]*entities.Duel, error) {
	duels, err := s.store.LoadRecentDuelsForUser(ctx, userID, s.config.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load duel history: %w", err)
	}
	return duels, nil
}

// Restore reloads unfinished duels into the active set and moves the id counter
// past every stored duel. Joined duels are resolved only when
// ResolveJoinedOnRestore is set; otherwise they wait for ResolveStalledDuel.
func (s *DuelService) Restore(ctx context.Context) error {
	duels, err := s.store.LoadUnfinishedDuels(ctx)
	if err != nil {
		return fmt.Errorf("failed to load unfinished duels: %w", err)
	}
	maxID, err := s.store.MaxDuelID(ctx)
	if err != nil {
		return fmt.Errorf("failed to load max duel id: %w", err)
	}

	var joined []int64
	s.mu.Lock()
	for _, duel := range duels {
		if !duel.IsActive() {
			continue
		}
		s.duels[duel.ID] = &duelSlot{duel: duel}
		if duel.ID > maxID {
			maxID = duel.ID
		}
		if duel.Status == entities.DuelStatusJoined {
			joined = append(joined, duel.ID)
		}
	}
	if maxID >= s.nextID {
		s.nextID = maxID + 1
	}
	nextID := s.nextID
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"active_duels": len(duels),
		"joined_duels": len(joined),
		"next_id":      nextID,
	}).Info("Duels restored")

	if len(joined) == 0 {
		return nil
	}
	if !s.config.ResolveJoinedOnRestore {
		log.WithField("duel_ids", joined).Warn("Joined duels left unresolved, awaiting manual resolution")
		return nil
	}

	for _, id := range joined {
		if _, err := s.ResolveStalledDuel(ctx, id); err != nil && !errors.Is(err, ErrAlreadyFinished) {
			log.WithError(err).WithField("duel_id", id).Error("Failed to resolve joined duel on restore")
		}
	}
	return nil
}

func (s *DuelService) lookup(duelID int64) *duelSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duels[duelID]
}

func (s *DuelService) remove(duelID int64) {
	s.mu.Lock()
	delete(s.duels, duelID)
	s.mu.Unlock()
}

// persist hands a snapshot to the store. The store is write-behind, so this
// does not wait on I/O even though callers hold the duel lock.
func (s *DuelService) persist(ctx context.Context, duel *entities.Duel) {
	if err := s.store.SaveDuel(ctx, duel.Clone()); err != nil {
		log.WithError(err).WithField("duel_id", duel.ID).Error("Failed to persist duel")
	}
}

func (s *DuelService) publish(event events.Event) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

func (s *DuelService) notify(ctx context.Context, userID int64, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, message); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Failed to notify user")
	}
}
