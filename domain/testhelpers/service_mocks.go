package testhelpers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"dicebank/domain/entities"
	"dicebank/domain/events"

	"github.com/stretchr/testify/mock"
)

// ErrScriptExhausted is returned by ScriptedRandomSource once its queue runs dry
var ErrScriptExhausted = errors.New("scripted random source exhausted")

// MockNotifier is a mock implementation of interfaces.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID int64, message string) error {
	args := m.Called(ctx, userID, message)
	return args.Error(0)
}

// RecordingNotifier keeps every message it is asked to deliver
type RecordingNotifier struct {
	mu       sync.Mutex
	Messages map[int64][]string
	Err      error
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{Messages: make(map[int64][]string)}
}

func (n *RecordingNotifier) Notify(ctx context.Context, userID int64, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Messages[userID] = append(n.Messages[userID], message)
	return n.Err
}

// For returns a copy of the messages delivered to userID
func (n *RecordingNotifier) For(userID int64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.Messages[userID]...)
}

// RecordingPublisher captures published events synchronously
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *RecordingPublisher) Publish(event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// Events returns a copy of everything published so far
func (p *RecordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

// OfType returns the published events of type t
func (p *RecordingPublisher) OfType(t events.EventType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, e := range p.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

// ScriptedRandomSource replays fixed die rolls and picks in order
type ScriptedRandomSource struct {
	mu    sync.Mutex
	rolls []int
	picks []int
	Err   error
}

func NewScriptedRandomSource(rolls []int, picks []int) *ScriptedRandomSource {
	return &ScriptedRandomSource{rolls: rolls, picks: picks}
}

func (s *ScriptedRandomSource) RollDie() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	if len(s.rolls) == 0 {
		return 0, ErrScriptExhausted
	}
	v := s.rolls[0]
	s.rolls = s.rolls[1:]
	return v, nil
}

func (s *ScriptedRandomSource) PickIndex(n int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	if len(s.picks) == 0 {
		return 0, ErrScriptExhausted
	}
	v := s.picks[0]
	s.picks = s.picks[1:]
	if v >= n {
		return 0, fmt.Errorf("scripted pick %d out of range for %d entries", v, n)
	}
	return v, nil
}

// PushRolls appends rolls to the script
func (s *ScriptedRandomSource) PushRolls(rolls ...int) {
	s.mu.Lock()
	s.rolls = append(s.rolls, rolls...)
	s.mu.Unlock()
}

// PushPicks appends picks to the script
func (s *ScriptedRandomSource) PushPicks(picks ...int) {
	s.mu.Lock()
	s.picks = append(s.picks, picks...)
	s.mu.Unlock()
}

// ManualScheduler holds draw jobs until a test fires them
type ManualScheduler struct {
	mu     sync.Mutex
	jobs   map[int64]func()
	delays map[int64]time.Duration
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{
		jobs:   make(map[int64]func()),
		delays: make(map[int64]time.Duration),
	}
}

func (s *ManualScheduler) Schedule(roundID int64, delay time.Duration, job func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[roundID]; exists {
		return false
	}
	s.jobs[roundID] = job
	s.delays[roundID] = delay
	return true
}

func (s *ManualScheduler) Cancel(roundID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[roundID]; !exists {
		return false
	}
	delete(s.jobs, roundID)
	delete(s.delays, roundID)
	return true
}

// Pending reports whether a job is armed for roundID and its delay
func (s *ManualScheduler) Pending(roundID int64) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.delays[roundID]
	return d, ok
}

// Fire runs the job for roundID as the timer would. It returns false if none was armed.
func (s *ManualScheduler) Fire(roundID int64) bool {
	s.mu.Lock()
	job, ok := s.jobs[roundID]
	delete(s.jobs, roundID)
	delete(s.delays, roundID)
	s.mu.Unlock()

	if !ok {
		return false
	}
	job()
	return true
}

// MemoryGateway is an in-memory interfaces.PersistenceGateway
type MemoryGateway struct {
	mu        sync.Mutex
	Duels     map[int64]*entities.Duel
	Rounds    map[int64]*entities.RaffleRound
	Bets      map[int64][]entities.RaffleBet
	Balances  map[int64]int64
	Transfers []*entities.Transfer
	Now       func() time.Time
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		Duels:    make(map[int64]*entities.Duel),
		Rounds:   make(map[int64]*entities.RaffleRound),
		Bets:     make(map[int64][]entities.RaffleBet),
		Balances: make(map[int64]int64),
		Now:      time.Now,
	}
}

func (g *MemoryGateway) SaveDuel(ctx context.Context, duel *entities.Duel) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Duels[duel.ID] = duel.Clone()
	return nil
}

func (g *MemoryGateway) LoadUnfinishedDuels(ctx context.Context) ([]*entities.Duel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*entities.Duel
	for _, d := range g.Duels {
		if d.IsActive() {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *MemoryGateway) LoadRecentDuelsForUser(ctx context.Context, userID int64, limit int) ([]*entities.Duel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*entities.Duel
	for _, d := range g.Duels {
		if d.Status == entities.DuelStatusResolved && d.IsParticipant(userID) {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *MemoryGateway) MaxDuelID(ctx context.Context) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var maxID int64
	for id := range g.Duels {
		if id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

func (g *MemoryGateway) SaveRaffleRound(ctx context.Context, round *entities.RaffleRound) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	header := round.Clone()
	header.Bets = nil
	g.Rounds[round.ID] = header
	return nil
}

func (g *MemoryGateway) SaveBet(ctx context.Context, roundID int64, bet entities.RaffleBet) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, existing := range g.Bets[roundID] {
		if existing.Sequence == bet.Sequence {
			return nil
		}
	}
	g.Bets[roundID] = append(g.Bets[roundID], bet)
	return nil
}

func (g *MemoryGateway) LoadUnfinishedRaffleRounds(ctx context.Context) ([]*entities.RaffleRound, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*entities.RaffleRound
	for id, r := range g.Rounds {
		if r.Finished {
			continue
		}
		round := r.Clone()
		round.Bets = append([]entities.RaffleBet(nil), g.Bets[id]...)
		sort.Slice(round.Bets, func(i, j int) bool { return round.Bets[i].Sequence < round.Bets[j].Sequence })
		out = append(out, round)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (g *MemoryGateway) MaxRaffleRoundID(ctx context.Context) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var maxID int64
	for id := range g.Rounds {
		if id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

func (g *MemoryGateway) LoadRoundStatsWindow(ctx context.Context, days int) ([]entities.UserDuelStats, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.Now().Add(-time.Duration(days) * 24 * time.Hour)
	byUser := make(map[int64]*entities.UserDuelStats)
	add := func(userID, profit int64) {
		s, ok := byUser[userID]
		if !ok {
			s = &entities.UserDuelStats{UserID: userID}
			byUser[userID] = s
		}
		s.Profit += profit
		s.Games++
	}
	for _, d := range g.Duels {
		if d.Status != entities.DuelStatusResolved || d.FinishedAt == nil || d.FinishedAt.Before(cutoff) {
			continue
		}
		add(d.CreatorID, d.ProfitFor(d.CreatorID))
		add(*d.OpponentID, d.ProfitFor(*d.OpponentID))
	}

	out := make([]entities.UserDuelStats, 0, len(byUser))
	for _, s := range byUser {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (g *MemoryGateway) SaveBalance(ctx context.Context, userID, balance int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Balances[userID] = balance
	return nil
}

func (g *MemoryGateway) LoadBalances(ctx context.Context) (map[int64]int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[int64]int64, len(g.Balances))
	for k, v := range g.Balances {
		out[k] = v
	}
	return out, nil
}

func (g *MemoryGateway) SaveTransfer(ctx context.Context, transfer *entities.Transfer) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	t := *transfer
	g.Transfers = append(g.Transfers, &t)
	return nil
}

// Balance returns the last mirrored balance for userID
func (g *MemoryGateway) Balance(userID int64) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.Balances[userID]
	return b, ok
}

// Duel returns the stored copy of a duel
func (g *MemoryGateway) Duel(id int64) (*entities.Duel, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.Duels[id]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// Round returns the stored round header with its stored bets
func (g *MemoryGateway) Round(id int64) (*entities.RaffleRound, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.Rounds[id]
	if !ok {
		return nil, false
	}
	round := r.Clone()
	round.Bets = append([]entities.RaffleBet(nil), g.Bets[id]...)
	return round, true
}
