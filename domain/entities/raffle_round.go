package entities

import (
	"time"
)

// RaffleBet is one entry in a raffle round. Each entry carries the round's fixed stake.
type RaffleBet struct {
	RoundID  int64     `db:"raffle_id"`
	Sequence int       `db:"sequence"`
	UserID   int64     `db:"user_id"`
	Amount   int64     `db:"amount"`
	PlacedAt time.Time `db:"created_at"`
}

// RaffleRound is one pooled "Banker" round
type RaffleRound struct {
	ID           int64         `db:"id"`
	Stake        int64         `db:"stake"` // 0 until the first bet
	Bank         int64         `db:"total_bank"`
	WinnerID     *int64        `db:"winner_id"`
	Finished     bool          `db:"finished"`
	Refunded     bool          `db:"refunded"`
	DrawAt       *time.Time    `db:"draw_at"` // NULL until armed
	CreatedAt    time.Time     `db:"created_at"`
	FinishedAt   *time.Time    `db:"finished_at"`
	Bets         []RaffleBet   `db:"-"`
	Participants []int64       `db:"-"` // distinct bettors in first-bet order
	UserBets     map[int64]int `db:"-"`
}

// NewRaffleRound returns an empty collecting round
func NewRaffleRound(id int64, createdAt time.Time) *RaffleRound {
	return &RaffleRound{
		ID:        id,
		CreatedAt: createdAt,
		UserBets:  make(map[int64]int),
	}
}

// HasStake reports whether the first bet has fixed the entry stake
func (r *RaffleRound) HasStake() bool {
	return r.Stake > 0
}

// IsArmed reports whether the draw deadline has been set
func (r *RaffleRound) IsArmed() bool {
	return r.DrawAt != nil
}

// ParticipantCount is the number of distinct bettors
func (r *RaffleRound) ParticipantCount() int {
	return len(r.Participants)
}

// BetCountFor returns how many entries userID holds in this round
func (r *RaffleRound) BetCountFor(userID int64) int {
	return r.UserBets[userID]
}

// AddBet appends an entry. The first bet fixes the stake.
func (r *RaffleRound) AddBet(userID, amount int64, at time.Time) RaffleBet {
	if !r.HasStake() {
		r.Stake = amount
	}
	if r.UserBets == nil {
		r.UserBets = make(map[int64]int)
	}
	if r.UserBets[userID] == 0 {
		r.Participants = append(r.Participants, userID)
	}
	r.UserBets[userID]++
	r.Bank += amount

	bet := RaffleBet{
		RoundID:  r.ID,
		Sequence: len(r.Bets) + 1,
		UserID:   userID,
		Amount:   amount,
		PlacedAt: at,
	}
	r.Bets = append(r.Bets, bet)
	return bet
}

// Arm sets the draw deadline. It returns false if the round was already armed.
func (r *RaffleRound) Arm(deadline time.Time) bool {
	if r.DrawAt != nil {
		return false
	}
	r.DrawAt = &deadline
	return true
}

// SecondsRemaining returns whole seconds until the deadline, clamped at zero.
// ok is false while the round is not armed.
func (r *RaffleRound) SecondsRemaining(now time.Time) (seconds int, ok bool) {
	if r.DrawAt == nil {
		return 0, false
	}
	left := int(r.DrawAt.Sub(now).Seconds())
	if left < 0 {
		left = 0
	}
	return left, true
}

// FinishWithWinner closes the round with a winning bettor
func (r *RaffleRound) FinishWithWinner(winnerID int64, at time.Time) {
	r.WinnerID = &winnerID
	r.Finished = true
	r.FinishedAt = &at
}

// FinishRefunded closes the round as a no-contest
func (r *RaffleRound) FinishRefunded(at time.Time) {
	r.Refunded = true
	r.Finished = true
	r.FinishedAt = &at
}

// RefundsByUser sums the stake each bettor contributed
func (r *RaffleRound) RefundsByUser() map[int64]int64 {
	refunds := make(map[int64]int64, len(r.Participants))
	for _, bet := range r.Bets {
		refunds[bet.UserID] += bet.Amount
	}
	return refunds
}

// Rebuild recomputes the derived participant and count fields from Bets.
// Used after loading a round from storage.
func (r *RaffleRound) Rebuild() {
	r.Participants = nil
	r.UserBets = make(map[int64]int)
	var bank int64
	for _, bet := range r.Bets {
		if r.UserBets[bet.UserID] == 0 {
			r.Participants = append(r.Participants, bet.UserID)
		}
		r.UserBets[bet.UserID]++
		bank += bet.Amount
		if r.Stake == 0 {
			r.Stake = bet.Amount
		}
	}
	r.Bank = bank
}

// Clone returns a deep copy safe to hand outside the owning lock
func (r *RaffleRound) Clone() *RaffleRound {
	c := *r
	if r.WinnerID != nil {
		v := *r.WinnerID
		c.WinnerID = &v
	}
	if r.DrawAt != nil {
		v := *r.DrawAt
		c.DrawAt = &v
	}
	if r.FinishedAt != nil {
		v := *r.FinishedAt
		c.FinishedAt = &v
	}
	c.Bets = append([]RaffleBet(nil), r.Bets...)
	c.Participants = append([]int64(nil), r.Participants...)
	c.UserBets = make(map[int64]int, len(r.UserBets))
	for k, v := range r.UserBets {
		c.UserBets[k] = v
	}
	return &c
}

// RaffleStatus is the view of the current round for one user
type RaffleStatus struct {
	Active               bool
	RoundID              int64
	Stake                int64
	Bank                 int64
	Participants         int
	TotalBets            int
	UserBets             int
	SecondsRemaining     *int // nil while awaiting participants
	AwaitingParticipants int  // how many more distinct bettors are needed to arm
}

// RaffleBetReceipt is returned to the bettor after an accepted bet
type RaffleBetReceipt struct {
	RaffleStatus
	Bet     RaffleBet
	Balance int64
	Armed   bool // true if this bet armed the draw timer
}

// RaffleResult describes how a round ended
type RaffleResult struct {
	Round      *RaffleRound
	Settlement Settlement
	Refunded   bool
	WinnerID   int64
}

// StatusFor builds the status view of the round for userID
func (r *RaffleRound) StatusFor(userID int64, now time.Time) RaffleStatus {
	if r == nil || r.Finished || len(r.Bets) == 0 {
		return RaffleStatus{}
	}
	status := RaffleStatus{
		Active:       true,
		RoundID:      r.ID,
		Stake:        r.Stake,
		Bank:         r.Bank,
		Participants: r.ParticipantCount(),
		TotalBets:    len(r.Bets),
		UserBets:     r.BetCountFor(userID),
	}
	if seconds, ok := r.SecondsRemaining(now); ok {
		status.SecondsRemaining = &seconds
	} else if need := 2 - r.ParticipantCount(); need > 0 {
		status.AwaitingParticipants = need
	}
	return status
}
