package entities

import (
	"time"
)

// DuelStatus is the lifecycle state of a duel
type DuelStatus string

const (
	DuelStatusOpen      DuelStatus = "open"      // awaiting an opponent
	DuelStatusJoined    DuelStatus = "joined"    // both stakes held, awaiting resolution
	DuelStatusResolved  DuelStatus = "resolved"  // terminal, paid out
	DuelStatusCancelled DuelStatus = "cancelled" // terminal, stake returned to creator
)

// DuelWinner identifies the winning side of a duel
type DuelWinner string

const (
	DuelWinnerPending  DuelWinner = "pending"
	DuelWinnerCreator  DuelWinner = "creator"
	DuelWinnerOpponent DuelWinner = "opponent"
)

// Duel is a 1v1 fixed-stake dice wager
type Duel struct {
	ID           int64      `db:"id"`
	CreatorID    int64      `db:"creator_id"`
	OpponentID   *int64     `db:"opponent_id"` // NULL until joined
	Stake        int64      `db:"stake"`
	CreatorRoll  *int       `db:"creator_roll"`  // NULL until resolved
	OpponentRoll *int       `db:"opponent_roll"` // NULL until resolved
	Winner       DuelWinner `db:"winner"`
	Status       DuelStatus `db:"status"`
	Finished     bool       `db:"finished"`
	CreatedAt    time.Time  `db:"created_at"`
	FinishedAt   *time.Time `db:"finished_at"`
}

// NewDuel returns an open duel for creator at the given stake
func NewDuel(id, creatorID, stake int64, createdAt time.Time) *Duel {
	return &Duel{
		ID:        id,
		CreatorID: creatorID,
		Stake:     stake,
		Winner:    DuelWinnerPending,
		Status:    DuelStatusOpen,
		CreatedAt: createdAt,
	}
}

// IsOpen returns true while the duel can still be joined
func (d *Duel) IsOpen() bool {
	return d.Status == DuelStatusOpen && d.OpponentID == nil
}

// IsActive returns true for duels that still belong in the active set
func (d *Duel) IsActive() bool {
	return d.Status == DuelStatusOpen || d.Status == DuelStatusJoined
}

// Bank is the total staked by both sides
func (d *Duel) Bank() int64 {
	return 2 * d.Stake
}

// Join records the opponent and moves the duel to joined
func (d *Duel) Join(opponentID int64) {
	d.OpponentID = &opponentID
	d.Status = DuelStatusJoined
}

// Resolve records a decisive pair of rolls. Rolls must differ.
func (d *Duel) Resolve(creatorRoll, opponentRoll int, at time.Time) {
	d.CreatorRoll = &creatorRoll
	d.OpponentRoll = &opponentRoll
	if creatorRoll > opponentRoll {
		d.Winner = DuelWinnerCreator
	} else {
		d.Winner = DuelWinnerOpponent
	}
	d.Status = DuelStatusResolved
	d.Finished = true
	d.FinishedAt = &at
}

// Cancel marks the duel as withdrawn by its creator
func (d *Duel) Cancel(at time.Time) {
	d.Status = DuelStatusCancelled
	d.Finished = true
	d.FinishedAt = &at
}

// WinnerID returns the user id of the winning side, or 0 while pending
func (d *Duel) WinnerID() int64 {
	switch d.Winner {
	case DuelWinnerCreator:
		return d.CreatorID
	case DuelWinnerOpponent:
		if d.OpponentID != nil {
			return *d.OpponentID
		}
	}
	return 0
}

// IsParticipant reports whether userID played in the duel
func (d *Duel) IsParticipant(userID int64) bool {
	return d.CreatorID == userID || (d.OpponentID != nil && *d.OpponentID == userID)
}

// RollsFor returns the user's own roll and the opponent's roll
func (d *Duel) RollsFor(userID int64) (own, other int) {
	if d.CreatorRoll == nil || d.OpponentRoll == nil {
		return 0, 0
	}
	if userID == d.CreatorID {
		return *d.CreatorRoll, *d.OpponentRoll
	}
	return *d.OpponentRoll, *d.CreatorRoll
}

// ProfitFor is the user's net result on a resolved duel: +stake on a win,
// -stake on a loss. Commission is not included.
func (d *Duel) ProfitFor(userID int64) int64 {
	if d.Status != DuelStatusResolved || !d.IsParticipant(userID) {
		return 0
	}
	if d.WinnerID() == userID {
		return d.Stake
	}
	return -d.Stake
}

// Clone returns a deep copy safe to hand outside the owning lock
func (d *Duel) Clone() *Duel {
	c := *d
	if d.OpponentID != nil {
		v := *d.OpponentID
		c.OpponentID = &v
	}
	if d.CreatorRoll != nil {
		v := *d.CreatorRoll
		c.CreatorRoll = &v
	}
	if d.OpponentRoll != nil {
		v := *d.OpponentRoll
		c.OpponentRoll = &v
	}
	if d.FinishedAt != nil {
		v := *d.FinishedAt
		c.FinishedAt = &v
	}
	return &c
}
