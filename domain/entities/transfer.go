package entities

import "time"

// Transfer is a user-to-user balance movement
type Transfer struct {
	ID        int64     `db:"id"`
	FromID    int64     `db:"from_id"`
	ToID      int64     `db:"to_id"`
	Amount    int64     `db:"amount"`
	CreatedAt time.Time `db:"created_at"`
}
