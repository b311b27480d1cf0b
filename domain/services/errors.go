package services

import (
	"errors"
	"fmt"
)

// Errors returned to the request layer. All are recoverable by the caller:
// none of them leave a balance change behind.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidStake      = fmt.Errorf("%w: stake below minimum", ErrInvalidInput)
	ErrBelowMinimum      = fmt.Errorf("%w: bet below minimum", ErrInvalidInput)
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrNotOwner          = errors.New("not the owner")
	ErrAlreadyJoined     = errors.New("already joined")
	ErrAlreadyFinished   = errors.New("already finished")
	ErrWindowExpired     = errors.New("cancel window expired")
	ErrStakeMismatch     = errors.New("stake mismatch")
	ErrLimitExceeded     = errors.New("bet limit exceeded")
	ErrSelfJoin          = errors.New("cannot join your own duel")
)
