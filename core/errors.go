package core

import "errors"

// ErrNotFound is returned when a requested record does not exist in storage.
var ErrNotFound = errors.New("not found")

// Domain errors. Every action surfaces one of these verbatim at the action
// boundary; callers match them with errors.Is.
var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidStartTime     = errors.New("start time must be at least 300 seconds after round creation")
	ErrRoundAlreadyExists   = errors.New("round with the provided name already exists")
	ErrRoundDoesNotExist    = errors.New("round with the provided name does not exist")
	ErrRoundAlreadyStarted  = errors.New("round with the provided name has already started")
	ErrRoundAlreadyEnded    = errors.New("round with the provided name already ended")
	ErrRoundStopTimePassed  = errors.New("round stop time already passed")
	ErrRoundStillInProgress = errors.New("round stop time has not yet been reached")

	ErrNoCoinsSent       = errors.New("exactly one coin must be deposited")
	ErrTooManyCoins      = errors.New("a maximum of one coin can be deposited")
	ErrDenomNotSupported = errors.New("the deposited denom is not supported")

	ErrBetAlreadyPlaced = errors.New("a bet has already been placed in this round")
	ErrBetNotFound      = errors.New("no bet found in the provided round")

	ErrWinAlreadyClaimed  = errors.New("win from the provided round has already been claimed")
	ErrFeesAlreadyClaimed = errors.New("fees for this round have already been claimed")
	ErrYouLost            = errors.New("cannot claim win from the provided round: bet lost")

	ErrInsufficientTreasuryDenomBalance = errors.New("insufficient treasury pool balance for the requested denom")
	ErrTreasuryDenomDoesNotExist        = errors.New("the provided denom does not exist in the treasury pool")
)
