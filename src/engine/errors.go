package engine

import "errors"

// Resolution state machine errors. The exact strings are part of the engine
// contract and are asserted by the test suite.
var (
	ErrNotResoluted      = errors.New("market isn't resoluted yet")
	ErrAlreadyResoluted  = errors.New("market is already resoluted")
	ErrAlreadyFinalized  = errors.New("market is already finalized")
	ErrWindowOpen        = errors.New("dispute window still open")
	ErrWindowClosed      = errors.New("dispute window is closed, market can be finalized")
	ErrOnlyJudge         = errors.New("only the judge can resolute disputed markets")
	ErrInvalidOutcome    = errors.New("invalid winning outcome")
	// The misspelling is deliberate: the message is pinned by callers.
	ErrSameOutcome       = errors.New("same oucome as last resolution")
	ErrOneDisputeRound   = errors.New("for this version, there's only 1 round of dispute")
	ErrStakeBalance      = errors.New("not enough balance to cover stake")
	ErrWinningWithdraw   = errors.New("you cant cancel dispute stake for winning outcome")
	ErrStakeForfeited    = errors.New("dispute stake was forfeited")
	ErrNothingToWithdraw = errors.New("no dispute stake to withdraw")
	ErrNotFinalized      = errors.New("market isn't finalized yet")
)

// Market and order validation errors.
var (
	ErrMarketNotFound   = errors.New("market doesn't exist")
	ErrMarketEnded      = errors.New("market has already ended")
	ErrMarketNotEnded   = errors.New("market hasn't ended yet")
	ErrBadOutcome       = errors.New("outcome index out of range")
	ErrBadPrice         = errors.New("price must be between 1 and 99")
	ErrSpendTooSmall    = errors.New("spend must cover at least one share")
	ErrBadOutcomeCount  = errors.New("market needs at least 2 outcomes")
	ErrBadFees          = errors.New("fee percentages sum above 100")
	ErrBadEndTime       = errors.New("market end time is in the past")
	ErrOrderNotFound    = errors.New("order doesn't exist")
	ErrNotOrderOwner    = errors.New("only the order owner can cancel it")
	ErrNoSharesToSell   = errors.New("no shares to sell")
	ErrAlreadyClaimed   = errors.New("earnings already claimed")
)
