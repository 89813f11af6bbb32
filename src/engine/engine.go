package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"prediction-engine/src/token"
)

// ExecContext identifies who is calling and at what block time (ns). HTTP
// callers can pin the block time for deterministic runs; a zero value falls
// back to the wall clock.
type ExecContext struct {
	Caller    string
	BlockTime int64
}

func (c ExecContext) now() int64 {
	if c.BlockTime != 0 {
		return c.BlockTime
	}
	return time.Now().UnixNano()
}

// Engine owns every market and the collateral escrow account. All entry
// points serialize on one mutex; the hot path is pure in-memory work, so a
// single lock keeps the cross-market token accounting trivially consistent.
type Engine struct {
	mu      sync.Mutex
	log     zerolog.Logger
	ledger  token.Ledger
	escrow  string // ledger account holding all market collateral
	judge   string // the only account allowed to finalize disputed markets
	markets map[uint64]*Market
	nextID  uint64
}

func New(log zerolog.Logger, ledger token.Ledger, escrowAccount, judge string) *Engine {
	return &Engine{
		log:     log,
		ledger:  ledger,
		escrow:  escrowAccount,
		judge:   judge,
		markets: make(map[uint64]*Market),
	}
}

// CreateMarketParams collects the user-supplied market fields. EndTime is ms
// since epoch.
type CreateMarketParams struct {
	Description         string
	ExtraInfo           string
	Outcomes            uint64
	OutcomeTags         []string
	Categories          []string
	EndTime             int64
	CreatorFeePercent   uint64
	AffiliateFeePercent uint64
	Category            string
}

// CreateMarket escrows the validity bond from the caller and opens the
// market. The bond returns to the creator only if the market finalizes on a
// valid outcome.
func (e *Engine) CreateMarket(ctx ExecContext, p CreateMarketParams) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p.Outcomes < 2 {
		return 0, ErrBadOutcomeCount
	}
	if MarketFeePercent+p.CreatorFeePercent+p.AffiliateFeePercent >= 100 {
		return 0, ErrBadFees
	}
	if p.EndTime*1_000_000 <= ctx.now() {
		return 0, ErrBadEndTime
	}

	if err := e.ledger.TransferFrom(ctx.Caller, e.escrow, e.escrow, ValidityBond); err != nil {
		return 0, err
	}

	id := e.nextID
	e.nextID++
	e.markets[id] = NewMarket(id, ctx.Caller, p.Description, p.ExtraInfo, p.Outcomes,
		p.OutcomeTags, p.Categories, p.EndTime, p.CreatorFeePercent, p.AffiliateFeePercent,
		p.Category)

	e.log.Info().Uint64("market_id", id).Str("creator", ctx.Caller).
		Uint64("outcomes", p.Outcomes).Int64("end_time_ms", p.EndTime).
		Msg("market created")
	return id, nil
}

// PlaceOrder escrows spend from the caller, runs the complementary-fill
// matching loop and rests any fundable remainder on the book.
func (e *Engine) PlaceOrder(ctx ExecContext, marketID, outcome, spend, price uint64, affiliate string) (*PlaceResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return nil, err
	}
	if m.Ended(ctx.now()) {
		return nil, ErrMarketEnded
	}
	if outcome >= m.NumOutcomes {
		return nil, ErrBadOutcome
	}
	if !ValidPrice(price) {
		return nil, ErrBadPrice
	}
	if spend < price {
		return nil, ErrSpendTooSmall
	}

	if err := e.ledger.TransferFrom(ctx.Caller, e.escrow, e.escrow, spend); err != nil {
		return nil, err
	}

	order := &Order{
		ID:        m.Books[outcome].NextID(),
		Owner:     ctx.Caller,
		Outcome:   outcome,
		Price:     price,
		Spend:     spend,
		Affiliate: affiliate,
		Status:    StatusOpen,
		CreatedAt: ctx.now(),
	}
	res := m.placeOrder(order)

	e.log.Info().Uint64("market_id", marketID).Uint64("order_id", order.ID).
		Str("owner", ctx.Caller).Uint64("outcome", outcome).
		Uint64("price", price).Uint64("spend", spend).
		Uint64("shares_filled", res.SharesFilled).Int("fills", len(res.Fills)).
		Msg("order placed")
	return res, nil
}

// CancelOrder refunds the unfilled remainder of the caller's open order. An
// order that already holds filled shares keeps its fill history so market
// sells and payouts can still price those shares.
func (e *Engine) CancelOrder(ctx ExecContext, marketID, outcome, orderID uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return 0, err
	}
	if m.Ended(ctx.now()) {
		return 0, ErrMarketEnded
	}
	if outcome >= m.NumOutcomes {
		return 0, ErrBadOutcome
	}
	book := m.Books[outcome]
	order, ok := book.Get(orderID)
	if !ok {
		return 0, ErrOrderNotFound
	}
	if order.Owner != ctx.Caller {
		return 0, ErrNotOrderOwner
	}

	refund := order.Remaining()
	if err := e.ledger.Transfer(e.escrow, ctx.Caller, refund); err != nil {
		return 0, err
	}
	book.Remove(order)
	order.Spend = order.Filled
	order.Status = StatusCancelled
	if order.Filled > 0 {
		book.AppendFilled(order)
	}

	e.log.Info().Uint64("market_id", marketID).Uint64("order_id", orderID).
		Uint64("refund", refund).Msg("order cancelled")
	return refund, nil
}

// DynamicMarketSell sells up to shares of the caller's outcome position into
// the open book and pays the proceeds minus the market fee immediately.
func (e *Engine) DynamicMarketSell(ctx ExecContext, marketID, outcome, shares uint64) (*SellResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return nil, err
	}
	if m.Ended(ctx.now()) {
		return nil, ErrMarketEnded
	}
	if outcome >= m.NumOutcomes {
		return nil, ErrBadOutcome
	}
	if shares == 0 {
		return nil, ErrNoSharesToSell
	}

	res, err := m.marketSell(ctx.Caller, outcome, shares)
	if err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(e.escrow, ctx.Caller, res.Payout); err != nil {
		return nil, err
	}

	e.log.Info().Uint64("market_id", marketID).Str("seller", ctx.Caller).
		Uint64("outcome", outcome).Uint64("shares_sold", res.SharesSold).
		Uint64("payout", res.Payout).Msg("market sell")
	return res, nil
}

// GetMarketSellDepth quotes the collateral a sell of up to shares would
// raise right now and how many shares the book absorbs, ignoring the
// caller's actual balance.
func (e *Engine) GetMarketSellDepth(marketID, outcome, shares uint64) (spendable, fillable uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return 0, 0, err
	}
	if outcome >= m.NumOutcomes {
		return 0, 0, ErrBadOutcome
	}
	spendable, fillable = m.GetMarketSellDepth(outcome, shares)
	return spendable, fillable, nil
}

// ResoluteMarket stakes collateral on the initial (round 0) verdict of an
// ended market. Stake beyond the missing bond is never escrowed.
func (e *Engine) ResoluteMarket(ctx ExecContext, marketID uint64, verdict Verdict, stake uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return 0, err
	}
	if m.Finalized {
		return 0, ErrAlreadyFinalized
	}
	if !m.Ended(ctx.now()) {
		return 0, ErrMarketNotEnded
	}
	if m.Resoluted {
		return 0, ErrAlreadyResoluted
	}
	if err := e.checkVerdict(m, verdict); err != nil {
		return 0, err
	}
	if e.ledger.BalanceOf(ctx.Caller) < stake {
		return 0, ErrStakeBalance
	}

	accepted := m.stakeAccepted(verdict, stake)
	if err := e.ledger.TransferFrom(ctx.Caller, e.escrow, e.escrow, accepted); err != nil {
		return 0, err
	}
	m.applyResolutionStake(ctx.Caller, verdict, accepted, ctx.now())

	e.log.Info().Uint64("market_id", marketID).Str("staker", ctx.Caller).
		Uint64("accepted", accepted).Bool("resoluted", m.Resoluted).
		Msg("resolution stake")
	return accepted, nil
}

// DisputeMarket stakes on an alternative verdict during the dispute window.
// Only one dispute round exists in this version; a bonded dispute hands the
// final call to the judge.
func (e *Engine) DisputeMarket(ctx ExecContext, marketID uint64, verdict Verdict, stake uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return 0, err
	}
	if m.Finalized {
		return 0, ErrAlreadyFinalized
	}
	if !m.Resoluted {
		return 0, ErrNotResoluted
	}
	if m.Disputed {
		return 0, ErrOneDisputeRound
	}
	bonded := m.bondedWindow()
	if ctx.now() >= bonded.EndTime {
		return 0, ErrWindowClosed
	}
	if err := e.checkVerdict(m, verdict); err != nil {
		return 0, err
	}
	if verdict == bonded.Winning {
		return 0, ErrSameOutcome
	}
	if e.ledger.BalanceOf(ctx.Caller) < stake {
		return 0, ErrStakeBalance
	}

	accepted := m.stakeAccepted(verdict, stake)
	if err := e.ledger.TransferFrom(ctx.Caller, e.escrow, e.escrow, accepted); err != nil {
		return 0, err
	}
	m.applyResolutionStake(ctx.Caller, verdict, accepted, ctx.now())

	e.log.Info().Uint64("market_id", marketID).Str("staker", ctx.Caller).
		Uint64("accepted", accepted).Bool("disputed", m.Disputed).
		Msg("dispute stake")
	return accepted, nil
}

// FinalizeMarket locks in the verdict. Undisputed markets adopt the bonded
// window's winner once its dispute window lapses, ignoring any verdict the
// caller supplies. Disputed markets are settled by the judge, who must state
// a verdict. A valid outcome returns the validity bond to the creator.
func (e *Engine) FinalizeMarket(ctx ExecContext, marketID uint64, verdict *Verdict) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return err
	}
	if m.Finalized {
		return ErrAlreadyFinalized
	}
	if !m.Resoluted {
		return ErrNotResoluted
	}

	var final Verdict
	if m.Disputed {
		if ctx.Caller != e.judge {
			return ErrOnlyJudge
		}
		if verdict == nil {
			return ErrInvalidOutcome
		}
		if err := e.checkVerdict(m, *verdict); err != nil {
			return err
		}
		final = *verdict
	} else {
		bonded := m.bondedWindow()
		if ctx.now() < bonded.EndTime {
			return ErrWindowOpen
		}
		final = bonded.Winning
	}

	m.Finalized = true
	m.final = final
	if !final.IsInvalid() {
		if err := e.ledger.Transfer(e.escrow, m.Creator, ValidityBond); err != nil {
			return err
		}
	}

	idx, valid := final.Index()
	e.log.Info().Uint64("market_id", marketID).Bool("valid", valid).
		Uint64("winning_outcome", idx).Msg("market finalized")
	return nil
}

// WithdrawResolutionStake returns stake placed on a losing, non-bonded
// verdict of a finalized market. Stake on the final verdict is paid out
// through claims instead, and the bonded stake of an overturned window is
// forfeited to the reward pool.
func (e *Engine) WithdrawResolutionStake(ctx ExecContext, marketID, round uint64, verdict Verdict) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return 0, err
	}
	if !m.Finalized {
		return 0, ErrNotFinalized
	}
	if verdict == m.final {
		return 0, ErrWinningWithdraw
	}

	var window *ResolutionWindow
	for _, w := range m.Windows {
		if w.Round == round {
			window = w
			break
		}
	}
	if window == nil {
		return 0, ErrNothingToWithdraw
	}
	if window.Bonded() && window.Winning == verdict {
		return 0, ErrStakeForfeited
	}

	amount := window.withdraw(ctx.Caller, verdict)
	if amount == 0 {
		return 0, ErrNothingToWithdraw
	}
	if err := e.ledger.Transfer(e.escrow, ctx.Caller, amount); err != nil {
		return 0, err
	}

	e.log.Info().Uint64("market_id", marketID).Uint64("round", round).
		Str("staker", ctx.Caller).Uint64("amount", amount).
		Msg("resolution stake withdrawn")
	return amount, nil
}

// GetClaimable prices the account's position against the final verdict, or
// against the provisional winner while the dispute window is still running.
func (e *Engine) GetClaimable(marketID uint64, account string) (Claimable, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return Claimable{}, err
	}
	v, ok := m.winner()
	if !ok {
		return Claimable{}, ErrNotResoluted
	}
	return m.claimable(account, v), nil
}

// ClaimEarnings settles the account's position exactly once and pays the
// creator and affiliate their cut of the account's winnings.
func (e *Engine) ClaimEarnings(ctx ExecContext, marketID uint64, account string) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return 0, err
	}
	if !m.Finalized {
		return 0, ErrNotFinalized
	}
	if m.claimed[account] {
		return 0, ErrAlreadyClaimed
	}

	c := m.claimable(account, m.final)

	if err := e.ledger.Transfer(e.escrow, account, c.Total); err != nil {
		return 0, err
	}
	if c.CreatorFee > 0 {
		if err := e.ledger.Transfer(e.escrow, m.Creator, c.CreatorFee); err != nil {
			return 0, err
		}
	}
	if c.AffiliateFee > 0 {
		if err := e.ledger.Transfer(e.escrow, m.affiliateOf(account), c.AffiliateFee); err != nil {
			return 0, err
		}
	}
	m.claimed[account] = true

	e.log.Info().Uint64("market_id", marketID).Str("account", account).
		Uint64("total", c.Total).Uint64("creator_fee", c.CreatorFee).
		Uint64("affiliate_fee", c.AffiliateFee).Msg("earnings claimed")
	return c.Total, nil
}

func (e *Engine) market(id uint64) (*Market, error) {
	m, ok := e.markets[id]
	if !ok {
		return nil, ErrMarketNotFound
	}
	return m, nil
}

// checkVerdict bounds a verdict against the market's outcome count; the
// invalid verdict is always in bounds.
func (e *Engine) checkVerdict(m *Market, v Verdict) error {
	if idx, ok := v.Index(); ok && idx >= m.NumOutcomes {
		return ErrInvalidOutcome
	}
	return nil
}
