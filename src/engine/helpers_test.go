package engine

import (
	"testing"

	"github.com/rs/zerolog"

	"prediction-engine/src/token"
)

const (
	escrowAccount = "market-escrow"
	judgeAccount  = "judge"

	// Market close used by every test market, in ms. Trading happens at
	// startNs, resolution at or after endNs.
	endMs   int64 = 1_000_000
	startNs int64 = 1_000_000_000
	endNs   int64 = endMs * 1_000_000
)

func newTestEngine() (*Engine, token.Ledger) {
	ledger := token.NewInMemory()
	return New(zerolog.Nop(), ledger, escrowAccount, judgeAccount), ledger
}

// fund mints collateral for an account and grants the escrow account a full
// allowance over it, mirroring the faucet flow.
func fund(t *testing.T, ledger token.Ledger, account string, amount uint64) {
	t.Helper()
	ledger.Mint(account, amount)
	if err := ledger.SetAllowance(account, escrowAccount, ledger.BalanceOf(account)); err != nil {
		t.Fatalf("allowance couldn't be set: %v", err)
	}
}

func at(caller string, blockTimeNs int64) ExecContext {
	return ExecContext{Caller: caller, BlockTime: blockTimeNs}
}

func createTestMarket(t *testing.T, e *Engine, ledger token.Ledger, creator string, outcomes uint64) uint64 {
	t.Helper()
	fund(t, ledger, creator, 100*CollateralUnit)
	id, err := e.CreateMarket(at(creator, startNs), CreateMarketParams{
		Description: "test market",
		Outcomes:    outcomes,
		OutcomeTags: make([]string, outcomes),
		EndTime:     endMs,
	})
	if err != nil {
		t.Fatalf("create market failed unexpectedly: %v", err)
	}
	return id
}

func mustPlaceOrder(t *testing.T, e *Engine, caller string, marketID, outcome, spend, price uint64) *PlaceResult {
	t.Helper()
	res, err := e.PlaceOrder(at(caller, startNs), marketID, outcome, spend, price, "")
	if err != nil {
		t.Fatalf("order placement failed unexpectedly: %v", err)
	}
	return res
}

func shareBalance(t *testing.T, e *Engine, marketID uint64, account string, outcome uint64) uint64 {
	t.Helper()
	balance, err := e.GetOutcomeShareBalance(marketID, account, outcome)
	if err != nil {
		t.Fatalf("share balance query failed: %v", err)
	}
	return balance
}

func openLen(t *testing.T, e *Engine, marketID, outcome uint64) int {
	t.Helper()
	n, err := e.GetOpenOrdersLen(marketID, outcome)
	if err != nil {
		t.Fatalf("open orders query failed: %v", err)
	}
	return n
}

func filledLen(t *testing.T, e *Engine, marketID, outcome uint64) int {
	t.Helper()
	n, err := e.GetFilledOrdersLen(marketID, outcome)
	if err != nil {
		t.Fatalf("filled orders query failed: %v", err)
	}
	return n
}

func mustResolute(t *testing.T, e *Engine, caller string, marketID uint64, v Verdict, stake uint64, blockTimeNs int64) uint64 {
	t.Helper()
	accepted, err := e.ResoluteMarket(at(caller, blockTimeNs), marketID, v, stake)
	if err != nil {
		t.Fatalf("market resolution failed unexpectedly: %v", err)
	}
	return accepted
}

func mustDispute(t *testing.T, e *Engine, caller string, marketID uint64, v Verdict, stake uint64, blockTimeNs int64) uint64 {
	t.Helper()
	accepted, err := e.DisputeMarket(at(caller, blockTimeNs), marketID, v, stake)
	if err != nil {
		t.Fatalf("market dispute failed unexpectedly: %v", err)
	}
	return accepted
}

func mustFinalize(t *testing.T, e *Engine, caller string, marketID uint64, v *Verdict, blockTimeNs int64) {
	t.Helper()
	if err := e.FinalizeMarket(at(caller, blockTimeNs), marketID, v); err != nil {
		t.Fatalf("market finalization failed unexpectedly: %v", err)
	}
}

func mustClaimable(t *testing.T, e *Engine, marketID uint64, account string) uint64 {
	t.Helper()
	c, err := e.GetClaimable(marketID, account)
	if err != nil {
		t.Fatalf("get claimable failed: %v", err)
	}
	return c.Total
}

func outcomep(v uint64) *Verdict {
	verdict := OutcomeVerdict(v)
	return &verdict
}
