package engine

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"prediction-engine/src/token"
)

var errLedgerDown = errors.New("ledger unavailable")

// flakyLedger fails outgoing transfers on demand.
type flakyLedger struct {
	token.Ledger
	failTransfers bool
}

func (l *flakyLedger) Transfer(from, to string, amount uint64) error {
	if l.failTransfers {
		return errLedgerDown
	}
	return l.Ledger.Transfer(from, to, amount)
}

// TestInvalidMarketPayoutCalc fills a four-outcome market with two rounds of
// full-set matches and resolutes it invalid: everyone gets 99% of their
// filled spend back.
func TestInvalidMarketPayoutCalc(t *testing.T) {
	e, ledger := newTestEngine()
	market := createTestMarket(t, e, ledger, "carol", 4)
	fund(t, ledger, "alice", 100*CollateralUnit)
	fund(t, ledger, "bob", 100*CollateralUnit)

	mustPlaceOrder(t, e, "carol", market, 0, 7000, 70)
	mustPlaceOrder(t, e, "carol", market, 1, 1000, 10)
	mustPlaceOrder(t, e, "carol", market, 2, 1000, 10)
	mustPlaceOrder(t, e, "carol", market, 3, 1000, 10)

	mustPlaceOrder(t, e, "alice", market, 0, 6000, 60)
	mustPlaceOrder(t, e, "alice", market, 1, 2000, 20)
	mustPlaceOrder(t, e, "alice", market, 2, 2000, 20)

	mustResolute(t, e, "bob", market, InvalidVerdict(), 5*CollateralUnit, endNs)

	if got := mustClaimable(t, e, market, "carol"); got != 10000-100 {
		t.Errorf("Expected carol claimable 9900, got: %d", got)
	}
	if got := mustClaimable(t, e, market, "alice"); got != 10000-100 {
		t.Errorf("Expected alice claimable 9900, got: %d", got)
	}

	for outcome := uint64(0); outcome < 4; outcome++ {
		if got := openLen(t, e, market, outcome); got != 0 {
			t.Errorf("Expected 0 open orders on outcome %d, got: %d", outcome, got)
		}
	}
	expectedFilled := []int{2, 2, 2, 1}
	for outcome, want := range expectedFilled {
		if got := filledLen(t, e, market, uint64(outcome)); got != want {
			t.Errorf("Expected %d filled orders on outcome %d, got: %d", want, outcome, got)
		}
	}
}

// TestValidMarketPayoutCalc resolutes on outcome 1: only the holder of
// outcome 1 shares has a claim, paid before finalization against the
// provisional winner.
func TestValidMarketPayoutCalc(t *testing.T) {
	e, ledger := newTestEngine()
	market := createTestMarket(t, e, ledger, "carol", 4)
	fund(t, ledger, "alice", 100*CollateralUnit)
	fund(t, ledger, "bob", 100*CollateralUnit)

	mustPlaceOrder(t, e, "carol", market, 0, 7000, 70)
	mustPlaceOrder(t, e, "alice", market, 1, 1000, 10)
	mustPlaceOrder(t, e, "alice", market, 2, 2000, 20)

	mustResolute(t, e, "bob", market, OutcomeVerdict(1), 5*CollateralUnit, endNs)

	for outcome := uint64(0); outcome < 3; outcome++ {
		if got := openLen(t, e, market, outcome); got != 0 {
			t.Errorf("Expected 0 open orders on outcome %d, got: %d", outcome, got)
		}
		if got := filledLen(t, e, market, outcome); got != 1 {
			t.Errorf("Expected 1 filled order on outcome %d, got: %d", outcome, got)
		}
	}

	if got := mustClaimable(t, e, market, "carol"); got != 0 {
		t.Errorf("Expected carol claimable 0, got: %d", got)
	}
	if got := mustClaimable(t, e, market, "alice"); got != 10000-100 {
		t.Errorf("Expected alice claimable 9900, got: %d", got)
	}
}

// TestDisputeUpheldPayout has carol resolute towards her own position, alice
// dispute it, and the judge side with carol. Carol collects her winnings,
// her stake and the reward pool funded by alice's forfeited dispute bond.
func TestDisputeUpheldPayout(t *testing.T) {
	e, ledger := newTestEngine()
	market := createTestMarket(t, e, ledger, "carol", 4)
	fund(t, ledger, "alice", 100*CollateralUnit)

	mustPlaceOrder(t, e, "carol", market, 0, 7*CollateralUnit, 70)
	mustPlaceOrder(t, e, "carol", market, 3, 1*CollateralUnit, 10)
	mustPlaceOrder(t, e, "alice", market, 1, 1*CollateralUnit, 10)
	mustPlaceOrder(t, e, "alice", market, 2, 1*CollateralUnit, 10)

	mustResolute(t, e, "carol", market, OutcomeVerdict(0), 5*CollateralUnit, endNs)
	mustDispute(t, e, "alice", market, OutcomeVerdict(1), 10*CollateralUnit, endNs)
	mustFinalize(t, e, judgeAccount, market, outcomep(0), endNs)

	// winnings 9.9 + stake 5 + reward pool 1, in collateral units
	expectedCarol := 99*CollateralUnit/10 + 5*CollateralUnit + CollateralUnit
	claimableCarol := mustClaimable(t, e, market, "carol")
	claimableAlice := mustClaimable(t, e, market, "alice")
	if claimableCarol != expectedCarol {
		t.Errorf("Expected carol claimable %d, got: %d", expectedCarol, claimableCarol)
	}
	if claimableAlice != 0 {
		t.Errorf("Expected alice claimable 0, got: %d", claimableAlice)
	}

	beforeCarol := ledger.BalanceOf("carol")
	beforeAlice := ledger.BalanceOf("alice")
	if _, err := e.ClaimEarnings(at("carol", endNs), market, "carol"); err != nil {
		t.Fatalf("claim failed unexpectedly: %v", err)
	}
	if _, err := e.ClaimEarnings(at("alice", endNs), market, "alice"); err != nil {
		t.Fatalf("claim failed unexpectedly: %v", err)
	}
	if got := ledger.BalanceOf("carol"); got != beforeCarol+claimableCarol {
		t.Errorf("Expected carol balance %d, got: %d", beforeCarol+claimableCarol, got)
	}
	if got := ledger.BalanceOf("alice"); got != beforeAlice+claimableAlice {
		t.Errorf("Expected alice balance %d, got: %d", beforeAlice+claimableAlice, got)
	}

	if got := mustClaimable(t, e, market, "carol"); got != 0 {
		t.Errorf("Expected nothing left to claim for carol, got: %d", got)
	}
	if got := mustClaimable(t, e, market, "alice"); got != 0 {
		t.Errorf("Expected nothing left to claim for alice, got: %d", got)
	}
}

// TestMatchSurplusFundsRewardPool finalizes a market whose single fill
// overcharged the set price: the 10-cent-per-set surplus must come back out
// through the resolution reward pool instead of sitting in escrow.
func TestMatchSurplusFundsRewardPool(t *testing.T) {
	e, ledger := newTestEngine()
	market := createTestMarket(t, e, ledger, "alice", 2)
	fund(t, ledger, "bob", 100*CollateralUnit)

	// 60+50 = 110: 100 sets minted, 1000 cents surplus escrowed
	mustPlaceOrder(t, e, "alice", market, 0, 6000, 60)
	mustPlaceOrder(t, e, "bob", market, 1, 5000, 50)

	mustResolute(t, e, "bob", market, OutcomeVerdict(0), 5*CollateralUnit, endNs)
	mustFinalize(t, e, "bob", market, nil, endNs+1800000000000)

	if got := mustClaimable(t, e, market, "alice"); got != 9900 {
		t.Errorf("Expected alice claimable 9900, got: %d", got)
	}
	// pool = min(10000/10, surplus 1000 + fee 100) = 1000, all to bob's stake
	if got := mustClaimable(t, e, market, "bob"); got != 5*CollateralUnit+1000 {
		t.Errorf("Expected bob claimable %d, got: %d", 5*CollateralUnit+1000, got)
	}

	if _, err := e.ClaimEarnings(at("alice", endNs), market, "alice"); err != nil {
		t.Fatalf("claim failed unexpectedly: %v", err)
	}
	if _, err := e.ClaimEarnings(at("bob", endNs), market, "bob"); err != nil {
		t.Fatalf("claim failed unexpectedly: %v", err)
	}

	// escrow keeps only the market fee above the pool cap
	if got := ledger.BalanceOf(escrowAccount); got != 100 {
		t.Errorf("Expected escrow to retain 100, got: %d", got)
	}
}

// TestWithdrawLosingResolutionStake stakes on a verdict that never bonds and
// withdraws it after finalization. Stake on the final verdict and the bonded
// stake of an overturned window are not withdrawable.
func TestWithdrawLosingResolutionStake(t *testing.T) {
	e, ledger := newTestEngine()
	market := createTestMarket(t, e, ledger, "carol", 4)
	fund(t, ledger, "alice", 100*CollateralUnit)

	mustPlaceOrder(t, e, "carol", market, 0, 10*CollateralUnit, 70)
	mustPlaceOrder(t, e, "carol", market, 3, 1*CollateralUnit, 10)

	// alice's partial stake never bonds; carol's fills the round 0 bond
	if got := mustResolute(t, e, "alice", market, OutcomeVerdict(1), 4*CollateralUnit, endNs); got != 4*CollateralUnit {
		t.Fatalf("Expected 4 units accepted, got: %d", got)
	}
	mustResolute(t, e, "carol", market, OutcomeVerdict(0), 5*CollateralUnit, endNs)
	mustDispute(t, e, "alice", market, OutcomeVerdict(1), 10*CollateralUnit, endNs)

	if _, err := e.WithdrawResolutionStake(at("alice", endNs), market, 0, OutcomeVerdict(1)); !errors.Is(err, ErrNotFinalized) {
		t.Errorf("Expected not finalized error, got: %v", err)
	}

	mustFinalize(t, e, judgeAccount, market, outcomep(0), endNs)

	if _, err := e.ClaimEarnings(at("alice", endNs), market, "alice"); err != nil {
		t.Fatalf("claim failed unexpectedly: %v", err)
	}

	before := ledger.BalanceOf("alice")
	amount, err := e.WithdrawResolutionStake(at("alice", endNs), market, 0, OutcomeVerdict(1))
	if err != nil {
		t.Fatalf("withdraw failed unexpectedly: %v", err)
	}
	if amount != 4*CollateralUnit {
		t.Errorf("Expected 4 units withdrawn, got: %d", amount)
	}
	if got := ledger.BalanceOf("alice"); got != before+4*CollateralUnit {
		t.Errorf("Expected alice balance %d, got: %d", before+4*CollateralUnit, got)
	}

	if _, err := e.WithdrawResolutionStake(at("alice", endNs), market, 0, OutcomeVerdict(1)); !errors.Is(err, ErrNothingToWithdraw) {
		t.Errorf("Expected nothing to withdraw error, got: %v", err)
	}
	if _, err := e.WithdrawResolutionStake(at("alice", endNs), market, 1, OutcomeVerdict(1)); !errors.Is(err, ErrStakeForfeited) {
		t.Errorf("Expected forfeited stake error, got: %v", err)
	}
	if _, err := e.WithdrawResolutionStake(at("carol", endNs), market, 1, OutcomeVerdict(0)); !errors.Is(err, ErrWinningWithdraw) {
		t.Errorf("Expected winning-withdraw error, got: %v", err)
	}
}

func TestClaimEarningsExactlyOnce(t *testing.T) {
	e, ledger := newTestEngine()
	market := createTestMarket(t, e, ledger, "carol", 2)

	mustPlaceOrder(t, e, "carol", market, 0, 5000, 50)
	mustPlaceOrder(t, e, "carol", market, 1, 5000, 50)

	mustResolute(t, e, "carol", market, OutcomeVerdict(0), 5*CollateralUnit, endNs)

	if _, err := e.ClaimEarnings(at("carol", endNs), market, "carol"); !errors.Is(err, ErrNotFinalized) {
		t.Errorf("Expected not finalized error, got: %v", err)
	}

	mustFinalize(t, e, "carol", market, nil, endNs+1800000000000)

	if _, err := e.ClaimEarnings(at("carol", endNs), market, "carol"); err != nil {
		t.Fatalf("claim failed unexpectedly: %v", err)
	}
	if _, err := e.ClaimEarnings(at("carol", endNs), market, "carol"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("Expected already claimed error, got: %v", err)
	}
	if got := mustClaimable(t, e, market, "carol"); got != 0 {
		t.Errorf("Expected nothing left to claim, got: %d", got)
	}
}

// TestClaimSurvivesFailedTransfer checks that a claim rejected by the ledger
// is not burned: the account keeps its balance and can claim again once the
// ledger recovers.
func TestClaimSurvivesFailedTransfer(t *testing.T) {
	ledger := &flakyLedger{Ledger: token.NewInMemory()}
	e := New(zerolog.Nop(), ledger, escrowAccount, judgeAccount)
	market := createTestMarket(t, e, ledger, "carol", 2)

	mustPlaceOrder(t, e, "carol", market, 0, 5000, 50)
	mustPlaceOrder(t, e, "carol", market, 1, 5000, 50)

	mustResolute(t, e, "carol", market, OutcomeVerdict(0), 5*CollateralUnit, endNs)
	mustFinalize(t, e, "carol", market, nil, endNs+1800000000000)

	want := mustClaimable(t, e, market, "carol")

	ledger.failTransfers = true
	if _, err := e.ClaimEarnings(at("carol", endNs), market, "carol"); !errors.Is(err, errLedgerDown) {
		t.Fatalf("Expected the ledger error surfaced, got: %v", err)
	}
	if got := mustClaimable(t, e, market, "carol"); got != want {
		t.Errorf("Expected claim untouched at %d, got: %d", want, got)
	}

	ledger.failTransfers = false
	paid, err := e.ClaimEarnings(at("carol", endNs), market, "carol")
	if err != nil {
		t.Fatalf("claim failed unexpectedly: %v", err)
	}
	if paid != want {
		t.Errorf("Expected %d paid, got: %d", want, paid)
	}
}

// TestValidityBondReturn finalizes one market valid and one invalid and
// checks where the creator's validity bond ends up.
func TestValidityBondReturn(t *testing.T) {
	e, ledger := newTestEngine()
	market := createTestMarket(t, e, ledger, "carol", 2)
	fund(t, ledger, "bob", 100*CollateralUnit)

	before := ledger.BalanceOf("carol")
	mustResolute(t, e, "bob", market, OutcomeVerdict(0), 5*CollateralUnit, endNs)
	mustFinalize(t, e, "bob", market, nil, endNs+1800000000000)
	if got := ledger.BalanceOf("carol"); got != before+ValidityBond {
		t.Errorf("Expected the validity bond back at %d, got: %d", before+ValidityBond, got)
	}

	invalidMarket := createTestMarket(t, e, ledger, "dave", 2)
	before = ledger.BalanceOf("dave")
	mustResolute(t, e, "bob", invalidMarket, InvalidVerdict(), 5*CollateralUnit, endNs)
	mustFinalize(t, e, "bob", invalidMarket, nil, endNs+1800000000000)
	if got := ledger.BalanceOf("dave"); got != before {
		t.Errorf("Expected the validity bond retained, balance %d, got: %d", before, got)
	}
}

// TestAffiliateFeePaidOnClaim routes a referred trader's winnings through
// the affiliate fee.
func TestAffiliateFeePaidOnClaim(t *testing.T) {
	e, ledger := newTestEngine()

	fund(t, ledger, "carol", 100*CollateralUnit)
	id, err := e.CreateMarket(at("carol", startNs), CreateMarketParams{
		Description:         "referred market",
		Outcomes:            2,
		OutcomeTags:         make([]string, 2),
		EndTime:             endMs,
		CreatorFeePercent:   1,
		AffiliateFeePercent: 2,
	})
	if err != nil {
		t.Fatalf("create market failed unexpectedly: %v", err)
	}

	fund(t, ledger, "alice", 100*CollateralUnit)
	if _, err := e.PlaceOrder(at("alice", startNs), id, 0, 5000, 50, "ref"); err != nil {
		t.Fatalf("order placement failed unexpectedly: %v", err)
	}
	if _, err := e.PlaceOrder(at("alice", startNs), id, 1, 5000, 50, "ref"); err != nil {
		t.Fatalf("order placement failed unexpectedly: %v", err)
	}

	mustResolute(t, e, "carol", id, OutcomeVerdict(0), 5*CollateralUnit, endNs)
	mustFinalize(t, e, "carol", id, nil, endNs+1800000000000)

	// 100 shares pay 10000 gross, minus 1% market, 1% creator, 2% affiliate
	if got := mustClaimable(t, e, id, "alice"); got != 9600 {
		t.Errorf("Expected alice claimable 9600, got: %d", got)
	}

	creatorBefore := ledger.BalanceOf("carol")
	refBefore := ledger.BalanceOf("ref")
	if _, err := e.ClaimEarnings(at("alice", endNs), id, "alice"); err != nil {
		t.Fatalf("claim failed unexpectedly: %v", err)
	}
	if got := ledger.BalanceOf("carol"); got != creatorBefore+100 {
		t.Errorf("Expected creator fee 100 paid, balance %d, got: %d", creatorBefore+100, got)
	}
	if got := ledger.BalanceOf("ref"); got != refBefore+200 {
		t.Errorf("Expected affiliate fee 200 paid, balance %d, got: %d", refBefore+200, got)
	}
}
