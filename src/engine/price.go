package engine

// All collateral amounts are integer cents of the external token; one full
// collateral unit is 10^16 cents. Prices are integer cents per share in
// [1, 99] and a complete share set always redeems at 100 cents.
const (
	MinPrice uint64 = 1
	MaxPrice uint64 = 99
	SetPrice uint64 = 100 // cents consumed per minted share set

	CollateralUnit uint64 = 10_000_000_000_000_000

	// ValidityBond is locked by the market creator and forfeited to the
	// protocol when the market resolves invalid.
	ValidityBond uint64 = CollateralUnit / 4

	// Bonded stake required to close resolution round 0 and the single
	// dispute round. The dispute bond doubles the resolution bond.
	ResolutionBond uint64 = 5 * CollateralUnit
	DisputeBond    uint64 = 10 * CollateralUnit

	// DisputeWindowNs keeps a resoluted market open for disputes for 30
	// minutes of real time after the resolution bond fills.
	DisputeWindowNs int64 = 30 * 60 * 1_000_000_000

	// MarketFeePercent is the flat protocol fee: 1% of gross winnings on a
	// valid outcome, 1% of refunded fills on an invalid one, and 1% of
	// market-sell proceeds. Collected fees feed the resolution reward pool.
	MarketFeePercent uint64 = 1
)

// SharesFromSpend returns how many whole shares `spend` cents can fund at
// `price` cents per share. The remainder stays unmatched in the order.
func SharesFromSpend(spend, price uint64) uint64 {
	return spend / price
}

// MarketFee is floor(amount * 1%).
func MarketFee(amount uint64) uint64 {
	return percentOf(amount, MarketFeePercent)
}

// percentOf is floor(amount * pct / 100) without overflowing the
// intermediate product on large balances.
func percentOf(amount, pct uint64) uint64 {
	return amount/100*pct + amount%100*pct/100
}

// ValidPrice reports whether p is an acceptable limit price.
func ValidPrice(p uint64) bool {
	return p >= MinPrice && p <= MaxPrice
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
