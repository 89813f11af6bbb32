package engine

// Claimable is the settlement breakdown for one account. Total is what the
// account itself receives; the creator and affiliate cuts are carved out of
// the account's winnings and paid to their recipients on claim.
type Claimable struct {
	Total            uint64
	Winnings         uint64 // winning shares at 100/share plus escrowed sale profits, after fees
	Refunds          uint64 // unfilled order remainders (invalid: plus the filled haircut payout)
	StakeRefund      uint64
	ResolutionReward uint64
	CreatorFee       uint64
	AffiliateFee     uint64
}

// affiliateOf returns the referrer recorded on the account's earliest order
// that carries one, or "".
func (m *Market) affiliateOf(account string) string {
	for _, o := range m.ordersOfAccount(account) {
		if o.Affiliate != "" {
			return o.Affiliate
		}
	}
	return ""
}

// totalFilled sums the escrowed spend consumed by fills across every order.
func (m *Market) totalFilled() uint64 {
	var sum uint64
	for _, o := range m.allOrders() {
		sum += o.Filled
	}
	return sum
}

// rewardPool is the collateral set aside for accounts staked on verdict v.
//
// On a valid outcome the pool is the market fee on winnings plus sale fees
// plus any forfeited dispute bonds plus the escrow surplus left by over-100
// price-sum fills, capped at a tenth of the filled volume. On an invalid
// outcome it is the sale fees plus the 1% haircut taken from every filled
// order's refund; the match surplus is already inside those refunds, each
// order having been debited at its own price.
func (m *Market) rewardPool(v Verdict) uint64 {
	if v.IsInvalid() {
		return m.saleFees + MarketFee(m.totalFilled())
	}
	fund := m.forfeitedBonds(v) + m.matchSurplus + m.saleFees + MarketFee(m.FilledVolume+m.totalProfits)
	return minU64(m.FilledVolume/10, fund)
}

// claimable prices the account's position against verdict v. The caller
// supplies the final verdict of a finalized market or the provisional winner
// of a resoluted one.
//
// Valid outcome: every order's unfilled remainder is refunded in full, and
// winning shares pay 100 each. Sale profits escrowed during market sells are
// released alongside the shares, and the market, creator and affiliate fees
// come out of that combined amount.
//
// Invalid outcome: each order refunds its unfilled remainder plus 99% of its
// filled spend; the 1% haircut funds the resolution reward.
func (m *Market) claimable(account string, v Verdict) Claimable {
	var c Claimable
	if m.claimed[account] {
		return c
	}

	if v.IsInvalid() {
		for _, o := range m.ordersOfAccount(account) {
			c.Refunds += o.Remaining() + percentOf(o.Filled, SetPrice-MarketFeePercent)
		}
	} else {
		final, _ := v.Index()
		for _, o := range m.ordersOfAccount(account) {
			c.Refunds += o.Remaining()
		}
		winnings := m.ShareBalance(account, final)*SetPrice + m.saleProfits[account]
		if winnings > 0 {
			feePct := MarketFeePercent + m.CreatorFeePercent
			c.CreatorFee = percentOf(winnings, m.CreatorFeePercent)
			// edge case: the affiliate cut only applies when one of the
			// account's orders actually carried a referrer.
			if m.affiliateOf(account) != "" {
				c.AffiliateFee = percentOf(winnings, m.AffiliateFeePercent)
				feePct += m.AffiliateFeePercent
			}
			c.Winnings = winnings - percentOf(winnings, feePct)
		}
	}

	if user, total := m.stakeOn(account, v); user > 0 {
		c.StakeRefund = user
		c.ResolutionReward = m.rewardPool(v) * user / total
	}

	c.Total = c.Winnings + c.Refunds + c.StakeRefund + c.ResolutionReward
	return c
}
