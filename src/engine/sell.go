package engine

import "sort"

// SellResult summarizes a dynamic market sell.
type SellResult struct {
	SharesSold uint64
	Proceeds   uint64 // gross collateral raised, before the market fee
	Fee        uint64
	Payout     uint64 // transferred to the seller immediately
}

// GetMarketSellDepth reports how much collateral a market sell of up to
// shares can raise against the open buy orders of outcome, and how many
// shares those buyers can absorb. Depth is a property of the book alone and
// is not capped by the caller's balance.
func (m *Market) GetMarketSellDepth(outcome uint64, shares uint64) (spendable, fillable uint64) {
	left := shares
	for _, buyer := range m.Books[outcome].OpenOrders() {
		if left == 0 {
			break
		}
		take := minU64(left, SharesFromSpend(buyer.Remaining(), buyer.Price))
		spendable += take * buyer.Price
		fillable += take
		left -= take
	}
	return spendable, fillable
}

// holdingsOf lists the seller's orders on outcome that still carry filled
// shares, oldest first. These orders record the price basis the shares were
// bought at.
func (m *Market) holdingsOf(seller string, outcome uint64) []*Order {
	book := m.Books[outcome]
	var holdings []*Order
	for _, o := range ordersOf(book.FilledOrders(), seller) {
		if o.SharesFilled > 0 {
			holdings = append(holdings, o)
		}
	}
	for _, o := range ordersOf(book.OpenOrders(), seller) {
		if o.SharesFilled > 0 {
			holdings = append(holdings, o)
		}
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].ID < holdings[j].ID })
	return holdings
}

// marketSell fills the seller's shares against the open buy orders of
// outcome, best bid first.
//
// Each share is paid out at min(bid, basis) where basis is the price the
// share was bought at, consumed oldest order first. When the bid exceeds the
// basis the difference stays escrowed as sale profit and only becomes
// claimable if the market finalizes on a valid outcome. The sold shares move
// to the buyers, and the proceeds minus the market fee are owed to the
// seller right away.
func (m *Market) marketSell(seller string, outcome uint64, shares uint64) (*SellResult, error) {
	balance := m.ShareBalance(seller, outcome)
	if balance == 0 {
		return nil, ErrNoSharesToSell
	}
	left := minU64(shares, balance)

	book := m.Books[outcome]
	holdings := m.holdingsOf(seller, outcome)
	res := &SellResult{}
	var exhausted []*Order

	for _, buyer := range book.OpenOrders() {
		if left == 0 {
			break
		}
		take := minU64(left, SharesFromSpend(buyer.Remaining(), buyer.Price))
		if take == 0 {
			continue
		}

		chunkLeft := take
		for chunkLeft > 0 && len(holdings) > 0 {
			basisOrder := holdings[0]
			chunk := minU64(chunkLeft, basisOrder.SharesFilled)
			paid := minU64(buyer.Price, basisOrder.Price)

			res.Proceeds += chunk * paid
			if buyer.Price > basisOrder.Price {
				profit := chunk * (buyer.Price - basisOrder.Price)
				m.saleProfits[seller] += profit
				m.totalProfits += profit
			}

			// The shares leave the seller's fill history at the realized
			// price, so later payout math only ever sees positions the
			// seller still holds.
			basisOrder.Spend -= chunk * paid
			basisOrder.Filled -= chunk * paid
			basisOrder.SharesFilled -= chunk
			if basisOrder.SharesFilled == 0 {
				holdings = holdings[1:]
			}
			chunkLeft -= chunk
		}

		buyer.Filled += take * buyer.Price
		buyer.SharesFilled += take
		m.creditShares(buyer.Owner, outcome, take)
		m.burnShares(seller, outcome, take)
		res.SharesSold += take
		left -= take

		if !buyer.CanFund() {
			exhausted = append(exhausted, buyer)
		}
	}

	for _, buyer := range exhausted {
		book.Retire(buyer)
	}

	res.Fee = MarketFee(res.Proceeds)
	m.saleFees += res.Fee
	res.Payout = res.Proceeds - res.Fee
	return res, nil
}
