package engine

import (
	"time"

	"github.com/google/uuid"
)

// Fill describes one minting step of the complementary-fill loop: `Shares`
// share sets funded jointly by the taker and the best resting order of every
// non-empty complementary book.
type Fill struct {
	FillID    string
	Shares    uint64
	PriceSum  uint64 // taker price plus the participating best prices
	Timestamp int64
}

// PlaceResult is returned by PlaceOrder.
type PlaceResult struct {
	OrderID      uint64
	Status       OrderStatus
	SharesFilled uint64
	Remaining    uint64
	Fills        []Fill
}

// matchOrder crosses the incoming buy against the complementary books.
//
// A buy at price p on outcome i fills while p plus the sum of the best
// prices of every non-empty complementary book reaches 100: each fill mints
// one share set per unit, every participant pays its own price for shares of
// its own outcome, and any sum above 100 stays in market escrow as surplus.
// Outcomes with an empty book neither block the match nor receive shares.
func (m *Market) matchOrder(incoming *Order) []Fill {
	var fills []Fill

	for incoming.CanFund() {
		participants := make([]*Order, 0, m.NumOutcomes-1)
		priceSum := incoming.Price
		for _, book := range m.Books {
			if book.Outcome == incoming.Outcome {
				continue
			}
			if best := book.Best(); best != nil {
				participants = append(participants, best)
				priceSum += best.Price
			}
		}

		if len(participants) == 0 || priceSum < SetPrice {
			break
		}

		shares := SharesFromSpend(incoming.Remaining(), incoming.Price)
		for _, resting := range participants {
			shares = minU64(shares, SharesFromSpend(resting.Remaining(), resting.Price))
		}

		sides := append(participants, incoming)
		for _, order := range sides {
			order.Filled += shares * order.Price
			order.SharesFilled += shares
			m.creditShares(order.Owner, order.Outcome, shares)
			m.FilledVolumeByOutcome[order.Outcome] += shares * SetPrice
		}
		m.FilledVolume += shares * SetPrice
		m.matchSurplus += shares * (priceSum - SetPrice)

		for _, resting := range participants {
			if !resting.CanFund() {
				m.Books[resting.Outcome].Retire(resting)
			}
		}

		fills = append(fills, Fill{
			FillID:    uuid.New().String(),
			Shares:    shares,
			PriceSum:  priceSum,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	return fills
}

// placeOrder escrows are handled by the Engine; this inserts, matches and
// routes the taker to the open set or the filled log.
func (m *Market) placeOrder(order *Order) *PlaceResult {
	fills := m.matchOrder(order)

	if order.CanFund() {
		order.Status = StatusOpen
		m.Books[order.Outcome].Insert(order)
	} else {
		// edge case: a remainder below the order's own price cannot fund
		// another share; it is refunded at payout time.
		order.Status = StatusFilled
		m.Books[order.Outcome].AppendFilled(order)
	}

	return &PlaceResult{
		OrderID:      order.ID,
		Status:       order.Status,
		SharesFilled: order.SharesFilled,
		Remaining:    order.Remaining(),
		Fills:        fills,
	}
}
