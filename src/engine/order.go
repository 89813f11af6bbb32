package engine

type OrderStatus string

const (
	StatusOpen      OrderStatus = "OPEN"
	StatusFilled    OrderStatus = "FILLED"
	StatusCancelled OrderStatus = "CANCELLED"
)

// Order records one placed buy intent on a single outcome. Spend is the
// collateral committed at placement; Filled grows as the matching engine (or
// a market sell hitting this order) consumes it. Filled never exceeds Spend
// and SharesFilled*Price tracks Filled for pure matching flows. A below-basis
// market sell can leave basis residue in Filled; the payout calculator only
// ever reads Spend, Filled and SharesFilled, so that residue is refunded
// correctly on an invalid outcome.
type Order struct {
	ID           uint64
	Owner        string
	Outcome      uint64
	Price        uint64 // cents per share, 1..99
	Spend        uint64 // collateral committed
	Filled       uint64 // collateral matched so far
	SharesFilled uint64
	Affiliate    string // optional account receiving the affiliate fee cut
	Status       OrderStatus
	CreatedAt    int64 // block time, ns
}

// Remaining is the collateral still open for matching.
func (o *Order) Remaining() uint64 {
	return o.Spend - o.Filled
}

// CanFund reports whether the order can still buy one more share.
func (o *Order) CanFund() bool {
	return o.Remaining() >= o.Price
}
