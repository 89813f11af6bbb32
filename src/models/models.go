package models

type CreateMarketRequest struct {
	Description         string   `json:"description"`
	ExtraInfo           string   `json:"extra_info"`
	Outcomes            uint64   `json:"outcomes"`
	OutcomeTags         []string `json:"outcome_tags"`
	Categories          []string `json:"categories"`
	EndTime             int64    `json:"end_time"` // ms since epoch
	CreatorFeePercent   uint64   `json:"creator_fee_percentage"`
	AffiliateFeePercent uint64   `json:"affiliate_fee_percentage"`
	Category            string   `json:"api_source"`
}

type CreateMarketResponse struct {
	MarketID uint64 `json:"market_id"`
}

type PlaceOrderRequest struct {
	Outcome   uint64 `json:"outcome"`
	Spend     uint64 `json:"spend"` // collateral in cents
	Price     uint64 `json:"price"` // cents per share, 1..99
	Affiliate string `json:"affiliate_account_id,omitempty"`
}

type FillInfo struct {
	FillID    string `json:"fill_id"`
	Shares    uint64 `json:"shares"`
	PriceSum  uint64 `json:"price_sum"`
	Timestamp int64  `json:"timestamp"` // unix timestamp in milliseconds
}

type PlaceOrderResponse struct {
	OrderID      uint64     `json:"order_id"`
	Status       string     `json:"status"`
	SharesFilled uint64     `json:"shares_filled"`
	Remaining    uint64     `json:"remaining"`
	Fills        []FillInfo `json:"fills,omitempty"`
}

type CancelOrderResponse struct {
	OrderID uint64 `json:"order_id"`
	Status  string `json:"status"`
	Refund  uint64 `json:"refund"`
}

type MarketSellRequest struct {
	Outcome uint64 `json:"outcome"`
	Shares  uint64 `json:"shares"`
}

type MarketSellResponse struct {
	SharesSold uint64 `json:"shares_sold"`
	Proceeds   uint64 `json:"proceeds"`
	Fee        uint64 `json:"fee"`
	Payout     uint64 `json:"payout"`
}

type SellDepthResponse struct {
	Outcome        uint64 `json:"outcome"`
	Shares         uint64 `json:"shares"`
	Spendable      uint64 `json:"spendable"`
	SharesFillable uint64 `json:"shares_fillable"`
}

// StakeRequest drives both resolution and dispute. A null winning_outcome
// stakes on the invalid verdict.
type StakeRequest struct {
	WinningOutcome *uint64 `json:"winning_outcome"`
	Stake          uint64  `json:"stake"`
}

type StakeResponse struct {
	Accepted  uint64 `json:"accepted"`
	Resoluted bool   `json:"resoluted"`
	Disputed  bool   `json:"disputed"`
}

// FinalizeRequest carries the judge's verdict for disputed markets. For
// undisputed markets the body is ignored.
type FinalizeRequest struct {
	WinningOutcome *uint64 `json:"winning_outcome"`
	Verdict        bool    `json:"verdict"` // true when the judge states one
}

type WithdrawStakeRequest struct {
	Round          uint64  `json:"round"`
	WinningOutcome *uint64 `json:"winning_outcome"`
}

type WithdrawStakeResponse struct {
	Amount uint64 `json:"amount"`
}

type ClaimableResponse struct {
	Account          string `json:"account"`
	Total            uint64 `json:"total"`
	Winnings         uint64 `json:"winnings"`
	Refunds          uint64 `json:"refunds"`
	StakeRefund      uint64 `json:"stake_refund"`
	ResolutionReward uint64 `json:"resolution_reward"`
}

type ClaimRequest struct {
	Account string `json:"account"`
}

type ClaimResponse struct {
	Account string `json:"account"`
	Paid    uint64 `json:"paid"`
}

type OrderInfo struct {
	OrderID      uint64 `json:"order_id"`
	Owner        string `json:"owner"`
	Outcome      uint64 `json:"outcome"`
	Price        uint64 `json:"price"`
	Spend        uint64 `json:"spend"`
	Filled       uint64 `json:"filled"`
	SharesFilled uint64 `json:"shares_filled"`
	Status       string `json:"status"`
}

type OrdersResponse struct {
	MarketID uint64      `json:"market_id"`
	Outcome  uint64      `json:"outcome"`
	Orders   []OrderInfo `json:"orders"`
}

type ShareBalanceResponse struct {
	Account string `json:"account"`
	Outcome uint64 `json:"outcome"`
	Balance uint64 `json:"balance"`
}

type FaucetRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

type BalanceResponse struct {
	Account string `json:"account"`
	Balance uint64 `json:"balance"`
}

type AllowanceRequest struct {
	Amount uint64 `json:"amount"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Markets       int    `json:"markets"`
}

type MetricsResponse struct {
	MarketsCreated         int64   `json:"markets_created"`
	OrdersReceived         int64   `json:"orders_received"`
	OrdersMatched          int64   `json:"orders_matched"`
	OrdersCancelled        int64   `json:"orders_cancelled"`
	SharesSold             int64   `json:"shares_sold"`
	ClaimsPaid             int64   `json:"claims_paid"`
	LatencyP50Ms           float64 `json:"latency_p50_ms"`
	LatencyP99Ms           float64 `json:"latency_p99_ms"`
	LatencyP999Ms          float64 `json:"latency_p999_ms"`
	ThroughputOrdersPerSec float64 `json:"throughput_orders_per_sec"`
}
