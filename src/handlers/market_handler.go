package handlers

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"prediction-engine/src/engine"
	"prediction-engine/src/models"
	"prediction-engine/src/token"
)

// MarketHandler exposes the engine over HTTP and keeps cheap in-process
// metrics about it.
type MarketHandler struct {
	Engine *engine.Engine
	Ledger token.Ledger

	StartTime       time.Time
	MarketsCreated  int64
	OrdersReceived  int64
	OrdersMatched   int64
	OrdersCancelled int64
	SharesSold      int64
	ClaimsPaid      int64

	faucetAmount uint64
	escrow       string

	latencies    []time.Duration
	latenciesMu  sync.RWMutex
	maxLatencies int
}

func NewMarketHandler(eng *engine.Engine, ledger token.Ledger, escrowAccount string, faucetAmount uint64, maxLatencies int) *MarketHandler {
	if maxLatencies <= 0 {
		maxLatencies = 10000
	}
	return &MarketHandler{
		Engine:       eng,
		Ledger:       ledger,
		StartTime:    time.Now(),
		faucetAmount: faucetAmount,
		escrow:       escrowAccount,
		latencies:    make([]time.Duration, 0, maxLatencies),
		maxLatencies: maxLatencies,
	}
}

// execContext builds the caller context from the X-Account header and the
// optional X-Block-Time header (ns since epoch, used to pin time in tests).
func execContext(c *fiber.Ctx) (engine.ExecContext, error) {
	caller := c.Get("X-Account")
	if caller == "" {
		return engine.ExecContext{}, errors.New("missing X-Account header")
	}
	ctx := engine.ExecContext{Caller: caller}
	if bt := c.Get("X-Block-Time"); bt != "" {
		parsed, err := strconv.ParseInt(bt, 10, 64)
		if err != nil {
			return engine.ExecContext{}, errors.New("invalid X-Block-Time header")
		}
		ctx.BlockTime = parsed
	}
	return ctx, nil
}

func verdictOf(winningOutcome *uint64) engine.Verdict {
	if winningOutcome == nil {
		return engine.InvalidVerdict()
	}
	return engine.OutcomeVerdict(*winningOutcome)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrMarketNotFound),
		errors.Is(err, engine.ErrOrderNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, engine.ErrNotOrderOwner),
		errors.Is(err, engine.ErrOnlyJudge):
		return fiber.StatusForbidden
	default:
		return fiber.StatusBadRequest
	}
}

func fail(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(models.ErrorResponse{Error: err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{Error: msg})
}

func paramUint(c *fiber.Ctx, name string) (uint64, error) {
	return strconv.ParseUint(c.Params(name), 10, 64)
}

func (h *MarketHandler) CreateMarket(c *fiber.Ctx) error {
	ctx, err := execContext(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req models.CreateMarketRequest
	if err := c.BodyParser(&req); err != nil {
		log.Warn().Err(err).Str("ip", c.IP()).Msg("Invalid request: malformed JSON")
		return badRequest(c, "Invalid request: malformed JSON")
	}

	id, err := h.Engine.CreateMarket(ctx, engine.CreateMarketParams{
		Description:         req.Description,
		ExtraInfo:           req.ExtraInfo,
		Outcomes:            req.Outcomes,
		OutcomeTags:         req.OutcomeTags,
		Categories:          req.Categories,
		EndTime:             req.EndTime,
		CreatorFeePercent:   req.CreatorFeePercent,
		AffiliateFeePercent: req.AffiliateFeePercent,
		Category:            req.Category,
	})
	if err != nil {
		return fail(c, err)
	}

	atomic.AddInt64(&h.MarketsCreated, 1)
	return c.Status(fiber.StatusCreated).JSON(models.CreateMarketResponse{MarketID: id})
}

func (h *MarketHandler) ListMarkets(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.Engine.ListMarkets())
}

func (h *MarketHandler) GetMarket(c *fiber.Ctx) error {
	marketID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, "invalid market id")
	}
	info, err := h.Engine.GetMarketInfo(marketID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(info)
}

func (h *MarketHandler) PlaceOrder(c *fiber.Ctx) error {
	ctx, err := execContext(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	marketID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, "invalid market id")
	}

	var req models.PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request: malformed JSON")
	}

	atomic.AddInt64(&h.OrdersReceived, 1)
	start := time.Now()
	result, err := h.Engine.PlaceOrder(ctx, marketID, req.Outcome, req.Spend, req.Price, req.Affiliate)
	h.recordLatency(time.Since(start))

	if err != nil {
		log.Warn().Err(err).Uint64("market_id", marketID).Str("ip", c.IP()).
			Msg("Order rejected")
		return fail(c, err)
	}

	fills := make([]models.FillInfo, 0, len(result.Fills))
	for _, fill := range result.Fills {
		fills = append(fills, models.FillInfo{
			FillID:    fill.FillID,
			Shares:    fill.Shares,
			PriceSum:  fill.PriceSum,
			Timestamp: fill.Timestamp,
		})
	}
	if len(fills) > 0 {
		atomic.AddInt64(&h.OrdersMatched, 1)
	}

	response := models.PlaceOrderResponse{
		OrderID:      result.OrderID,
		Status:       string(result.Status),
		SharesFilled: result.SharesFilled,
		Remaining:    result.Remaining,
		Fills:        fills,
	}
	if result.Status == engine.StatusOpen && len(fills) == 0 {
		return c.Status(fiber.StatusCreated).JSON(response)
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *MarketHandler) CancelOrder(c *fiber.Ctx) error {
	ctx, err := execContext(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	marketID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, "invalid market id")
	}
	outcome, err := paramUint(c, "outcome")
	if err != nil {
		return badRequest(c, "invalid outcome")
	}
	orderID, err := paramUint(c, "orderID")
	if err != nil {
		return badRequest(c, "invalid order id")
	}

	refund, err := h.Engine.CancelOrder(ctx, marketID, outcome, orderID)
	if err != nil {
		return fail(c, err)
	}

	atomic.AddInt64(&h.OrdersCancelled, 1)
	return c.Status(fiber.StatusOK).JSON(models.CancelOrderResponse{
		OrderID: orderID,
		Status:  string(engine.StatusCancelled),
		Refund:  refund,
	})
}

func (h *MarketHandler) GetOrders(c *fiber.Ctx) error {
	marketID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, "invalid market id")
	}
	outcome, err := paramUint(c, "outcome")
	if err != nil {
		return badRequest(c, "invalid outcome")
	}

	var orders []engine.Order
	if c.Query("status", "open") == "filled" {
		orders, err = h.Engine.GetFilledOrders(marketID, outcome)
	} else {
		orders, err = h.Engine.GetOpenOrders(marketID, outcome)
	}
	if err != nil {
		return fail(c, err)
	}

	infos := make([]models.OrderInfo, 0, len(orders))
	for _, o := range orders {
		infos = append(infos, models.OrderInfo{
			OrderID:      o.ID,
			Owner:        o.Owner,
			Outcome:      o.Outcome,
			Price:        o.Price,
			Spend:        o.Spend,
			Filled:       o.Filled,
			SharesFilled: o.SharesFilled,
			Status:       string(o.Status),
		})
	}
	return c.Status(fiber.StatusOK).JSON(models.OrdersResponse{
		MarketID: marketID,
		Outcome:  outcome,
		Orders:   infos,
	})
}

func (h *MarketHandler) GetSellDepth(c *fiber.Ctx) error {
	marketID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, "invalid market id")
	}
	outcome, err := paramUint(c, "outcome")
	if err != nil {
		return badRequest(c, "invalid outcome")
	}
	shares, err := strconv.ParseUint(c.Query("shares", "0"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid shares")
	}

	spendable, fillable, err := h.Engine.GetMarketSellDepth(marketID, outcome, shares)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(models.SellDepthResponse{
		Outcome:        outcome,
		Shares:         shares,
		Spendable:      spendable,
		SharesFillable: fillable,
	})
}

func (h *MarketHandler) MarketSell(c *fiber.Ctx) error {
	ctx, err := execContext(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	marketID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, "invalid market id")
	}

	var req models.MarketSellRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request: malformed JSON")
	}

	result, err := h.Engine.DynamicMarketSell(ctx, marketID, req.Outcome, req.Shares)
	if err != nil {
		return fail(c, err)
	}

	atomic.AddInt64(&h.SharesSold, int64(result.SharesSold))
	return c.Status(fiber.StatusOK).JSON(models.MarketSellResponse{
		SharesSold: result.SharesSold,
		Proceeds:   result.Proceeds,
		Fee:        result.Fee,
		Payout:     result.Payout,
	})
}

func (h *MarketHandler) GetShareBalance(c *fiber.Ctx) error {
	marketID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, "invalid market id")
	}
	outcome, err := paramUint(c, "outcome")
	if err != nil {
		return badRequest(c, "invalid outcome")
	}
	account := c.Query("account")
	if account == "" {
		return badRequest(c, "missing account query parameter")
	}

	balance, err := h.Engine.GetOutcomeShareBalance(marketID, account, outcome)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(models.ShareBalanceResponse{
		Account: account,
		Outcome: outcome,
		Balance: balance,
	})
}

func (h *MarketHandler) Resolute(c *fiber.Ctx) error {
	return h.stakeEndpoint(c, h.Engine.ResoluteMarket)
}

func (h *MarketHandler) Dispute(c *fiber.Ctx) error {
	return h.stakeEndpoint(c, h.Engine.DisputeMarket)
}

func (h *MarketHandler) stakeEndpoint(c *fiber.Ctx, op func(engine.ExecContext, uint64, engine.Verdict, uint64) (uint64, error)) error {
	ctx, err := execContext(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	marketID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, "invalid market id")
	}

	var req models.StakeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request: malformed JSON")
	}

	accepted, err := op(ctx, marketID, verdictOf(req.WinningOutcome), req.Stake)
	if err != nil {
		return fail(c, err)
	}

	info, err := h.Engine.GetMarketInfo(marketID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(models.StakeResponse{
		Accepted:  accepted,
		Resoluted: info.Resoluted,
		Disputed:  info.Disputed,
	})
}

func (h *MarketHandler) Finalize(c *fiber.Ctx) error {
	ctx, err := execContext(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	marketID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, "invalid market id")
	}

	// edge case: the body is optional for undisputed markets, where the
	// bonded verdict wins regardless of what the caller sends.
	var verdict *engine.Verdict
	var req models.FinalizeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request: malformed JSON")
		}
		if req.Verdict {
			v := verdictOf(req.WinningOutcome)
			verdict = &v
		}
	}

	if err := h.Engine.FinalizeMarket(ctx, marketID, verdict); err != nil {
		return fail(c, err)
	}

	info, err := h.Engine.GetMarketInfo(marketID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(info)
}

func (h *MarketHandler) WithdrawStake(c *fiber.Ctx) error {
	ctx, err := execContext(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	marketID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, "invalid market id")
	}

	var req models.WithdrawStakeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request: malformed JSON")
	}

	amount, err := h.Engine.WithdrawResolutionStake(ctx, marketID, req.Round, verdictOf(req.WinningOutcome))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(models.WithdrawStakeResponse{Amount: amount})
}

func (h *MarketHandler) GetClaimable(c *fiber.Ctx) error {
	marketID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, "invalid market id")
	}
	account := c.Query("account")
	if account == "" {
		return badRequest(c, "missing account query parameter")
	}

	claimable, err := h.Engine.GetClaimable(marketID, account)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(models.ClaimableResponse{
		Account:          account,
		Total:            claimable.Total,
		Winnings:         claimable.Winnings,
		Refunds:          claimable.Refunds,
		StakeRefund:      claimable.StakeRefund,
		ResolutionReward: claimable.ResolutionReward,
	})
}

func (h *MarketHandler) Claim(c *fiber.Ctx) error {
	ctx, err := execContext(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	marketID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, "invalid market id")
	}

	var req models.ClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request: malformed JSON")
	}
	account := req.Account
	if account == "" {
		account = ctx.Caller
	}

	paid, err := h.Engine.ClaimEarnings(ctx, marketID, account)
	if err != nil {
		return fail(c, err)
	}

	atomic.AddInt64(&h.ClaimsPaid, 1)
	return c.Status(fiber.StatusOK).JSON(models.ClaimResponse{Account: account, Paid: paid})
}

func (h *MarketHandler) GetResolutionWindow(c *fiber.Ctx) error {
	marketID, err := paramUint(c, "id")
	if err != nil {
		return badRequest(c, "invalid market id")
	}
	window, err := h.Engine.GetActiveResolutionWindow(marketID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(window)
}

// Faucet mints test collateral and grants the escrow account an allowance
// over it, so a fresh account can trade with a single call.
func (h *MarketHandler) Faucet(c *fiber.Ctx) error {
	var req models.FaucetRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request: malformed JSON")
	}
	if req.Account == "" {
		return badRequest(c, "missing account")
	}
	amount := req.Amount
	if amount == 0 {
		amount = h.faucetAmount
	}

	h.Ledger.Mint(req.Account, amount)
	if err := h.Ledger.SetAllowance(req.Account, h.escrow, h.Ledger.BalanceOf(req.Account)); err != nil {
		return fail(c, err)
	}

	log.Info().Str("account", req.Account).Uint64("amount", amount).Msg("Faucet mint")
	return c.Status(fiber.StatusOK).JSON(models.BalanceResponse{
		Account: req.Account,
		Balance: h.Ledger.BalanceOf(req.Account),
	})
}

func (h *MarketHandler) SetAllowance(c *fiber.Ctx) error {
	ctx, err := execContext(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req models.AllowanceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request: malformed JSON")
	}
	if err := h.Ledger.SetAllowance(ctx.Caller, h.escrow, req.Amount); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *MarketHandler) GetBalance(c *fiber.Ctx) error {
	account := c.Params("account")
	return c.Status(fiber.StatusOK).JSON(models.BalanceResponse{
		Account: account,
		Balance: h.Ledger.BalanceOf(account),
	})
}

func (h *MarketHandler) HealthCheck(c *fiber.Ctx) error {
	uptime := time.Since(h.StartTime).Seconds()
	return c.Status(fiber.StatusOK).JSON(models.HealthResponse{
		Status:        "healthy",
		UptimeSeconds: int64(uptime),
		Markets:       len(h.Engine.ListMarkets()),
	})
}

func (h *MarketHandler) Metrics(c *fiber.Ctx) error {
	p50, p99, p999 := h.calculateLatencyPercentiles()

	return c.Status(fiber.StatusOK).JSON(models.MetricsResponse{
		MarketsCreated:         atomic.LoadInt64(&h.MarketsCreated),
		OrdersReceived:         atomic.LoadInt64(&h.OrdersReceived),
		OrdersMatched:          atomic.LoadInt64(&h.OrdersMatched),
		OrdersCancelled:        atomic.LoadInt64(&h.OrdersCancelled),
		SharesSold:             atomic.LoadInt64(&h.SharesSold),
		ClaimsPaid:             atomic.LoadInt64(&h.ClaimsPaid),
		LatencyP50Ms:           p50,
		LatencyP99Ms:           p99,
		LatencyP999Ms:          p999,
		ThroughputOrdersPerSec: h.calculateThroughput(),
	})
}

func (h *MarketHandler) recordLatency(latency time.Duration) {
	h.latenciesMu.Lock()
	defer h.latenciesMu.Unlock()

	h.latencies = append(h.latencies, latency)

	// edge case: maintain rolling window by removing oldest measurements
	if len(h.latencies) > h.maxLatencies {
		removeCount := len(h.latencies) - h.maxLatencies
		h.latencies = h.latencies[removeCount:]
	}
}

func (h *MarketHandler) calculateLatencyPercentiles() (p50, p99, p999 float64) {
	h.latenciesMu.RLock()
	defer h.latenciesMu.RUnlock()

	if len(h.latencies) == 0 {
		return 0, 0, 0
	}

	sorted := make([]time.Duration, len(h.latencies))
	copy(sorted, h.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	at := func(q float64) float64 {
		idx := int(float64(len(sorted)) * q)
		// edge case: ensure indices are within bounds
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return float64(sorted[idx].Nanoseconds()) / 1e6
	}
	return at(0.50), at(0.99), at(0.999)
}

func (h *MarketHandler) calculateThroughput() float64 {
	uptime := time.Since(h.StartTime).Seconds()
	if uptime <= 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&h.OrdersReceived)) / uptime
}
