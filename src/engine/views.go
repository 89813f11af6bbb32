package engine

import "sort"

// MarketInfo is a read-only snapshot served by the query endpoints.
type MarketInfo struct {
	ID                    uint64   `json:"id"`
	Creator               string   `json:"creator"`
	Description           string   `json:"description"`
	ExtraInfo             string   `json:"extra_info,omitempty"`
	Category              string   `json:"category,omitempty"`
	Categories            []string `json:"categories,omitempty"`
	Outcomes              uint64   `json:"outcomes"`
	OutcomeTags           []string `json:"outcome_tags"`
	EndTime               int64    `json:"end_time"`
	CreatorFeePercent     uint64   `json:"creator_fee_percentage"`
	AffiliateFeePercent   uint64   `json:"affiliate_fee_percentage"`
	FilledVolume          uint64   `json:"filled_volume"`
	FilledVolumeByOutcome []uint64 `json:"filled_volume_by_outcome"`
	Resoluted             bool     `json:"resoluted"`
	Disputed              bool     `json:"disputed"`
	Finalized             bool     `json:"finalized"`
	WinningOutcome        *uint64  `json:"winning_outcome,omitempty"`
	Invalid               bool     `json:"invalid"`
}

// WindowView describes the active resolution window.
type WindowView struct {
	Round        uint64 `json:"round"`
	RequiredBond uint64 `json:"required_bond"`
	EndTime      int64  `json:"end_time,omitempty"`
	Bonded       bool   `json:"bonded"`
}

func (e *Engine) marketInfoLocked(m *Market) MarketInfo {
	info := MarketInfo{
		ID:                    m.ID,
		Creator:               m.Creator,
		Description:           m.Description,
		ExtraInfo:             m.ExtraInfo,
		Category:              m.Category,
		Categories:            m.Categories,
		Outcomes:              m.NumOutcomes,
		OutcomeTags:           m.OutcomeTags,
		EndTime:               m.EndTime,
		CreatorFeePercent:     m.CreatorFeePercent,
		AffiliateFeePercent:   m.AffiliateFeePercent,
		FilledVolume:          m.FilledVolume,
		FilledVolumeByOutcome: append([]uint64(nil), m.FilledVolumeByOutcome...),
		Resoluted:             m.Resoluted,
		Disputed:              m.Disputed,
		Finalized:             m.Finalized,
	}
	if v, ok := m.winner(); ok {
		if idx, valid := v.Index(); valid {
			info.WinningOutcome = &idx
		} else {
			info.Invalid = true
		}
	}
	return info
}

func (e *Engine) GetMarketInfo(marketID uint64) (MarketInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return MarketInfo{}, err
	}
	return e.marketInfoLocked(m), nil
}

func (e *Engine) ListMarkets() []MarketInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]MarketInfo, 0, len(e.markets))
	for _, m := range e.markets {
		out = append(out, e.marketInfoLocked(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetOpenOrders copies the open set of one outcome book in priority order.
func (e *Engine) GetOpenOrders(marketID, outcome uint64) ([]Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return nil, err
	}
	if outcome >= m.NumOutcomes {
		return nil, ErrBadOutcome
	}
	return copyOrders(m.Books[outcome].OpenOrders()), nil
}

// GetFilledOrders copies the retired log of one outcome book.
func (e *Engine) GetFilledOrders(marketID, outcome uint64) ([]Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return nil, err
	}
	if outcome >= m.NumOutcomes {
		return nil, ErrBadOutcome
	}
	return copyOrders(m.Books[outcome].FilledOrders()), nil
}

func (e *Engine) GetOpenOrdersLen(marketID, outcome uint64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return 0, err
	}
	if outcome >= m.NumOutcomes {
		return 0, ErrBadOutcome
	}
	return m.Books[outcome].OpenLen(), nil
}

func (e *Engine) GetFilledOrdersLen(marketID, outcome uint64) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return 0, err
	}
	if outcome >= m.NumOutcomes {
		return 0, ErrBadOutcome
	}
	return m.Books[outcome].FilledLen(), nil
}

func (e *Engine) GetOutcomeShareBalance(marketID uint64, account string, outcome uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return 0, err
	}
	if outcome >= m.NumOutcomes {
		return 0, ErrBadOutcome
	}
	return m.ShareBalance(account, outcome), nil
}

// GetActiveResolutionWindow reports the round currently accepting stake.
func (e *Engine) GetActiveResolutionWindow(marketID uint64) (WindowView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := e.market(marketID)
	if err != nil {
		return WindowView{}, err
	}
	w := m.activeWindow()
	if w == nil {
		return WindowView{}, ErrNotResoluted
	}
	return WindowView{
		Round:        w.Round,
		RequiredBond: w.RequiredBond,
		EndTime:      w.EndTime,
		Bonded:       w.Bonded(),
	}, nil
}

func copyOrders(orders []*Order) []Order {
	out := make([]Order, len(orders))
	for i, o := range orders {
		out[i] = *o
	}
	return out
}
