package engine

// Verdict is a resolution target: either one concrete outcome index or the
// distinguished "invalid" state. Using a tagged value instead of an optional
// index keeps the invalid branch explicit at every use site.
type Verdict struct {
	invalid bool
	index   uint64
}

func OutcomeVerdict(index uint64) Verdict {
	return Verdict{index: index}
}

func InvalidVerdict() Verdict {
	return Verdict{invalid: true}
}

func (v Verdict) IsInvalid() bool {
	return v.invalid
}

// Index returns the outcome index; ok is false for the invalid verdict.
func (v Verdict) Index() (uint64, bool) {
	return v.index, !v.invalid
}

type shareKey struct {
	account string
	outcome uint64
}

// Market owns its books, share ledger, escrow accounting and resolution
// windows. All mutation goes through the Engine entry points, which hold the
// engine lock, so Market itself carries no locking.
type Market struct {
	ID                  uint64
	Creator             string
	Description         string
	ExtraInfo           string
	Category            string
	Categories          []string
	OutcomeTags         []string
	NumOutcomes         uint64
	EndTime             int64 // ms since epoch
	CreatorFeePercent   uint64
	AffiliateFeePercent uint64

	Books []*OrderBook // one per outcome; open set + filled log

	shares map[shareKey]uint64

	// FilledVolume is the total collateral consumed minting share sets
	// (100 cents per set); the per-outcome slice tracks each outcome's
	// participation for market views.
	FilledVolume          uint64
	FilledVolumeByOutcome []uint64

	// Fee and surplus accounting feeding the resolution reward pool.
	saleFees      uint64
	matchSurplus  uint64            // overcharge above 100/set, kept in escrow
	saleProfits   map[string]uint64 // per seller: bid minus basis, escrowed
	totalProfits  uint64

	Windows   []*ResolutionWindow
	Resoluted bool
	Disputed  bool
	Finalized bool
	final     Verdict

	claimed map[string]bool
}

func NewMarket(id uint64, creator, description, extraInfo string, numOutcomes uint64,
	outcomeTags []string, categories []string, endTimeMs int64,
	creatorFeePct, affiliateFeePct uint64, category string) *Market {

	books := make([]*OrderBook, numOutcomes)
	for i := range books {
		books[i] = NewOrderBook(uint64(i))
	}

	return &Market{
		ID:                    id,
		Creator:               creator,
		Description:           description,
		ExtraInfo:             extraInfo,
		Category:              category,
		Categories:            categories,
		OutcomeTags:           outcomeTags,
		NumOutcomes:           numOutcomes,
		EndTime:               endTimeMs,
		CreatorFeePercent:     creatorFeePct,
		AffiliateFeePercent:   affiliateFeePct,
		Books:                 books,
		shares:                make(map[shareKey]uint64),
		FilledVolumeByOutcome: make([]uint64, numOutcomes),
		saleProfits:           make(map[string]uint64),
		claimed:               make(map[string]bool),
	}
}

// Ended reports whether trading has closed at the given block time (ns).
func (m *Market) Ended(blockTimeNs int64) bool {
	return blockTimeNs >= m.EndTime*1_000_000
}

func (m *Market) ShareBalance(account string, outcome uint64) uint64 {
	return m.shares[shareKey{account: account, outcome: outcome}]
}

func (m *Market) creditShares(account string, outcome uint64, shares uint64) {
	m.shares[shareKey{account: account, outcome: outcome}] += shares
}

func (m *Market) burnShares(account string, outcome uint64, shares uint64) {
	key := shareKey{account: account, outcome: outcome}
	m.shares[key] -= shares
	if m.shares[key] == 0 {
		delete(m.shares, key)
	}
}

// winner is the final verdict of a finalized market, or the provisional one
// of the last bonded window. ok is false before round 0 fills.
func (m *Market) winner() (Verdict, bool) {
	if m.Finalized {
		return m.final, true
	}
	for i := len(m.Windows) - 1; i >= 0; i-- {
		if m.Windows[i].Bonded() {
			return m.Windows[i].Winning, true
		}
	}
	return Verdict{}, false
}

// bondedWindow returns the most recent window whose bond filled.
func (m *Market) bondedWindow() *ResolutionWindow {
	for i := len(m.Windows) - 1; i >= 0; i-- {
		if m.Windows[i].Bonded() {
			return m.Windows[i]
		}
	}
	return nil
}

// activeWindow is the youngest window, still accepting stake.
func (m *Market) activeWindow() *ResolutionWindow {
	if len(m.Windows) == 0 {
		return nil
	}
	return m.Windows[len(m.Windows)-1]
}

// ordersOfAccount walks both the open sets and the filled logs of every
// outcome book, yielding each of the account's orders exactly once.
func (m *Market) ordersOfAccount(account string) []*Order {
	var out []*Order
	for _, book := range m.Books {
		out = append(out, ordersOf(book.FilledOrders(), account)...)
		out = append(out, ordersOf(book.OpenOrders(), account)...)
	}
	return out
}

// allOrders yields every order ever placed on the market.
func (m *Market) allOrders() []*Order {
	var out []*Order
	for _, book := range m.Books {
		out = append(out, book.FilledOrders()...)
		out = append(out, book.OpenOrders()...)
	}
	return out
}
