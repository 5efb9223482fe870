// Package model 定义账户快照的数据模型：每个轮询周期产出一份不可变的
// AccountSnapshot，各子域要么完整填充，要么显式标记为不可用。
package model

import "time"

// Domain names one independently fetched sub-domain of the snapshot.
type Domain string

const (
	DomainAccount   Domain = "account"   // clearinghouse state: margin summary + positions
	DomainVaults    Domain = "vaults"    // vault equities (+ per-vault details)
	DomainPortfolio Domain = "portfolio" // account-value / PnL history by window
	DomainTrades    Domain = "trades"    // user fills within the lookback
	DomainFunding   Domain = "funding"   // funding ledger within the lookback
	DomainOrders    Domain = "orders"    // frontend open orders
	DomainReferral  Domain = "referral"  // referral summary
)

// Domains returns every sub-domain in a stable order.
func Domains() []Domain {
	return []Domain{
		DomainAccount, DomainVaults, DomainPortfolio,
		DomainTrades, DomainFunding, DomainOrders, DomainReferral,
	}
}

// DomainStatus records whether a sub-domain was populated this cycle.
// A failed fetch or rejected payload shape yields Available=false with the
// reason; the corresponding snapshot fields are then nil, never zero.
type DomainStatus struct {
	Available bool      `json:"available"`
	Reason    string    `json:"reason,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Position is one open perpetual position. One position per coin; the coin
// symbol is the natural identity key.
type Position struct {
	Coin           string   `json:"coin"`
	Size           float64  `json:"size"` // absolute size
	Side           string   `json:"side"` // "long" | "short", from the sign of szi
	EntryPrice     float64  `json:"entry_price"`
	MarkPrice      float64  `json:"mark_price"` // |positionValue / szi|
	LiquidationPx  *float64 `json:"liquidation_price"`
	Leverage       string   `json:"leverage"` // "cross" or e.g. "20x"
	UnrealizedPnl  float64  `json:"unrealized_pnl"`
	MarginUsed     float64  `json:"margin_used"`
	ReturnOnEquity float64  `json:"return_on_equity"` // percent
	PositionValue  float64  `json:"position_value"`

	// Funding enrichment, joined from the funding ledger after aggregation.
	FundingRate     *float64 `json:"funding_rate,omitempty"`
	Funding24h      *float64 `json:"funding_24h,omitempty"`
	EstFundingDaily *float64 `json:"estimated_funding_daily,omitempty"`
	// Cumulative funding since account inception, from the clearinghouse.
	CumFundingAllTime *float64 `json:"cum_funding_all_time,omitempty"`
}

// VaultDeposit is the wallet's stake in one vault. The vault address is the
// natural identity key.
type VaultDeposit struct {
	Address        string  `json:"vault_address"`
	Name           string  `json:"vault_name"`
	Equity         float64 `json:"equity"`
	Pnl            float64 `json:"pnl"`
	ROI            float64 `json:"roi"` // percent
	DepositValue   float64 `json:"deposit_value"`
	APR            float64 `json:"apr"`
	LeaderAddress  string  `json:"leader_address"`
	LeaderFraction float64 `json:"leader_fraction"` // percent of vault TVL
	LeaderEquity   float64 `json:"leader_equity"`
	LeaderCommiss  float64 `json:"leader_commission"` // percent
	VaultTVL       float64 `json:"vault_total_value"`
	Closed         bool    `json:"is_closed"`
}

// OpenOrder is one resting order. The order id is the natural identity key.
type OpenOrder struct {
	OrderID      int64    `json:"order_id"`
	Coin         string   `json:"coin"`
	Side         string   `json:"side"`
	Type         string   `json:"order_type"`
	Price        float64  `json:"price"`
	Size         float64  `json:"size"`
	OriginalSize float64  `json:"original_size"`
	TriggerPrice *float64 `json:"trigger_price"`
	ReduceOnly   bool     `json:"reduce_only"`
	PlacedAt     int64    `json:"timestamp"` // ms
}

// Trade is one fill kept for the recent-trades attribute list.
type Trade struct {
	Coin      string  `json:"coin"`
	Side      string  `json:"side"`
	Size      float64 `json:"size"`
	Price     float64 `json:"price"`
	ClosedPnl float64 `json:"closed_pnl"`
	Fee       float64 `json:"fee"`
	Time      int64   `json:"timestamp"` // ms
}

// HistoryPoint is one sample of the account-value series.
type HistoryPoint struct {
	Time  int64   `json:"time"` // ms
	Value float64 `json:"value"`
}

// PnLWindows holds account-value deltas derived from the portfolio history.
// nil means the window could not be derived (no sample old enough, or the
// portfolio domain is unavailable).
type PnLWindows struct {
	Day     *float64 `json:"pnl_24h"`
	Week    *float64 `json:"pnl_7d"`
	Month   *float64 `json:"pnl_30d"`
	AllTime *float64 `json:"pnl_all_time"`
}

// TradeStats aggregates fills per trailing window. Window sums cover every
// fill fetched inside the window; Recent is bounded by the configured trade
// count and exists only for display (see DESIGN.md, Open Questions).
type TradeStats struct {
	Trades24h     int     `json:"trades_24h"`
	Fees24h       float64 `json:"fees_paid_24h"`
	Fees30d       float64 `json:"fees_paid_30d"`
	Realized24h   float64 `json:"realized_pnl_24h"`
	Realized7d    float64 `json:"realized_pnl_7d"`
	Realized30d   float64 `json:"realized_pnl_30d"`
	TradesFetched int     `json:"trades_fetched"` // all fills within the lookback
	Recent        []Trade `json:"recent_trades"`
}

// CoinFunding is the funding activity of one coin within the lookback.
type CoinFunding struct {
	Amount24h  float64 `json:"funding_24h"`
	LatestRate float64 `json:"funding_rate"` // most recent ledger rate
	Count24h   int     `json:"count"`
	LatestTime int64   `json:"latest_time"` // ms
}

// FundingSummary aggregates the funding ledger per window and per coin.
type FundingSummary struct {
	Total24h float64                `json:"funding_24h"`
	Total7d  float64                `json:"funding_7d"`
	Total30d float64                `json:"funding_30d"`
	ByCoin   map[string]CoinFunding `json:"by_coin"`
}

// ReferralStats is the single account-scoped referral record.
type ReferralStats struct {
	Earnings     *float64 `json:"referral_earnings"`
	Volume       *float64 `json:"referral_volume"`
	Referrer     string   `json:"referrer,omitempty"`
	RefereeCount int      `json:"referee_count"`
}

// AccountSnapshot is one cycle's account state. Core numeric fields are
// pointers: nil means the owning sub-domain did not populate this cycle,
// which is distinct from a legitimate zero.
type AccountSnapshot struct {
	CycleID   string    `json:"cycle_id"`
	Wallet    string    `json:"wallet"`
	FetchedAt time.Time `json:"fetched_at"`

	Domains map[Domain]DomainStatus `json:"domains"`

	AccountValue     *float64 `json:"account_value"`
	UnrealizedPnl    *float64 `json:"unrealized_pnl"`
	MarginUsed       *float64 `json:"margin_used"`
	Withdrawable     *float64 `json:"withdrawable"`
	TotalVaultEquity *float64 `json:"total_vault_equity"`

	Positions  []Position     `json:"positions"`
	Vaults     []VaultDeposit `json:"vaults"`
	OpenOrders []OpenOrder    `json:"open_orders"`

	PnL      PnLWindows      `json:"pnl_windows"`
	History  []HistoryPoint  `json:"account_value_history"`
	Trades   *TradeStats     `json:"trade_stats"`
	Funding  *FundingSummary `json:"funding_summary"`
	Referral *ReferralStats  `json:"referral"`
}

// DomainAvailable reports whether the given sub-domain populated this cycle.
func (s *AccountSnapshot) DomainAvailable(d Domain) bool {
	if s == nil {
		return false
	}
	st, ok := s.Domains[d]
	return ok && st.Available
}

// Float is a convenience for building optional snapshot fields in tests and
// parsers.
func Float(v float64) *float64 { return &v }
