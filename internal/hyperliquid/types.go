package hyperliquid

// Wire payloads for the Hyperliquid info API. Numeric fields arrive as
// decimal strings on this API (and occasionally as plain numbers, which the
// snapshot builder tolerates via convert.Float); they are kept as strings
// here so the boundary into internal/model is the single place where parsing
// and the missing-vs-zero distinction happen.

type MarginSummary struct {
	AccountValue    string `json:"accountValue"`
	TotalMarginUsed string `json:"totalMarginUsed"`
	TotalNtlPos     string `json:"totalNtlPos"`
	TotalRawUsd     string `json:"totalRawUsd"`
}

type Leverage struct {
	Type   string `json:"type"` // "cross" | "isolated"
	Value  int    `json:"value"`
	RawUsd string `json:"rawUsd"`
}

type CumFunding struct {
	AllTime     string `json:"allTime"`
	SinceChange string `json:"sinceChange"`
	SinceOpen   string `json:"sinceOpen"`
}

type PositionPayload struct {
	Coin           string     `json:"coin"`
	Szi            string     `json:"szi"` // signed size
	EntryPx        string     `json:"entryPx"`
	PositionValue  string     `json:"positionValue"`
	UnrealizedPnl  string     `json:"unrealizedPnl"`
	MarginUsed     string     `json:"marginUsed"`
	ReturnOnEquity string     `json:"returnOnEquity"`
	LiquidationPx  string     `json:"liquidationPx"` // empty/null when none
	Leverage       Leverage   `json:"leverage"`
	MaxLeverage    int        `json:"maxLeverage"`
	CumFunding     CumFunding `json:"cumFunding"`
}

type AssetPosition struct {
	Type     string          `json:"type"`
	Position PositionPayload `json:"position"`
}

type ClearinghouseState struct {
	MarginSummary              MarginSummary   `json:"marginSummary"`
	CrossMarginSummary         MarginSummary   `json:"crossMarginSummary"`
	CrossMaintenanceMarginUsed string          `json:"crossMaintenanceMarginUsed"`
	Withdrawable               string          `json:"withdrawable"`
	AssetPositions             []AssetPosition `json:"assetPositions"`
	Time                       int64           `json:"time"`
}

type Fill struct {
	Coin          string `json:"coin"`
	Px            string `json:"px"`
	Sz            string `json:"sz"`
	Side          string `json:"side"`
	Dir           string `json:"dir"`
	ClosedPnl     string `json:"closedPnl"`
	Fee           string `json:"fee"`
	FeeToken      string `json:"feeToken"`
	StartPosition string `json:"startPosition"`
	Hash          string `json:"hash"`
	Crossed       bool   `json:"crossed"`
	Oid           int64  `json:"oid"`
	Tid           int64  `json:"tid"`
	Time          int64  `json:"time"` // ms
}

type OpenOrderPayload struct {
	Coin             string `json:"coin"`
	LimitPx          string `json:"limitPx"`
	Sz               string `json:"sz"`
	OrigSz           string `json:"origSz"`
	TriggerPx        string `json:"triggerPx"`
	TriggerCondition string `json:"triggerCondition"`
	OrderType        string `json:"orderType"`
	Side             string `json:"side"`
	Oid              int64  `json:"oid"`
	ReduceOnly       bool   `json:"reduceOnly"`
	IsTrigger        bool   `json:"isTrigger"`
	IsPositionTpsl   bool   `json:"isPositionTpsl"`
	Timestamp        int64  `json:"timestamp"` // ms
}

type FundingDelta struct {
	Type        string `json:"type"` // "funding"
	Coin        string `json:"coin"`
	Usdc        string `json:"usdc"` // signed payment
	Szi         string `json:"szi"`
	FundingRate string `json:"fundingRate"`
	Nonce       int64  `json:"nonce"`
}

type FundingLedgerEntry struct {
	Delta FundingDelta `json:"delta"`
	Hash  string       `json:"hash"`
	Time  int64        `json:"time"` // ms
}

type VaultEquity struct {
	VaultAddress string `json:"vaultAddress"`
	Equity       string `json:"equity"`
	Pnl          string `json:"pnl"`
	Roi          string `json:"roi"`
	DepositValue string `json:"depositValue"`
	LockedUntil  int64  `json:"lockedUntilTimestamp"`

	// Enrichment merged in from the vaultDetails endpoint, best effort.
	Details *VaultDetails `json:"-"`
}

// VaultDetails is extracted tolerantly (gjson): the endpoint has shipped both
// string and number forms for the numeric fields.
type VaultDetails struct {
	Name             string
	APR              float64
	Leader           string
	LeaderFraction   float64
	LeaderCommission float64
	MaxDistributable float64
	IsClosed         bool
}

// HistoryPoint is one [timestampMs, value] pair from the portfolio response.
type HistoryPoint struct {
	Time  int64
	Value float64
}

// PeriodData is one window of the portfolio response.
type PeriodData struct {
	AccountValueHistory []HistoryPoint
	PnlHistory          []HistoryPoint
	Volume              float64
}

// Portfolio carries the per-window account history. Only the total buckets
// are kept; the perp* buckets exist on the wire but have no consumer here.
type Portfolio struct {
	Day     PeriodData
	Week    PeriodData
	Month   PeriodData
	AllTime PeriodData
}

// ReferralSummary is extracted tolerantly from the referral endpoint.
// Earnings and volume are pointers: the endpoint omits them for wallets that
// never referred, and omitted must not read as zero.
type ReferralSummary struct {
	TotalEarnedUsdc *float64
	TotalVolume     *float64
	Referrer        string
	RefereeCount    int
}
