// Package sensor renders snapshots into publishable entity states. The
// account-scoped sensors form a fixed catalog that always exists; position,
// vault and order sensors are created and retired by the reconciler.
package sensor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"hypersense/internal/model"
)

// Account-scoped sensor keys.
const (
	KeyAccountValue     = "account_value"
	KeyUnrealizedPnl    = "unrealized_pnl"
	KeyMarginUsed       = "margin_used"
	KeyWithdrawable     = "withdrawable"
	KeyTotalVaultEquity = "total_vault_equity"
	KeyPnl24h           = "pnl_24h"
	KeyPnl7d            = "pnl_7d"
	KeyPnl30d           = "pnl_30d"
	KeyPnlAllTime       = "pnl_all_time"
	KeyRealizedPnl24h   = "realized_pnl_24h"
	KeyRealizedPnl7d    = "realized_pnl_7d"
	KeyRealizedPnl30d   = "realized_pnl_30d"
	KeyTrades24h        = "trades_24h"
	KeyFeesPaid24h      = "fees_paid_24h"
	KeyFeesPaid30d      = "fees_paid_30d"
	KeyFunding24h       = "funding_24h"
	KeyFunding7d        = "funding_7d"
	KeyFunding30d       = "funding_30d"
	KeyOpenOrdersCount  = "open_orders_count"
	KeyReferralEarnings = "referral_earnings"
	KeyReferralVolume   = "referral_volume"
)

// Definition describes one account-scoped sensor: which sub-domain feeds it
// and how to read its value from a snapshot. Value returning nil marks the
// sensor unavailable for the cycle.
type Definition struct {
	Key        string
	Name       string
	Domain     model.Domain
	Value      func(*model.AccountSnapshot) *float64
	Attributes func(*model.AccountSnapshot) map[string]any
}

// Catalog returns the full account-scoped sensor set in stable order.
func Catalog() []Definition {
	return []Definition{
		{Key: KeyAccountValue, Name: "Account Value", Domain: model.DomainAccount,
			Value:      func(s *model.AccountSnapshot) *float64 { return s.AccountValue },
			Attributes: accountValueAttributes},
		{Key: KeyUnrealizedPnl, Name: "Unrealized PnL", Domain: model.DomainAccount,
			Value: func(s *model.AccountSnapshot) *float64 { return s.UnrealizedPnl }},
		{Key: KeyMarginUsed, Name: "Margin Used", Domain: model.DomainAccount,
			Value: func(s *model.AccountSnapshot) *float64 { return s.MarginUsed }},
		{Key: KeyWithdrawable, Name: "Withdrawable", Domain: model.DomainAccount,
			Value: func(s *model.AccountSnapshot) *float64 { return s.Withdrawable }},
		{Key: KeyTotalVaultEquity, Name: "Total Vault Equity", Domain: model.DomainVaults,
			Value: func(s *model.AccountSnapshot) *float64 { return s.TotalVaultEquity }},

		{Key: KeyPnl24h, Name: "PnL 24h", Domain: model.DomainPortfolio,
			Value: func(s *model.AccountSnapshot) *float64 { return s.PnL.Day }},
		{Key: KeyPnl7d, Name: "PnL 7d", Domain: model.DomainPortfolio,
			Value: func(s *model.AccountSnapshot) *float64 { return s.PnL.Week }},
		{Key: KeyPnl30d, Name: "PnL 30d", Domain: model.DomainPortfolio,
			Value: func(s *model.AccountSnapshot) *float64 { return s.PnL.Month }},
		{Key: KeyPnlAllTime, Name: "PnL All Time", Domain: model.DomainPortfolio,
			Value: func(s *model.AccountSnapshot) *float64 { return s.PnL.AllTime }},

		{Key: KeyRealizedPnl24h, Name: "Realized PnL 24h", Domain: model.DomainTrades,
			Value: tradeValue(func(t *model.TradeStats) float64 { return t.Realized24h })},
		{Key: KeyRealizedPnl7d, Name: "Realized PnL 7d", Domain: model.DomainTrades,
			Value: tradeValue(func(t *model.TradeStats) float64 { return t.Realized7d })},
		{Key: KeyRealizedPnl30d, Name: "Realized PnL 30d", Domain: model.DomainTrades,
			Value: tradeValue(func(t *model.TradeStats) float64 { return t.Realized30d })},
		{Key: KeyTrades24h, Name: "Trades 24h", Domain: model.DomainTrades,
			Value:      tradeValue(func(t *model.TradeStats) float64 { return float64(t.Trades24h) }),
			Attributes: recentTradeAttributes},
		{Key: KeyFeesPaid24h, Name: "Fees Paid 24h", Domain: model.DomainTrades,
			Value: tradeValue(func(t *model.TradeStats) float64 { return t.Fees24h })},
		{Key: KeyFeesPaid30d, Name: "Fees Paid 30d", Domain: model.DomainTrades,
			Value: tradeValue(func(t *model.TradeStats) float64 { return t.Fees30d })},

		{Key: KeyFunding24h, Name: "Funding 24h", Domain: model.DomainFunding,
			Value:      fundingValue(func(f *model.FundingSummary) float64 { return f.Total24h }),
			Attributes: fundingAttributes},
		{Key: KeyFunding7d, Name: "Funding 7d", Domain: model.DomainFunding,
			Value: fundingValue(func(f *model.FundingSummary) float64 { return f.Total7d })},
		{Key: KeyFunding30d, Name: "Funding 30d", Domain: model.DomainFunding,
			Value: fundingValue(func(f *model.FundingSummary) float64 { return f.Total30d })},

		{Key: KeyOpenOrdersCount, Name: "Open Orders Count", Domain: model.DomainOrders,
			Value: func(s *model.AccountSnapshot) *float64 {
				return model.Float(float64(len(s.OpenOrders)))
			}},

		{Key: KeyReferralEarnings, Name: "Referral Earnings", Domain: model.DomainReferral,
			Value: func(s *model.AccountSnapshot) *float64 {
				if s.Referral == nil {
					return nil
				}
				return s.Referral.Earnings
			}},
		{Key: KeyReferralVolume, Name: "Referral Volume", Domain: model.DomainReferral,
			Value: func(s *model.AccountSnapshot) *float64 {
				if s.Referral == nil {
					return nil
				}
				return s.Referral.Volume
			}},
	}
}

func tradeValue(pick func(*model.TradeStats) float64) func(*model.AccountSnapshot) *float64 {
	return func(s *model.AccountSnapshot) *float64 {
		if s.Trades == nil {
			return nil
		}
		return model.Float(pick(s.Trades))
	}
}

func fundingValue(pick func(*model.FundingSummary) float64) func(*model.AccountSnapshot) *float64 {
	return func(s *model.AccountSnapshot) *float64 {
		if s.Funding == nil {
			return nil
		}
		return model.Float(pick(s.Funding))
	}
}

func accountValueAttributes(s *model.AccountSnapshot) map[string]any {
	if len(s.History) == 0 {
		return nil
	}
	return map[string]any{"account_value_history": s.History}
}

func recentTradeAttributes(s *model.AccountSnapshot) map[string]any {
	if s.Trades == nil || len(s.Trades.Recent) == 0 {
		return nil
	}
	return map[string]any{
		"recent_trades":  s.Trades.Recent,
		"trades_fetched": s.Trades.TradesFetched,
	}
}

func fundingAttributes(s *model.AccountSnapshot) map[string]any {
	if s.Funding == nil || len(s.Funding.ByCoin) == 0 {
		return nil
	}
	return map[string]any{"funding_by_coin": s.Funding.ByCoin}
}

var uidSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// UniqueID builds the stable external id of an entity:
// hypersense_<wallet>_<kind>_<naturalID>, lowercased and squashed to the
// character set state consumers accept in entity ids.
func UniqueID(wallet, kind, naturalID string) string {
	raw := strings.ToLower(fmt.Sprintf("hypersense_%s_%s_%s", wallet, kind, naturalID))
	return strings.Trim(uidSanitizer.ReplaceAllString(raw, "_"), "_")
}

// FormatValue renders a numeric state the way state consumers expect:
// shortest decimal form, no exponent.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// StateUnavailable is the state published for an entity whose source
// sub-domain did not populate this cycle.
const StateUnavailable = "unavailable"
