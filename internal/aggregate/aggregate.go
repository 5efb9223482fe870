// Package aggregate derives the trailing-window statistics of a snapshot
// from the raw history payloads: fill sums, funding sums per window and per
// coin, and account-value PnL windows. All sums run over every entry fetched
// inside the window; only the recent-trades list is truncated for display.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"hypersense/internal/hyperliquid"
	"hypersense/internal/model"
	"hypersense/internal/pkg/convert"
)

const (
	WindowDay   = 24 * time.Hour
	WindowWeek  = 7 * 24 * time.Hour
	WindowMonth = 30 * 24 * time.Hour
)

// inWindow reports whether a millisecond timestamp falls inside [now-w, now].
// The lower bound is inclusive: an entry exactly one window old still counts.
func inWindow(ms int64, now time.Time, w time.Duration) bool {
	return ms >= now.Add(-w).UnixMilli() && ms <= now.UnixMilli()
}

// TradeStats sums the fetched fills per trailing window and keeps the
// recentN most recent fills for display. Fee and PnL sums go through
// decimal so long fill lists do not accumulate float drift.
func TradeStats(fills []hyperliquid.Fill, recentN int, now time.Time) *model.TradeStats {
	stats := &model.TradeStats{TradesFetched: len(fills)}

	var fees24h, fees30d, realized24h, realized7d, realized30d decimal.Decimal
	for _, f := range fills {
		fee := decimalOrZero(f.Fee)
		pnl := decimalOrZero(f.ClosedPnl)
		if inWindow(f.Time, now, WindowDay) {
			stats.Trades24h++
			fees24h = fees24h.Add(fee)
			realized24h = realized24h.Add(pnl)
		}
		if inWindow(f.Time, now, WindowWeek) {
			realized7d = realized7d.Add(pnl)
		}
		if inWindow(f.Time, now, WindowMonth) {
			fees30d = fees30d.Add(fee)
			realized30d = realized30d.Add(pnl)
		}
	}
	stats.Fees24h = fees24h.InexactFloat64()
	stats.Fees30d = fees30d.InexactFloat64()
	stats.Realized24h = realized24h.InexactFloat64()
	stats.Realized7d = realized7d.InexactFloat64()
	stats.Realized30d = realized30d.InexactFloat64()
	stats.Recent = recentTrades(fills, recentN)
	return stats
}

func recentTrades(fills []hyperliquid.Fill, n int) []model.Trade {
	if n <= 0 || len(fills) == 0 {
		return nil
	}
	sorted := make([]hyperliquid.Fill, len(fills))
	copy(sorted, fills)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time > sorted[j].Time })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]model.Trade, len(sorted))
	for i, f := range sorted {
		out[i] = model.Trade{
			Coin:      f.Coin,
			Side:      sideLabel(f.Side, f.Dir),
			Size:      convert.FloatOr(f.Sz, 0),
			Price:     convert.FloatOr(f.Px, 0),
			ClosedPnl: convert.FloatOr(f.ClosedPnl, 0),
			Fee:       convert.FloatOr(f.Fee, 0),
			Time:      f.Time,
		}
	}
	return out
}

// sideLabel prefers the human direction ("Open Long", "Close Short") over
// the raw A/B side code.
func sideLabel(side, dir string) string {
	if dir != "" {
		return dir
	}
	switch side {
	case "B":
		return "buy"
	case "A":
		return "sell"
	}
	return side
}

// Funding sums the funding ledger per trailing window and per coin. The
// per-coin rate is the most recent ledger rate seen for that coin across the
// whole fetched window, so a coin without a payment in the last 24h still
// reports its latest known rate.
func Funding(entries []hyperliquid.FundingLedgerEntry, now time.Time) *model.FundingSummary {
	summary := &model.FundingSummary{ByCoin: map[string]model.CoinFunding{}}

	var total24h, total7d, total30d decimal.Decimal
	perCoin24h := map[string]decimal.Decimal{}
	for _, e := range entries {
		amount := decimalOrZero(e.Delta.Usdc)
		if inWindow(e.Time, now, WindowDay) {
			total24h = total24h.Add(amount)
		}
		if inWindow(e.Time, now, WindowWeek) {
			total7d = total7d.Add(amount)
		}
		if inWindow(e.Time, now, WindowMonth) {
			total30d = total30d.Add(amount)
		}

		coin := e.Delta.Coin
		cf := summary.ByCoin[coin]
		if inWindow(e.Time, now, WindowDay) {
			perCoin24h[coin] = perCoin24h[coin].Add(amount)
			cf.Count24h++
		}
		if e.Time >= cf.LatestTime {
			cf.LatestTime = e.Time
			cf.LatestRate = convert.FloatOr(e.Delta.FundingRate, 0)
		}
		summary.ByCoin[coin] = cf
	}
	for coin, sum := range perCoin24h {
		cf := summary.ByCoin[coin]
		cf.Amount24h = sum.InexactFloat64()
		summary.ByCoin[coin] = cf
	}
	summary.Total24h = total24h.InexactFloat64()
	summary.Total7d = total7d.InexactFloat64()
	summary.Total30d = total30d.InexactFloat64()
	return summary
}

// PnLWindows derives account-value deltas from the portfolio history. Each
// window compares the current account value against the earliest sample
// inside the window; a window with no old-enough sample stays nil rather
// than reading as zero.
func PnLWindows(p *hyperliquid.Portfolio, currentValue *float64, now time.Time) model.PnLWindows {
	var windows model.PnLWindows
	if p == nil || currentValue == nil {
		return windows
	}
	windows.Day = windowDelta(p.Day.AccountValueHistory, *currentValue, now, WindowDay)
	windows.Week = windowDelta(p.Week.AccountValueHistory, *currentValue, now, WindowWeek)
	windows.Month = windowDelta(p.Month.AccountValueHistory, *currentValue, now, WindowMonth)
	if first := oldestPoint(p.AllTime.AccountValueHistory); first != nil {
		windows.AllTime = model.Float(*currentValue - first.Value)
	}
	return windows
}

func windowDelta(series []hyperliquid.HistoryPoint, current float64, now time.Time, w time.Duration) *float64 {
	cutoff := now.Add(-w).UnixMilli()
	var base *hyperliquid.HistoryPoint
	for i := range series {
		p := &series[i]
		if p.Time < cutoff || p.Time > now.UnixMilli() {
			continue
		}
		if base == nil || p.Time < base.Time {
			base = p
		}
	}
	if base == nil {
		return nil
	}
	return model.Float(current - base.Value)
}

func oldestPoint(series []hyperliquid.HistoryPoint) *hyperliquid.HistoryPoint {
	var first *hyperliquid.HistoryPoint
	for i := range series {
		if first == nil || series[i].Time < first.Time {
			first = &series[i]
		}
	}
	return first
}

// EnrichPositions copies the per-coin funding aggregates onto the open
// positions so funding shows up as position attributes. The estimated daily
// funding projects the latest hourly rate over the position value.
func EnrichPositions(positions []model.Position, funding *model.FundingSummary) {
	if funding == nil {
		return
	}
	for i := range positions {
		cf, ok := funding.ByCoin[positions[i].Coin]
		if !ok {
			continue
		}
		positions[i].Funding24h = model.Float(cf.Amount24h)
		positions[i].FundingRate = model.Float(cf.LatestRate)
		positions[i].EstFundingDaily = model.Float(cf.LatestRate * positions[i].PositionValue * 24)
	}
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
