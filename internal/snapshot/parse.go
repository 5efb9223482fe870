package snapshot

import (
	"fmt"
	"math"

	"hypersense/internal/hyperliquid"
	"hypersense/internal/logger"
	"hypersense/internal/model"
	"hypersense/internal/pkg/convert"
)

// applyAccount maps the clearinghouse state onto the snapshot. The margin
// summary and every position's signed size must parse: guessing at either
// would let a drifted payload masquerade as real balances or, worse, as a
// closed position (which would retire a live entity). Anything less load
// bearing degrades field by field.
func applyAccount(snap *model.AccountSnapshot, state hyperliquid.ClearinghouseState) error {
	accountValue, ok := convert.ParseFloat(state.MarginSummary.AccountValue)
	if !ok {
		return model.NewSchemaError(model.DomainAccount,
			fmt.Sprintf("marginSummary.accountValue not numeric: %q", state.MarginSummary.AccountValue), nil)
	}
	snap.AccountValue = model.Float(accountValue)
	snap.MarginUsed = convert.FloatPtr(state.MarginSummary.TotalMarginUsed)
	snap.Withdrawable = convert.FloatPtr(state.Withdrawable)

	positions := make([]model.Position, 0, len(state.AssetPositions))
	totalUnrealized := 0.0
	for _, ap := range state.AssetPositions {
		p := ap.Position
		szi, ok := convert.ParseFloat(p.Szi)
		if !ok {
			return model.NewSchemaError(model.DomainAccount,
				fmt.Sprintf("position %s szi not numeric: %q", p.Coin, p.Szi), nil)
		}
		if szi == 0 {
			continue // flat, not an open position
		}
		side := "long"
		if szi < 0 {
			side = "short"
		}
		positionValue := convert.FloatOr(p.PositionValue, 0)
		unrealized := convert.FloatOr(p.UnrealizedPnl, 0)
		totalUnrealized += unrealized

		pos := model.Position{
			Coin:           p.Coin,
			Size:           math.Abs(szi),
			Side:           side,
			EntryPrice:     convert.FloatOr(p.EntryPx, 0),
			MarkPrice:      math.Abs(positionValue / szi),
			Leverage:       leverageLabel(p.Leverage),
			UnrealizedPnl:  unrealized,
			MarginUsed:     convert.FloatOr(p.MarginUsed, 0),
			ReturnOnEquity: convert.FloatOr(p.ReturnOnEquity, 0) * 100,
			PositionValue:  positionValue,
			LiquidationPx:  convert.FloatPtr(p.LiquidationPx),
		}
		if cum, ok := convert.ParseFloat(p.CumFunding.AllTime); ok {
			pos.CumFundingAllTime = model.Float(cum)
		}
		positions = append(positions, pos)
	}
	snap.Positions = positions
	snap.UnrealizedPnl = model.Float(totalUnrealized)
	return nil
}

func leverageLabel(lev hyperliquid.Leverage) string {
	if lev.Type == "cross" || lev.Type == "" {
		return "cross"
	}
	return fmt.Sprintf("%dx", lev.Value)
}

func applyVaults(snap *model.AccountSnapshot, vaults []hyperliquid.VaultEquity) {
	out := make([]model.VaultDeposit, 0, len(vaults))
	total := 0.0
	for _, v := range vaults {
		equity, ok := convert.ParseFloat(v.Equity)
		if !ok {
			logger.Warnf("snapshot: vault %s equity not numeric (%q), skipping", v.VaultAddress, v.Equity)
			continue
		}
		dep := model.VaultDeposit{
			Address:      v.VaultAddress,
			Name:         shortAddress(v.VaultAddress),
			Equity:       equity,
			Pnl:          convert.FloatOr(v.Pnl, 0),
			ROI:          roiPercent(convert.FloatOr(v.Roi, 0)),
			DepositValue: convert.FloatOr(v.DepositValue, equity),
		}
		if d := v.Details; d != nil {
			if d.Name != "" {
				dep.Name = d.Name
			}
			dep.APR = d.APR
			dep.LeaderAddress = d.Leader
			dep.LeaderFraction = d.LeaderFraction * 100
			dep.LeaderCommiss = d.LeaderCommission * 100
			dep.VaultTVL = d.MaxDistributable
			dep.Closed = d.IsClosed
			if d.MaxDistributable > 0 {
				dep.LeaderEquity = d.MaxDistributable * d.LeaderFraction
			}
		}
		out = append(out, dep)
		total += equity
	}
	snap.Vaults = out
	snap.TotalVaultEquity = model.Float(total)
}

// roiPercent normalizes the vault ROI, which the API reports as a fraction
// for small values and as a percentage for large ones.
func roiPercent(roi float64) float64 {
	if math.Abs(roi) < 1 {
		return roi * 100
	}
	return roi
}

func shortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:10] + "..."
}

func applyOrders(snap *model.AccountSnapshot, orders []hyperliquid.OpenOrderPayload) {
	out := make([]model.OpenOrder, 0, len(orders))
	for _, o := range orders {
		if o.Oid == 0 {
			logger.Warnf("snapshot: open order without oid (coin=%s), skipping", o.Coin)
			continue
		}
		size := convert.FloatOr(o.Sz, 0)
		order := model.OpenOrder{
			OrderID:      o.Oid,
			Coin:         o.Coin,
			Side:         o.Side,
			Type:         orderType(o),
			Price:        convert.FloatOr(o.LimitPx, 0),
			Size:         size,
			OriginalSize: convert.FloatOr(o.OrigSz, size),
			ReduceOnly:   o.ReduceOnly,
			PlacedAt:     o.Timestamp,
		}
		if o.IsTrigger {
			order.TriggerPrice = convert.FloatPtr(o.TriggerPx)
		}
		out = append(out, order)
	}
	snap.OpenOrders = out
}

func orderType(o hyperliquid.OpenOrderPayload) string {
	if o.OrderType != "" {
		return o.OrderType
	}
	if o.IsTrigger {
		return "trigger"
	}
	return "limit"
}

func historyPoints(series []hyperliquid.HistoryPoint) []model.HistoryPoint {
	if len(series) == 0 {
		return nil
	}
	out := make([]model.HistoryPoint, len(series))
	for i, p := range series {
		out[i] = model.HistoryPoint{Time: p.Time, Value: p.Value}
	}
	return out
}
