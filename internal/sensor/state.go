package sensor

import (
	"fmt"

	"hypersense/internal/model"
	"hypersense/internal/reconcile"
)

// State is one publishable entity state.
type State struct {
	UniqueID   string         `json:"unique_id"`
	Name       string         `json:"name"`
	Kind       string         `json:"kind"`
	NaturalID  string         `json:"natural_id"`
	State      string         `json:"state"`
	Available  bool           `json:"available"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// AccountStates renders the fixed catalog against a snapshot. Every catalog
// sensor is always present; sensors of an unavailable sub-domain carry the
// unavailable state instead of a number.
func AccountStates(snap *model.AccountSnapshot) []State {
	defs := Catalog()
	out := make([]State, 0, len(defs))
	for _, def := range defs {
		st := State{
			UniqueID:  UniqueID(snap.Wallet, "sensor", def.Key),
			Name:      fmt.Sprintf("Hyperliquid %s %s", shortWallet(snap.Wallet), def.Name),
			Kind:      "sensor",
			NaturalID: def.Key,
			State:     StateUnavailable,
		}
		if snap.DomainAvailable(def.Domain) {
			if v := def.Value(snap); v != nil {
				st.State = FormatValue(*v)
				st.Available = true
				if def.Attributes != nil {
					st.Attributes = def.Attributes(snap)
				}
			}
		}
		out = append(out, st)
	}
	return out
}

// PositionState renders one open position. The state is the position's
// unrealized PnL; everything else rides along as attributes.
func PositionState(wallet string, p model.Position) State {
	attrs := map[string]any{
		"coin":             p.Coin,
		"side":             p.Side,
		"size":             p.Size,
		"entry_price":      p.EntryPrice,
		"mark_price":       p.MarkPrice,
		"leverage":         p.Leverage,
		"unrealized_pnl":   p.UnrealizedPnl,
		"margin_used":      p.MarginUsed,
		"return_on_equity": p.ReturnOnEquity,
		"position_value":   p.PositionValue,
	}
	if p.LiquidationPx != nil {
		attrs["liquidation_price"] = *p.LiquidationPx
	}
	if p.FundingRate != nil {
		attrs["funding_rate"] = *p.FundingRate
	}
	if p.Funding24h != nil {
		attrs["funding_24h"] = *p.Funding24h
	}
	if p.EstFundingDaily != nil {
		attrs["estimated_funding_daily"] = *p.EstFundingDaily
	}
	key := reconcile.PositionKey(p.Coin)
	return State{
		UniqueID:   UniqueID(wallet, string(key.Kind), key.NaturalID),
		Name:       fmt.Sprintf("%s Position PnL", p.Coin),
		Kind:       string(key.Kind),
		NaturalID:  key.NaturalID,
		State:      FormatValue(p.UnrealizedPnl),
		Available:  true,
		Attributes: attrs,
	}
}

// VaultState renders one vault deposit with its equity as the state.
func VaultState(wallet string, v model.VaultDeposit) State {
	attrs := map[string]any{
		"vault_address": v.Address,
		"vault_name":    v.Name,
		"equity":        v.Equity,
		"pnl":           v.Pnl,
		"roi":           v.ROI,
		"deposit_value": v.DepositValue,
		"is_closed":     v.Closed,
	}
	if v.LeaderAddress != "" {
		attrs["apr"] = v.APR
		attrs["leader_address"] = v.LeaderAddress
		attrs["leader_fraction"] = v.LeaderFraction
		attrs["leader_equity"] = v.LeaderEquity
		attrs["leader_commission"] = v.LeaderCommiss
		attrs["vault_total_value"] = v.VaultTVL
	}
	key := reconcile.VaultKey(v.Address)
	return State{
		UniqueID:   UniqueID(wallet, string(key.Kind), key.NaturalID),
		Name:       fmt.Sprintf("Vault %s", v.Name),
		Kind:       string(key.Kind),
		NaturalID:  key.NaturalID,
		State:      FormatValue(v.Equity),
		Available:  true,
		Attributes: attrs,
	}
}

// OrderState renders one open order with its limit price as the state.
func OrderState(wallet string, o model.OpenOrder) State {
	attrs := map[string]any{
		"order_id":      o.OrderID,
		"order_type":    o.Type,
		"coin":          o.Coin,
		"side":          o.Side,
		"price":         o.Price,
		"size":          o.Size,
		"original_size": o.OriginalSize,
		"filled":        o.OriginalSize - o.Size,
		"remaining":     o.Size,
		"reduce_only":   o.ReduceOnly,
		"timestamp":     o.PlacedAt,
	}
	if o.TriggerPrice != nil {
		attrs["trigger_price"] = *o.TriggerPrice
	}
	key := reconcile.OrderKey(o.OrderID)
	return State{
		UniqueID:   UniqueID(wallet, string(key.Kind), key.NaturalID),
		Name:       fmt.Sprintf("%s Order %d", o.Coin, o.OrderID),
		Kind:       string(key.Kind),
		NaturalID:  key.NaturalID,
		State:      FormatValue(o.Price),
		Available:  true,
		Attributes: attrs,
	}
}

// UnavailableState renders a known entity whose source domain failed this
// cycle: the identity survives, the state goes unavailable.
func UnavailableState(wallet string, key reconcile.Key, name string) State {
	return State{
		UniqueID:  UniqueID(wallet, string(key.Kind), key.NaturalID),
		Name:      name,
		Kind:      string(key.Kind),
		NaturalID: key.NaturalID,
		State:     StateUnavailable,
	}
}

// DynamicStates renders every dynamic entity present in a snapshot, keyed by
// identity so the reconciler's plan can be joined against it.
func DynamicStates(snap *model.AccountSnapshot) map[reconcile.Key]State {
	out := make(map[reconcile.Key]State)
	if snap == nil {
		return out
	}
	if snap.DomainAvailable(model.DomainAccount) {
		for _, p := range snap.Positions {
			out[reconcile.PositionKey(p.Coin)] = PositionState(snap.Wallet, p)
		}
	}
	if snap.DomainAvailable(model.DomainVaults) {
		for _, v := range snap.Vaults {
			out[reconcile.VaultKey(v.Address)] = VaultState(snap.Wallet, v)
		}
	}
	if snap.DomainAvailable(model.DomainOrders) {
		for _, o := range snap.OpenOrders {
			out[reconcile.OrderKey(o.OrderID)] = OrderState(snap.Wallet, o)
		}
	}
	return out
}

func shortWallet(wallet string) string {
	if len(wallet) <= 8 {
		return wallet
	}
	return wallet[:6] + ".." + wallet[len(wallet)-2:]
}
