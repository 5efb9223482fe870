// Package reconcile computes the entity lifecycle of a cycle: which dynamic
// entities (positions, vaults, open orders) exist in the new snapshot,
// which known entities match them, and which known entities are gone and
// should be retired. Retirement is gated on the source domain of each kind:
// a failed fetch means "unknown", never "gone".
package reconcile

import (
	"fmt"
	"strconv"
	"strings"

	"hypersense/internal/model"
)

type Kind string

const (
	KindPosition Kind = "position"
	KindVault    Kind = "vault"
	KindOrder    Kind = "order"
)

// Kinds returns the dynamic entity kinds in stable order.
func Kinds() []Kind {
	return []Kind{KindPosition, KindVault, KindOrder}
}

// sourceDomain is the snapshot domain whose availability gates lifecycle
// decisions for a kind.
func sourceDomain(k Kind) model.Domain {
	switch k {
	case KindPosition:
		return model.DomainAccount
	case KindVault:
		return model.DomainVaults
	case KindOrder:
		return model.DomainOrders
	}
	return ""
}

// Key identifies one dynamic entity. NaturalID is stable across cycles:
// the coin for positions, the lowercased vault address for vaults, the
// exchange order id for orders.
type Key struct {
	Kind      Kind
	NaturalID string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.NaturalID)
}

func PositionKey(coin string) Key {
	return Key{Kind: KindPosition, NaturalID: coin}
}

func VaultKey(address string) Key {
	return Key{Kind: KindVault, NaturalID: strings.ToLower(address)}
}

func OrderKey(oid int64) Key {
	return Key{Kind: KindOrder, NaturalID: strconv.FormatInt(oid, 10)}
}

// Keys extracts the dynamic entity keys present in a snapshot. Kinds whose
// source domain is unavailable contribute nothing: an empty list from a
// failed fetch must not read as "everything closed".
func Keys(snap *model.AccountSnapshot) map[Key]struct{} {
	keys := make(map[Key]struct{})
	if snap == nil {
		return keys
	}
	if snap.DomainAvailable(model.DomainAccount) {
		for _, p := range snap.Positions {
			keys[PositionKey(p.Coin)] = struct{}{}
		}
	}
	if snap.DomainAvailable(model.DomainVaults) {
		for _, v := range snap.Vaults {
			keys[VaultKey(v.Address)] = struct{}{}
		}
	}
	if snap.DomainAvailable(model.DomainOrders) {
		for _, o := range snap.OpenOrders {
			keys[OrderKey(o.OrderID)] = struct{}{}
		}
	}
	return keys
}

// Plan is the lifecycle outcome of one cycle. Create holds entities seen
// for the first time, Update holds entities that persist (including known
// entities of an unavailable kind, which must be re-published as
// unavailable rather than dropped), Retire holds entities that vanished
// from an available domain.
type Plan struct {
	Create []Key
	Update []Key
	Retire []Key
}

func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Retire) == 0
}

// Diff compares the known identity set against the new snapshot.
func Diff(known map[Key]struct{}, snap *model.AccountSnapshot) Plan {
	var plan Plan

	current := Keys(snap)
	for key := range current {
		if _, ok := known[key]; ok {
			plan.Update = append(plan.Update, key)
		} else {
			plan.Create = append(plan.Create, key)
		}
	}
	for key := range known {
		if _, ok := current[key]; ok {
			continue
		}
		if snap != nil && snap.DomainAvailable(sourceDomain(key.Kind)) {
			plan.Retire = append(plan.Retire, key)
		} else {
			// source domain failed or was skipped this cycle: the entity
			// stays, published as unavailable
			plan.Update = append(plan.Update, key)
		}
	}
	return plan
}
