// Package coordinator runs the poll loop: every tick it builds a snapshot,
// aggregates history, reconciles dynamic entities against the registry and
// publishes the result atomically. One cycle in flight at a time; a tick
// that lands while a cycle is running is skipped, not queued.
package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"hypersense/internal/aggregate"
	"hypersense/internal/config"
	"hypersense/internal/logger"
	"hypersense/internal/model"
	"hypersense/internal/notifier"
	"hypersense/internal/reconcile"
	"hypersense/internal/registry"
	"hypersense/internal/sensor"
	"hypersense/internal/snapshot"
)

// Published is one cycle's immutable output.
type Published struct {
	CycleID  string
	Snapshot *model.AccountSnapshot
	Account  []sensor.State
	Dynamic  map[reconcile.Key]sensor.State
	Plan     reconcile.Plan
}

// CycleRecord summarizes one cycle for the inspection API.
type CycleRecord struct {
	CycleID   string    `json:"cycle_id"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Skipped   bool      `json:"skipped,omitempty"`
	History   bool      `json:"history_fetched"`
	Attempted int       `json:"domains_attempted"`
	Failed    []string  `json:"domains_failed,omitempty"`
	Created   int       `json:"entities_created"`
	Updated   int       `json:"entities_updated"`
	Retired   int       `json:"entities_retired"`
}

const cycleHistoryCap = 50

type Coordinator struct {
	wallet  string
	builder *snapshot.Builder
	store   *registry.Store
	pusher  registry.Pusher
	notify  notifier.Notifier
	options func() config.PollOptions

	known     map[reconcile.Key]struct{}
	cycleSeq  int
	published atomic.Pointer[Published]
	busy      atomic.Bool

	mu     sync.Mutex
	cycles []CycleRecord
}

func New(wallet string, builder *snapshot.Builder, store *registry.Store,
	pusher registry.Pusher, n notifier.Notifier, options func() config.PollOptions) *Coordinator {
	if pusher == nil {
		pusher = registry.NopPusher{}
	}
	if n == nil {
		n = notifier.Nop{}
	}
	return &Coordinator{
		wallet:  wallet,
		builder: builder,
		store:   store,
		pusher:  pusher,
		notify:  n,
		options: options,
	}
}

// Run loads the persisted identity set, executes one immediate cycle and
// then polls until the context ends. The interval is re-read every tick so
// hot-reloaded cadence applies from the next cycle.
func (c *Coordinator) Run(ctx context.Context) error {
	known, err := c.store.Load(ctx, c.wallet)
	if err != nil {
		return err
	}
	c.known = known
	logger.Infof("coordinator: loaded %d known entities for %s", len(known), c.wallet)

	c.RunCycle(ctx)

	timer := time.NewTimer(c.options().Interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			c.RunCycle(ctx)
			timer.Reset(c.options().Interval)
		}
	}
}

// RunCycle executes one cycle unless another is already in flight.
func (c *Coordinator) RunCycle(ctx context.Context) {
	if !c.busy.CompareAndSwap(false, true) {
		logger.Warnf("coordinator: previous cycle still running, skipping tick")
		c.record(CycleRecord{
			CycleID:   uuid.NewString(),
			StartedAt: time.Now(),
			Skipped:   true,
		})
		return
	}
	defer c.busy.Store(false)
	c.runCycle(ctx)
}

func (c *Coordinator) runCycle(ctx context.Context) {
	opts := c.options()
	now := time.Now()
	cycleID := uuid.NewString()

	c.cycleSeq++
	withHistory := opts.HistoryEvery <= 1 || (c.cycleSeq-1)%opts.HistoryEvery == 0

	res := c.builder.Build(ctx, c.wallet, snapshot.Options{
		LookbackDays: opts.LookbackDays,
		SkipHistory:  !withHistory,
		Now:          now,
	})
	snap := res.Snapshot
	snap.CycleID = cycleID

	prev := c.published.Load()

	// Attach the aggregates for the history domains fetched this cycle.
	if snap.DomainAvailable(model.DomainTrades) {
		snap.Trades = aggregate.TradeStats(res.Fills, opts.TradeCount, now)
	}
	if snap.DomainAvailable(model.DomainFunding) {
		snap.Funding = aggregate.Funding(res.Funding, now)
	}
	if snap.DomainAvailable(model.DomainPortfolio) {
		snap.PnL = aggregate.PnLWindows(res.Portfolio, snap.AccountValue, now)
	}
	c.carryForward(snap, prev)
	aggregate.EnrichPositions(snap.Positions, snap.Funding)

	record := CycleRecord{
		CycleID:   cycleID,
		StartedAt: now,
		History:   withHistory,
		Attempted: res.Attempted,
	}
	for _, f := range res.Failures {
		record.Failed = append(record.Failed, string(f.Domain))
	}

	if len(res.Failures) >= res.Attempted {
		// Total cycle failure: keep the last published state and the
		// identity set untouched. The next tick retries everything.
		err := &model.TotalCycleError{Failures: res.Failures}
		logger.Errorf("coordinator: cycle %s failed entirely: %v", cycleID, err)
		notifier.Send(c.notify, notifier.DegradedMessage(c.wallet, "cycle", err.Error(), false))
		record.Duration = time.Since(now).String()
		c.record(record)
		return
	}

	plan := reconcile.Diff(c.known, snap)
	dynamic := sensor.DynamicStates(snap)
	c.applyPlan(ctx, now, plan, dynamic)

	account := sensor.AccountStates(snap)
	for _, st := range account {
		if err := c.pusher.Push(ctx, st.UniqueID, st.State, st.Attributes); err != nil {
			logger.Warnf("coordinator: push %s failed: %v", st.UniqueID, err)
		}
	}

	c.published.Store(&Published{
		CycleID:  cycleID,
		Snapshot: snap,
		Account:  account,
		Dynamic:  dynamic,
		Plan:     plan,
	})

	c.notifyTransitions(prev, snap, plan)

	record.Duration = time.Since(now).String()
	record.Created = len(plan.Create)
	record.Updated = len(plan.Update)
	record.Retired = len(plan.Retire)
	c.record(record)

	logger.Infof("coordinator: cycle %s done in %s (created=%d updated=%d retired=%d failed=%d/%d)",
		cycleID, record.Duration, record.Created, record.Updated, record.Retired,
		len(res.Failures), res.Attempted)
}

// carryForward keeps the previous cycle's values for history domains that
// were not attempted this cycle. Domains that were attempted and failed stay
// unavailable; skipping is not failing.
func (c *Coordinator) carryForward(snap *model.AccountSnapshot, prev *Published) {
	if prev == nil || prev.Snapshot == nil {
		return
	}
	old := prev.Snapshot
	carry := func(d model.Domain, apply func()) {
		if _, attempted := snap.Domains[d]; attempted {
			return
		}
		st, ok := old.Domains[d]
		if !ok || !st.Available {
			return
		}
		apply()
		snap.Domains[d] = st
	}
	carry(model.DomainTrades, func() { snap.Trades = old.Trades })
	carry(model.DomainFunding, func() { snap.Funding = old.Funding })
	carry(model.DomainPortfolio, func() {
		snap.PnL = old.PnL
		snap.History = old.History
	})
	carry(model.DomainReferral, func() { snap.Referral = old.Referral })
}

// applyPlan persists and pushes the cycle's lifecycle outcome. Each identity
// fails independently: one broken push never blocks the rest of the plan.
func (c *Coordinator) applyPlan(ctx context.Context, now time.Time,
	plan reconcile.Plan, dynamic map[reconcile.Key]sensor.State) {

	nowMs := now.UnixMilli()
	upsert := func(key reconcile.Key, created bool) {
		st, ok := dynamic[key]
		if !ok {
			// known entity of an unavailable domain: keep it, publish
			// unavailable
			name := key.String()
			if rec, err := c.store.Get(ctx, c.wallet, key); err == nil && rec != nil {
				name = rec.Name
			}
			st = sensor.UnavailableState(c.wallet, key, name)
		}
		rec := &registry.EntityRecord{
			Wallet:     c.wallet,
			Kind:       string(key.Kind),
			NaturalID:  key.NaturalID,
			UniqueID:   st.UniqueID,
			Name:       st.Name,
			State:      st.State,
			Available:  st.Available,
			Attributes: marshalAttributes(st.Attributes),
			FirstSeen:  nowMs,
			LastSeen:   nowMs,
		}
		if err := c.store.Upsert(ctx, rec); err != nil {
			logger.Warnf("coordinator: persist %s failed: %v", key, err)
		}
		if err := c.pusher.Push(ctx, st.UniqueID, st.State, st.Attributes); err != nil {
			logger.Warnf("coordinator: push %s failed: %v", key, err)
		}
		if created {
			c.known[key] = struct{}{}
			logger.Infof("coordinator: created entity %s", key)
		}
	}

	for _, key := range plan.Create {
		upsert(key, true)
	}
	for _, key := range plan.Update {
		upsert(key, false)
	}
	for _, key := range plan.Retire {
		uid := sensor.UniqueID(c.wallet, string(key.Kind), key.NaturalID)
		if err := c.store.Retire(ctx, c.wallet, key); err != nil {
			logger.Warnf("coordinator: retire %s failed: %v", key, err)
			continue
		}
		if err := c.pusher.Remove(ctx, uid); err != nil {
			logger.Warnf("coordinator: remove %s failed: %v", key, err)
		}
		delete(c.known, key)
		logger.Infof("coordinator: retired entity %s", key)
	}
}

// notifyTransitions reports entity churn and domain availability changes.
func (c *Coordinator) notifyTransitions(prev *Published, snap *model.AccountSnapshot, plan reconcile.Plan) {
	if msg := notifier.LifecycleMessage(c.wallet, plan); msg != "" {
		notifier.Send(c.notify, msg)
	}
	if prev == nil || prev.Snapshot == nil {
		return
	}
	for domain, st := range snap.Domains {
		old, ok := prev.Snapshot.Domains[domain]
		if !ok || old.Available == st.Available {
			continue
		}
		notifier.Send(c.notify,
			notifier.DegradedMessage(c.wallet, string(domain), st.Reason, st.Available))
	}
}

// Published returns the last successfully published cycle, or nil before
// the first one completes.
func (c *Coordinator) Published() *Published {
	return c.published.Load()
}

// Cycles returns the recent cycle records, newest first.
func (c *Coordinator) Cycles() []CycleRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CycleRecord, len(c.cycles))
	for i, rec := range c.cycles {
		out[len(c.cycles)-1-i] = rec
	}
	return out
}

func marshalAttributes(attrs map[string]any) datatypes.JSON {
	if len(attrs) == 0 {
		return nil
	}
	raw, err := json.Marshal(attrs)
	if err != nil {
		logger.Warnf("coordinator: marshal attributes failed: %v", err)
		return nil
	}
	return datatypes.JSON(raw)
}

func (c *Coordinator) record(rec CycleRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cycles = append(c.cycles, rec)
	if len(c.cycles) > cycleHistoryCap {
		c.cycles = c.cycles[len(c.cycles)-cycleHistoryCap:]
	}
}
