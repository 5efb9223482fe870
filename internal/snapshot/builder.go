// Package snapshot assembles one polling cycle's AccountSnapshot from the
// info API. Every sub-domain is fetched independently and concurrently; a
// failed or malformed sub-domain degrades to unavailable (with a recorded
// partial failure) instead of aborting the cycle. Nothing here retries:
// the coordinator's next cycle is the retry unit.
package snapshot

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"hypersense/internal/hyperliquid"
	"hypersense/internal/logger"
	"hypersense/internal/model"
)

// API is the slice of the info client the builder needs.
type API interface {
	UserState(ctx context.Context, wallet string) (hyperliquid.ClearinghouseState, error)
	VaultEquities(ctx context.Context, wallet string) ([]hyperliquid.VaultEquity, error)
	VaultDetails(ctx context.Context, vaultAddress string) (hyperliquid.VaultDetails, error)
	Portfolio(ctx context.Context, wallet string) (hyperliquid.Portfolio, error)
	UserFillsByTime(ctx context.Context, wallet string, startMs, endMs int64) ([]hyperliquid.Fill, error)
	UserFunding(ctx context.Context, wallet string, startMs int64) ([]hyperliquid.FundingLedgerEntry, error)
	OpenOrders(ctx context.Context, wallet string) ([]hyperliquid.OpenOrderPayload, error)
	Referral(ctx context.Context, wallet string) (hyperliquid.ReferralSummary, error)
}

// Options controls one build.
type Options struct {
	LookbackDays int
	// SkipHistory leaves the historical sub-domains (portfolio, trades,
	// funding, referral) unattempted this cycle; the coordinator carries the
	// previous cycle's values forward for them.
	SkipHistory bool
	// Now is the single captured timestamp for the cycle.
	Now time.Time
}

// Result is one build's output. Fills, Funding and Portfolio are the raw
// historical inputs handed to the aggregator; they are only set for the
// sub-domains that were attempted and succeeded.
type Result struct {
	Snapshot  *model.AccountSnapshot
	Fills     []hyperliquid.Fill
	Funding   []hyperliquid.FundingLedgerEntry
	Portfolio *hyperliquid.Portfolio
	Failures  []model.PartialFailure
	Attempted int
}

type Builder struct {
	api API
}

func NewBuilder(api API) *Builder {
	return &Builder{api: api}
}

// Build fetches all sub-domains for wallet and assembles the snapshot.
func (b *Builder) Build(ctx context.Context, wallet string, opts Options) *Result {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	lookback := opts.LookbackDays
	if lookback <= 0 {
		lookback = 7
	}
	startMs := now.Add(-time.Duration(lookback) * 24 * time.Hour).UnixMilli()
	endMs := now.UnixMilli()

	snap := &model.AccountSnapshot{
		Wallet:    wallet,
		FetchedAt: now,
		Domains:   make(map[model.Domain]model.DomainStatus),
	}
	res := &Result{Snapshot: snap}

	var (
		mu        sync.Mutex
		state     hyperliquid.ClearinghouseState
		vaults    []hyperliquid.VaultEquity
		portfolio hyperliquid.Portfolio
		fills     []hyperliquid.Fill
		funding   []hyperliquid.FundingLedgerEntry
		orders    []hyperliquid.OpenOrderPayload
		referral  hyperliquid.ReferralSummary
		gotDomain = make(map[model.Domain]bool)
	)

	fail := func(domain model.Domain, err error) {
		mu.Lock()
		defer mu.Unlock()
		res.Failures = append(res.Failures, model.PartialFailure{Domain: domain, Err: err})
		logger.Warnf("snapshot: %s unavailable: %v", domain, err)
	}
	ok := func(domain model.Domain) {
		mu.Lock()
		defer mu.Unlock()
		gotDomain[domain] = true
	}

	// Independent fetches; a failure in one must not cancel the others, so
	// every goroutine returns nil and records its own outcome.
	group, gctx := errgroup.WithContext(ctx)

	attempted := 3
	group.Go(func() error {
		var err error
		if state, err = b.api.UserState(gctx, wallet); err != nil {
			fail(model.DomainAccount, err)
		} else {
			ok(model.DomainAccount)
		}
		return nil
	})
	group.Go(func() error {
		var err error
		if vaults, err = b.api.VaultEquities(gctx, wallet); err != nil {
			fail(model.DomainVaults, err)
			return nil
		}
		// Per-vault enrichment is best effort: a failed details call leaves
		// the vault with wire data only.
		for i := range vaults {
			addr := vaults[i].VaultAddress
			if addr == "" {
				continue
			}
			details, err := b.api.VaultDetails(gctx, addr)
			if err != nil {
				logger.Debugf("snapshot: vault %s details unavailable: %v", addr, err)
				continue
			}
			vaults[i].Details = &details
		}
		ok(model.DomainVaults)
		return nil
	})
	group.Go(func() error {
		var err error
		if orders, err = b.api.OpenOrders(gctx, wallet); err != nil {
			fail(model.DomainOrders, err)
		} else {
			ok(model.DomainOrders)
		}
		return nil
	})

	if !opts.SkipHistory {
		attempted += 4
		group.Go(func() error {
			var err error
			if portfolio, err = b.api.Portfolio(gctx, wallet); err != nil {
				fail(model.DomainPortfolio, err)
			} else {
				ok(model.DomainPortfolio)
			}
			return nil
		})
		group.Go(func() error {
			var err error
			if fills, err = b.api.UserFillsByTime(gctx, wallet, startMs, endMs); err != nil {
				fail(model.DomainTrades, err)
			} else {
				ok(model.DomainTrades)
			}
			return nil
		})
		group.Go(func() error {
			var err error
			if funding, err = b.api.UserFunding(gctx, wallet, startMs); err != nil {
				fail(model.DomainFunding, err)
			} else {
				ok(model.DomainFunding)
			}
			return nil
		})
		group.Go(func() error {
			var err error
			if referral, err = b.api.Referral(gctx, wallet); err != nil {
				fail(model.DomainReferral, err)
			} else {
				ok(model.DomainReferral)
			}
			return nil
		})
	}

	_ = group.Wait()
	res.Attempted = attempted

	// Assembly: parse each successful sub-domain into the snapshot; a parse
	// rejection downgrades the domain exactly like a fetch failure.
	if gotDomain[model.DomainAccount] {
		if err := applyAccount(snap, state); err != nil {
			gotDomain[model.DomainAccount] = false
			fail(model.DomainAccount, err)
		}
	}
	if gotDomain[model.DomainVaults] {
		applyVaults(snap, vaults)
	}
	if gotDomain[model.DomainOrders] {
		applyOrders(snap, orders)
	}
	if gotDomain[model.DomainPortfolio] {
		snap.History = historyPoints(portfolio.AllTime.AccountValueHistory)
		res.Portfolio = &portfolio
	}
	if gotDomain[model.DomainTrades] {
		res.Fills = fills
	}
	if gotDomain[model.DomainFunding] {
		res.Funding = funding
	}
	if gotDomain[model.DomainReferral] {
		snap.Referral = &model.ReferralStats{
			Earnings:     referral.TotalEarnedUsdc,
			Volume:       referral.TotalVolume,
			Referrer:     referral.Referrer,
			RefereeCount: referral.RefereeCount,
		}
	}

	statuses := attemptedDomains(opts.SkipHistory)
	for _, domain := range statuses {
		st := model.DomainStatus{Available: gotDomain[domain], FetchedAt: now}
		if !st.Available {
			st.Reason = failureReason(res.Failures, domain)
		}
		snap.Domains[domain] = st
	}

	return res
}

func attemptedDomains(skipHistory bool) []model.Domain {
	core := []model.Domain{model.DomainAccount, model.DomainVaults, model.DomainOrders}
	if skipHistory {
		return core
	}
	return append(core,
		model.DomainPortfolio, model.DomainTrades, model.DomainFunding, model.DomainReferral)
}

func failureReason(failures []model.PartialFailure, domain model.Domain) string {
	for _, f := range failures {
		if f.Domain == domain {
			return f.Err.Error()
		}
	}
	return "not fetched"
}
