package coordinator

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypersense/internal/config"
	"hypersense/internal/hyperliquid"
	"hypersense/internal/model"
	"hypersense/internal/reconcile"
	"hypersense/internal/registry"
	"hypersense/internal/snapshot"
)

const testWallet = "0x1234567890abcdef1234567890abcdef12345678"

// stubAPI lets each test swap out individual endpoints.
type stubAPI struct {
	state     func() (hyperliquid.ClearinghouseState, error)
	vaults    func() ([]hyperliquid.VaultEquity, error)
	orders    func() ([]hyperliquid.OpenOrderPayload, error)
	fills     func() ([]hyperliquid.Fill, error)
	funding   func() ([]hyperliquid.FundingLedgerEntry, error)
	portfolio func() (hyperliquid.Portfolio, error)
	referral  func() (hyperliquid.ReferralSummary, error)
}

func healthyAPI() *stubAPI {
	return &stubAPI{
		state: func() (hyperliquid.ClearinghouseState, error) {
			return hyperliquid.ClearinghouseState{
				MarginSummary: hyperliquid.MarginSummary{AccountValue: "1000"},
				AssetPositions: []hyperliquid.AssetPosition{
					{Position: hyperliquid.PositionPayload{
						Coin: "BTC", Szi: "1", EntryPx: "60000",
						PositionValue: "62000", UnrealizedPnl: "2000",
					}},
				},
			}, nil
		},
		vaults:    func() ([]hyperliquid.VaultEquity, error) { return nil, nil },
		orders:    func() ([]hyperliquid.OpenOrderPayload, error) { return nil, nil },
		fills:     func() ([]hyperliquid.Fill, error) { return nil, nil },
		funding:   func() ([]hyperliquid.FundingLedgerEntry, error) { return nil, nil },
		portfolio: func() (hyperliquid.Portfolio, error) { return hyperliquid.Portfolio{}, nil },
		referral:  func() (hyperliquid.ReferralSummary, error) { return hyperliquid.ReferralSummary{}, nil },
	}
}

func (s *stubAPI) UserState(context.Context, string) (hyperliquid.ClearinghouseState, error) {
	return s.state()
}
func (s *stubAPI) VaultEquities(context.Context, string) ([]hyperliquid.VaultEquity, error) {
	return s.vaults()
}
func (s *stubAPI) VaultDetails(context.Context, string) (hyperliquid.VaultDetails, error) {
	return hyperliquid.VaultDetails{}, errors.New("no details")
}
func (s *stubAPI) Portfolio(context.Context, string) (hyperliquid.Portfolio, error) {
	return s.portfolio()
}
func (s *stubAPI) UserFillsByTime(context.Context, string, int64, int64) ([]hyperliquid.Fill, error) {
	return s.fills()
}
func (s *stubAPI) UserFunding(context.Context, string, int64) ([]hyperliquid.FundingLedgerEntry, error) {
	return s.funding()
}
func (s *stubAPI) OpenOrders(context.Context, string) ([]hyperliquid.OpenOrderPayload, error) {
	return s.orders()
}
func (s *stubAPI) Referral(context.Context, string) (hyperliquid.ReferralSummary, error) {
	return s.referral()
}

// recordingPusher captures pushes and removals per unique id.
type recordingPusher struct {
	mu      sync.Mutex
	pushed  map[string]string
	removed []string
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{pushed: map[string]string{}}
}

func (p *recordingPusher) Push(_ context.Context, uid, state string, _ map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushed[uid] = state
	return nil
}

func (p *recordingPusher) Remove(_ context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removed = append(p.removed, uid)
	return nil
}

func testOptions(historyEvery int) func() config.PollOptions {
	return func() config.PollOptions {
		return config.PollOptions{
			Interval:     30 * time.Second,
			HistoryEvery: historyEvery,
			TradeCount:   20,
			LookbackDays: 7,
		}
	}
}

func newTestCoordinator(t *testing.T, api snapshot.API, historyEvery int) (*Coordinator, *recordingPusher, *registry.Store) {
	t.Helper()
	store, err := registry.NewStore(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	pusher := newRecordingPusher()
	c := New(testWallet, snapshot.NewBuilder(api), store, pusher, nil, testOptions(historyEvery))

	known, err := store.Load(context.Background(), testWallet)
	require.NoError(t, err)
	c.known = known
	return c, pusher, store
}

func TestCycleCreatesThenRetires(t *testing.T) {
	api := healthyAPI()
	c, pusher, store := newTestCoordinator(t, api, 1)
	ctx := context.Background()

	c.RunCycle(ctx)

	pub := c.Published()
	require.NotNil(t, pub)
	assert.Len(t, pub.Plan.Create, 1)
	assert.Contains(t, c.known, reconcile.PositionKey("BTC"))
	assert.Contains(t, pusher.pushed, "hypersense_"+testWallet+"_position_btc")

	// position closes: fetched fine, genuinely empty
	api.state = func() (hyperliquid.ClearinghouseState, error) {
		return hyperliquid.ClearinghouseState{
			MarginSummary: hyperliquid.MarginSummary{AccountValue: "1000"},
		}, nil
	}
	c.RunCycle(ctx)

	pub = c.Published()
	assert.Len(t, pub.Plan.Retire, 1)
	assert.NotContains(t, c.known, reconcile.PositionKey("BTC"))
	assert.Contains(t, pusher.removed, "hypersense_"+testWallet+"_position_btc")

	keys, err := store.Load(ctx, testWallet)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCycleDomainFailureKeepsEntities(t *testing.T) {
	api := healthyAPI()
	c, pusher, store := newTestCoordinator(t, api, 1)
	ctx := context.Background()

	c.RunCycle(ctx)
	require.Contains(t, c.known, reconcile.PositionKey("BTC"))

	// account fetch fails: the position entity must survive as unavailable
	api.state = func() (hyperliquid.ClearinghouseState, error) {
		return hyperliquid.ClearinghouseState{}, errors.New("status 503")
	}
	c.RunCycle(ctx)

	pub := c.Published()
	assert.Empty(t, pub.Plan.Retire)
	assert.Contains(t, c.known, reconcile.PositionKey("BTC"))
	assert.Equal(t, "unavailable", pusher.pushed["hypersense_"+testWallet+"_position_btc"])

	keys, err := store.Load(ctx, testWallet)
	require.NoError(t, err)
	assert.Contains(t, keys, reconcile.PositionKey("BTC"))
}

func TestTotalCycleFailureKeepsLastPublished(t *testing.T) {
	api := healthyAPI()
	c, _, _ := newTestCoordinator(t, api, 1)
	ctx := context.Background()

	c.RunCycle(ctx)
	first := c.Published()
	require.NotNil(t, first)

	boom := errors.New("network down")
	api.state = func() (hyperliquid.ClearinghouseState, error) {
		return hyperliquid.ClearinghouseState{}, boom
	}
	api.vaults = func() ([]hyperliquid.VaultEquity, error) { return nil, boom }
	api.orders = func() ([]hyperliquid.OpenOrderPayload, error) { return nil, boom }
	api.fills = func() ([]hyperliquid.Fill, error) { return nil, boom }
	api.funding = func() ([]hyperliquid.FundingLedgerEntry, error) { return nil, boom }
	api.portfolio = func() (hyperliquid.Portfolio, error) { return hyperliquid.Portfolio{}, boom }
	api.referral = func() (hyperliquid.ReferralSummary, error) { return hyperliquid.ReferralSummary{}, boom }

	c.RunCycle(ctx)

	// the failed cycle published nothing and retired nothing
	assert.Same(t, first, c.Published())
	assert.Contains(t, c.known, reconcile.PositionKey("BTC"))

	cycles := c.Cycles()
	require.Len(t, cycles, 2)
	assert.Len(t, cycles[0].Failed, 7)
}

func TestHistoryEveryCarriesForward(t *testing.T) {
	api := healthyAPI()
	now := time.Now()
	api.fills = func() ([]hyperliquid.Fill, error) {
		return []hyperliquid.Fill{
			{Coin: "BTC", Fee: "2", ClosedPnl: "10", Time: now.Add(-time.Hour).UnixMilli()},
		}, nil
	}
	c, _, _ := newTestCoordinator(t, api, 3)
	ctx := context.Background()

	c.RunCycle(ctx) // cycle 1: history fetched
	first := c.Published()
	require.NotNil(t, first.Snapshot.Trades)
	assert.Equal(t, 1, first.Snapshot.Trades.Trades24h)

	// history endpoints break; the next two cycles skip them anyway
	api.fills = func() ([]hyperliquid.Fill, error) { return nil, errors.New("down") }

	c.RunCycle(ctx) // cycle 2: history skipped, carried forward
	second := c.Published()
	require.NotNil(t, second.Snapshot.Trades)
	assert.Equal(t, 1, second.Snapshot.Trades.Trades24h)
	assert.True(t, second.Snapshot.DomainAvailable(model.DomainTrades))

	cycles := c.Cycles()
	assert.False(t, cycles[0].History)
	assert.True(t, cycles[1].History)
}

func TestBusySkip(t *testing.T) {
	api := healthyAPI()
	c, _, _ := newTestCoordinator(t, api, 1)

	c.busy.Store(true)
	c.RunCycle(context.Background())

	cycles := c.Cycles()
	require.Len(t, cycles, 1)
	assert.True(t, cycles[0].Skipped)
	assert.Nil(t, c.Published())
}
