package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hypersense/internal/hyperliquid"
	"hypersense/internal/model"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) UserState(ctx context.Context, wallet string) (hyperliquid.ClearinghouseState, error) {
	args := m.Called(ctx, wallet)
	return args.Get(0).(hyperliquid.ClearinghouseState), args.Error(1)
}

func (m *MockAPI) VaultEquities(ctx context.Context, wallet string) ([]hyperliquid.VaultEquity, error) {
	args := m.Called(ctx, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]hyperliquid.VaultEquity), args.Error(1)
}

func (m *MockAPI) VaultDetails(ctx context.Context, vaultAddress string) (hyperliquid.VaultDetails, error) {
	args := m.Called(ctx, vaultAddress)
	return args.Get(0).(hyperliquid.VaultDetails), args.Error(1)
}

func (m *MockAPI) Portfolio(ctx context.Context, wallet string) (hyperliquid.Portfolio, error) {
	args := m.Called(ctx, wallet)
	return args.Get(0).(hyperliquid.Portfolio), args.Error(1)
}

func (m *MockAPI) UserFillsByTime(ctx context.Context, wallet string, startMs, endMs int64) ([]hyperliquid.Fill, error) {
	args := m.Called(ctx, wallet, startMs, endMs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]hyperliquid.Fill), args.Error(1)
}

func (m *MockAPI) UserFunding(ctx context.Context, wallet string, startMs int64) ([]hyperliquid.FundingLedgerEntry, error) {
	args := m.Called(ctx, wallet, startMs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]hyperliquid.FundingLedgerEntry), args.Error(1)
}

func (m *MockAPI) OpenOrders(ctx context.Context, wallet string) ([]hyperliquid.OpenOrderPayload, error) {
	args := m.Called(ctx, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]hyperliquid.OpenOrderPayload), args.Error(1)
}

func (m *MockAPI) Referral(ctx context.Context, wallet string) (hyperliquid.ReferralSummary, error) {
	args := m.Called(ctx, wallet)
	return args.Get(0).(hyperliquid.ReferralSummary), args.Error(1)
}

const testWallet = "0x1234567890abcdef1234567890abcdef12345678"

func healthyState() hyperliquid.ClearinghouseState {
	return hyperliquid.ClearinghouseState{
		MarginSummary: hyperliquid.MarginSummary{
			AccountValue:    "10500.25",
			TotalMarginUsed: "2000",
		},
		Withdrawable: "8500.25",
		AssetPositions: []hyperliquid.AssetPosition{
			{Position: hyperliquid.PositionPayload{
				Coin: "BTC", Szi: "0.5", EntryPx: "60000",
				PositionValue: "31000", UnrealizedPnl: "1000",
				MarginUsed: "6200", ReturnOnEquity: "0.161",
				LiquidationPx: "52000",
				Leverage:      hyperliquid.Leverage{Type: "isolated", Value: 5},
			}},
			{Position: hyperliquid.PositionPayload{
				Coin: "ETH", Szi: "0", // flat entry the API still returns
			}},
		},
	}
}

func stubHistory(api *MockAPI) {
	api.On("Portfolio", mock.Anything, testWallet).Return(hyperliquid.Portfolio{}, nil)
	api.On("UserFillsByTime", mock.Anything, testWallet, mock.Anything, mock.Anything).
		Return([]hyperliquid.Fill{}, nil)
	api.On("UserFunding", mock.Anything, testWallet, mock.Anything).
		Return([]hyperliquid.FundingLedgerEntry{}, nil)
	api.On("Referral", mock.Anything, testWallet).Return(hyperliquid.ReferralSummary{}, nil)
}

func TestBuildFullCycle(t *testing.T) {
	api := new(MockAPI)
	api.On("UserState", mock.Anything, testWallet).Return(healthyState(), nil)
	api.On("VaultEquities", mock.Anything, testWallet).Return([]hyperliquid.VaultEquity{
		{VaultAddress: "0xvault1", Equity: "500", Pnl: "20", Roi: "0.04"},
	}, nil)
	api.On("VaultDetails", mock.Anything, "0xvault1").Return(hyperliquid.VaultDetails{
		Name: "HLP", APR: 12.5, Leader: "0xleader", LeaderFraction: 0.02,
		MaxDistributable: 1000000,
	}, nil)
	api.On("OpenOrders", mock.Anything, testWallet).Return([]hyperliquid.OpenOrderPayload{
		{Oid: 42, Coin: "BTC", Side: "B", LimitPx: "58000", Sz: "0.1", OrigSz: "0.2"},
	}, nil)
	stubHistory(api)

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	res := NewBuilder(api).Build(context.Background(), testWallet, Options{
		LookbackDays: 7, Now: now,
	})
	snap := res.Snapshot

	require.Empty(t, res.Failures)
	assert.Equal(t, 7, res.Attempted)
	assert.Equal(t, now, snap.FetchedAt)

	for _, d := range model.Domains() {
		assert.True(t, snap.DomainAvailable(d), "domain %s", d)
	}

	require.NotNil(t, snap.AccountValue)
	assert.InDelta(t, 10500.25, *snap.AccountValue, 1e-9)

	// the flat ETH entry is dropped
	require.Len(t, snap.Positions, 1)
	pos := snap.Positions[0]
	assert.Equal(t, "BTC", pos.Coin)
	assert.Equal(t, "long", pos.Side)
	assert.Equal(t, "5x", pos.Leverage)
	assert.InDelta(t, 62000, pos.MarkPrice, 1e-9)
	assert.InDelta(t, 16.1, pos.ReturnOnEquity, 1e-6)
	require.NotNil(t, pos.LiquidationPx)
	assert.InDelta(t, 52000, *pos.LiquidationPx, 1e-9)

	require.Len(t, snap.Vaults, 1)
	vault := snap.Vaults[0]
	assert.Equal(t, "HLP", vault.Name)
	assert.InDelta(t, 4.0, vault.ROI, 1e-9) // fraction normalized to percent
	assert.InDelta(t, 1000000*0.02, vault.LeaderEquity, 1e-9)

	require.Len(t, snap.OpenOrders, 1)
	assert.Equal(t, int64(42), snap.OpenOrders[0].OrderID)

	// fills window: [now-7d, now]
	api.AssertCalled(t, "UserFillsByTime", mock.Anything, testWallet,
		now.Add(-7*24*time.Hour).UnixMilli(), now.UnixMilli())
}

func TestBuildPartialFailureDegradesOneDomain(t *testing.T) {
	api := new(MockAPI)
	api.On("UserState", mock.Anything, testWallet).Return(healthyState(), nil)
	api.On("VaultEquities", mock.Anything, testWallet).
		Return(nil, errors.New("status 503"))
	api.On("OpenOrders", mock.Anything, testWallet).
		Return([]hyperliquid.OpenOrderPayload{}, nil)
	stubHistory(api)

	res := NewBuilder(api).Build(context.Background(), testWallet, Options{LookbackDays: 7})
	snap := res.Snapshot

	require.Len(t, res.Failures, 1)
	assert.Equal(t, model.DomainVaults, res.Failures[0].Domain)

	assert.False(t, snap.DomainAvailable(model.DomainVaults))
	assert.True(t, snap.DomainAvailable(model.DomainAccount))
	assert.True(t, snap.DomainAvailable(model.DomainOrders))

	// the failed domain carries no values, not zeros
	assert.Nil(t, snap.TotalVaultEquity)
	assert.Empty(t, snap.Vaults)
	assert.NotEmpty(t, snap.Domains[model.DomainVaults].Reason)
}

func TestBuildMalformedAccountPayload(t *testing.T) {
	state := healthyState()
	state.AssetPositions[0].Position.Szi = "garbage"

	api := new(MockAPI)
	api.On("UserState", mock.Anything, testWallet).Return(state, nil)
	api.On("VaultEquities", mock.Anything, testWallet).Return([]hyperliquid.VaultEquity{}, nil)
	api.On("OpenOrders", mock.Anything, testWallet).Return([]hyperliquid.OpenOrderPayload{}, nil)
	stubHistory(api)

	res := NewBuilder(api).Build(context.Background(), testWallet, Options{LookbackDays: 7})

	assert.False(t, res.Snapshot.DomainAvailable(model.DomainAccount))
	require.Len(t, res.Failures, 1)
	assert.True(t, model.IsSchemaMismatch(res.Failures[0].Err))
	// account numbers must not survive a rejected parse as zeros
	assert.Empty(t, res.Snapshot.Positions)
}

func TestBuildSkipHistory(t *testing.T) {
	api := new(MockAPI)
	api.On("UserState", mock.Anything, testWallet).Return(healthyState(), nil)
	api.On("VaultEquities", mock.Anything, testWallet).Return([]hyperliquid.VaultEquity{}, nil)
	api.On("OpenOrders", mock.Anything, testWallet).Return([]hyperliquid.OpenOrderPayload{}, nil)

	res := NewBuilder(api).Build(context.Background(), testWallet, Options{
		LookbackDays: 7, SkipHistory: true,
	})
	snap := res.Snapshot

	assert.Equal(t, 3, res.Attempted)
	// historical domains were not attempted: absent from the status map
	// entirely, rather than marked failed
	_, portfolioAttempted := snap.Domains[model.DomainPortfolio]
	assert.False(t, portfolioAttempted)
	assert.True(t, snap.DomainAvailable(model.DomainAccount))

	api.AssertNotCalled(t, "Portfolio", mock.Anything, mock.Anything)
	api.AssertNotCalled(t, "UserFillsByTime", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBuildVaultDetailsBestEffort(t *testing.T) {
	api := new(MockAPI)
	api.On("UserState", mock.Anything, testWallet).Return(healthyState(), nil)
	api.On("VaultEquities", mock.Anything, testWallet).Return([]hyperliquid.VaultEquity{
		{VaultAddress: "0xvault1", Equity: "500"},
	}, nil)
	api.On("VaultDetails", mock.Anything, "0xvault1").
		Return(hyperliquid.VaultDetails{}, errors.New("timeout"))
	api.On("OpenOrders", mock.Anything, testWallet).Return([]hyperliquid.OpenOrderPayload{}, nil)

	res := NewBuilder(api).Build(context.Background(), testWallet, Options{
		LookbackDays: 7, SkipHistory: true,
	})
	snap := res.Snapshot

	// the vault survives with wire data and a derived short name
	assert.True(t, snap.DomainAvailable(model.DomainVaults))
	require.Len(t, snap.Vaults, 1)
	assert.Equal(t, "0xvault1", snap.Vaults[0].Name)
	assert.Empty(t, snap.Vaults[0].LeaderAddress)
}
