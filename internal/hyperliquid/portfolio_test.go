package hyperliquid

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hypersense/internal/model"
)

func TestParsePortfolio(t *testing.T) {
	body := []byte(`[
		["day", {
			"accountValueHistory": [[1700000000000, "1000.5"], [1700000060000, 1001]],
			"pnlHistory": [[1700000000000, "-5.25"]],
			"vlm": "12345.6"
		}],
		["week", {"accountValueHistory": [], "pnlHistory": [], "vlm": "0"}],
		["perpDay", {"accountValueHistory": [[1700000000000, "999"]], "vlm": "1"}],
		["allTime", {"accountValueHistory": [[1690000000000, 500]], "pnlHistory": [], "vlm": "99"}]
	]`)

	p, err := parsePortfolio(body)
	require.NoError(t, err)

	require.Len(t, p.Day.AccountValueHistory, 2)
	assert.EqualValues(t, 1700000000000, p.Day.AccountValueHistory[0].Time)
	assert.Equal(t, 1000.5, p.Day.AccountValueHistory[0].Value)
	assert.Equal(t, 1001.0, p.Day.AccountValueHistory[1].Value)
	assert.Equal(t, -5.25, p.Day.PnlHistory[0].Value)
	assert.Equal(t, 12345.6, p.Day.Volume)

	assert.Empty(t, p.Week.AccountValueHistory)
	require.Len(t, p.AllTime.AccountValueHistory, 1)
	assert.Equal(t, 500.0, p.AllTime.AccountValueHistory[0].Value)

	// perp* buckets have no consumer and do not leak anywhere
	assert.Empty(t, p.Month.AccountValueHistory)
}

func TestParsePortfolioRejectsUnknownShape(t *testing.T) {
	cases := map[string][]byte{
		"object root":      []byte(`{"day": {}}`),
		"no known buckets": []byte(`[["perpDay", {}], ["perpWeek", {}]]`),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parsePortfolio(body)
			require.Error(t, err)
			assert.True(t, model.IsSchemaMismatch(err))
		})
	}
}

func TestParseHistorySeriesSkipsMalformedPoints(t *testing.T) {
	body := []byte(`[
		["day", {
			"accountValueHistory": [
				[1700000000000, "100"],
				[1700000060000],
				"not a pair",
				[0, "42"],
				[1700000120000, "200"]
			],
			"pnlHistory": "not an array",
			"vlm": "0"
		}]
	]`)

	p, err := parsePortfolio(body)
	require.NoError(t, err)
	require.Len(t, p.Day.AccountValueHistory, 2)
	assert.Equal(t, 100.0, p.Day.AccountValueHistory[0].Value)
	assert.Equal(t, 200.0, p.Day.AccountValueHistory[1].Value)
	assert.Nil(t, p.Day.PnlHistory)
}

func TestVaultDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"name": "HLP",
			"apr": 0.12,
			"leader": "0xAbCd",
			"leaderFraction": "0.04",
			"leaderCommission": 0.1,
			"maxDistributable": "250000",
			"isClosed": false,
			"portfolio": [["day", {}]]
		}`))
	})

	d, err := client.VaultDetails(context.Background(), "0xvault")
	require.NoError(t, err)
	assert.Equal(t, "HLP", d.Name)
	assert.Equal(t, 0.12, d.APR)
	assert.Equal(t, 0.04, d.LeaderFraction)
	assert.Equal(t, 250000.0, d.MaxDistributable)
	assert.False(t, d.IsClosed)
}

func TestReferralOmittedFieldsStayNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"referrer": "0xdead", "referees": [{}, {}]}`))
	})

	ref, err := client.Referral(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, "0xdead", ref.Referrer)
	assert.Equal(t, 2, ref.RefereeCount)
	assert.Nil(t, ref.TotalEarnedUsdc)
	assert.Nil(t, ref.TotalVolume)
}

func TestReferralWithEarnings(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"referrer": "", "referees": [], "totalReferralUsdc": "52.5", "totalReferralVolume": 104000}`))
	})

	ref, err := client.Referral(context.Background(), testWallet)
	require.NoError(t, err)
	require.NotNil(t, ref.TotalEarnedUsdc)
	assert.Equal(t, 52.5, *ref.TotalEarnedUsdc)
	require.NotNil(t, ref.TotalVolume)
	assert.Equal(t, 104000.0, *ref.TotalVolume)
}
