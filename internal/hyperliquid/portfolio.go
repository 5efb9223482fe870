package hyperliquid

import (
	"context"

	"github.com/tidwall/gjson"

	"hypersense/internal/model"
)

// The portfolio, vaultDetails and referral endpoints have all shipped shapes
// that differ from their documented schema (string vs number fields, extra
// nesting). These responses are therefore extracted tolerantly with gjson
// instead of strict struct decoding: unknown extras are ignored, a missing
// numeric stays missing, and only a structurally wrong root is rejected as a
// schema mismatch.

// Portfolio fetches the per-window account history. The wire format is a pair
// array: [["day", {...}], ["week", {...}], ...].
func (c *Client) Portfolio(ctx context.Context, wallet string) (Portfolio, error) {
	body, err := c.post(ctx, "portfolio", map[string]any{"user": wallet})
	if err != nil {
		return Portfolio{}, err
	}
	return parsePortfolio(body)
}

func parsePortfolio(body []byte) (Portfolio, error) {
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return Portfolio{}, model.NewSchemaError(model.DomainPortfolio, "portfolio root is not a pair array", body)
	}

	var out Portfolio
	matched := false
	for _, entry := range root.Array() {
		pair := entry.Array()
		if len(pair) != 2 {
			continue
		}
		pd := parsePeriodData(pair[1])
		switch pair[0].String() {
		case "day":
			out.Day = pd
			matched = true
		case "week":
			out.Week = pd
			matched = true
		case "month":
			out.Month = pd
			matched = true
		case "allTime":
			out.AllTime = pd
			matched = true
		}
		// perp* buckets are ignored: no consumer.
	}
	if !matched {
		return Portfolio{}, model.NewSchemaError(model.DomainPortfolio, "portfolio contains no known window buckets", body)
	}
	return out, nil
}

func parsePeriodData(detail gjson.Result) PeriodData {
	return PeriodData{
		AccountValueHistory: parseHistorySeries(detail.Get("accountValueHistory")),
		PnlHistory:          parseHistorySeries(detail.Get("pnlHistory")),
		Volume:              detail.Get("vlm").Float(),
	}
}

// parseHistorySeries reads [[timestampMs, value], ...] where value may be a
// string or a number. Malformed points are skipped rather than failing the
// whole series.
func parseHistorySeries(series gjson.Result) []HistoryPoint {
	if !series.IsArray() {
		return nil
	}
	raw := series.Array()
	points := make([]HistoryPoint, 0, len(raw))
	for _, item := range raw {
		pair := item.Array()
		if len(pair) != 2 {
			continue
		}
		ts := pair[0].Int()
		if ts <= 0 {
			continue
		}
		points = append(points, HistoryPoint{Time: ts, Value: pair[1].Float()})
	}
	return points
}

// VaultDetails fetches metadata for one vault, best effort.
func (c *Client) VaultDetails(ctx context.Context, vaultAddress string) (VaultDetails, error) {
	body, err := c.post(ctx, "vaultDetails", map[string]any{"vaultAddress": vaultAddress})
	if err != nil {
		return VaultDetails{}, err
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return VaultDetails{}, model.NewSchemaError(model.DomainVaults, "vaultDetails root is not an object", body)
	}
	return VaultDetails{
		Name:             root.Get("name").String(),
		APR:              root.Get("apr").Float(),
		Leader:           root.Get("leader").String(),
		LeaderFraction:   root.Get("leaderFraction").Float(),
		LeaderCommission: root.Get("leaderCommission").Float(),
		MaxDistributable: root.Get("maxDistributable").Float(),
		IsClosed:         root.Get("isClosed").Bool(),
	}, nil
}

// Referral fetches the account's referral summary. Earnings and volume stay
// nil when the endpoint omits them.
func (c *Client) Referral(ctx context.Context, wallet string) (ReferralSummary, error) {
	body, err := c.post(ctx, "referral", map[string]any{"user": wallet})
	if err != nil {
		return ReferralSummary{}, err
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return ReferralSummary{}, model.NewSchemaError(model.DomainReferral, "referral root is not an object", body)
	}
	out := ReferralSummary{
		Referrer:     root.Get("referrer").String(),
		RefereeCount: int(root.Get("referees.#").Int()),
	}
	if v := root.Get("totalReferralUsdc"); v.Exists() {
		f := v.Float()
		out.TotalEarnedUsdc = &f
	}
	if v := root.Get("totalReferralVolume"); v.Exists() {
		f := v.Float()
		out.TotalVolume = &f
	}
	return out, nil
}
