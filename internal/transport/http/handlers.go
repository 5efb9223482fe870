package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"hypersense/internal/sensor"
)

type handlers struct {
	source SnapshotSource
}

func (h *handlers) handleSnapshot(c *gin.Context) {
	pub := h.source.Published()
	if pub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no cycle published yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cycle_id": pub.CycleID,
		"snapshot": pub.Snapshot,
	})
}

func (h *handlers) handleSensors(c *gin.Context) {
	pub := h.source.Published()
	if pub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no cycle published yet"})
		return
	}
	dynamic := make([]sensor.State, 0, len(pub.Dynamic))
	for _, st := range pub.Dynamic {
		dynamic = append(dynamic, st)
	}
	c.JSON(http.StatusOK, gin.H{
		"cycle_id": pub.CycleID,
		"account":  pub.Account,
		"dynamic":  dynamic,
	})
}

func (h *handlers) handleCycles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cycles": h.source.Cycles()})
}

// handleAccountValueChart renders the lookback account-value series as a
// standalone HTML line chart.
func (h *handlers) handleAccountValueChart(c *gin.Context) {
	pub := h.source.Published()
	if pub == nil || len(pub.Snapshot.History) == 0 {
		c.String(http.StatusServiceUnavailable, "no account value history available")
		return
	}
	history := pub.Snapshot.History

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Account Value",
			Subtitle: pub.Snapshot.Wallet,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "USD", Scale: opts.Bool(true)}),
	)

	labels := make([]string, len(history))
	points := make([]opts.LineData, len(history))
	for i, p := range history {
		labels[i] = time.UnixMilli(p.Time).UTC().Format("01-02 15:04")
		points[i] = opts.LineData{Value: p.Value}
	}
	line.SetXAxis(labels).AddSeries("account value", points,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := line.Render(c.Writer); err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("render chart: %v", err))
	}
}
