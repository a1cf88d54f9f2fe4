package reporting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/quangtran88/signalbot/internal/config"
	"github.com/quangtran88/signalbot/internal/scheduler"
	"github.com/quangtran88/signalbot/internal/signalstore"
)

// PrintStartupInfo renders the engine configuration at boot.
func PrintStartupInfo(w io.Writer, cfg *config.Config, strategies []*config.StrategyConfig) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("SIGNAL ENGINE")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Cycle interval", cfg.CycleInterval},
		{"Lookback bars", cfg.LookbackBars},
		{"Watchlist", fmt.Sprintf("%v", cfg.Watchlist)},
		{"Pending TTL", cfg.PendingTTL()},
		{"HTTP", cfg.HTTPAddr},
	})
	t.AppendSeparator()
	for _, sc := range strategies {
		t.AppendRow(table.Row{
			sc.Name,
			fmt.Sprintf("%s, %v, alloc %.0f%%", sc.AutomationMode, sc.Timeframes, sc.CapitalAllocationPercent),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, Align: text.AlignLeft},
	})
	t.Render()
}

// PrintPendingSignals renders the confirmation queue.
func PrintPendingSignals(w io.Writer, signals []*signalstore.PendingSignal) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("PENDING SIGNALS")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"ID", "Symbol", "TF", "Dir", "Conf", "Qty", "Status", "Created"})
	for _, ps := range signals {
		t.AppendRow(table.Row{
			ps.ID[:8],
			ps.Signal.Symbol,
			ps.Signal.Timeframe,
			ps.Signal.Direction,
			fmt.Sprintf("%.2f", ps.Signal.Confidence),
			fmt.Sprintf("%.4f", ps.Decision.SizedQuantity),
			ps.Status,
			ps.CreatedAt.Format("01-02 15:04"),
		})
	}
	t.Render()
}

// PrintSchedulerStatus renders the health snapshot.
func PrintSchedulerStatus(w io.Writer, st scheduler.Status) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("SCHEDULER")
	t.SetStyle(table.StyleRounded)

	health := "healthy"
	if !st.Healthy {
		health = fmt.Sprintf("degraded (%d tuples)", len(st.DegradedTuples))
	}
	t.AppendRows([]table.Row{
		{"Running", st.Running},
		{"Health", health},
		{"Cycles", st.CycleCount},
		{"Last cycle", st.LastCycleTook},
	})
	t.Render()
}
