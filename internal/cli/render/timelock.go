package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/money-god/mgl-governance/internal/usecase"
)

// TimelockRenderer renders the timelock queue
type TimelockRenderer struct {
	out      io.Writer
	describe CallDescriber
}

// NewTimelockRenderer creates a new timelock renderer
func NewTimelockRenderer(out io.Writer, describe CallDescriber) *TimelockRenderer {
	return &TimelockRenderer{out: out, describe: describe}
}

// QueueSummary is the queue header shown above the entries
type QueueSummary struct {
	Delay  uint64
	Params usecase.TimelockParams
	Now    uint64
}

// RenderQueue renders outstanding actions ordered by eta
func (r *TimelockRenderer) RenderQueue(summary QueueSummary, entries []usecase.QueueEntry) error {
	sectionHeaderStyle.Fprintln(r.out, "Timelock")
	field(r.out, "Delay", fmt.Sprintf("%s (bounds %s – %s)",
		FormatDuration(summary.Delay), FormatDuration(summary.Params.MinDelay), FormatDuration(summary.Params.MaxDelay)))
	field(r.out, "Window", FormatDuration(summary.Params.ExecutionWindow))
	field(r.out, "Scheduled", fmt.Sprintf("%d / %d", len(entries), summary.Params.MaxScheduled))
	field(r.out, "Now", timestampStyle.Sprint(FormatTimestamp(summary.Now)))
	fmt.Fprintln(r.out)

	if len(entries) == 0 {
		fmt.Fprintln(r.out, "No scheduled actions")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.AppendHeader(table.Row{"Key", "Status", "Target", "Call", "ETA", "Expires"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 48},
	})

	for _, e := range entries {
		t.AppendRow(table.Row{
			hashStyle.Sprint(ShortHash(e.Key)),
			FormatActionStatus(e.Status),
			addressStyle.Sprint(e.Action.Target.Hex()),
			r.describe(e.Action.Target, e.Action.Payload),
			FormatTimestamp(e.Action.ETA),
			timestampStyle.Sprint(FormatTimestamp(e.ExpiresAt)),
		})
	}

	t.Render()
	return nil
}

// RenderVeto renders a successful veto
func (r *TimelockRenderer) RenderVeto(result *usecase.VetoResult) error {
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Vetoed %d scheduled actions", len(result.Abandoned))))
	field(r.out, "Identity", addressStyle.Sprint(result.Identity.Hex()))
	field(r.out, "Support", fmt.Sprintf("%s / %s at block %d",
		FormatAmount(result.Votes), FormatAmount(result.Threshold), result.Block))
	for _, a := range result.Abandoned {
		fmt.Fprintf(r.out, "  - %s %s\n", hashStyle.Sprint(ShortHash(a.Key())), r.describe(a.Target, a.Payload))
	}
	return nil
}
