package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/money-god/mgl-governance/internal/usecase"
)

// ProposalsRenderer renders proposals and execution reports
type ProposalsRenderer struct {
	out      io.Writer
	describe CallDescriber
}

// NewProposalsRenderer creates a new proposals renderer
func NewProposalsRenderer(out io.Writer, describe CallDescriber) *ProposalsRenderer {
	return &ProposalsRenderer{out: out, describe: describe}
}

// RenderList renders proposals as a table
func (r *ProposalsRenderer) RenderList(views []usecase.ProposalView) error {
	if len(views) == 0 {
		fmt.Fprintln(r.out, "No proposals found")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.AppendHeader(table.Row{"ID", "State", "Actions", "For", "Against", "Abstain", "Deadline", "Description"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 8, WidthMax: 48},
	})

	for _, v := range views {
		t.AppendRow(table.Row{
			hashStyle.Sprint(ShortHash(v.Proposal.ID)),
			FormatStatus(v.State),
			len(v.Proposal.Targets),
			FormatAmount(v.Votes.For),
			FormatAmount(v.Votes.Against),
			FormatAmount(v.Votes.Abstain),
			v.Proposal.Deadline,
			firstLine(v.Proposal.Description),
		})
	}

	t.Render()
	return nil
}

// RenderProposal renders one proposal in detail
func (r *ProposalsRenderer) RenderProposal(v usecase.ProposalView, quorum string) error {
	p := v.Proposal

	sectionHeaderStyle.Fprintf(r.out, "Proposal %s\n", p.ID.Hex())
	field(r.out, "State", FormatStatus(v.State))
	field(r.out, "Proposer", addressStyle.Sprint(p.Proposer.Hex()))
	field(r.out, "Snapshot", fmt.Sprintf("block %d", p.Snapshot))
	field(r.out, "Deadline", fmt.Sprintf("block %d", p.Deadline))
	if p.ETA != 0 {
		field(r.out, "ETA", timestampStyle.Sprint(FormatTimestamp(p.ETA)))
	}
	if p.Executed {
		field(r.out, "Executed", timestampStyle.Sprint(FormatTimestamp(p.ExecutedAt)))
	}
	field(r.out, "Desc. hash", p.DescriptionHash.Hex())

	fmt.Fprintln(r.out)
	sectionHeaderStyle.Fprintln(r.out, "Votes")
	field(r.out, "For", FormatAmount(v.Votes.For))
	field(r.out, "Against", FormatAmount(v.Votes.Against))
	field(r.out, "Abstain", FormatAmount(v.Votes.Abstain))
	field(r.out, "Quorum", quorum)
	field(r.out, "Voters", fmt.Sprint(len(v.Votes.Voters)))

	fmt.Fprintln(r.out)
	sectionHeaderStyle.Fprintln(r.out, "Actions")
	for i, target := range p.Targets {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, addressStyle.Sprint(target.Hex()))
		fmt.Fprintf(r.out, "     %s\n", r.describe(target, p.Payloads[i]))
		if i < len(p.CodeHashes) {
			fmt.Fprintf(r.out, "     %s\n", labelStyle.Sprintf("code %s", p.CodeHashes[i].Hex()))
		}
	}

	if p.Description != "" {
		fmt.Fprintln(r.out)
		sectionHeaderStyle.Fprintln(r.out, "Description")
		for _, line := range strings.Split(p.Description, "\n") {
			fmt.Fprintf(r.out, "  %s\n", line)
		}
	}
	return nil
}

// RenderReport renders the outcome of every action of an executed proposal
func (r *ProposalsRenderer) RenderReport(report *usecase.ExecutionReport) error {
	failed := len(report.Failed())
	if failed == 0 {
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Executed proposal %s (%d actions)", ShortHash(report.ProposalID), len(report.Outcomes))))
	} else {
		fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("Executed proposal %s: %d of %d actions failed",
			ShortHash(report.ProposalID), failed, len(report.Outcomes))))
	}

	for i, outcome := range report.Outcomes {
		a := outcome.Action
		if outcome.Err == nil {
			fmt.Fprintf(r.out, "  %s %d. %s %s\n", readyStyle.Sprint("✓"), i+1, addressStyle.Sprint(a.Target.Hex()), r.describe(a.Target, a.Payload))
			continue
		}
		fmt.Fprintf(r.out, "  %s %d. %s %s\n", failedStyle.Sprint("✗"), i+1, addressStyle.Sprint(a.Target.Hex()), r.describe(a.Target, a.Payload))
		fmt.Fprintf(r.out, "       %s\n", failedStyle.Sprint(outcome.Err.Error()))
	}
	return nil
}

// RenderCreated renders a newly created proposal
func (r *ProposalsRenderer) RenderCreated(p *models.Proposal) error {
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Created proposal %s", p.ID.Hex())))
	field(r.out, "Actions", fmt.Sprint(len(p.Targets)))
	field(r.out, "Snapshot", fmt.Sprintf("block %d", p.Snapshot))
	field(r.out, "Deadline", fmt.Sprintf("block %d", p.Deadline))
	return nil
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
