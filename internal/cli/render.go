package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tutu-network/multisig/internal/domain"
	"github.com/tutu-network/multisig/internal/infra/governance"
)

// Color styles for table format
var (
	openStyle     = color.New(color.FgYellow)
	passedStyle   = color.New(color.FgCyan)
	rejectedStyle = color.New(color.FgRed)
	executedStyle = color.New(color.FgGreen)
	labelStyle    = color.New(color.Bold)
	faintStyle    = color.New(color.Faint)
)

func statusText(s domain.Status) string {
	switch s {
	case domain.StatusOpen:
		return openStyle.Sprint(s)
	case domain.StatusPassed:
		return passedStyle.Sprint(s)
	case domain.StatusRejected:
		return rejectedStyle.Sprint(s)
	case domain.StatusExecuted:
		return executedStyle.Sprint(s)
	default:
		return s.String()
	}
}

func newTable(out io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.AppendHeader(table.Row(header))
	return t
}

// printJSON writes v indented. Used by every command under --json.
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderProposals(out io.Writer, list []domain.Proposal) {
	if len(list) == 0 {
		fmt.Fprintln(out, "No proposals found.")
		return
	}
	t := newTable(out, "ID", "TITLE", "STATUS", "YES", "NO", "ABSTAIN", "VETO", "ACTIONS", "EXPIRES")
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, WidthMax: 40},
	})
	for _, p := range list {
		t.AppendRow(table.Row{
			p.ID, p.Title, statusText(p.Status),
			p.Tally.Yes, p.Tally.No, p.Tally.Abstain, p.Tally.Veto,
			len(p.Actions), p.Expires,
		})
	}
	t.Render()
}

func renderProposal(out io.Writer, p *domain.Proposal) {
	row := func(label string, v any) {
		fmt.Fprintf(out, "%s %v\n", labelStyle.Sprintf("%-12s", label+":"), v)
	}
	row("ID", p.ID)
	row("Title", p.Title)
	if p.Description != "" {
		row("Description", p.Description)
	}
	row("Proposer", p.Proposer)
	row("Status", statusText(p.Status))
	row("Threshold", p.Threshold)
	row("Tally", fmt.Sprintf("yes %d · no %d · abstain %d · veto %d of %d",
		p.Tally.Yes, p.Tally.No, p.Tally.Abstain, p.Tally.Veto, p.TotalWeight))
	row("Submitted", fmt.Sprintf("height %d (%s)", p.SubmittedAt.Height, p.SubmittedAt.Time.Format("2006-01-02 15:04:05")))
	row("Expires", p.Expires)
	if p.ClosedAt != nil {
		row("Closed", fmt.Sprintf("height %d", p.ClosedAt.Height))
	}

	fmt.Fprintln(out)
	t := newTable(out, "#", "CONTRACT", "MSG")
	for i, a := range p.Actions {
		t.AppendRow(table.Row{i, a.Contract, faintStyle.Sprint(string(a.Msg))})
	}
	t.Render()
}

func renderBallots(out io.Writer, ballots []domain.Ballot) {
	if len(ballots) == 0 {
		fmt.Fprintln(out, "No votes yet.")
		return
	}
	t := newTable(out, "VOTER", "VOTE", "WEIGHT", "HEIGHT")
	for _, b := range ballots {
		t.AppendRow(table.Row{b.Voter, b.Option, b.Weight, b.CastAt.Height})
	}
	t.Render()
}

func renderVoters(out io.Writer, voters []domain.Voter) {
	t := newTable(out, "ADDRESS", "WEIGHT")
	for _, v := range voters {
		t.AppendRow(table.Row{v.Addr, v.Weight})
	}
	t.Render()
}

func renderThreshold(out io.Writer, info governance.ThresholdInfo) {
	row := func(label string, v any) {
		fmt.Fprintf(out, "%s %v\n", labelStyle.Sprintf("%-24s", label+":"), v)
	}
	row("Threshold", info.Threshold)
	row("Total weight", info.TotalWeight)
	row("Max voting period", info.MaxVotingPeriod)
	if info.ExecutionWindow != nil {
		row("Execution window", *info.ExecutionWindow)
	}
	veto := "counts as no"
	if info.VetoThreshold != nil {
		veto = info.VetoThreshold.String()
	}
	row("Veto threshold", veto)
	row("Implicit proposer vote", strconv.FormatBool(info.ImplicitProposerVote))
}

func renderExecution(out io.Writer, res *governance.ExecuteResult) {
	fmt.Fprintf(out, "Proposal %d %s as %s (execution %s)\n",
		res.Proposal.ID, statusText(res.Proposal.Status), res.Execution.Sender, res.Execution.ID)
	for i, r := range res.Execution.Responses {
		fmt.Fprintf(out, "  %d %s %s\n", i, r.Contract, faintStyle.Sprint(string(r.Data)))
	}
}
