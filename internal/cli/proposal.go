package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutu-network/multisig/internal/daemon"
	"github.com/tutu-network/multisig/internal/domain"
	"github.com/tutu-network/multisig/internal/infra/governance"
)

func init() {
	proposeCmd.Flags().StringVar(&caller, "as", "", "Voter address to act as (required)")
	proposeCmd.Flags().StringVarP(&proposeFile, "file", "f", "", "YAML file with the action batch (required)")
	proposeCmd.Flags().StringVar(&proposeTitle, "title", "", "Title (overrides the file)")
	proposeCmd.Flags().StringVar(&proposeDescription, "description", "", "Description (overrides the file)")
	proposeCmd.Flags().Uint64Var(&latestHeight, "latest-height", 0, "Expire at this height instead of the default")
	proposeCmd.Flags().StringVar(&latestTime, "latest-time", "", "Expire at this RFC 3339 time instead of the default")
	_ = proposeCmd.MarkFlagRequired("as")
	_ = proposeCmd.MarkFlagRequired("file")
	proposeCmd.MarkFlagsMutuallyExclusive("latest-height", "latest-time")

	voteCmd.Flags().StringVar(&caller, "as", "", "Voter address to act as (required)")
	_ = voteCmd.MarkFlagRequired("as")

	executeCmd.Flags().StringVar(&caller, "as", "", "Address to execute as (defaults to the multisig)")
	closeCmd.Flags().StringVar(&caller, "as", "", "Address to close as (defaults to the multisig)")

	rootCmd.AddCommand(proposeCmd, voteCmd, executeCmd, closeCmd)
}

var (
	caller             string
	proposeFile        string
	proposeTitle       string
	proposeDescription string
	latestHeight       uint64
	latestTime         string
)

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Create a proposal from an action file",
	Example: `  multisig propose --as alice -f pay.yaml --title "Pay the auditors"
  multisig propose --as alice -f bump.yaml --latest-height 1200`,
	Args: cobra.NoArgs,
	RunE: runPropose,
}

var voteCmd = &cobra.Command{
	Use:       "vote <proposal-id> <yes|no|abstain|veto>",
	Short:     "Cast or change a ballot on an open proposal",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"yes", "no", "abstain", "veto"},
	RunE:      runVote,
}

var executeCmd = &cobra.Command{
	Use:   "execute <proposal-id>",
	Short: "Dispatch a passed proposal's actions",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecute,
}

var closeCmd = &cobra.Command{
	Use:   "close <proposal-id>",
	Short: "Reject an expired proposal that never passed",
	Args:  cobra.ExactArgs(1),
	RunE:  runClose,
}

func runPropose(cmd *cobra.Command, args []string) error {
	f, actions, err := loadActions(proposeFile)
	if err != nil {
		return err
	}
	req := governance.ProposeRequest{
		Title:       firstNonEmpty(proposeTitle, f.Title),
		Description: firstNonEmpty(proposeDescription, f.Description),
		Actions:     actions,
	}
	if req.Latest, err = latestFlag(); err != nil {
		return err
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	p, err := d.Engine.Propose(cmd.Context(), caller, req)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), p)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Proposal %d created (%s), expires at %s\n", p.ID, statusText(p.Status), p.Expires)
	return nil
}

func runVote(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	opt, err := domain.ParseVoteOption(args[1])
	if err != nil {
		return err
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	p, err := d.Engine.Vote(cmd.Context(), caller, id, opt)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), p)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Voted %s on proposal %d: %s (yes %d of %d)\n",
		opt, id, statusText(p.Status), p.Tally.Yes, p.TotalWeight)
	return nil
}

func runExecute(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := d.Engine.Execute(cmd.Context(), callerOr(d.Engine.Identity()), id)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), res)
	}
	renderExecution(cmd.OutOrStdout(), res)
	return nil
}

func runClose(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	p, err := d.Engine.Close(cmd.Context(), callerOr(d.Engine.Identity()), id)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), p)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Proposal %d %s\n", p.ID, statusText(p.Status))
	return nil
}

// ─── Flag Helpers ───────────────────────────────────────────────────────────

func latestFlag() (*domain.Expiration, error) {
	switch {
	case latestHeight > 0:
		e := domain.AtHeight(latestHeight)
		return &e, nil
	case latestTime != "":
		t, err := time.Parse(time.RFC3339, latestTime)
		if err != nil {
			return nil, fmt.Errorf("--latest-time: %w", err)
		}
		e := domain.AtTime(t)
		return &e, nil
	default:
		return nil, nil
	}
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.New("proposal id must be a positive integer")
	}
	return id, nil
}

func callerOr(fallback string) string {
	if caller != "" {
		return caller
	}
	return fallback
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
