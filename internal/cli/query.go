package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tutu-network/multisig/internal/daemon"
	"github.com/tutu-network/multisig/internal/domain"
)

func init() {
	proposalsCmd.Flags().StringVar(&listStatus, "status", "", "Only show proposals with this status")
	proposalsCmd.Flags().Uint64Var(&listStartAfter, "start-after", 0, "Only ids above this one")
	proposalsCmd.Flags().Uint64Var(&listStartBefore, "start-before", 0, "Only ids below this one")
	proposalsCmd.Flags().BoolVarP(&listReverse, "reverse", "r", false, "Newest first")
	proposalsCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Page size (default 10, max 30)")

	votesCmd.Flags().StringVar(&votesStartAfter, "start-after", "", "Only voters sorting after this address")
	votesCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Page size (default 10, max 30)")
	votersCmd.Flags().StringVar(&votesStartAfter, "start-after", "", "Only voters sorting after this address")
	votersCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Page size (default 10, max 30)")

	rootCmd.AddCommand(proposalsCmd, showCmd, votesCmd, votersCmd, thresholdCmd, balanceCmd, counterCmd)
}

var (
	listStatus      string
	listStartAfter  uint64
	listStartBefore uint64
	listReverse     bool
	listLimit       int
	votesStartAfter string
)

var proposalsCmd = &cobra.Command{
	Use:     "proposals",
	Aliases: []string{"ls", "list"},
	Short:   "List proposals",
	Example: `  multisig proposals --status passed
  multisig proposals -r -n 5`,
	Args: cobra.NoArgs,
	RunE: runProposals,
}

var showCmd = &cobra.Command{
	Use:   "show <proposal-id>",
	Short: "Show a proposal with its actions",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var votesCmd = &cobra.Command{
	Use:   "votes <proposal-id>",
	Short: "List ballots cast on a proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  runVotes,
}

var votersCmd = &cobra.Command{
	Use:   "voters",
	Short: "List registered voters and weights",
	Args:  cobra.NoArgs,
	RunE:  runVoters,
}

var thresholdCmd = &cobra.Command{
	Use:   "threshold",
	Short: "Show the voting rules",
	Args:  cobra.NoArgs,
	RunE:  runThreshold,
}

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Show a token balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runBalance,
}

var counterCmd = &cobra.Command{
	Use:   "counter",
	Short: "Show the counter contract state",
	Args:  cobra.NoArgs,
	RunE:  runCounter,
}

func runProposals(cmd *cobra.Command, args []string) error {
	filter := domain.ProposalFilter{
		StartAfter:  listStartAfter,
		StartBefore: listStartBefore,
		Reverse:     listReverse,
		Limit:       listLimit,
	}
	if listStatus != "" {
		s, err := domain.ParseStatus(listStatus)
		if err != nil {
			return err
		}
		filter.Status = &s
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	list, err := d.Engine.Proposals(cmd.Context(), filter)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), list)
	}
	renderProposals(cmd.OutOrStdout(), list)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	p, err := d.Engine.Proposal(cmd.Context(), id)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), p)
	}
	renderProposal(cmd.OutOrStdout(), p)
	return nil
}

func runVotes(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	ballots, err := d.Engine.Ballots(cmd.Context(), id, votesStartAfter, listLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), ballots)
	}
	renderBallots(cmd.OutOrStdout(), ballots)
	return nil
}

func runVoters(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	voters := d.Engine.Voters(votesStartAfter, listLimit)
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), voters)
	}
	renderVoters(cmd.OutOrStdout(), voters)
	return nil
}

func runThreshold(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	info := d.Engine.ThresholdInfo()
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), info)
	}
	renderThreshold(cmd.OutOrStdout(), info)
	return nil
}

func runBalance(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if d.Token == nil {
		return fmt.Errorf("token contract is disabled in config")
	}
	bal, err := d.Token.Balance(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), bal)
	}
	info, err := d.Token.Info(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d %s\n", bal.Address, bal.Balance, info.Symbol)
	return nil
}

func runCounter(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if d.Counter == nil {
		return fmt.Errorf("counter contract is disabled in config")
	}
	st, err := d.Counter.State(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), st)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "count %d (owner %s)\n", st.Count, st.Owner)
	return nil
}
