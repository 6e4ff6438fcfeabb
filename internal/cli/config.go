package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutu-network/multisig/internal/daemon"
)

func init() {
	f := configInitCmd.Flags()
	f.StringArrayVar(&initVoters, "voter", nil, "Voter as addr:weight (repeatable, required)")
	f.StringVar(&initKind, "threshold-kind", "absolute_count", "absolute_count | absolute_percentage | threshold_quorum")
	f.Uint64Var(&initWeight, "weight", 0, "Passing weight for absolute_count (default: majority of total)")
	f.StringVar(&initPercentage, "percentage", "", "Passing share for absolute_percentage or threshold_quorum, e.g. 51%")
	f.StringVar(&initQuorum, "quorum", "", "Participation share for threshold_quorum")
	f.Uint64Var(&initPeriodHeight, "voting-period-height", 0, "Max voting period in blocks")
	f.StringVar(&initPeriodTime, "voting-period-time", "", "Max voting period as a duration, e.g. 72h")
	f.StringVar(&initVeto, "veto-threshold", "", "Veto share that rejects outright (empty: veto counts as no)")
	f.BoolVar(&initForce, "force", false, "Overwrite an existing config")
	_ = configInitCmd.MarkFlagRequired("voter")
	configInitCmd.MarkFlagsMutuallyExclusive("voting-period-height", "voting-period-time")

	configCmd.AddCommand(configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

var (
	initVoters       []string
	initKind         string
	initWeight       uint64
	initPercentage   string
	initQuorum       string
	initPeriodHeight uint64
	initPeriodTime   string
	initVeto         string
	initForce        bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the multisig configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a new config.toml",
	Example: `  multisig config init --voter alice:1 --voter bob:1 --voter carol:1 --weight 2
  multisig config init --voter alice:3 --voter bob:1 --threshold-kind absolute_percentage --percentage 60%`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), daemon.ConfigPath())
	},
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if daemon.ConfigExists() && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", daemon.ConfigPath())
	}

	cfg := daemon.DefaultConfig()
	cfg.Chain.Genesis = time.Now().UTC().Truncate(time.Second)
	var total uint64
	for _, s := range initVoters {
		v, err := parseVoter(s)
		if err != nil {
			return err
		}
		total += v.Weight
		cfg.Multisig.Voters = append(cfg.Multisig.Voters, v)
	}

	cfg.Multisig.Threshold = daemon.ThresholdConfig{Kind: initKind}
	switch strings.ToLower(initKind) {
	case "absolute_count":
		cfg.Multisig.Threshold.Weight = initWeight
		if initWeight == 0 {
			cfg.Multisig.Threshold.Weight = total/2 + 1
		}
	case "absolute_percentage":
		cfg.Multisig.Threshold.Percentage = initPercentage
	case "threshold_quorum":
		cfg.Multisig.Threshold.Threshold = initPercentage
		cfg.Multisig.Threshold.Quorum = initQuorum
	}
	if initPeriodHeight > 0 {
		cfg.Multisig.MaxVotingPeriod = daemon.DurationConfig{Height: initPeriodHeight}
	} else if initPeriodTime != "" {
		cfg.Multisig.MaxVotingPeriod = daemon.DurationConfig{Time: initPeriodTime}
	}
	cfg.Multisig.VetoThreshold = initVeto

	// Validate before writing anything.
	if _, err := cfg.GovernanceConfig(); err != nil {
		return err
	}
	if err := daemon.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d voters, total weight %d)\n",
		daemon.ConfigPath(), len(cfg.Multisig.Voters), total)
	return nil
}

// parseVoter reads "addr:weight". A bare address has weight 1.
func parseVoter(s string) (daemon.VoterConfig, error) {
	addr, weight, found := strings.Cut(s, ":")
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return daemon.VoterConfig{}, fmt.Errorf("voter %q: address is required", s)
	}
	if !found {
		return daemon.VoterConfig{Addr: addr, Weight: 1}, nil
	}
	w, err := strconv.ParseUint(strings.TrimSpace(weight), 10, 64)
	if err != nil || w == 0 {
		return daemon.VoterConfig{}, fmt.Errorf("voter %q: weight must be a positive integer", s)
	}
	return daemon.VoterConfig{Addr: addr, Weight: w}, nil
}
