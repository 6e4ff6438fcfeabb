// Package daemon manages the multisig daemon lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/tutu-network/multisig/internal/domain"
	"github.com/tutu-network/multisig/internal/infra/governance"
)

// Config holds all daemon configuration.
type Config struct {
	Multisig  MultisigConfig  `toml:"multisig"`
	Chain     ChainConfig     `toml:"chain"`
	API       APIConfig       `toml:"api"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Sweeper   SweeperConfig   `toml:"sweeper"`
	Token     TokenConfig     `toml:"token"`
	Counter   CounterConfig   `toml:"counter"`
}

// MultisigConfig is the immutable governance setup.
type MultisigConfig struct {
	Name    string        `toml:"name"`
	Address string        `toml:"address,omitempty"` // Empty = derived from the keypair
	Voters  []VoterConfig `toml:"voters"`

	Threshold       ThresholdConfig `toml:"threshold"`
	MaxVotingPeriod DurationConfig  `toml:"max_voting_period"`
	ExecutionWindow *DurationConfig `toml:"execution_window,omitempty"`
	VetoThreshold   string          `toml:"veto_threshold,omitempty"` // Empty = veto counts as no

	ImplicitProposerVote bool `toml:"implicit_proposer_vote"`
}

// VoterConfig is one registry entry.
type VoterConfig struct {
	Addr   string `toml:"addr"`
	Weight uint64 `toml:"weight"`
}

// ThresholdConfig selects the passing rule.
// Kind is absolute_count (weight), absolute_percentage (percentage) or
// threshold_quorum (threshold, quorum). Percentages read "0.51" or "51%".
type ThresholdConfig struct {
	Kind       string `toml:"kind"`
	Weight     uint64 `toml:"weight,omitempty"`
	Percentage string `toml:"percentage,omitempty"`
	Threshold  string `toml:"threshold,omitempty"`
	Quorum     string `toml:"quorum,omitempty"`
}

// DurationConfig is a span in blocks (height) or wall time (time, e.g. "72h").
type DurationConfig struct {
	Height uint64 `toml:"height,omitempty"`
	Time   string `toml:"time,omitempty"`
}

// ChainConfig drives the block clock. A zero genesis means the one recorded
// in the store on first open.
type ChainConfig struct {
	Genesis   time.Time `toml:"genesis"`
	BlockTime string    `toml:"block_time"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json | console
}

// TelemetryConfig controls the metrics endpoint.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// SweeperConfig schedules the expiry sweeper. An empty schedule disables it.
type SweeperConfig struct {
	Schedule string `toml:"schedule"`
}

// TokenConfig deploys the example token. An empty address disables it.
type TokenConfig struct {
	Address  string `toml:"address"`
	Name     string `toml:"name"`
	Symbol   string `toml:"symbol"`
	Decimals uint8  `toml:"decimals"`
}

// CounterConfig deploys the example counter. An empty address disables it.
type CounterConfig struct {
	Address string `toml:"address"`
	Initial int64  `toml:"initial"`
}

// DefaultConfig returns a configuration with every optional section filled in.
// Voters and the threshold must still be provided.
func DefaultConfig() Config {
	return Config{
		Multisig: MultisigConfig{
			Name:                 "multisig",
			Threshold:            ThresholdConfig{Kind: "absolute_count", Weight: 1},
			MaxVotingPeriod:      DurationConfig{Height: 100},
			ImplicitProposerVote: true,
		},
		Chain: ChainConfig{
			BlockTime: "5s",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8480,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{Prometheus: true},
		Sweeper:   SweeperConfig{Schedule: "@every 1m"},
		Token: TokenConfig{
			Address:  "token",
			Name:     "Multisig Token",
			Symbol:   "MST",
			Decimals: 6,
		},
		Counter: CounterConfig{Address: "counter"},
	}
}

// LoadConfig reads config from $MULTISIG_HOME/config.toml, falling back to defaults.
// A .env file in the working directory or home is loaded first.
func LoadConfig() (Config, error) {
	LoadEnv()
	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if lvl := os.Getenv("MULTISIG_LOG_LEVEL"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	return cfg, nil
}

// ConfigExists reports whether config.toml has been written.
func ConfigExists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// SaveConfig writes the config to $MULTISIG_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// LoadEnv loads .env from the working directory, then from the home
// directory it may point at. Variables already set are not overridden.
func LoadEnv() {
	loadEnvFile(".env")
	loadEnvFile(filepath.Join(multisigHome(), ".env"))
}

func loadEnvFile(path string) {
	if _, err := os.Stat(path); err == nil {
		_ = godotenv.Load(path)
	}
}

// ConfigPath returns the config file location.
func ConfigPath() string {
	return filepath.Join(multisigHome(), "config.toml")
}

// multisigHome returns the multisig data directory.
func multisigHome() string {
	if env := os.Getenv("MULTISIG_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".multisig")
}

// ─── Conversion ─────────────────────────────────────────────────────────────

// GovernanceConfig converts the [multisig] section into an engine config.
// Malformed values are reported as domain.ErrInvalidConfiguration.
func (c Config) GovernanceConfig() (governance.Config, error) {
	m := c.Multisig
	out := governance.Config{ImplicitProposerVote: m.ImplicitProposerVote}

	for _, v := range m.Voters {
		out.Voters = append(out.Voters, domain.Voter{Addr: v.Addr, Weight: v.Weight})
	}

	th, err := m.Threshold.threshold()
	if err != nil {
		return out, invalid("threshold", err)
	}
	out.Threshold = th

	if out.MaxVotingPeriod, err = m.MaxVotingPeriod.duration(); err != nil {
		return out, invalid("max_voting_period", err)
	}
	if m.ExecutionWindow != nil {
		w, err := m.ExecutionWindow.duration()
		if err != nil {
			return out, invalid("execution_window", err)
		}
		out.ExecutionWindow = &w
	}
	if m.VetoThreshold != "" {
		if out.VetoThreshold, err = domain.ParsePercent(m.VetoThreshold); err != nil {
			return out, invalid("veto_threshold", err)
		}
	}
	return out, nil
}

// BlockTime parses the chain block time.
func (c Config) BlockTime() (time.Duration, error) {
	d, err := time.ParseDuration(c.Chain.BlockTime)
	if err != nil {
		return 0, invalid("chain.block_time", err)
	}
	return d, nil
}

func (t ThresholdConfig) threshold() (domain.Threshold, error) {
	switch strings.ToLower(t.Kind) {
	case "absolute_count":
		return domain.Threshold{Kind: domain.AbsoluteCount, Weight: t.Weight}, nil
	case "absolute_percentage":
		p, err := domain.ParsePercent(t.Percentage)
		if err != nil {
			return domain.Threshold{}, err
		}
		return domain.Threshold{Kind: domain.AbsolutePercentage, Percentage: p}, nil
	case "threshold_quorum":
		p, err := domain.ParsePercent(t.Threshold)
		if err != nil {
			return domain.Threshold{}, err
		}
		q, err := domain.ParsePercent(t.Quorum)
		if err != nil {
			return domain.Threshold{}, err
		}
		return domain.Threshold{Kind: domain.ThresholdQuorum, Percentage: p, Quorum: q}, nil
	default:
		return domain.Threshold{}, fmt.Errorf("unknown kind %q", t.Kind)
	}
}

func (d DurationConfig) duration() (domain.Duration, error) {
	switch {
	case d.Height > 0 && d.Time == "":
		return domain.HeightDuration(d.Height), nil
	case d.Time != "" && d.Height == 0:
		td, err := time.ParseDuration(d.Time)
		if err != nil {
			return domain.Duration{}, err
		}
		return domain.TimeDuration(td), nil
	default:
		return domain.Duration{}, errors.New("set exactly one of height or time")
	}
}

func invalid(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfiguration, field, err)
}
