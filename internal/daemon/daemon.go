package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tutu-network/multisig/internal/api"
	"github.com/tutu-network/multisig/internal/app/counter"
	"github.com/tutu-network/multisig/internal/app/token"
	"github.com/tutu-network/multisig/internal/domain"
	"github.com/tutu-network/multisig/internal/health"
	"github.com/tutu-network/multisig/internal/infra/chain"
	"github.com/tutu-network/multisig/internal/infra/dispatch"
	"github.com/tutu-network/multisig/internal/infra/governance"
	_ "github.com/tutu-network/multisig/internal/infra/metrics" // Register Prometheus metrics
	"github.com/tutu-network/multisig/internal/infra/scheduler"
	"github.com/tutu-network/multisig/internal/infra/sqlite"
	"github.com/tutu-network/multisig/internal/logging"
	"github.com/tutu-network/multisig/internal/security"
)

// Daemon is the multisig runtime. It wires together all services.
type Daemon struct {
	Config Config
	Home   string
	Log    zerolog.Logger

	DB      *sqlite.DB
	Keypair *security.Keypair
	Clock   *chain.BlockClock
	Router  *dispatch.Router
	Token   *token.Contract   // nil when [token] has no address
	Counter *counter.Contract // nil when [counter] has no address
	Engine  *governance.Engine

	Health  *health.Checker
	Sweeper *scheduler.Sweeper
	Server  *api.Server

	cancel context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
// The governance configuration is validated before anything is opened.
func NewWithConfig(cfg Config) (*Daemon, error) {
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		return nil, err
	}

	if len(cfg.Multisig.Voters) == 0 {
		return nil, fmt.Errorf("%w: no voters configured (run 'multisig config init --voter addr:weight')",
			domain.ErrInvalidConfiguration)
	}
	govCfg, err := cfg.GovernanceConfig()
	if err != nil {
		return nil, err
	}
	blockTime, err := cfg.BlockTime()
	if err != nil {
		return nil, err
	}

	home := multisigHome()
	db, err := sqlite.Open(home)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d := &Daemon{
		Config: cfg,
		Home:   home,
		Log:    log,
		DB:     db,
	}
	if err := d.wire(govCfg, blockTime); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) wire(govCfg governance.Config, blockTime time.Duration) error {
	ctx := context.Background()
	cfg := d.Config

	// Block clock, anchored at the genesis every process shares
	genesis, err := resolveGenesis(ctx, d.DB, cfg.Chain.Genesis)
	if err != nil {
		return err
	}
	if d.Clock, err = chain.NewBlockClock(genesis, blockTime); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}

	// Multisig identity (Ed25519)
	kp, err := security.LoadOrCreateKeypair(d.Home)
	if err != nil {
		return fmt.Errorf("load keypair: %w", err)
	}
	d.Keypair = kp
	identity := cfg.Multisig.Address
	if identity == "" {
		identity = kp.Address()
	}

	// Downstream contracts, owned by the multisig
	d.Router = dispatch.NewRouter(d.DB, d.Log)
	var required []string
	if cfg.Token.Address != "" {
		d.Token = token.New(d.DB, cfg.Token.Address)
		if err := d.Token.Init(ctx, cfg.Token.Name, cfg.Token.Symbol, cfg.Token.Decimals, identity); err != nil {
			return fmt.Errorf("init token: %w", err)
		}
		d.Router.Register(d.Token.Address(), d.Token)
		required = append(required, d.Token.Address())
	}
	if cfg.Counter.Address != "" {
		d.Counter = counter.New(d.DB, cfg.Counter.Address)
		if err := d.Counter.Init(ctx, identity, cfg.Counter.Initial); err != nil {
			return fmt.Errorf("init counter: %w", err)
		}
		d.Router.Register(d.Counter.Address(), d.Counter)
		required = append(required, d.Counter.Address())
	}

	d.Engine, err = governance.NewEngine(govCfg, d.DB, d.Router, d.Clock,
		governance.WithLogger(d.Log),
		governance.WithIdentity(identity, kp),
	)
	if err != nil {
		return err
	}

	d.Health = health.NewChecker(health.DefaultInterval, d.Log,
		health.StoreCheck(d.DB),
		health.DataDirCheck(d.Home),
		health.ContractsCheck(d.Router.Contracts, required...),
	)
	d.Sweeper = scheduler.NewSweeper(d.Engine, identity, cfg.Sweeper.Schedule, d.Log)

	d.Server = api.NewServer(d.Engine, d.Log)
	d.Server.SetContracts(d.Token, d.Counter)
	d.Server.SetHealth(d.Health)
	d.Server.SetPublicKey(kp.PublicKeyHex())
	if cfg.Telemetry.Prometheus {
		d.Server.EnableMetrics()
	}

	d.Log.Debug().
		Str("identity", identity).
		Int("voters", len(govCfg.Voters)).
		Str("threshold", govCfg.Threshold.String()).
		Strs("contracts", d.Router.Contracts()).
		Msg("daemon wired")
	return nil
}

// genesisKey is the settings row holding the chain genesis.
const genesisKey = "chain.genesis"

// resolveGenesis returns the genesis recorded in the store, recording
// configured (or the current second when unset) on first open. Height then
// keeps counting from the same instant in every process.
func resolveGenesis(ctx context.Context, db *sqlite.DB, configured time.Time) (time.Time, error) {
	want := configured
	if want.IsZero() {
		want = time.Now().UTC().Truncate(time.Second)
	}
	stored, err := db.Pin(ctx, genesisKey, want.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return time.Time{}, err
	}
	genesis, err := time.Parse(time.RFC3339Nano, stored)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored genesis %q: %w", stored, err)
	}
	if !configured.IsZero() && !genesis.Equal(configured) {
		return time.Time{}, invalid("chain.genesis",
			fmt.Errorf("configured %s but the store was created at %s",
				configured.UTC().Format(time.RFC3339), genesis.Format(time.RFC3339)))
	}
	return genesis, nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Background services
	go d.Health.Run(ctx)
	if err := d.Sweeper.Start(ctx); err != nil {
		cancel()
		return err
	}

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		d.Sweeper.Stop()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	d.Log.Info().
		Str("addr", addr).
		Str("identity", d.Engine.Identity()).
		Bool("metrics", d.Config.Telemetry.Prometheus).
		Str("sweep_schedule", d.Config.Sweeper.Schedule).
		Msg("multisig serving")

	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.Sweeper != nil {
		d.Sweeper.Stop()
	}
	if d.DB != nil {
		_ = d.DB.Close()
	}
}
