package cmd

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/daytrader/broker/creon"
	"github.com/rustyeddy/daytrader/config"
	"github.com/rustyeddy/daytrader/executor"
	"github.com/rustyeddy/daytrader/journal"
	"github.com/rustyeddy/daytrader/ledger"
	"github.com/rustyeddy/daytrader/metrics"
	"github.com/rustyeddy/daytrader/notify"
	"github.com/rustyeddy/daytrader/session"
	"github.com/rustyeddy/daytrader/signal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one trading session from a config file",
	Long: `Run a trading session using settings from a configuration file.

The config file names the instrument universe, the entry target, the
per-instrument budget fraction and the session windows. Secrets come from
the environment (or a .env file): CREON_TOKEN for the gateway and
SLACK_WEBHOOK_URL for notifications.

Example:
  daytrader run -f session.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	// Best-effort .env load; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if tok := os.Getenv("CREON_TOKEN"); tok != "" {
		cfg.Gateway.Token = tok
	}
	if hook := os.Getenv("SLACK_WEBHOOK_URL"); hook != "" {
		cfg.Notify.WebhookURL = hook
	}
	if cfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		setupLogging(cfg.LogLevel)
	}

	jnl, err := newJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer jnl.Close()

	if cfg.Metrics.Listen != "" {
		errc := metrics.Serve(cfg.Metrics.Listen)
		go func() {
			if err := <-errc; err != nil {
				log.Error().Err(err).Msg("metrics listener failed")
			}
		}()
		log.Info().Str("listen", cfg.Metrics.Listen).Msg("metrics listener started")
	}

	gw := creon.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Token)
	sink := notify.New(cfg.Notify.WebhookURL, log.Logger)
	led := ledger.New()
	signals := signal.NewEvaluator(gw, log.Logger)

	settle, _ := cfg.Session.SettleDuration()
	liquidate, _ := cfg.Session.LiquidateDuration()
	tick, _ := cfg.Session.TickDuration()
	open, _ := cfg.Session.OpenMinutes()
	close, _ := cfg.Session.CloseMinutes()

	exec := executor.New(executor.Config{
		Gateway: gw,
		Signals: signals,
		Ledger:  led,
		Journal: jnl,
		Sink:    sink,
		Log:     log.Logger,
	})

	ctrl := session.NewController(session.Config{
		Instruments:      cfg.Session.Instruments,
		TargetEntryCount: cfg.Session.TargetEntryCount,
		BudgetFraction:   cfg.Session.BudgetFraction,
		Windows: session.Windows{
			Open:      open,
			Close:     close,
			Settle:    settle,
			Liquidate: liquidate,
		},
		Tick:            tick,
		ReconcileMinute: cfg.Session.ReconcileMinute,
		Gateway:         gw,
		Executor:        exec,
		Ledger:          led,
		Journal:         jnl,
		Sink:            sink,
		Log:             log.Logger,
	})

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Run(ctx); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

func newJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	case "csv":
		return journal.NewCSV(cfg.OrdersFile, cfg.EventsFile)
	default:
		return journal.Nop{}, nil
	}
}
