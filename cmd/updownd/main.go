// Command updownd runs the up/down prediction-market ledger daemon.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/openpredict/updown/config"
	"github.com/openpredict/updown/core"
	"github.com/openpredict/updown/engine"
	"github.com/openpredict/updown/events"
	"github.com/openpredict/updown/oracle"
	"github.com/openpredict/updown/rpc"
	"github.com/openpredict/updown/storage"

	// Import engine modules to trigger their init() self-registration.
	_ "github.com/openpredict/updown/engine/modules/admin"
	_ "github.com/openpredict/updown/engine/modules/bets"
	_ "github.com/openpredict/updown/engine/modules/rounds"
	_ "github.com/openpredict/updown/engine/modules/settle"
)

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:           "updownd",
		Short:         "up/down prediction-market ledger daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "updown.yaml", "path to config file")

	root.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "write a default config file and exit",
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config file %s already exists", cfgPath)
			}
			if err := config.Save(config.Default(), cfgPath); err != nil {
				return err
			}
			fmt.Printf("Default config written to %s\n", cfgPath)
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "run the daemon",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(cfgPath)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("mkdir data dir: %w", err)
	}
	db, err := storage.NewLevelDB(cfg.DataDir + "/ledger")
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ledger := storage.NewLedgerDB(db)
	if err := seedMarketConfig(ledger, cfg); err != nil {
		return fmt.Errorf("seed market config: %w", err)
	}

	orc := buildOracle(cfg)
	emitter := events.NewEmitter()
	emitter.Subscribe(events.EventPaymentOrder, func(ev events.Event) {
		// Payment orders are executed by the host environment; the daemon
		// only records that one was issued.
		log.Info().Str("caller", ev.Caller).Any("order", ev.Data).Msg("payment order emitted")
	})

	exec := engine.New(ledger, orc, emitter)

	server := rpc.NewServer(cfg.ListenAddr, rpc.NewHandler(ledger, exec), cfg.RPCAuthToken)
	if err := server.Start(); err != nil {
		return fmt.Errorf("rpc start: %w", err)
	}
	defer server.Stop()
	log.Info().Str("addr", cfg.ListenAddr).Msg("rpc listening")
	if cfg.RPCAuthToken != "" {
		log.Info().Msg("rpc bearer token authentication enabled")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info().Msg("shutting down")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", path).Msg("config file not found, using defaults")
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	if cfg.LogFile != "" {
		w = zerolog.MultiLevelWriter(w, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// seedMarketConfig writes the initial market configuration on a fresh
// ledger. An existing persisted config is authoritative: the file's market
// section is ignored after first start, admin actions mutate it instead.
func seedMarketConfig(ledger *storage.LedgerDB, cfg *config.Config) error {
	_, err := ledger.GetMarketConfig()
	if err == nil {
		return nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return err
	}
	market := &core.MarketConfig{
		Admins:            cfg.Market.Admins,
		AssetDenom:        cfg.Market.AssetDenom,
		AcceptedBetDenoms: cfg.Market.AcceptedBetDenoms,
		TreasuryAddr:      cfg.Market.TreasuryAddr,
	}
	if err := ledger.SetMarketConfig(market); err != nil {
		return err
	}
	if err := ledger.Commit(); err != nil {
		return err
	}
	log.Info().Strs("admins", cfg.Market.Admins).Str("asset", cfg.Market.AssetDenom).Msg("market config seeded")
	return nil
}

func buildOracle(cfg *config.Config) oracle.Oracle {
	if cfg.Oracle.URL == "" {
		log.Warn().Msg("no oracle url configured, using static oracle with no rates")
		return oracle.NewStatic(nil)
	}
	return oracle.NewHTTPGateway(cfg.Oracle.URL, time.Duration(cfg.Oracle.TimeoutSeconds)*time.Second)
}
