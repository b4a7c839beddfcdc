package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"condorbot/bot"
	"condorbot/config"
	"condorbot/exchange"
	"condorbot/executor"
	"condorbot/journal"
	"condorbot/notify"
	"condorbot/portfolio"
	"condorbot/risk"
	"condorbot/strategy"
	"condorbot/web"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading bot",
	Long: `Start the engine with settings from a config file, serve the HTTP API,
and begin ticking immediately. SIGINT or SIGTERM stops the bot cleanly:
any in-flight order is cancelled, filled trades stay booked.

Example:
  condorbot run -f config.yaml`,
	RunE: runRun,
}

var (
	runConfigPath string
	runEnvPath    string
	runNoStart    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to yaml config file (defaults apply when omitted)")
	runCmd.Flags().StringVar(&runEnvPath, "env-file", ".env", "path to .env file with secrets")
	runCmd.Flags().BoolVar(&runNoStart, "no-start", false, "serve the API but wait for POST /api/v1/start")
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnvFile(runEnvPath); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	var cfg *config.Config
	if runConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(runConfigPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	log := newLogger(cfg.Bot.LogLevel)
	log.Info("condorbot starting", "version", version,
		"symbol", cfg.Bot.Symbol, "mode", cfg.Bot.Mode, "strategy", cfg.Bot.Strategy)

	jour, err := newJournal(cfg)
	if err != nil {
		return err
	}
	defer jour.Close()

	riskMgr := risk.NewManager(riskPolicy(cfg), risk.NewState(), log)
	buda := exchange.NewBuda(cfg.Exchange.APIKey, cfg.Exchange.APISecret)

	// rebuild serves both the initial construction and start requests that
	// switch mode, strategy, or capital.
	rebuild := func(mode bot.Mode, name string, ledger *portfolio.Ledger) (strategy.Strategy, executor.Executor, error) {
		strat, err := strategy.New(name, cfg.Strategy, log)
		if err != nil {
			return nil, nil, err
		}
		if mode == bot.ModeLive {
			if cfg.Exchange.APIKey == "" || cfg.Exchange.APISecret == "" {
				return nil, nil, fmt.Errorf("live mode needs BUDA_API_KEY and BUDA_API_SECRET in the environment")
			}
			return strat, executor.NewLive(buda, ledger, jour, riskMgr, log), nil
		}
		return strat, executor.NewPaper(ledger, jour, riskMgr, cfg.Exchange.FeeRate, log), nil
	}

	ledger := portfolio.NewLedger(cfg.Bot.InitialBalance)
	strat, exec, err := rebuild(bot.Mode(cfg.Bot.Mode), cfg.Bot.Strategy, ledger)
	if err != nil {
		return err
	}

	hub := web.NewHub(log)
	defer hub.Close()

	sinks := notify.Multi{hub}
	if cfg.Telegram.Enabled {
		sinks = append(sinks, notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log))
	}

	ctrl := bot.NewController(
		bot.Options{
			Symbol:         cfg.Bot.Symbol,
			Mode:           bot.Mode(cfg.Bot.Mode),
			TickInterval:   cfg.Bot.TickInterval,
			CandleInterval: cfg.Bot.CandleInterval,
			WindowSize:     cfg.Bot.WindowSize,
			Indicators:     cfg.Indicators,
			Rebuild:        rebuild,
		},
		buda, strat, riskMgr, exec, ledger, jour, sinks, log,
	)

	if !runNoStart {
		if err := ctrl.Start(bot.StartRequest{}); err != nil {
			return err
		}
	}

	srv := web.NewServer(ctrl, hub, log)
	errc := make(chan error, 1)
	go func() { errc <- srv.Run(cfg.Web.Addr) }()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigc:
		log.Info("shutting down", "signal", sig)
	case err := <-errc:
		log.Error("http server exited", "error", err)
	}

	return ctrl.Stop()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func newJournal(cfg *config.Config) (journal.Journal, error) {
	switch cfg.Journal.Type {
	case "postgres":
		return journal.NewPostgres(cfg.Journal.DSN)
	case "memory":
		return journal.NewMemory(), nil
	default:
		return journal.NewSQLite(cfg.Journal.DBPath)
	}
}

// riskPolicy folds the exchange fee into the policy so the reserve check
// accounts for the full buy debit.
func riskPolicy(cfg *config.Config) risk.Policy {
	p := cfg.Risk
	if p.FeeRate == 0 {
		p.FeeRate = cfg.Exchange.FeeRate
	}
	return p
}
