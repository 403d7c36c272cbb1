package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"hrc-casino/cogs"
	"hrc-casino/engine"
	"hrc-casino/games/blackjack"
	"hrc-casino/games/crash"
	"hrc-casino/games/duel"
	"hrc-casino/games/horse_racing"
	"hrc-casino/games/mines"
	"hrc-casino/games/roulette"
	"hrc-casino/games/tower"
	"hrc-casino/ledger"
	"hrc-casino/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var botStatus atomic.Value

func main() {
	botStatus.Store("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "casino: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := utils.LoadConfig()
	if err != nil {
		return err
	}
	log := utils.NewLogger(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("ledger store ready", zap.String("driver", cfg.StoreDriver))

	cache := ledger.NewAccountCache(30 * time.Second)
	ledgerOpts := []ledger.Option{
		ledger.WithCache(cache),
		ledger.WithChipPrice(cfg.ChipPrice),
		ledger.WithStartingCash(cfg.StartingCash),
	}
	if cfg.RedisURL != "" {
		pub, err := ledger.NewRedisPublisher(ctx, cfg.RedisURL, log.Named("publisher"))
		if err != nil {
			log.Warn("redis unavailable, balance events disabled", zap.Error(err))
		} else {
			defer pub.Close()
			ledgerOpts = append(ledgerOpts, ledger.WithPublisher(pub))
		}
	}
	l := ledger.New(store, log.Named("ledger"), ledgerOpts...)

	e, err := newEngine(cfg, l, log.Named("engine"))
	if err != nil {
		return err
	}
	defer e.Close()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.Run(ctx, cfg.SweepInterval) })
	g.Go(func() error {
		cache.Run(ctx, time.Minute, log.Named("cache"))
		return nil
	})
	g.Go(func() error { return serveHTTP(ctx, cfg.Port, e, log.Named("http")) })

	if cfg.BotToken == "" {
		log.Warn("BOT_TOKEN not set, Discord bot will not connect")
		botStatus.Store("no_token")
	} else {
		g.Go(func() error { return runBot(ctx, cfg.BotToken, e, l, log.Named("discord")) })
	}

	log.Info("casino running")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("casino stopped")
	return nil
}

func openStore(ctx context.Context, cfg utils.Config) (ledger.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		return ledger.OpenPostgres(ctx, cfg.DatabaseURL)
	case "sqlite":
		return ledger.OpenSQLite(cfg.SQLitePath)
	case "memory":
		return ledger.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func newEngine(cfg utils.Config, l *ledger.Ledger, log *zap.Logger) (*engine.Engine, error) {
	minesPolicy, err := engine.ParseAbandonPolicy(cfg.AbandonMines)
	if err != nil {
		return nil, fmt.Errorf("ABANDON_POLICY_MINES: %w", err)
	}
	towerPolicy, err := engine.ParseAbandonPolicy(cfg.AbandonTower)
	if err != nil {
		return nil, fmt.Errorf("ABANDON_POLICY_TOWER: %w", err)
	}
	blackjackPolicy, err := engine.ParseAbandonPolicy(cfg.AbandonBlackjack)
	if err != nil {
		return nil, fmt.Errorf("ABANDON_POLICY_BLACKJACK: %w", err)
	}

	e := engine.New(l, log)
	e.Register(engine.Roulette, roulette.New(roulette.Config{Window: cfg.RouletteWindow}))
	e.Register(engine.HorseRace, horse_racing.New(horse_racing.Config{Window: cfg.RaceWindow}))
	e.Register(engine.Mines, mines.New(mines.Config{IdleTimeout: cfg.SoloIdleTimeout, Abandon: minesPolicy}))
	e.Register(engine.Tower, tower.New(tower.Config{IdleTimeout: cfg.SoloIdleTimeout, Abandon: towerPolicy}))
	e.Register(engine.Blackjack, blackjack.New(blackjack.Config{IdleTimeout: cfg.TableIdleTimeout, Abandon: blackjackPolicy}))
	e.Register(engine.Crash, crash.New(crash.Config{Window: cfg.CrashWindow, Tick: cfg.CrashTick}))
	e.Register(engine.Duel, duel.New(duel.Config{Timeout: cfg.DuelTimeout, Rake: cfg.PvPRake}))
	return e, nil
}

func runBot(ctx context.Context, token string, e *engine.Engine, l *ledger.Ledger, log *zap.Logger) error {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds

	casino := cogs.New(s, e, l, log)
	e.Subscribe(casino)

	s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info("logged in", zap.String("user", r.User.Username), zap.String("user_id", r.User.ID))
		botStatus.Store("online")
		if err := s.UpdateGameStatus(0, "High Roller Club"); err != nil {
			log.Warn("update status failed", zap.Error(err))
		}
		if err := casino.RegisterCommands(s); err != nil {
			log.Error("register commands failed", zap.Error(err))
		}
	})
	s.AddHandler(casino.HandleInteraction)

	if err := s.Open(); err != nil {
		botStatus.Store("connection_failed")
		return fmt.Errorf("open discord connection: %w", err)
	}
	botStatus.Store("running")

	<-ctx.Done()
	botStatus.Store("shutting_down")
	return s.Close()
}

func serveHTTP(ctx context.Context, port string, e *engine.Engine, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newRouter(e),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
	}()

	log.Info("health server starting", zap.String("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
