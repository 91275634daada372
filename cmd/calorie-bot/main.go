// cmd/calorie-bot/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"calorie-bot/internal/bot"
	"calorie-bot/internal/config"
	"calorie-bot/internal/estimator"
	"calorie-bot/internal/logging"
	"calorie-bot/internal/server"
	"calorie-bot/internal/storage"
	"calorie-bot/internal/telegram"
	"calorie-bot/internal/tracker"
)

var (
	configPath   = flag.String("config", "", "Path to config file (defaults to ./config.yml)")
	dbPath       = flag.String("db-path", "", "Database path (overrides db.file)")
	port         = flag.Int("port", 0, "Port for the HTTP tool server (overrides server.port)")
	host         = flag.String("host", "", "Host address for the HTTP tool server")
	importCustom = flag.String("import-custom", "", "Import custom foods from a YAML file and exit")
	importUser   = flag.Int64("user", 0, "User id that owns imported custom foods")
	version      = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Println("calorie-bot version 1.0.0")
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.Database.File = *dbPath
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *host != "" {
		cfg.Server.Host = *host
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	if err := start(cfg, log); err != nil {
		log.WithError(err).Error("calorie bot stopped with error")
		os.Exit(1)
	}
	log.Info("calorie bot stopped")
}

// start owns the store so every exit path closes it.
func start(cfg *config.Config, log *logrus.Logger) error {
	store, err := storage.NewSQLiteStorage(cfg.Database.File)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *importCustom != "" {
		if err := runImport(ctx, store, *importCustom, *importUser, log); err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return run(ctx, cfg, store, log)
}

func run(ctx context.Context, cfg *config.Config, store *storage.SQLiteStorage, log *logrus.Logger) error {
	states, closeStates, err := newStateStore(cfg)
	if err != nil {
		return err
	}
	defer closeStates()

	generator := estimator.NewOpenAICompatGenerator(cfg.OpenAI.BaseURL, cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Timeout)
	service := tracker.NewService(store, estimator.NewGateway(generator))
	onboarding := tracker.NewOnboarding(store, states)
	dispatcher := bot.NewDispatcher(service, onboarding, log)

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Server.Enable {
		srv := server.NewCalorieServer(&server.Config{Host: cfg.Server.Host, Port: cfg.Server.Port}, dispatcher, store, log)
		g.Go(func() error {
			return srv.Start(ctx)
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		})
	}

	if cfg.Bot.Token != "" {
		poller, err := telegram.NewPoller(cfg.Bot.Token, dispatcher, log, cfg.Bot.PollTimeout)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return poller.Run(ctx)
		})
	} else {
		log.Warn("bot.token not set, telegram polling disabled")
	}

	return g.Wait()
}

func newStateStore(cfg *config.Config) (tracker.StateStore, func(), error) {
	if cfg.State.Backend != "redis" {
		return tracker.NewMemoryStateStore(), func() {}, nil
	}

	states, err := tracker.NewRedisStateStore(tracker.RedisStateConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.State.TTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create redis state store: %w", err)
	}
	return states, func() { states.Close() }, nil
}

func runImport(ctx context.Context, store *storage.SQLiteStorage, path string, userID int64, log *logrus.Logger) error {
	if userID == 0 {
		return fmt.Errorf("-user is required with -import-custom")
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	// custom food import never calls the estimator
	service := tracker.NewService(store, nil)
	n, err := service.ImportCustomFoods(ctx, userID, f)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"user_id": userID, "count": n, "file": path}).Info("custom foods imported")
	return nil
}
