package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/diegoclair/earnings-reminder-bot/internal/cache"
	"github.com/diegoclair/earnings-reminder-bot/internal/config"
	"github.com/diegoclair/earnings-reminder-bot/internal/database"
	"github.com/diegoclair/earnings-reminder-bot/internal/domain/contract"
	"github.com/diegoclair/earnings-reminder-bot/internal/domain/service"
	"github.com/diegoclair/earnings-reminder-bot/internal/finnhub"
	"github.com/diegoclair/earnings-reminder-bot/internal/handlers"
	"github.com/diegoclair/earnings-reminder-bot/internal/logging"
	"github.com/diegoclair/earnings-reminder-bot/internal/mongodb"
	"github.com/diegoclair/earnings-reminder-bot/internal/scheduler"
	slacknotifier "github.com/diegoclair/earnings-reminder-bot/internal/slack"
	"github.com/diegoclair/earnings-reminder-bot/migrator/sqlite"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/slack-go/slack"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format))

	if err := run(cfg); err != nil {
		slog.Error("bot exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return err
	}
	wakeTimes, err := cfg.Scheduler.ParsedWakeTimes()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dm, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier := slacknotifier.NewNotifier(slack.New(cfg.Slack.BotToken))

	var finnhubOpts []finnhub.Option
	if cfg.Finnhub.BaseURL != "" {
		finnhubOpts = append(finnhubOpts, finnhub.WithBaseURL(cfg.Finnhub.BaseURL))
	}
	var earnings contract.EarningsClient = finnhub.NewClient(cfg.Finnhub.APIKey, loc, finnhubOpts...)

	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable, earnings cache will fall through", "addr", cfg.Redis.Address, "error", err)
		}
		earnings = cache.NewEarningsCache(rdb, earnings, cfg.Redis.TTL(), loc)
		slog.Info("earnings cache enabled", "addr", cfg.Redis.Address, "ttl", cfg.Redis.TTL())
	}

	services := service.NewInstance(dm, notifier, earnings, service.Options{
		Location:           loc,
		CallTimeout:        cfg.Scheduler.CallTimeout(),
		MaxConcurrentSends: cfg.Scheduler.MaxConcurrentSends,
	})

	wake, err := scheduler.NewWakeClock(time.Now(), loc, wakeTimes)
	if err != nil {
		return err
	}
	sched, err := scheduler.New(services.Reminder, services.Delivery, wake)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	handler := handlers.New(services.Reminder, cfg.Slack.SigningSecret, loc)

	mux := http.NewServeMux()
	mux.HandleFunc("/slack/commands", handler.HandleSlashCommand)
	mux.HandleFunc("/health", handler.HandleHealth)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)

	// let deferred slash-command replies finish before the store closes
	handler.Wait()

	return err
}

// openStore connects the configured reminder store and returns its cleanup.
func openStore(ctx context.Context, cfg *config.Config) (contract.DataManager, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		store, err := mongodb.Connect(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(context.Background())
			return nil, nil, err
		}
		slog.Info("using mongo reminder store", "database", cfg.Store.MongoDatabase)

		return store, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := store.Close(closeCtx); err != nil {
				slog.Error("failed to close mongo store", "error", err)
			}
		}, nil

	default:
		db, err := database.New(cfg.Store.DatabasePath)
		if err != nil {
			return nil, nil, err
		}

		slog.Info("running migrations")
		if err := sqlite.Migrate(db.DB()); err != nil {
			db.Close()
			return nil, nil, err
		}
		slog.Info("using sqlite reminder store", "path", cfg.Store.DatabasePath)

		return database.NewInstance(db), func() {
			if err := db.Close(); err != nil {
				slog.Error("failed to close database", "error", err)
			}
		}, nil
	}
}
