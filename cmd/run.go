package cmd

import (
	"context"
	"fmt"
	"time"

	"dicebank/application"
	"dicebank/config"
	"dicebank/database"
	"dicebank/domain/events"
	"dicebank/domain/interfaces"
	"dicebank/domain/services"
	"dicebank/infrastructure"
	"dicebank/infrastructure/observability"
	"dicebank/repository"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// statsHistoryScan bounds how many recent duels feed the per-user period stats
const statsHistoryScan = 1000

// Engine groups the running game services
type Engine struct {
	Ledger    *services.Ledger
	Duels     *services.DuelService
	Raffle    *services.RaffleService
	Stats     *services.StatsService
	Transfers *services.TransferService
}

// ConfigureLogging applies the configured level and formatter
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warnf("Invalid LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting dicebank...")

	// Metrics first so every component can record from the start
	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics := observability.GetMetrics()

	log.Info("Connecting to database...")
	// One connection per write-behind worker plus headroom for reads
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(),
		database.WithMaxConns(int32(cfg.WriteBehindWorkers)+4))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// External connections are independent, so dial them together
	var (
		natsClient *infrastructure.NATSClient
		rdb        *redis.Client
	)
	group, groupCtx := errgroup.WithContext(ctx)
	if cfg.NATSServers != "" {
		group.Go(func() error {
			client := infrastructure.NewNATSClient(cfg.NATSServers)
			if err := client.Connect(groupCtx); err != nil {
				return err
			}
			natsClient = client
			return infrastructure.EnsureDomainEventStream(client, infrastructure.NewEventSubjectMapper())
		})
	}
	if cfg.RedisAddr != "" {
		group.Go(func() error {
			client, err := infrastructure.ConnectRedis(groupCtx, cfg.RedisAddr)
			if err != nil {
				return err
			}
			rdb = client
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		closeExternal(natsClient, rdb)
		return fmt.Errorf("failed to connect external services: %w", err)
	}
	defer closeExternal(natsClient, rdb)

	dispatcher := infrastructure.NewDispatcher(infrastructure.DispatcherConfig{
		Workers:      cfg.WriteBehindWorkers,
		QueueSize:    cfg.WriteBehindQueueSize,
		MaxAttempts:  cfg.WriteBehindMaxAttempts,
		RetryBackoff: 200 * time.Millisecond,
	}, metrics)
	dispatcher.Start(context.Background())

	gateway := repository.NewGateway(db)
	store := infrastructure.NewWriteBehindGateway(gateway, dispatcher)

	eventBus := events.NewBus()
	handlers := []events.Handler{metrics.HandleEvent}
	if natsClient != nil {
		publisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper(), metrics)
		handlers = append(handlers, publisher.HandleEvent)
	}
	application.RegisterAll(eventBus, handlers...)

	var statsCache interfaces.StatsCache
	if rdb != nil {
		cache := infrastructure.NewRedisStatsCache(rdb)
		statsCache = cache
		application.RegisterRatingInvalidation(store, cache, cfg.RatingWindowDays)
	}

	notifier, closeNotifier, err := newNotifier(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}
	defer closeNotifier()
	asyncNotifier := infrastructure.NewAsyncNotifier(notifier, dispatcher)

	scheduler := application.NewTimerScheduler()
	engine := newEngine(cfg, store, gateway, statsCache, asyncNotifier, eventBus, scheduler)

	if err := application.Recover(ctx, gateway, engine.Ledger, engine.Duels, engine.Raffle); err != nil {
		return fmt.Errorf("failed to recover state: %w", err)
	}

	log.Info("Dicebank is running")
	<-ctx.Done()

	log.Info("Shutting down dicebank...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Stop new draws first, then let in-flight events and writes drain
	scheduler.Stop()
	eventBus.Wait()
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.WithError(err).Error("Write-behind queue did not drain")
	}
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return nil
}

func newEngine(
	cfg *config.Config,
	store interfaces.PersistenceGateway,
	reads interfaces.PersistenceGateway,
	cache interfaces.StatsCache,
	notifier interfaces.Notifier,
	publisher interfaces.EventPublisher,
	scheduler interfaces.DrawScheduler,
) *Engine {
	random := services.NewCryptoRandomSource()
	ledger := services.NewLedger(cfg.StartingBalance, store, publisher)

	return &Engine{
		Ledger: ledger,
		Duels: services.NewDuelService(ledger, store, random, notifier, publisher, services.DuelConfig{
			MinStake:               cfg.DuelMinStake,
			CancelWindow:           cfg.DuelCancelWindow,
			HouseAccountID:         cfg.HouseAccountID,
			HistoryLimit:           cfg.HistoryLimit,
			ResolveJoinedOnRestore: cfg.DuelResolveJoinedOnStartup,
		}),
		Raffle: services.NewRaffleService(ledger, store, random, notifier, publisher, scheduler, services.RaffleConfig{
			MinBet:         cfg.RaffleMinBet,
			MaxBetsPerUser: cfg.RaffleMaxBetsPerRound,
			Timer:          cfg.RaffleTimer,
			RetryDelay:     cfg.RaffleDrawRetryDelay,
			HouseAccountID: cfg.HouseAccountID,
		}),
		// Stats read straight from the database; the write-behind layer only defers writes
		Stats: services.NewStatsService(reads, reads, cache, services.StatsConfig{
			RatingWindowDays: cfg.RatingWindowDays,
			RatingCacheTTL:   cfg.RatingCacheTTL,
			HistoryScan:      statsHistoryScan,
		}),
		Transfers: services.NewTransferService(ledger, store, notifier, publisher),
	}
}

// newNotifier builds the configured notifier and returns a func that releases it
func newNotifier(cfg *config.Config) (interfaces.Notifier, func(), error) {
	switch cfg.Notifier {
	case "telegram":
		notifier, err := infrastructure.NewTelegramNotifier(cfg.TelegramToken)
		if err != nil {
			return nil, nil, err
		}
		return notifier, func() {}, nil
	case "discord":
		notifier, err := infrastructure.NewDiscordNotifier(cfg.DiscordToken)
		if err != nil {
			return nil, nil, err
		}
		return notifier, func() {
			if err := notifier.Close(); err != nil {
				log.WithError(err).Error("Error closing Discord session")
			}
		}, nil
	default:
		return infrastructure.LogNotifier{}, func() {}, nil
	}
}

func closeExternal(natsClient *infrastructure.NATSClient, rdb *redis.Client) {
	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.WithError(err).Error("Error closing Redis connection")
		}
	}
}
