package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agenda/internal/api"
	"agenda/internal/bot"
	"agenda/internal/config"
	"agenda/internal/database"
	"agenda/internal/domain"
	"agenda/internal/events"
	"agenda/internal/google"
	"agenda/internal/logging"
	"agenda/internal/metrics"
	"agenda/internal/notify"
	"agenda/internal/repository"
	"agenda/internal/schedule"
	"agenda/internal/service"
	"agenda/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	clock := schedule.RealClock{}
	loc := cfg.App.Location()
	eventBus := events.NewEventBus()

	var sheetsService *google.SheetsService
	var sheetsWorker domain.SyncWorker
	if svc := initGoogleSheets(ctx, cfg, &logger); svc != nil {
		sheetsService = svc
		w := worker.NewSheetsWorker(db, svc, redisClient, worker.DefaultRetryPolicy(), &logger)
		go w.Start(ctx)
		go svc.StartCacheRefresh(ctx)
		sheetsWorker = w
	}

	showService := service.NewShowService(db, eventBus, sheetsWorker, clock, &logger)
	authService := service.NewAuthService(db, sessionStore(redisClient, &logger), eventBus, clock, service.AuthOptions{
		BcryptCost: cfg.Auth.BcryptCost,
		SessionTTL: cfg.Auth.SessionTTL,
		Location:   loc,
	}, &logger)
	locationService := service.NewLocationService(db, &logger)
	artistService := service.NewArtistService(db, &logger)

	names, err := loadLocations(cfg, &logger)
	if err != nil {
		return err
	}
	if err := locationService.Seed(ctx, names); err != nil {
		logger.Error().Err(err).Msg("seed locations")
		return err
	}

	if _, err := authService.ExpireSubscriptions(ctx); err != nil {
		logger.Warn().Err(err).Msg("subscription sweep failed")
	}
	go sweepSubscriptions(ctx, authService, &logger)

	services := api.Services{
		Shows:     showService,
		Auth:      authService,
		Locations: locationService,
		Artist:    artistService,
		Clock:     clock,
	}
	if sheetsService != nil {
		services.Sheets = sheetsService
	}

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Telegram.Enabled {
		notifier, err := startTelegram(ctx, cfg, db, showService, artistService, eventBus, &logger)
		if err != nil {
			return err
		}
		services.Notifier = notifier
	}

	if cfg.Backup.Enabled {
		go database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger).Start(ctx)
	}

	if !cfg.API.Enabled {
		logger.Info().Msg("API disabled, running background jobs only")
		<-ctx.Done()
		return nil
	}

	grpcServer, err := api.NewGRPCServer(&cfg.API, api.NewScheduleService(showService, clock), &logger)
	if err != nil {
		logger.Error().Err(err).Msg("create grpc server")
		return err
	}
	httpServer := api.NewHTTPServer(&cfg.API, services, cfg.Auth.RequireSession, &logger)

	return startServers(ctx, grpcServer, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "main").Logger()

	return cfg, logger, closer, nil
}

// loadLocations returns the venue catalogue seed: LOCATIONS_PATH when the
// file exists, otherwise the config list.
func loadLocations(cfg *config.Config, logger *zerolog.Logger) ([]string, error) {
	path := os.Getenv("LOCATIONS_PATH")
	if path == "" {
		path = "configs/locations.yaml"
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg.Locations, nil
	}
	if err != nil {
		logger.Error().Err(err).Str("locations_path", path).Msg("read locations")
		return nil, err
	}

	var file struct {
		Locations []string `yaml:"locations"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		logger.Error().Err(err).Str("locations_path", path).Msg("parse locations")
		return nil, err
	}
	if err := config.ValidateLocations(file.Locations); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return file.Locations, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := repository.Ping(pingCtx, client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// sessionStore keeps sessions in redis when available, in memory otherwise.
func sessionStore(client *redis.Client, logger *zerolog.Logger) domain.KVStore {
	memory := repository.NewMemoryKVStore()
	if client == nil {
		return memory
	}
	return repository.NewFailoverKVStore(repository.NewRedisKVStore(client, "agenda:"), memory, logger)
}

func initGoogleSheets(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *google.SheetsService {
	if cfg.Google.GoogleCredentialsFile == "" || cfg.Google.ShowsSpreadSheetID == "" {
		return nil
	}

	svc, err := google.NewSheetsService(ctx, cfg.Google.GoogleCredentialsFile, cfg.Google.ShowsSpreadSheetID, cfg.Google.SheetName, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := svc.TestConnection(ctx); err != nil {
		email, _ := google.ServiceAccountEmail(cfg.Google.GoogleCredentialsFile)
		logger.Warn().Err(err).Str("service_account", email).Msg("google sheets unreachable, share the spreadsheet with the service account")
		return nil
	}
	if err := svc.EnsureHeader(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets header")
	}
	if err := svc.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets cache warm-up")
	}

	logger.Info().Msg("google sheets connected")
	return svc
}

func startTelegram(
	ctx context.Context,
	cfg *config.Config,
	db *database.DB,
	shows *service.ShowService,
	artist *service.ArtistService,
	eventBus *events.EventBus,
	logger *zerolog.Logger,
) (*notify.Notifier, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	botAPI.Debug = cfg.Telegram.Debug

	notifier, err := notify.NewNotifier(botAPI, db, notify.Options{
		ChatID:       cfg.Telegram.ChatID,
		ReminderTime: cfg.Telegram.ReminderTime,
		Location:     cfg.App.Location(),
	}, logger)
	if err != nil {
		return nil, err
	}
	eventBus.Subscribe(notifier.HandleEvent, events.EventShowCreated, events.EventShowDeleted, events.EventShowConflict)
	go notifier.StartReminders(ctx)

	if cfg.Telegram.Commands {
		var botMetrics *bot.Metrics
		if cfg.Monitoring.PrometheusEnabled {
			botMetrics = bot.NewMetrics()
		}
		b := bot.NewBot(bot.NewTelegramClient(botAPI), shows, artist, bot.Options{
			ChatID:       cfg.Telegram.ChatID,
			RateLimitRPS: cfg.Telegram.RateLimitRPS,
			Location:     cfg.App.Location(),
			Metrics:      botMetrics,
		}, logger)
		go b.Start(ctx)
		go func() {
			<-ctx.Done()
			b.Stop()
		}()
	}

	logger.Info().Str("username", botAPI.Self.UserName).Msg("telegram connected")
	return notifier, nil
}

// sweepSubscriptions blocks users with expired subscriptions once an hour.
func sweepSubscriptions(ctx context.Context, auth *service.AuthService, logger *zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := auth.ExpireSubscriptions(ctx); err != nil {
				logger.Warn().Err(err).Msg("subscription sweep failed")
			}
		}
	}
}

func startServers(
	ctx context.Context,
	grpcServer *api.GRPCServer,
	httpServer *api.HTTPServer,
	cfg *config.Config,
	logger *zerolog.Logger,
) error {
	go func() {
		if err := grpcServer.Serve(); err != nil {
			logger.Error().Err(err).Msg("grpc server stopped")
		}
	}()

	go func() {
		if !cfg.API.HTTP.Enabled {
			return
		}
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Str("grpc_addr", grpcServer.Addr()).Int("http_port", cfg.API.HTTP.Port).Msg("API server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcServer.Shutdown(shutdownCtx)
	_ = httpServer.Shutdown(shutdownCtx)

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
