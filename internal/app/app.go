package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/encore/internal/auth"
	"github.com/MrSnakeDoc/encore/internal/blob"
	"github.com/MrSnakeDoc/encore/internal/config"
	"github.com/MrSnakeDoc/encore/internal/httpserver"
	"github.com/MrSnakeDoc/encore/internal/httpserver/deps"
	"github.com/MrSnakeDoc/encore/internal/index"
	"github.com/MrSnakeDoc/encore/internal/library"
	"github.com/MrSnakeDoc/encore/internal/logger"
	"github.com/MrSnakeDoc/encore/internal/media"
	"github.com/MrSnakeDoc/encore/internal/redis"
	"github.com/MrSnakeDoc/encore/internal/scheduler"
	"github.com/MrSnakeDoc/encore/internal/site"
	"github.com/MrSnakeDoc/encore/internal/sources/seed"
	filestore "github.com/MrSnakeDoc/encore/internal/store/file"
	redisstore "github.com/MrSnakeDoc/encore/internal/store/redis"
	"github.com/MrSnakeDoc/encore/internal/thumbs"
	"github.com/MrSnakeDoc/encore/internal/version"
)

const startupTimeout = time.Minute

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	catalog     *library.Catalog
	reloader    *scheduler.CatalogReloader
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	origin := media.NewOrigin(cfg.FileOrigin)

	// Settings backend - fail fast if unavailable
	var (
		repo        site.Repository
		redisClient *goredis.Client
	)
	switch cfg.SettingsBackend {
	case "redis":
		client, err := redis.Dial(ctx, redis.OptionsFromConfig(cfg), logger.Named(loggerClient, "redis"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisClient = client
		repo = redisstore.NewSettingsRepository(client)
	default:
		repo = filestore.NewRepository(cfg.SettingsFile)
	}
	loggerClient.Info("settings backend initialized", logger.String("backend", cfg.SettingsBackend))

	store := site.NewStore(repo, logger.Named(loggerClient, "settings"))
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	if cfg.SeedFile != "" {
		if _, err := seed.Apply(ctx, store, seed.NewLoader(cfg.SeedFile, cfg.FileOrigin), loggerClient); err != nil {
			return nil, err
		}
	}

	// Upload storage
	var (
		blobs     blob.Store
		uploadDir string
	)
	switch cfg.UploadBackend {
	case "minio":
		m, err := blob.NewMinIO(ctx, blob.MinIOOptions{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		}, origin)
		if err != nil {
			return nil, err
		}
		blobs = m
	default:
		l, err := blob.NewLocal(cfg.UploadDir, origin)
		if err != nil {
			return nil, err
		}
		blobs = l
		uploadDir = l.Root()
	}
	loggerClient.Info("upload storage initialized", logger.String("backend", cfg.UploadBackend))

	// Media library
	mediaLog := logger.Named(loggerClient, "media")
	catalog := library.NewCatalog(library.CatalogOptions{
		Store:  store,
		Blobs:  blobs,
		Index:  index.NewMediaIndex(),
		Origin: origin,
		Folder: cfg.MediaFolder,
		Logger: mediaLog,
	})
	generator := thumbs.NewGenerator(thumbs.ExecRunner{}, cfg.FFmpegBin, mediaLog)
	service := library.NewService(catalog, store, blobs, generator, mediaLog)

	authenticator, err := auth.New(auth.Options{
		Email:        cfg.AdminEmail,
		PasswordHash: cfg.AdminHash,
		Password:     cfg.AdminPassword,
		SessionKey:   []byte(cfg.SessionKey),
		Secure:       cfg.CookieSecure,
	}, logger.Named(loggerClient, "auth"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	// Create manual reload trigger channel
	reloadTrigger := make(chan struct{}, 1)
	reloader := scheduler.NewCatalogReloader(
		store,
		catalog,
		logger.Named(loggerClient, "scheduler"),
		cfg.RefreshInterval,
		reloadTrigger,
	)

	// Dependencies passed to routes.
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		CORSOrigins:     cfg.CORSOrigins,
		Store:           store,
		Media:           service,
		Auth:            authenticator,
		Blobs:           blobs,
		UploadDir:       uploadDir,
		MediaFolder:     cfg.MediaFolder,
		SettingsBackend: cfg.SettingsBackend,
		RedisClient:     redisClient,
		MaxUploadSize:   cfg.MaxUploadSize,
		LoginBurst:      cfg.LoginBurst,
		LoginRefill:     cfg.LoginRefill,
		RequestTimeout:  cfg.RequestTimeout,
		ActionTimeout:   cfg.ActionTimeout,
		ReloadTrigger:   reloadTrigger,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		catalog:     catalog,
		reloader:    reloader,
	}, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Encore %s on %s", version.String(), a.cfg.ListenPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Builds the catalog once, then keeps it fresh.
	if err := a.reloader.Start(ctx); err != nil {
		return fmt.Errorf("failed to start catalog reloader: %w", err)
	}
	a.logger.Info("catalog reloader started",
		logger.Duration("interval", a.cfg.RefreshInterval))

	follower := a.catalog.Follow(ctx, library.DebounceDelay)

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.reloader.Stop()
	follower.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ Encore stopped cleanly")
	_ = a.logger.Sync()
	return nil
}
