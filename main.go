// Command gemuki is the entrypoint of the game key Discord bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Builds the title and Steam catalog caches and connects to Discord.
//   - Starts background jobs: the raffle closing job and, when configured, the
//     Twitch chat announcer.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /stats and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gemuki/bot/bot"
	"github.com/gemuki/bot/cache"
	"github.com/gemuki/bot/chat"
	"github.com/gemuki/bot/config"
	"github.com/gemuki/bot/crypto"
	"github.com/gemuki/bot/db"
	"github.com/gemuki/bot/raffle"
	"github.com/gemuki/bot/server"
	"github.com/gemuki/bot/steam"
	"github.com/gemuki/bot/store"
	"github.com/gemuki/bot/telemetry"
)

const (
	appDetailsCacheSize = 512
	appDetailsTTL       = 6 * time.Hour
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		format = "text"
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", format), slog.String("version", bot.Version))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing(ctx, telemetry.TracingConfig{
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		SampleRatio: cfg.OTelSampleRatio,
		ServiceName: "gemuki",
		Version:     bot.Version,
	})
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// DB
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(database.DB); err != nil {
		slog.Error("failed to migrate db", slog.Any("err", err), slog.String("component", "db_migrate"))
		os.Exit(1)
	}

	sealer, err := crypto.FromKey(cfg.EncryptionKey)
	if err != nil {
		slog.Error("invalid ENCRYPTION_KEY", slog.Any("err", err))
		os.Exit(1)
	}
	if _, plain := sealer.(crypto.Plain); plain {
		slog.Warn("ENCRYPTION_KEY not set; game keys are stored in plaintext")
	}
	st := store.New(database, sealer)

	// Caches
	steamClient := &steam.Client{
		APIBase:    cfg.SteamAPIURL,
		StoreBase:  cfg.SteamStoreURL,
		Country:    cfg.SteamCountry,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	titles := cache.New(ctx, "titles", cfg.CacheTTL, st.ListGameTitles)
	apps := cache.New(ctx, "steam_apps", cfg.CacheTTL, steamClient.ListApps)
	appDetails := cache.NewDetails[uint32, steam.AppDetails](appDetailsCacheSize, appDetailsTTL, steamClient.GetAppDetails)
	slog.Info("caches loaded", slog.Int("titles", len(titles.Items())), slog.Int("steam_apps", len(apps.Items())))

	deps := bot.Deps{
		Config:     cfg,
		Store:      st,
		Titles:     titles,
		Apps:       apps,
		AppDetails: appDetails,
	}
	if cfg.TwitchEnabled() {
		announcer := chat.New(cfg, st)
		deps.Announcer = announcer
		go func() {
			if err := announcer.Run(ctx); err != nil {
				slog.Error("twitch announcer exited with error", slog.Any("err", err))
			}
		}()
	} else {
		slog.Info("twitch announcer disabled (missing TWITCH_CHANNEL, TWITCH_BOT_USERNAME or TWITCH_OAUTH_TOKEN)")
	}

	b := bot.New(deps)
	if err := b.Open(ctx); err != nil {
		slog.Error("failed to connect to discord", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := b.Close(); err != nil {
			slog.Error("failed to close discord session", slog.Any("err", err))
		}
	}()

	go raffle.StartJob(ctx, b.Raffles(), cfg.RaffleSweepInterval)

	// HTTP server (health/readiness/stats/metrics)
	go func() {
		err := server.Start(ctx, server.Deps{
			DB:             database,
			Stats:          st,
			Ready:          b.Ready,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			StatsPerMinute: cfg.StatsRateLimit,
			TrustedProxies: cfg.TrustedProxies,
		}, cfg.HTTPAddr)
		if err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}
