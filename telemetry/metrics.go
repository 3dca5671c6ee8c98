// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CommandsTotal   *prometheus.CounterVec // labels: command, outcome
	CacheRefreshes  *prometheus.CounterVec // labels: cache, result
	PageTurns       *prometheus.CounterVec // labels: direction
	RafflesFinished *prometheus.CounterVec // labels: trigger
	KeysRaffled     prometheus.Counter
	SteamRequests   *prometheus.CounterVec // labels: endpoint, result
	RateLimited     prometheus.Counter

	// Histograms (seconds)
	CommandDuration *prometheus.HistogramVec // labels: command

	// Gauges
	CacheItems               *prometheus.GaugeVec // labels: cache
	PaginationSessionsActive prometheus.Gauge
	DiscordReady             prometheus.Gauge // 1=connected,0=disconnected
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "gemuki_commands_total", Help: "Slash command invocations by outcome"}, []string{"command", "outcome"})
		CacheRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{Name: "gemuki_cache_refreshes_total", Help: "Refresh cache reload attempts"}, []string{"cache", "result"})
		PageTurns = promauto.NewCounterVec(prometheus.CounterOpts{Name: "gemuki_page_turns_total", Help: "Accepted pagination control presses"}, []string{"direction"})
		RafflesFinished = promauto.NewCounterVec(prometheus.CounterOpts{Name: "gemuki_raffles_finished_total", Help: "Raffles drawn"}, []string{"trigger"})
		KeysRaffled = promauto.NewCounter(prometheus.CounterOpts{Name: "gemuki_keys_raffled_total", Help: "Keys handed to raffle winners"})
		SteamRequests = promauto.NewCounterVec(prometheus.CounterOpts{Name: "gemuki_steam_requests_total", Help: "Steam catalog requests"}, []string{"endpoint", "result"})
		RateLimited = promauto.NewCounter(prometheus.CounterOpts{Name: "gemuki_rate_limited_total", Help: "Interactions rejected by the per-user limiter"})
		CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "gemuki_command_duration_seconds", Help: "Slash command handling duration", Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10}}, []string{"command"})
		CacheItems = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "gemuki_cache_items", Help: "Items in the current cache snapshot"}, []string{"cache"})
		PaginationSessionsActive = promauto.NewGauge(prometheus.GaugeOpts{Name: "gemuki_pagination_sessions_active", Help: "Pagination sessions awaiting presses"})
		DiscordReady = promauto.NewGauge(prometheus.GaugeOpts{Name: "gemuki_discord_ready", Help: "Discord gateway connected=1 disconnected=0"})
	})
}

// ObserveCommand records one command invocation.
func ObserveCommand(command, outcome string, d time.Duration) {
	if CommandsTotal != nil {
		CommandsTotal.WithLabelValues(command, outcome).Inc()
	}
	if CommandDuration != nil {
		CommandDuration.WithLabelValues(command).Observe(d.Seconds())
	}
}

// ObserveCacheRefresh records a reload attempt and, on success, the snapshot size.
func ObserveCacheRefresh(cache string, err error, size int) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	if CacheRefreshes != nil {
		CacheRefreshes.WithLabelValues(cache, result).Inc()
	}
	if err == nil && CacheItems != nil {
		CacheItems.WithLabelValues(cache).Set(float64(size))
	}
}

// ObservePageTurn records an accepted pagination press.
func ObservePageTurn(direction string) {
	if PageTurns != nil {
		PageTurns.WithLabelValues(direction).Inc()
	}
}

// SessionStarted and SessionEnded track live pagination sessions.
func SessionStarted() {
	if PaginationSessionsActive != nil {
		PaginationSessionsActive.Inc()
	}
}

func SessionEnded() {
	if PaginationSessionsActive != nil {
		PaginationSessionsActive.Dec()
	}
}

// ObserveRaffle records a finished raffle and the number of keys handed out.
func ObserveRaffle(trigger string, keys int) {
	if RafflesFinished != nil {
		RafflesFinished.WithLabelValues(trigger).Inc()
	}
	if KeysRaffled != nil {
		KeysRaffled.Add(float64(keys))
	}
}

// ObserveSteam records a Steam catalog request.
func ObserveSteam(endpoint string, err error) {
	if SteamRequests == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	SteamRequests.WithLabelValues(endpoint, result).Inc()
}

// IncRateLimited counts an interaction rejected by the limiter.
func IncRateLimited() {
	if RateLimited != nil {
		RateLimited.Inc()
	}
}

// SetDiscordReady sets gauge to 1 if connected else 0.
func SetDiscordReady(ready bool) {
	if DiscordReady != nil {
		if ready {
			DiscordReady.Set(1)
		} else {
			DiscordReady.Set(0)
		}
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
