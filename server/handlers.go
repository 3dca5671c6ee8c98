package server

import (
	"context"
	"net/netip"

	"github.com/gemuki/bot/bot"
)

// Pinger is satisfied by *sql.DB and *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators the HTTP handlers read from.
type Deps struct {
	DB    Pinger
	Stats bot.StatsSource
	// Ready reports whether the Discord gateway is connected. Nil means always ready.
	Ready func() bool

	// AllowedOrigins restricts CORS on /stats. Empty allows any origin.
	AllowedOrigins []string
	// StatsPerMinute limits /stats requests per client IP. Zero disables the limit.
	StatsPerMinute int
	// TrustedProxies are the peers allowed to name the client in X-Forwarded-For.
	// Without any, the limit keys on the connection's remote address.
	TrustedProxies []netip.Prefix
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db    Pinger
	stats bot.StatsSource
	ready func() bool
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps Deps) *Handlers {
	ready := deps.Ready
	if ready == nil {
		ready = func() bool { return true }
	}
	return &Handlers{
		db:    deps.DB,
		stats: deps.Stats,
		ready: ready,
	}
}
