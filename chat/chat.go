package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/gemuki/bot/bot"
	"github.com/gemuki/bot/config"
)

const (
	statsCommand = "!gemuki"
	// Twitch drops PRIVMSG bodies above this many characters.
	maxMessage    = 500
	queueSize     = 32
	statsCooldown = 30 * time.Second
)

// ircClient is the subset of the go-twitch-irc client the announcer uses.
type ircClient interface {
	OnConnect(func())
	OnPrivateMessage(func(twitch.PrivateMessage))
	Join(channels ...string)
	Say(channel, text string)
	Connect() error
	Disconnect() error
}

// Announcer relays bot announcements to a Twitch channel and answers !gemuki.
type Announcer struct {
	channel string
	client  ircClient
	stats   bot.StatsSource
	queue   chan string
	logger  *slog.Logger
	now     func() time.Time

	mu        sync.Mutex
	lastStats time.Time
}

// New builds an announcer for the configured channel. Stats may be nil, in which case
// !gemuki is ignored.
func New(cfg *config.Config, stats bot.StatsSource) *Announcer {
	return newAnnouncer(cfg.TwitchChannel, twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken), stats)
}

func newAnnouncer(channel string, client ircClient, stats bot.StatsSource) *Announcer {
	return &Announcer{
		channel: strings.ToLower(strings.TrimPrefix(channel, "#")),
		client:  client,
		stats:   stats,
		queue:   make(chan string, queueSize),
		logger:  slog.Default().With(slog.String("component", "chat")),
		now:     time.Now,
	}
}

// Announce queues msg for the channel. It never blocks; messages are dropped when
// the queue is full.
func (a *Announcer) Announce(msg string) {
	msg = sanitize(msg)
	if msg == "" {
		return
	}
	select {
	case a.queue <- msg:
	default:
		a.logger.Warn("announcement dropped; queue full", slog.String("msg", msg))
	}
}

// Run connects to Twitch and blocks until ctx is cancelled or the connection fails.
func (a *Announcer) Run(ctx context.Context) error {
	connected := make(chan struct{})
	var once sync.Once
	a.client.OnConnect(func() {
		once.Do(func() { close(connected) })
		a.logger.Info("twitch chat connected", slog.String("channel", a.channel))
	})
	a.client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		a.handleMessage(ctx, msg)
	})

	// Handle context cancellation by closing the client
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = a.client.Disconnect()
		case <-done:
		}
	}()
	go a.drain(ctx, connected, done)

	a.client.Join(a.channel)
	err := a.client.Connect()
	if ctx.Err() != nil || errors.Is(err, twitch.ErrClientDisconnected) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("twitch chat connect: %w", err)
	}
	return nil
}

// drain forwards queued announcements once the client is connected.
func (a *Announcer) drain(ctx context.Context, connected, done <-chan struct{}) {
	select {
	case <-connected:
	case <-ctx.Done():
		return
	case <-done:
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case msg := <-a.queue:
			a.client.Say(a.channel, msg)
		}
	}
}

func (a *Announcer) handleMessage(ctx context.Context, msg twitch.PrivateMessage) {
	if a.stats == nil || !strings.EqualFold(strings.TrimSpace(msg.Message), statsCommand) {
		return
	}
	a.mu.Lock()
	now := a.now()
	if !a.lastStats.IsZero() && now.Sub(a.lastStats) < statsCooldown {
		a.mu.Unlock()
		return
	}
	a.lastStats = now
	a.mu.Unlock()

	st, err := bot.CollectStatistics(ctx, a.stats, nil)
	if err != nil {
		a.logger.Error("chat statistics failed", slog.String("user", msg.User.Name), slog.Any("err", err))
		return
	}
	a.client.Say(a.channel, sanitize(fmt.Sprintf("@%s %d games, %d keys (%d unused, %d claimed) from %d users.",
		msg.User.DisplayName, st.Games, st.Keys.Total, st.Keys.Unused, st.Keys.Used, st.Users)))
}

// sanitize flattens msg to one line within the Twitch message limit.
func sanitize(msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	r := []rune(msg)
	if len(r) > maxMessage {
		return string(r[:maxMessage-1]) + "…"
	}
	return msg
}
