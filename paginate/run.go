package paginate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gemuki/bot/telemetry"
)

// DefaultTimeout is how long a session waits for the next press.
const DefaultTimeout = 24 * time.Hour

// Messenger sends the initial message of a session.
type Messenger interface {
	Send(ctx context.Context, page Page, controls Controls) error
}

type Option func(*runOptions)

type runOptions struct {
	timeout time.Duration
	logger  *slog.Logger
	started func(*Session)
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option { return func(o *runOptions) { o.timeout = d } }

// WithLogger sets the logger for ignored presses and session end.
func WithLogger(l *slog.Logger) Option { return func(o *runOptions) { o.logger = l } }

// OnStart is called with the session after the first page was sent.
func OnStart(fn func(*Session)) Option { return func(o *runOptions) { o.started = fn } }

// Run sends the first page and then serves presses until the idle timeout
// passes or ctx ends, both of which return nil. Send and update failures end
// the session and are returned. Run returns ErrNoPages for an empty list;
// callers are expected to reply with their own "nothing found" message instead.
func Run(ctx context.Context, m Messenger, hub Subscriber, pages []Renderable, opts ...Option) error {
	o := runOptions{timeout: DefaultTimeout, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	s, err := NewSession(pages)
	if err != nil {
		return err
	}
	log := o.logger.With(slog.String("component", "paginate"), slog.String("session", s.ID()))

	sub := hub.Subscribe(s.Accepts)
	defer sub.Close()

	if err := m.Send(ctx, s.Current(), s.Controls()); err != nil {
		return fmt.Errorf("send first page: %w", err)
	}
	if o.started != nil {
		o.started(s)
	}

	telemetry.SessionStarted()
	defer telemetry.SessionEnded()

	for {
		press, ok := sub.Await(ctx, o.timeout)
		if !ok {
			s.Expire()
			log.Debug("pagination session ended", slog.Int("pages", s.Len()))
			return nil
		}
		id := press.ControlID()
		if !s.Handle(id) {
			log.Debug("ignoring foreign control", slog.String("control", id))
			if err := press.Acknowledge(ctx); err != nil {
				log.Warn("acknowledge ignored press", slog.Any("err", err))
			}
			continue
		}
		if id == s.Controls().Next {
			telemetry.ObservePageTurn("next")
		} else {
			telemetry.ObservePageTurn("previous")
		}
		if err := press.Update(ctx, s.Current(), s.Controls()); err != nil {
			return fmt.Errorf("update page %d: %w", s.Index()+1, err)
		}
	}
}
