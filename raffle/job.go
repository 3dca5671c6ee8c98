package raffle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gemuki/bot/store"
	"github.com/gemuki/bot/telemetry"
)

// Store is the slice of the data access layer the raffle service needs.
type Store interface {
	ListDueRaffles(ctx context.Context, now time.Time) ([]store.Raffle, error)
	ListRaffleEntries(ctx context.Context, raffleID int64) ([]int64, error)
	ListRaffleKeys(ctx context.Context, raffleID int64) ([]store.RaffleKey, error)
	FinishRaffle(ctx context.Context, id int64, winners []store.Winner) error
}

// Notifier tells people about a finished raffle. Failures are logged by the notifier.
type Notifier interface {
	RaffleFinished(ctx context.Context, r store.Raffle, results []Assignment)
}

// Service finishes raffles.
type Service struct {
	store    Store
	notifier Notifier
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService returns a Service. A nil rng uses a randomly seeded generator.
func NewService(st Store, n Notifier, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Service{store: st, notifier: n, rng: rng, logger: slog.Default().With(slog.String("component", "raffle"))}
}

// maxDrawAttempts bounds how often Finish redraws when pool keys disappear between draw and commit.
const maxDrawAttempts = 3

// Finish draws winners for a running raffle, stores the result and notifies.
// A raffle someone else finished first returns store.ErrInvalidState. When a
// drawn key was claimed in the meantime the pool is reloaded and drawn again.
func (s *Service) Finish(ctx context.Context, r store.Raffle, trigger string) ([]Assignment, error) {
	entries, err := s.store.ListRaffleEntries(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	var results []Assignment
	for attempt := 1; ; attempt++ {
		keys, err := s.store.ListRaffleKeys(ctx, r.ID)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		results = Draw(entries, keys, r.PossibleWinners, s.rng)
		s.mu.Unlock()

		err = s.store.FinishRaffle(ctx, r.ID, Winners(results))
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrPrizeGone) || attempt == maxDrawAttempts {
			return nil, err
		}
		s.logger.Warn("raffle key vanished before commit, drawing again",
			slog.Int64("raffle", r.ID), slog.Int("attempt", attempt), slog.Any("err", err))
	}
	telemetry.ObserveRaffle(trigger, len(results))
	s.logger.Info("raffle finished",
		slog.Int64("raffle", r.ID),
		slog.String("trigger", trigger),
		slog.Int("entries", len(entries)),
		slog.Int("winners", len(results)))

	if s.notifier != nil {
		s.notifier.RaffleFinished(ctx, r, results)
	}
	return results, nil
}

// Sweep finishes every raffle whose end time has passed and returns how many it finished.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int, error) {
	due, err := s.store.ListDueRaffles(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due raffles: %w", err)
	}
	done := 0
	var errs []error
	for _, r := range due {
		if _, err := s.Finish(ctx, r, "scheduled"); err != nil {
			if errors.Is(err, store.ErrInvalidState) {
				continue
			}
			errs = append(errs, fmt.Errorf("raffle %d: %w", r.ID, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// StartJob runs Sweep immediately and then every interval until ctx ends.
func StartJob(ctx context.Context, s *Service, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	s.logger.Info("raffle job starting", slog.Duration("interval", interval))

	sweep := func() {
		if n, err := s.Sweep(ctx, time.Now()); err != nil {
			s.logger.Warn("raffle sweep failed", slog.Any("err", err), slog.Int("finished", n))
		} else if n > 0 {
			s.logger.Info("raffle sweep finished raffles", slog.Int("finished", n))
		}
	}
	sweep()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("raffle job stopped")
			return
		case <-ticker.C:
			sweep()
		}
	}
}
