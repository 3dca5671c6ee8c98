package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gemuki/bot/paginate"
	"github.com/gemuki/bot/raffle"
	"github.com/gemuki/bot/store"
)

const (
	joinPrefix        = "raffle:join:"
	minRaffleDuration = time.Minute
	maxRaffleDuration = 30 * 24 * time.Hour
	maxRaffleWinners  = 100
)

func joinControl(raffleID int64) string { return joinPrefix + formatID(raffleID) }

func parseJoinControl(id string) (int64, bool) {
	rest, ok := strings.CutPrefix(id, joinPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	return n, err == nil
}

func joinButton(raffleID int64) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Join", Style: discordgo.SuccessButton, CustomID: joinControl(raffleID)},
		}},
	}
}

func (b *Bot) raffle(ctx context.Context, r *Request) (store.RaffleDetails, error) {
	name, err := r.RequiredString("raffle")
	if err != nil {
		return store.RaffleDetails{}, err
	}
	rd, err := b.store.GetRaffleByName(ctx, name, r.UserID)
	if err != nil {
		return store.RaffleDetails{}, lookup(err, "a raffle of yours named %q", name)
	}
	return rd, nil
}

func (b *Bot) raffleList(ctx context.Context, r *Request) (Response, error) {
	raffles, err := b.store.ListRaffles(ctx, r.UserID)
	if err != nil {
		return Response{}, err
	}
	if len(raffles) == 0 {
		return text("You have no raffles.")
	}
	return Response{Pages: rafflePages(raffles)}, nil
}

func (b *Bot) raffleCreate(ctx context.Context, r *Request) (Response, error) {
	name, err := r.RequiredString("name")
	if err != nil {
		return Response{}, err
	}
	raw, err := r.RequiredString("duration")
	if err != nil {
		return Response{}, err
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < minRaffleDuration || d > maxRaffleDuration {
		return Response{}, invalid("Duration must be between %s and %s, e.g. 30m or 2h.", minRaffleDuration, maxRaffleDuration)
	}
	winners := 1
	if n, ok := r.Int("winners"); ok {
		if n < 1 || n > maxRaffleWinners {
			return Response{}, invalid("Winners must be between 1 and %d.", maxRaffleWinners)
		}
		winners = int(n)
	}
	image, err := r.Link("image_link")
	if err != nil {
		return Response{}, err
	}
	rf, err := b.store.CreateRaffle(ctx, store.NewRaffle{
		Name:            name,
		Description:     r.OptString("description"),
		ImageLink:       image,
		OwnerID:         r.UserID,
		Duration:        d,
		PossibleWinners: winners,
	})
	if errors.Is(err, store.ErrConflict) {
		return Response{}, invalid("You already have a raffle named %q.", name)
	}
	if err != nil {
		return Response{}, err
	}
	return text(fmt.Sprintf("Created raffle **%s**. Add keys with `/raffle add-key` and start it with `/raffle start`.", rf.Name))
}

func (b *Bot) raffleAddKey(ctx context.Context, r *Request) (Response, error) {
	rd, err := b.raffle(ctx, r)
	if err != nil {
		return Response{}, err
	}
	key, err := r.RequiredInt("key")
	if err != nil {
		return Response{}, err
	}
	if rd.State != store.RaffleCreated && rd.State != store.RaffleRunning {
		return Response{}, store.ErrInvalidState
	}
	if err := b.store.AddRaffleKey(ctx, rd.ID, key, r.UserID); err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			return Response{}, invalid("Key %d is already in the raffle.", key)
		case errors.Is(err, store.ErrKeyInRaffle):
			return Response{}, invalid("Key %d is already in another open raffle.", key)
		}
		return Response{}, lookup(err, "an unused key of yours with id %d", key)
	}
	return text(fmt.Sprintf("Added key %d to **%s**.", key, rd.Name))
}

func (b *Bot) raffleStart(ctx context.Context, r *Request) (Response, error) {
	rd, err := b.raffle(ctx, r)
	if err != nil {
		return Response{}, err
	}
	if rd.KeyCount == 0 {
		return Response{}, invalid("Add at least one key before starting **%s**.", rd.Name)
	}
	started, err := b.store.StartRaffle(ctx, rd.ID, r.UserID, r.ChannelID)
	if err != nil {
		return Response{}, err
	}
	rd.Raffle = started

	if b.gateway != nil {
		page := rafflePage{raffle: rd}.Render()
		page.Footer = "Press Join to enter"
		msgID, err := b.gateway.SendMessage(ctx, r.ChannelID, page, joinButton(rd.ID))
		if err != nil {
			if uerr := b.store.UnstartRaffle(ctx, rd.ID, r.UserID); uerr != nil {
				b.logger.Error("roll back raffle start failed", slog.Int64("raffle", rd.ID), slog.Any("err", uerr))
			}
			return Response{}, &TransportError{Service: "Discord", Err: err}
		}
		if err := b.store.SetRaffleMessage(ctx, rd.ID, msgID); err != nil {
			b.logger.Warn("record raffle message failed", slog.Int64("raffle", rd.ID), slog.Any("err", err))
		}
	}
	b.announce(fmt.Sprintf("Raffle %q started with %d key(s)! Join on Discord before it ends in %s.",
		rd.Name, rd.KeyCount, rd.Duration()))
	return text(fmt.Sprintf("Started **%s**. It ends %s.", rd.Name, discordTime(*started.EndAt)))
}

func (b *Bot) raffleAbort(ctx context.Context, r *Request) (Response, error) {
	rd, err := b.raffle(ctx, r)
	if err != nil {
		return Response{}, err
	}
	if err := b.store.AbortRaffle(ctx, rd.ID, r.UserID); err != nil {
		return Response{}, err
	}
	return text(fmt.Sprintf("Aborted **%s**.", rd.Name))
}

func (b *Bot) raffleEnd(ctx context.Context, r *Request) (Response, error) {
	rd, err := b.raffle(ctx, r)
	if err != nil {
		return Response{}, err
	}
	if rd.State != store.RaffleRunning {
		return Response{}, store.ErrInvalidState
	}
	results, err := b.raffles.Finish(ctx, rd.Raffle, "manual")
	if err != nil {
		return Response{}, err
	}
	return text(fmt.Sprintf("Ended **%s** with %d winner(s).", rd.Name, len(results)))
}

func (b *Bot) raffleDelete(ctx context.Context, r *Request) (Response, error) {
	rd, err := b.raffle(ctx, r)
	if err != nil {
		return Response{}, err
	}
	if err := b.store.DeleteRaffle(ctx, rd.ID, r.UserID); err != nil {
		return Response{}, err
	}
	return text(fmt.Sprintf("Deleted **%s**.", rd.Name))
}

// JoinRaffle enters user into a running raffle and returns the reply for the join press.
func (b *Bot) JoinRaffle(ctx context.Context, raffleID, user int64) string {
	err := b.store.AddRaffleEntry(ctx, raffleID, user)
	switch {
	case err == nil:
		return "You are in! Good luck."
	case errors.Is(err, store.ErrConflict):
		return "You already joined this raffle."
	case errors.Is(err, store.ErrInvalidState):
		return "This raffle is not running."
	default:
		b.logger.Error("join raffle failed", slog.Int64("raffle", raffleID), slog.Any("err", err))
		return ReplyFor(err)
	}
}

// RaffleFinished sends each winner their key, posts the results in the raffle
// channel and announces them on stream chat. Delivery failures are logged.
func (b *Bot) RaffleFinished(ctx context.Context, r store.Raffle, results []raffle.Assignment) {
	log := b.logger.With(slog.Int64("raffle", r.ID))
	if b.gateway != nil {
		for _, a := range results {
			msg := fmt.Sprintf("You won **%s** (%s) in the raffle **%s**!\nYour key: ||%s||",
				a.Key.GameTitle, a.Key.PlatformName, r.Name, a.Key.Value)
			if err := b.gateway.SendDirect(ctx, a.UserID, msg); err != nil {
				log.Warn("send prize failed", slog.Int64("user", a.UserID), slog.Any("err", err))
			}
		}
		if r.ChannelID != nil && *r.ChannelID != "" {
			page := resultsPage(r, results)
			if _, err := b.gateway.SendMessage(ctx, *r.ChannelID, page, nil); err != nil {
				log.Warn("post raffle results failed", slog.Any("err", err))
			}
		}
	}
	if len(results) == 0 {
		b.announce(fmt.Sprintf("Raffle %q ended without winners.", r.Name))
		return
	}
	b.announce(fmt.Sprintf("Raffle %q ended! %d winner(s) got their key by DM.", r.Name, len(results)))
}

func resultsPage(r store.Raffle, results []raffle.Assignment) paginate.Page {
	p := paginate.Page{
		Title: "Raffle ended: " + r.Name,
		Color: colorRaffle,
	}
	if len(results) == 0 {
		p.Description = "Nobody won this time."
		return p
	}
	lines := make([]string, len(results))
	for i, a := range results {
		lines[i] = fmt.Sprintf("%s won **%s** (%s)", mention(a.UserID), a.Key.GameTitle, a.Key.PlatformName)
	}
	p.Description = strings.Join(lines, "\n")
	p.Footer = "Winners received their key by direct message"
	return p
}
