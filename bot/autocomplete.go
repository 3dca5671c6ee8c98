package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gemuki/bot/steam"
	"github.com/gemuki/bot/store"
)

// maxChoices is the most suggestions Discord accepts for one autocomplete request.
const maxChoices = 25

// Choice is one autocomplete suggestion. Value is what the option is set to when picked.
type Choice struct {
	Name  string
	Value string
}

// matchPrefix returns up to limit items whose name starts with prefix, ignoring case.
func matchPrefix[T any](items []T, prefix string, limit int, name func(T) string) []T {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	var out []T
	for _, it := range items {
		if len(out) == limit {
			break
		}
		if strings.HasPrefix(strings.ToLower(name(it)), prefix) {
			out = append(out, it)
		}
	}
	return out
}

func nameChoices(names []string) []Choice {
	out := make([]Choice, len(names))
	for i, n := range names {
		out[i] = Choice{Name: n, Value: n}
	}
	return out
}

func identity(s string) string { return s }

// Complete answers an autocomplete request for the focused option of r.
// Lookup failures produce no suggestions.
func (b *Bot) Complete(ctx context.Context, r *Request) []Choice {
	typed := r.String(r.Focused)
	switch r.Focused {
	case "title":
		if b.titles == nil {
			return nil
		}
		b.titles.Update(ctx)
		return nameChoices(matchPrefix(b.titles.Items(), typed, maxChoices, identity))

	case "app":
		if b.apps == nil {
			return nil
		}
		b.apps.Update(ctx)
		apps := matchPrefix(b.apps.Items(), typed, maxChoices, steam.App.Title)
		out := make([]Choice, len(apps))
		for i, a := range apps {
			out[i] = Choice{Name: truncate(a.Title(), 100), Value: formatID(int64(a.ID))}
		}
		return out

	case "platform":
		platforms, err := b.store.ListPlatforms(ctx)
		if err != nil {
			b.logger.Warn("platform autocomplete failed", slog.Any("err", err))
			return nil
		}
		names := make([]string, len(platforms))
		for i, p := range platforms {
			names[i] = p.Name
		}
		return nameChoices(matchPrefix(names, typed, maxChoices, identity))

	case "keylist":
		lists, err := b.store.ListKeylists(ctx, r.UserID, store.OriginOwned)
		if err != nil {
			b.logger.Warn("keylist autocomplete failed", slog.Any("err", err))
			return nil
		}
		names := make([]string, len(lists))
		for i, l := range lists {
			names[i] = l.Name
		}
		return nameChoices(matchPrefix(names, typed, maxChoices, identity))

	case "raffle":
		raffles, err := b.store.ListRaffles(ctx, r.UserID)
		if err != nil {
			b.logger.Warn("raffle autocomplete failed", slog.Any("err", err))
			return nil
		}
		names := make([]string, len(raffles))
		for i, rf := range raffles {
			names[i] = rf.Name
		}
		return nameChoices(matchPrefix(names, typed, maxChoices, identity))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
