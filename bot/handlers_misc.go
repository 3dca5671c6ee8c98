package bot

import (
	"context"
	"fmt"
	"runtime"

	"github.com/gemuki/bot/paginate"
	"github.com/gemuki/bot/store"
)

// Statistics summarizes the catalog for the statistics command, the HTTP endpoint and stream chat.
type Statistics struct {
	Games    int64           `json:"games"`
	Users    int64           `json:"users"`
	Keys     store.KeyStats  `json:"keys"`
	Personal *store.KeyStats `json:"personal,omitempty"`
}

// StatsSource is what CollectStatistics reads from.
type StatsSource interface {
	CountGames(ctx context.Context) (int64, error)
	CountKeyCreators(ctx context.Context) (int64, error)
	KeyStats(ctx context.Context, owner *int64) (store.KeyStats, error)
}

// CollectStatistics gathers global counts and, when user is non-nil, the user's own key counts.
func CollectStatistics(ctx context.Context, src StatsSource, user *int64) (Statistics, error) {
	var st Statistics
	var err error
	if st.Games, err = src.CountGames(ctx); err != nil {
		return Statistics{}, err
	}
	if st.Users, err = src.CountKeyCreators(ctx); err != nil {
		return Statistics{}, err
	}
	if st.Keys, err = src.KeyStats(ctx, nil); err != nil {
		return Statistics{}, err
	}
	if user != nil {
		own, err := src.KeyStats(ctx, user)
		if err != nil {
			return Statistics{}, err
		}
		st.Personal = &own
	}
	return st, nil
}

func (b *Bot) statistics(ctx context.Context, r *Request) (Response, error) {
	user := r.UserID
	st, err := CollectStatistics(ctx, b.store, &user)
	if err != nil {
		return Response{}, err
	}
	page := paginate.Page{
		Title: "Statistics",
		Color: colorGame,
		Fields: []paginate.Field{
			{Name: "Games", Value: fmt.Sprint(st.Games), Inline: true},
			{Name: "Users", Value: fmt.Sprint(st.Users), Inline: true},
			{Name: "Keys", Value: keyCounts(st.Keys)},
			{Name: "Your keys", Value: keyCounts(*st.Personal)},
		},
	}
	return Response{Page: &page}, nil
}

func keyCounts(k store.KeyStats) string {
	return fmt.Sprintf("%d total, %d unused, %d used", k.Total, k.Unused, k.Used)
}

func (b *Bot) version(context.Context, *Request) (Response, error) {
	return text(fmt.Sprintf("gemuki %s (%s)", Version, runtime.Version()))
}
