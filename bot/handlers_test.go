package bot

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemuki/bot/cache"
	"github.com/gemuki/bot/paginate"
	"github.com/gemuki/bot/raffle"
	"github.com/gemuki/bot/steam"
	"github.com/gemuki/bot/store"
	"github.com/gemuki/bot/testutil"
)

func TestGameListEmptyRepliesWithText(t *testing.T) {
	b := newTestBot(&fakeStore{}, nil)
	resp, err := b.Execute(context.Background(), req("game list", ownerID, nil))
	require.NoError(t, err)
	assert.Empty(t, resp.Pages)
	assert.Equal(t, "There are no games yet.", resp.Content)
}

func TestGameListPaginatesWithPrejoinedCounts(t *testing.T) {
	st := &fakeStore{games: []store.GameDetails{
		{Game: store.Game{ID: 1, Title: "Chess"}, KeyCount: 3},
		{Game: store.Game{ID: 2, Title: "Go"}, KeyCount: 0},
	}}
	b := newTestBot(st, nil)
	resp, err := b.Execute(context.Background(), req("game list", ownerID, nil))
	require.NoError(t, err)
	require.Len(t, resp.Pages, 2)

	page := resp.Pages[0].Render()
	assert.Equal(t, "Chess", page.Title)
	assert.Equal(t, "3", page.Fields[0].Value)
}

func TestGameDetailsNotFound(t *testing.T) {
	b := newTestBot(&fakeStore{}, nil)
	_, err := b.Execute(context.Background(), req("game details", ownerID, map[string]any{"title": "Nope"}))
	require.Error(t, err)
	assert.Equal(t, ErrorClassNotFound, Classify(err))
	assert.Equal(t, `Could not find a game titled "Nope".`, ReplyFor(err))
}

func TestGameAddRequiresOwner(t *testing.T) {
	st := &fakeStore{}
	b := newTestBot(st, nil)
	_, err := b.Execute(context.Background(), req("game add", userID, map[string]any{"title": "Chess"}))
	require.Error(t, err)
	assert.Equal(t, ErrorClassValidation, Classify(err))
	assert.Empty(t, st.createdGames)
}

func TestGameAddRefreshesTitles(t *testing.T) {
	st := &fakeStore{}
	var loads atomic.Int32
	titles := cache.New(context.Background(), "titles", time.Hour, func(ctx context.Context) ([]string, error) {
		loads.Add(1)
		names := make([]string, len(st.games))
		for i, g := range st.games {
			names[i] = g.Title
		}
		return names, nil
	})
	b := newTestBot(st, nil)
	b.titles = titles

	resp, err := b.Execute(context.Background(), req("game add", ownerID, map[string]any{
		"title":       "Chess",
		"description": "Board game",
	}))
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "Chess")
	assert.Equal(t, int32(2), loads.Load())
	assert.Equal(t, []string{"Chess"}, titles.Items())
}

func TestGameAddRejectsBadImageLink(t *testing.T) {
	st := &fakeStore{}
	b := newTestBot(st, nil)
	_, err := b.Execute(context.Background(), req("game add", ownerID, map[string]any{
		"title":      "Chess",
		"image_link": "javascript:alert(1)",
	}))
	require.Error(t, err)
	assert.Contains(t, ReplyFor(err), "image_link")
	assert.Empty(t, st.createdGames)
}

func TestGameAddConflict(t *testing.T) {
	st := &fakeStore{createGameErr: store.ErrConflict}
	b := newTestBot(st, nil)
	_, err := b.Execute(context.Background(), req("game add", ownerID, map[string]any{"title": "Chess"}))
	require.Error(t, err)
	assert.Equal(t, `A game titled "Chess" already exists.`, ReplyFor(err))
}

func newSteamBot(t *testing.T, st *fakeStore) (*Bot, *testutil.MockSteamServer) {
	t.Helper()
	mock := testutil.NewMockSteamServer(t)
	client := &steam.Client{APIBase: mock.URL, StoreBase: mock.URL}
	b := newTestBot(st, nil)
	b.appDetails = cache.NewDetails[uint32, steam.AppDetails](16, time.Hour, client.GetAppDetails)
	b.apps = cache.New(context.Background(), "steam-apps-test", time.Hour, client.ListApps)
	return b, mock
}

func TestGameQuickSetup(t *testing.T) {
	st := &fakeStore{}
	b, mock := newSteamBot(t, st)
	mock.MockAppDetails(map[uint32]map[string]any{
		570: {"steam_appid": 570, "name": "Dota 2", "short_description": "A battle arena.", "header_image": "https://cdn.example/570.jpg"},
	})

	resp, err := b.Execute(context.Background(), req("game quicksetup", ownerID, map[string]any{"app": "570"}))
	require.NoError(t, err)
	require.Len(t, st.createdGames, 1)
	assert.Equal(t, "Dota 2", st.createdGames[0].Title)
	assert.Equal(t, "A battle arena.", *st.createdGames[0].Description)
	require.NotNil(t, resp.Page)
	assert.Equal(t, mock.URL+"/app/570", resp.Page.URL)
}

func TestGameQuickSetupByName(t *testing.T) {
	st := &fakeStore{}
	b, mock := newSteamBot(t, st)
	mock.MockAppList(map[uint32]string{570: "Dota 2", 10: "Counter-Strike"})
	mock.MockAppDetails(map[uint32]map[string]any{
		10: {"steam_appid": 10, "name": "Counter-Strike", "short_description": "Classic."},
	})

	_, err := b.Execute(context.Background(), req("game quicksetup", ownerID, map[string]any{"app": "counter-strike"}))
	require.NoError(t, err)
	require.Len(t, st.createdGames, 1)
	assert.Equal(t, "Counter-Strike", st.createdGames[0].Title)
}

func TestGameQuickSetupUnknownApp(t *testing.T) {
	b, mock := newSteamBot(t, &fakeStore{})
	mock.MockAppDetails(nil)

	_, err := b.Execute(context.Background(), req("game quicksetup", ownerID, map[string]any{"app": "999"}))
	require.Error(t, err)
	assert.Equal(t, ErrorClassNotFound, Classify(err))
}

func TestGameQuickSetupSteamDown(t *testing.T) {
	b, mock := newSteamBot(t, &fakeStore{})
	mock.MockStatus("/api/appdetails", http.StatusBadGateway)

	_, err := b.Execute(context.Background(), req("game quicksetup", ownerID, map[string]any{"app": "570"}))
	require.Error(t, err)
	assert.Equal(t, ErrorClassTransport, Classify(err))
	assert.Equal(t, "Could not reach Steam. Please try again later.", ReplyFor(err))
}

func TestKeyListFiltersByPlatformName(t *testing.T) {
	st := &fakeStore{
		games: []store.GameDetails{{Game: store.Game{ID: 1, Title: "Chess"}}},
		keys: []store.GameKeyDetails{
			{GameKey: store.GameKey{ID: 7, Value: "AAAA-BBBB", Keystate: store.KeyUnused}, GameTitle: "Chess", PlatformName: "Steam"},
		},
	}
	b := newTestBot(st, nil)
	resp, err := b.Execute(context.Background(), req("gamekey list", userID, map[string]any{
		"title":    "Chess",
		"platform": "Steam",
		"state":    "Unused",
	}))
	require.NoError(t, err)
	assert.Equal(t, store.KeyFilter{State: store.KeyUnused, Platform: "Steam"}, st.lastFilter)
	require.Len(t, resp.Pages, 1)
	assert.True(t, b.ephemeral("gamekey list"))
}

func TestKeyListRejectsUnknownState(t *testing.T) {
	st := &fakeStore{games: []store.GameDetails{{Game: store.Game{ID: 1, Title: "Chess"}}}}
	b := newTestBot(st, nil)
	_, err := b.Execute(context.Background(), req("gamekey list", userID, map[string]any{"title": "Chess", "state": "Lost"}))
	require.Error(t, err)
	assert.Equal(t, ErrorClassValidation, Classify(err))
}

func TestKeyClaimAlreadyUsed(t *testing.T) {
	st := &fakeStore{claimErr: map[int64]error{7: store.ErrKeyUsed}}
	b := newTestBot(st, nil)
	_, err := b.Execute(context.Background(), req("gamekey claim", ownerID, map[string]any{"id": float64(7)}))
	require.Error(t, err)
	assert.Equal(t, "That key has already been claimed.", ReplyFor(err))
}

func TestKeyClaimRevealsValue(t *testing.T) {
	st := &fakeStore{keys: []store.GameKeyDetails{
		{GameKey: store.GameKey{ID: 7, Value: "AAAA-BBBB"}, GameTitle: "Chess", PlatformName: "Steam"},
	}}
	b := newTestBot(st, nil)
	resp, err := b.Execute(context.Background(), req("gamekey claim", ownerID, map[string]any{"id": float64(7)}))
	require.NoError(t, err)
	require.NotNil(t, resp.Page)
	var found bool
	for _, f := range resp.Page.Fields {
		if f.Name == "Key" {
			found = true
			assert.Equal(t, "||AAAA-BBBB||", f.Value)
		}
	}
	assert.True(t, found)
}

func TestQuickClaimSkipsRacedAndExpiredKeys(t *testing.T) {
	past := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := &fakeStore{
		games: []store.GameDetails{{Game: store.Game{ID: 1, Title: "Chess"}}},
		keys: []store.GameKeyDetails{
			{GameKey: store.GameKey{ID: 1, ExpirationDate: &past}, GameTitle: "Chess"},
			{GameKey: store.GameKey{ID: 2}, GameTitle: "Chess"},
			{GameKey: store.GameKey{ID: 3}, GameTitle: "Chess"},
		},
		claimErr: map[int64]error{2: store.ErrKeyUsed},
	}
	b := newTestBot(st, nil)
	resp, err := b.Execute(context.Background(), req("gamekey quickclaim", ownerID, map[string]any{"title": "Chess"}))
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, st.claimed)
	assert.Equal(t, store.KeyUnused, st.lastFilter.State)
	assert.Contains(t, resp.Content, "Claimed")
}

func TestKeyAddIsDMOnly(t *testing.T) {
	b := newTestBot(&fakeStore{}, nil)
	r := req("gamekey add", userID, map[string]any{"title": "Chess", "platform": "Steam", "key": "X"})
	r.GuildID = "guild"
	_, err := b.Execute(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, ReplyFor(err), "direct message")
}

func TestKeylistAddReportsEachKey(t *testing.T) {
	st := &fakeStore{
		keylists: []store.KeylistDetails{{Keylist: store.Keylist{ID: 5, Name: "gifts", OwnerID: userID}}},
		addErr: map[int64]error{
			11: store.ErrNotFound,
			12: store.ErrConflict,
			13: errors.New("connection reset"),
		},
	}
	b := newTestBot(st, nil)
	resp, err := b.Execute(context.Background(), req("keylist add", userID, map[string]any{
		"keylist": "gifts",
		"key":     float64(10),
		"key2":    float64(11),
		"key3":    float64(12),
		"key4":    float64(13),
	}))
	require.NoError(t, err)
	lines := strings.Split(resp.Content, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Added 1 of 4 key(s) to **gifts**:", lines[0])
	assert.Contains(t, lines[1], "✅ key 10")
	assert.Contains(t, lines[2], "not one of your keys")
	assert.Contains(t, lines[3], "already in the list")
	assert.Contains(t, lines[4], "could not be added")
}

func TestKeylistListEmpty(t *testing.T) {
	b := newTestBot(&fakeStore{}, nil)
	resp, err := b.Execute(context.Background(), req("keylist list", userID, nil))
	require.NoError(t, err)
	assert.Empty(t, resp.Pages)
	assert.Equal(t, "You have no keylists.", resp.Content)
}

func TestRaffleStartPostsJoinButton(t *testing.T) {
	st := &fakeStore{raffle: store.RaffleDetails{
		Raffle:   store.Raffle{ID: 9, Name: "Winter", State: store.RaffleCreated, DurationInSeconds: 3600, PossibleWinners: 1},
		KeyCount: 2,
	}}
	gw := &fakeGateway{}
	ann := &fakeAnnouncer{}
	b := newTestBot(st, gw)
	b.announcer = ann

	r := req("raffle start", userID, map[string]any{"raffle": "Winter"})
	r.GuildID, r.ChannelID = "guild", "chan"
	resp, err := b.Execute(context.Background(), r)
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "Started **Winter**")

	require.Len(t, gw.sent, 1)
	assert.Equal(t, "chan", gw.sent[0].channel)
	assert.Equal(t, "msg-1", st.messageIDs[9])
	require.Len(t, ann.msgs, 1)
	assert.Contains(t, ann.msgs[0], "Winter")
}

func TestRaffleStartWithoutKeys(t *testing.T) {
	st := &fakeStore{raffle: store.RaffleDetails{Raffle: store.Raffle{ID: 9, Name: "Winter", State: store.RaffleCreated}}}
	b := newTestBot(st, &fakeGateway{})
	r := req("raffle start", userID, map[string]any{"raffle": "Winter"})
	r.GuildID = "guild"
	_, err := b.Execute(context.Background(), r)
	require.Error(t, err)
	assert.Equal(t, ErrorClassValidation, Classify(err))
}

func TestRaffleEndRequiresRunning(t *testing.T) {
	st := &fakeStore{raffle: store.RaffleDetails{Raffle: store.Raffle{ID: 9, Name: "Winter", State: store.RaffleCreated}}}
	b := newTestBot(st, nil)
	_, err := b.Execute(context.Background(), req("raffle end", userID, map[string]any{"raffle": "Winter"}))
	require.ErrorIs(t, err, store.ErrInvalidState)
}

func TestRaffleEndDeliversPrizes(t *testing.T) {
	channel := "chan"
	st := &fakeStore{
		raffle: store.RaffleDetails{Raffle: store.Raffle{
			ID: 9, Name: "Winter", State: store.RaffleRunning, PossibleWinners: 2, ChannelID: &channel,
		}},
		entries: map[int64][]int64{9: {100, 101, 102}},
		pool: map[int64][]store.RaffleKey{9: {
			{ID: 1, GameKeyID: 50, Value: "KEY-1", GameTitle: "Chess", PlatformName: "Steam"},
			{ID: 2, GameKeyID: 51, Value: "KEY-2", GameTitle: "Go", PlatformName: "Steam"},
		}},
	}
	gw := &fakeGateway{}
	b := newTestBot(st, gw)

	resp, err := b.Execute(context.Background(), req("raffle end", userID, map[string]any{"raffle": "Winter"}))
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "2 winner(s)")
	assert.Len(t, st.finished[9], 2)

	require.Len(t, gw.direct, 2)
	assert.NotEqual(t, gw.direct[0].user, gw.direct[1].user)
	assert.Contains(t, gw.direct[0].content+gw.direct[1].content, "||KEY-1||")
	require.Len(t, gw.sent, 1)
	assert.Equal(t, "chan", gw.sent[0].channel)
}

func TestRaffleFinishedWithoutWinners(t *testing.T) {
	gw := &fakeGateway{}
	ann := &fakeAnnouncer{}
	b := newTestBot(&fakeStore{}, gw)
	b.announcer = ann

	b.RaffleFinished(context.Background(), store.Raffle{ID: 1, Name: "Empty"}, []raffle.Assignment{})
	assert.Empty(t, gw.direct)
	assert.Empty(t, gw.sent)
	require.Len(t, ann.msgs, 1)
	assert.Contains(t, ann.msgs[0], "without winners")
}

func TestJoinRaffle(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "joined", want: "You are in! Good luck."},
		{name: "twice", err: store.ErrConflict, want: "You already joined this raffle."},
		{name: "not running", err: store.ErrInvalidState, want: "This raffle is not running."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBot(&fakeStore{entryErr: tt.err}, nil)
			assert.Equal(t, tt.want, b.JoinRaffle(context.Background(), 9, userID))
		})
	}
}

func TestStatistics(t *testing.T) {
	st := &fakeStore{
		games: []store.GameDetails{{}, {}},
		stats: map[bool]store.KeyStats{
			false: {Total: 10, Unused: 6, Used: 4},
			true:  {Total: 2, Unused: 1, Used: 1},
		},
	}
	b := newTestBot(st, nil)
	resp, err := b.Execute(context.Background(), req("statistics", userID, nil))
	require.NoError(t, err)
	require.NotNil(t, resp.Page)
	assert.Equal(t, "2", resp.Page.Fields[0].Value)
	assert.Equal(t, "3", resp.Page.Fields[1].Value)
	assert.Equal(t, "10 total, 6 unused, 4 used", resp.Page.Fields[2].Value)
	assert.Equal(t, "2 total, 1 unused, 1 used", resp.Page.Fields[3].Value)
}

func TestKeyValuesHiddenOutsideClaims(t *testing.T) {
	key := store.GameKeyDetails{GameKey: store.GameKey{ID: 7, Value: "AAAA-BBBB"}, GameTitle: "Chess", PlatformName: "Steam"}
	tests := []struct {
		name    string
		command string
		opts    map[string]any
	}{
		{name: "key list", command: "gamekey list", opts: map[string]any{"title": "Chess"}},
		{name: "key details", command: "gamekey details", opts: map[string]any{"id": float64(7)}},
		{name: "keylist show", command: "keylist show", opts: map[string]any{"keylist": "gifts"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{
				games:    []store.GameDetails{{Game: store.Game{ID: 1, Title: "Chess"}}},
				keys:     []store.GameKeyDetails{key},
				keylists: []store.KeylistDetails{{Keylist: store.Keylist{ID: 5, Name: "gifts", OwnerID: userID}}},
				listKeys: []store.GameKeyDetails{key},
			}
			b := newTestBot(st, nil)
			resp, err := b.Execute(context.Background(), req(tt.command, userID, tt.opts))
			require.NoError(t, err)

			var pages []paginate.Page
			if resp.Page != nil {
				pages = append(pages, *resp.Page)
			}
			for _, p := range resp.Pages {
				pages = append(pages, p.Render())
			}
			require.NotEmpty(t, pages)
			for _, p := range pages {
				for _, f := range p.Fields {
					assert.NotEqual(t, "Key", f.Name)
					assert.NotContains(t, f.Value, "AAAA-BBBB")
				}
			}
		})
	}
}

func countingTitles(st *fakeStore) (*cache.Refresh[string], *atomic.Int32) {
	var loads atomic.Int32
	titles := cache.New(context.Background(), "titles", time.Hour, func(context.Context) ([]string, error) {
		loads.Add(1)
		names := make([]string, len(st.games))
		for i, g := range st.games {
			names[i] = g.Title
		}
		return names, nil
	})
	return titles, &loads
}

func TestGameChangesRefreshTitles(t *testing.T) {
	tests := []struct {
		name    string
		command string
		opts    map[string]any
		want    []string
	}{
		{name: "edit", command: "game edit", opts: map[string]any{"title": "Chess", "new_title": "Shogi"}, want: []string{"Shogi"}},
		{name: "remove", command: "game remove", opts: map[string]any{"title": "Chess"}, want: []string{}},
		{name: "quicksetup", command: "game quicksetup", opts: map[string]any{"app": "570"}, want: []string{"Chess", "Dota 2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{games: []store.GameDetails{{Game: store.Game{ID: 1, Title: "Chess"}, KeyCount: 2}}}
			b, mock := newSteamBot(t, st)
			mock.MockAppDetails(map[uint32]map[string]any{570: {"steam_appid": 570, "name": "Dota 2"}})
			titles, loads := countingTitles(st)
			b.titles = titles

			_, err := b.Execute(context.Background(), req(tt.command, ownerID, tt.opts))
			require.NoError(t, err)
			assert.Equal(t, int32(2), loads.Load())
			assert.Equal(t, tt.want, titles.Items())
		})
	}
}

func TestGameEditNothingToChange(t *testing.T) {
	st := &fakeStore{games: []store.GameDetails{{Game: store.Game{ID: 1, Title: "Chess"}}}}
	b := newTestBot(st, nil)
	_, err := b.Execute(context.Background(), req("game edit", ownerID, map[string]any{"title": "Chess"}))
	require.Error(t, err)
	assert.Equal(t, "Nothing to change.", ReplyFor(err))
	assert.Empty(t, st.gameUpdates)
}

func TestGameRemoveReportsKeys(t *testing.T) {
	st := &fakeStore{games: []store.GameDetails{{Game: store.Game{ID: 1, Title: "Chess"}, KeyCount: 2}}}
	b := newTestBot(st, nil)
	resp, err := b.Execute(context.Background(), req("game remove", ownerID, map[string]any{"title": "Chess"}))
	require.NoError(t, err)
	assert.Equal(t, "Removed **Chess** and 2 key(s).", resp.Content)
	assert.Equal(t, []int64{1}, st.deletedGames)
}

func TestGameQuickSetupPrefersTitleMatch(t *testing.T) {
	st := &fakeStore{}
	b, mock := newSteamBot(t, st)
	mock.MockAppList(map[uint32]string{6500: "1942", 570: "Dota 2"})
	mock.MockAppDetails(map[uint32]map[string]any{
		6500: {"steam_appid": 6500, "name": "1942"},
		1942: {"steam_appid": 1942, "name": "Some other app"},
	})

	_, err := b.Execute(context.Background(), req("game quicksetup", ownerID, map[string]any{"app": "1942"}))
	require.NoError(t, err)
	require.Len(t, st.createdGames, 1)
	assert.Equal(t, "1942", st.createdGames[0].Title)
}

func TestKeyEditAndRemove(t *testing.T) {
	tests := []struct {
		name    string
		command string
		opts    map[string]any
		want    string
		check   func(t *testing.T, st *fakeStore)
	}{
		{
			name:    "edit state and platform",
			command: "gamekey edit",
			opts:    map[string]any{"id": float64(7), "state": "Used", "platform": "Epic Games"},
			want:    "Updated key 7.",
			check:   func(t *testing.T, st *fakeStore) {
				require.Len(t, st.keyUpdates, 1)
				u := st.keyUpdates[0]
				assert.Equal(t, userID, u.OwnerID)
				require.NotNil(t, u.State)
				assert.Equal(t, store.KeyUsed, *u.State)
				require.NotNil(t, u.PlatformID)
				assert.Equal(t, int64(2), *u.PlatformID)
			},
		},
		{
			name:    "edit nothing",
			command: "gamekey edit",
			opts:    map[string]any{"id": float64(7)},
			want:    "Nothing to change.",
			check:   func(t *testing.T, st *fakeStore) { assert.Empty(t, st.keyUpdates) },
		},
		{
			name:    "edit unknown platform",
			command: "gamekey edit",
			opts:    map[string]any{"id": float64(7), "platform": "Origin"},
			want:    `Could not find a platform named "Origin".`,
		},
		{
			name:    "edit someone else's key",
			command: "gamekey edit",
			opts:    map[string]any{"id": float64(8), "notes": "mine now"},
			want:    "Could not find a key with id 8.",
		},
		{
			name:    "remove",
			command: "gamekey remove",
			opts:    map[string]any{"id": float64(7)},
			want:    "Removed key 7.",
			check:   func(t *testing.T, st *fakeStore) { assert.Equal(t, []int64{7}, st.deletedKeys) },
		},
		{
			name:    "remove unknown",
			command: "gamekey remove",
			opts:    map[string]any{"id": float64(8)},
			want:    "Could not find a key with id 8.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{
				keys:      []store.GameKeyDetails{{GameKey: store.GameKey{ID: 7, OwnerID: userID}}},
				platforms: []store.Platform{{ID: 1, Name: "Steam"}, {ID: 2, Name: "Epic Games"}},
			}
			b := newTestBot(st, nil)
			resp, err := b.Execute(context.Background(), req(tt.command, userID, tt.opts))
			if err != nil {
				assert.Equal(t, tt.want, ReplyFor(err))
			} else {
				assert.Equal(t, tt.want, resp.Content)
			}
			if tt.check != nil {
				tt.check(t, st)
			}
		})
	}
}
