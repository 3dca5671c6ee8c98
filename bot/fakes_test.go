package bot

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gemuki/bot/config"
	"github.com/gemuki/bot/paginate"
	"github.com/gemuki/bot/store"
)

const (
	ownerID = int64(1)
	userID  = int64(42)
)

// fakeStore implements the methods a test sets; the embedded nil interface
// panics on anything else so unexpected calls fail loudly.
type fakeStore struct {
	Store

	games         []store.GameDetails
	createGameErr error
	createdGames  []store.NewGame
	gameUpdates   []store.GameUpdate
	deletedGames  []int64

	keyUpdates  []store.GameKeyUpdate
	deletedKeys []int64

	keys       []store.GameKeyDetails
	lastFilter store.KeyFilter
	claimErr   map[int64]error
	claimed    []int64

	platforms    []store.Platform
	keylists     []store.KeylistDetails
	addErr       map[int64]error
	added        []int64
	listUpdates  []store.KeylistUpdate
	deletedLists []int64
	removedKeys  []int64
	listKeys     []store.GameKeyDetails
	grants       map[int64]store.AccessRight

	raffle         store.RaffleDetails
	raffleErr      error
	createdRaffles []store.NewRaffle
	started        store.Raffle
	unstarted      []int64
	aborted        []int64
	deletedRaffles []int64
	raffleOpErr    error
	raffleKeyErr   error
	raffleKeys     []int64
	messageIDs map[int64]string
	entryErr   error
	entries    map[int64][]int64
	pool       map[int64][]store.RaffleKey
	finished   map[int64][]store.Winner

	stats map[bool]store.KeyStats
}

func (f *fakeStore) ListGameDetails(context.Context) ([]store.GameDetails, error) {
	return f.games, nil
}

func (f *fakeStore) GetGameByTitle(_ context.Context, title string) (store.Game, error) {
	for _, g := range f.games {
		if g.Title == title {
			return g.Game, nil
		}
	}
	return store.Game{}, store.ErrNotFound
}

func (f *fakeStore) GetGameDetails(_ context.Context, title string) (store.GameDetails, error) {
	for _, g := range f.games {
		if g.Title == title {
			return g, nil
		}
	}
	return store.GameDetails{}, store.ErrNotFound
}

func (f *fakeStore) CreateGame(_ context.Context, in store.NewGame) (store.Game, error) {
	if f.createGameErr != nil {
		return store.Game{}, f.createGameErr
	}
	f.createdGames = append(f.createdGames, in)
	g := store.Game{ID: int64(len(f.games) + 1), Title: in.Title, Description: in.Description, ImageLink: in.ImageLink}
	f.games = append(f.games, store.GameDetails{Game: g})
	return g, nil
}

func (f *fakeStore) UpdateGame(_ context.Context, in store.GameUpdate) (store.Game, error) {
	f.gameUpdates = append(f.gameUpdates, in)
	for i, g := range f.games {
		if g.ID == in.ID {
			if in.Title != nil {
				f.games[i].Title = *in.Title
			}
			return f.games[i].Game, nil
		}
	}
	return store.Game{}, store.ErrNotFound
}

func (f *fakeStore) DeleteGame(_ context.Context, id int64) (store.DeleteResult, error) {
	for i, g := range f.games {
		if g.ID == id {
			f.deletedGames = append(f.deletedGames, id)
			f.games = append(f.games[:i], f.games[i+1:]...)
			return store.DeleteResult{Games: 1, Keys: g.KeyCount}, nil
		}
	}
	return store.DeleteResult{}, store.ErrNotFound
}

func (f *fakeStore) GetGameKey(_ context.Context, id, _ int64) (store.GameKeyDetails, error) {
	for _, k := range f.keys {
		if k.ID == id {
			return k, nil
		}
	}
	return store.GameKeyDetails{}, store.ErrNotFound
}

func (f *fakeStore) UpdateGameKey(_ context.Context, in store.GameKeyUpdate) (store.GameKey, error) {
	for _, k := range f.keys {
		if k.ID == in.ID {
			f.keyUpdates = append(f.keyUpdates, in)
			return k.GameKey, nil
		}
	}
	return store.GameKey{}, store.ErrNotFound
}

func (f *fakeStore) DeleteGameKey(_ context.Context, id, _ int64) (int64, error) {
	for _, k := range f.keys {
		if k.ID == id {
			f.deletedKeys = append(f.deletedKeys, id)
			return 1, nil
		}
	}
	return 0, store.ErrNotFound
}

func (f *fakeStore) GetPlatformByName(_ context.Context, name string) (store.Platform, error) {
	for _, p := range f.platforms {
		if p.Name == name {
			return p, nil
		}
	}
	return store.Platform{}, store.ErrNotFound
}

func (f *fakeStore) ListGameKeyDetails(_ context.Context, _, _ int64, filter store.KeyFilter) ([]store.GameKeyDetails, error) {
	f.lastFilter = filter
	return f.keys, nil
}

func (f *fakeStore) ClaimGameKey(_ context.Context, id, _, _ int64) (store.GameKeyDetails, error) {
	if err := f.claimErr[id]; err != nil {
		return store.GameKeyDetails{}, err
	}
	f.claimed = append(f.claimed, id)
	for _, k := range f.keys {
		if k.ID == id {
			k.Keystate = store.KeyUsed
			return k, nil
		}
	}
	return store.GameKeyDetails{}, store.ErrNotFound
}

func (f *fakeStore) ListPlatforms(context.Context) ([]store.Platform, error) {
	return f.platforms, nil
}

func (f *fakeStore) ListKeylists(context.Context, int64, store.KeylistOrigin) ([]store.KeylistDetails, error) {
	return f.keylists, nil
}

// GetKeylistByName resolves lists the user owns or was granted through
// GrantKeylistAccess. grants is keyed by user, so tests use a single list.
func (f *fakeStore) GetKeylistByName(_ context.Context, name string, user int64) (store.KeylistDetails, error) {
	for _, l := range f.keylists {
		if l.Name != name {
			continue
		}
		if l.OwnerID == user {
			l.AccessRight = ""
			return l, nil
		}
		if right, ok := f.grants[user]; ok {
			l.AccessRight = right
			return l, nil
		}
	}
	return store.KeylistDetails{}, store.ErrNotFound
}

func (f *fakeStore) AddKeylistKey(_ context.Context, _, gamekeyID, _ int64) error {
	if err := f.addErr[gamekeyID]; err != nil {
		return err
	}
	f.added = append(f.added, gamekeyID)
	return nil
}

func (f *fakeStore) UpdateKeylist(_ context.Context, in store.KeylistUpdate) (store.Keylist, error) {
	f.listUpdates = append(f.listUpdates, in)
	l := store.Keylist{ID: in.ID, OwnerID: in.OwnerID}
	if in.Name != nil {
		l.Name = *in.Name
	}
	return l, nil
}

func (f *fakeStore) DeleteKeylist(_ context.Context, id, _ int64) error {
	f.deletedLists = append(f.deletedLists, id)
	return nil
}

func (f *fakeStore) RemoveKeylistKey(_ context.Context, _, gamekeyID int64) error {
	f.removedKeys = append(f.removedKeys, gamekeyID)
	return nil
}

func (f *fakeStore) ListKeylistKeys(context.Context, int64) ([]store.GameKeyDetails, error) {
	return f.listKeys, nil
}

func (f *fakeStore) GrantKeylistAccess(_ context.Context, keylistID, target int64, right store.AccessRight, _ int64) (store.KeylistAccess, error) {
	if f.grants == nil {
		f.grants = map[int64]store.AccessRight{}
	}
	f.grants[target] = right
	return store.KeylistAccess{KeylistID: keylistID, TargetUserID: target, AccessRight: right}, nil
}

func (f *fakeStore) RevokeKeylistAccess(_ context.Context, _, target int64) error {
	if _, ok := f.grants[target]; !ok {
		return store.ErrNotFound
	}
	delete(f.grants, target)
	return nil
}

func (f *fakeStore) GetRaffleByName(context.Context, string, int64) (store.RaffleDetails, error) {
	return f.raffle, f.raffleErr
}

func (f *fakeStore) ListRaffles(context.Context, int64) ([]store.RaffleDetails, error) {
	if f.raffle.ID == 0 {
		return nil, nil
	}
	return []store.RaffleDetails{f.raffle}, nil
}

func (f *fakeStore) StartRaffle(_ context.Context, id, owner int64, channelID string) (store.Raffle, error) {
	r := f.raffle.Raffle
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	end := now.Add(r.Duration())
	r.State = store.RaffleRunning
	r.StartAt, r.EndAt = &now, &end
	r.ChannelID = &channelID
	f.started = r
	return r, nil
}

func (f *fakeStore) AddRaffleKey(_ context.Context, _, gamekeyID, _ int64) error {
	if f.raffleKeyErr != nil {
		return f.raffleKeyErr
	}
	f.raffleKeys = append(f.raffleKeys, gamekeyID)
	return nil
}

func (f *fakeStore) UnstartRaffle(_ context.Context, id, _ int64) error {
	f.unstarted = append(f.unstarted, id)
	return nil
}

func (f *fakeStore) CreateRaffle(_ context.Context, in store.NewRaffle) (store.Raffle, error) {
	if f.raffleOpErr != nil {
		return store.Raffle{}, f.raffleOpErr
	}
	f.createdRaffles = append(f.createdRaffles, in)
	return store.Raffle{ID: int64(len(f.createdRaffles)), Name: in.Name, State: store.RaffleCreated}, nil
}

func (f *fakeStore) AbortRaffle(_ context.Context, id, _ int64) error {
	if f.raffleOpErr != nil {
		return f.raffleOpErr
	}
	f.aborted = append(f.aborted, id)
	return nil
}

func (f *fakeStore) DeleteRaffle(_ context.Context, id, _ int64) error {
	if f.raffleOpErr != nil {
		return f.raffleOpErr
	}
	f.deletedRaffles = append(f.deletedRaffles, id)
	return nil
}

func (f *fakeStore) SetRaffleMessage(_ context.Context, id int64, messageID string) error {
	if f.messageIDs == nil {
		f.messageIDs = map[int64]string{}
	}
	f.messageIDs[id] = messageID
	return nil
}

func (f *fakeStore) AddRaffleEntry(context.Context, int64, int64) error { return f.entryErr }

func (f *fakeStore) ListRaffleEntries(_ context.Context, id int64) ([]int64, error) {
	return f.entries[id], nil
}

func (f *fakeStore) ListRaffleKeys(_ context.Context, id int64) ([]store.RaffleKey, error) {
	return f.pool[id], nil
}

func (f *fakeStore) FinishRaffle(_ context.Context, id int64, w []store.Winner) error {
	if f.finished == nil {
		f.finished = map[int64][]store.Winner{}
	}
	f.finished[id] = w
	return nil
}

func (f *fakeStore) CountGames(context.Context) (int64, error) { return int64(len(f.games)), nil }

func (f *fakeStore) CountKeyCreators(context.Context) (int64, error) { return 3, nil }

func (f *fakeStore) KeyStats(_ context.Context, owner *int64) (store.KeyStats, error) {
	return f.stats[owner != nil], nil
}

type sentMessage struct {
	channel    string
	page       paginate.Page
	components []discordgo.MessageComponent
}

type directMessage struct {
	user    int64
	content string
}

type fakeGateway struct {
	mu      sync.Mutex
	sent    []sentMessage
	direct  []directMessage
	sendErr error
}

func (g *fakeGateway) SendMessage(_ context.Context, channelID string, page paginate.Page, components []discordgo.MessageComponent) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return "", g.sendErr
	}
	g.sent = append(g.sent, sentMessage{channel: channelID, page: page, components: components})
	return "msg-1", nil
}

func (g *fakeGateway) SendDirect(_ context.Context, user int64, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.direct = append(g.direct, directMessage{user: user, content: content})
	return nil
}

type fakeAnnouncer struct {
	msgs []string
}

func (a *fakeAnnouncer) Announce(msg string) { a.msgs = append(a.msgs, msg) }

func newTestBot(st *fakeStore, gw Gateway) *Bot {
	b := New(Deps{
		Config:  &config.Config{OwnerIDs: []string{"1"}},
		Store:   st,
		Gateway: gw,
	})
	b.now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }
	return b
}

func req(command string, user int64, opts map[string]any) *Request {
	if opts == nil {
		opts = map[string]any{}
	}
	return &Request{Command: command, UserID: user, Options: opts}
}

func strPtr(s string) *string { return &s }
