// Package bot wires the Discord gateway to the store: it registers slash
// commands, routes interactions to handlers, answers autocomplete requests and
// shows listings through the paginator.
package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gemuki/bot/cache"
	"github.com/gemuki/bot/config"
	"github.com/gemuki/bot/paginate"
	"github.com/gemuki/bot/raffle"
	"github.com/gemuki/bot/steam"
	"github.com/gemuki/bot/store"
)

// Version is overridden at build time with -ldflags "-X github.com/gemuki/bot/bot.Version=...".
var Version = "dev"

// Store is the part of the data access layer the handlers use.
type Store interface {
	raffle.Store

	ListGameDetails(ctx context.Context) ([]store.GameDetails, error)
	GetGameByTitle(ctx context.Context, title string) (store.Game, error)
	GetGameDetails(ctx context.Context, title string) (store.GameDetails, error)
	CreateGame(ctx context.Context, in store.NewGame) (store.Game, error)
	UpdateGame(ctx context.Context, in store.GameUpdate) (store.Game, error)
	DeleteGame(ctx context.Context, id int64) (store.DeleteResult, error)
	CountGames(ctx context.Context) (int64, error)

	GetGameKey(ctx context.Context, id, owner int64) (store.GameKeyDetails, error)
	ListGameKeyDetails(ctx context.Context, gameID, owner int64, filter store.KeyFilter) ([]store.GameKeyDetails, error)
	ListClaimableKeyIDs(ctx context.Context, owner int64) ([]int64, error)
	CreateGameKey(ctx context.Context, in store.NewGameKey) (store.GameKey, error)
	UpdateGameKey(ctx context.Context, in store.GameKeyUpdate) (store.GameKey, error)
	DeleteGameKey(ctx context.Context, id, owner int64) (int64, error)
	ClaimGameKey(ctx context.Context, id, owner, claimer int64) (store.GameKeyDetails, error)
	KeyStats(ctx context.Context, owner *int64) (store.KeyStats, error)
	CountKeyCreators(ctx context.Context) (int64, error)

	ListPlatforms(ctx context.Context) ([]store.Platform, error)
	GetPlatformByName(ctx context.Context, name string) (store.Platform, error)

	ListKeylists(ctx context.Context, user int64, origin store.KeylistOrigin) ([]store.KeylistDetails, error)
	GetKeylistByName(ctx context.Context, name string, user int64) (store.KeylistDetails, error)
	CreateKeylist(ctx context.Context, in store.NewKeylist) (store.Keylist, error)
	UpdateKeylist(ctx context.Context, in store.KeylistUpdate) (store.Keylist, error)
	DeleteKeylist(ctx context.Context, id, owner int64) error
	AddKeylistKey(ctx context.Context, keylistID, gamekeyID, user int64) error
	RemoveKeylistKey(ctx context.Context, keylistID, gamekeyID int64) error
	ListKeylistKeys(ctx context.Context, keylistID int64) ([]store.GameKeyDetails, error)
	GrantKeylistAccess(ctx context.Context, keylistID, target int64, right store.AccessRight, user int64) (store.KeylistAccess, error)
	RevokeKeylistAccess(ctx context.Context, keylistID, target int64) error

	CreateRaffle(ctx context.Context, in store.NewRaffle) (store.Raffle, error)
	GetRaffle(ctx context.Context, id int64) (store.Raffle, error)
	GetRaffleByName(ctx context.Context, name string, owner int64) (store.RaffleDetails, error)
	ListRaffles(ctx context.Context, owner int64) ([]store.RaffleDetails, error)
	AddRaffleKey(ctx context.Context, raffleID, gamekeyID, owner int64) error
	StartRaffle(ctx context.Context, id, owner int64, channelID string) (store.Raffle, error)
	UnstartRaffle(ctx context.Context, id, owner int64) error
	SetRaffleMessage(ctx context.Context, id int64, messageID string) error
	AbortRaffle(ctx context.Context, id, owner int64) error
	DeleteRaffle(ctx context.Context, id, owner int64) error
	AddRaffleEntry(ctx context.Context, raffleID, user int64) error
}

// Gateway posts messages outside of an interaction reply.
type Gateway interface {
	SendMessage(ctx context.Context, channelID string, page paginate.Page, components []discordgo.MessageComponent) (string, error)
	SendDirect(ctx context.Context, userID int64, content string) error
}

// Announcer relays raffle news to a stream chat.
type Announcer interface {
	Announce(msg string)
}

// Deps are the collaborators of a Bot. Announcer and Gateway may be nil;
// Open installs the Discord gateway.
type Deps struct {
	Config     *config.Config
	Store      Store
	Titles     *cache.Refresh[string]
	Apps       *cache.Refresh[steam.App]
	AppDetails *cache.Details[uint32, steam.AppDetails]
	Gateway    Gateway
	Announcer  Announcer
}

// Bot serves the slash commands.
type Bot struct {
	cfg        *config.Config
	store      Store
	titles     *cache.Refresh[string]
	apps       *cache.Refresh[steam.App]
	appDetails *cache.Details[uint32, steam.AppDetails]
	gateway    Gateway
	announcer  Announcer

	hub      *paginate.Hub
	raffles  *raffle.Service
	limiter  *limiter
	routes   map[string]route
	commands []*Command
	session  *discordgo.Session
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a Bot and its command table.
func New(d Deps) *Bot {
	cfg := d.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	b := &Bot{
		cfg:        cfg,
		store:      d.Store,
		titles:     d.Titles,
		apps:       d.Apps,
		appDetails: d.AppDetails,
		gateway:    d.Gateway,
		announcer:  d.Announcer,
		hub:        paginate.NewHub(),
		limiter:    newLimiter(cfg.CommandRate, cfg.CommandBurst),
		logger:     slog.Default().With(slog.String("component", "bot")),
		now:        time.Now,
	}
	b.raffles = raffle.NewService(d.Store, b, nil)
	b.commands = b.buildCommands()
	b.routes = routeTable(b.commands)
	return b
}

// Raffles exposes the raffle service for the closing job.
func (b *Bot) Raffles() *raffle.Service { return b.raffles }

// Hub exposes the paginator hub.
func (b *Bot) Hub() *paginate.Hub { return b.hub }

// Ready reports whether the gateway connection is established.
func (b *Bot) Ready() bool {
	return b.session != nil && b.session.DataReady
}

func (b *Bot) isOwner(userID int64) bool {
	return b.cfg.IsOwner(formatID(userID))
}

// refreshTitles reloads the title snapshot after a mutation of the game table.
func (b *Bot) refreshTitles(ctx context.Context) {
	if b.titles != nil {
		b.titles.ForceUpdate(ctx)
	}
}

func (b *Bot) announce(msg string) {
	if b.announcer != nil {
		b.announcer.Announce(msg)
	}
}
