package bot

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gemuki/bot/store"
	"github.com/gemuki/bot/telemetry"
)

// Gate restricts who may run a subcommand and where.
type Gate uint8

const (
	OwnerOnly Gate = 1 << iota
	GuildOnly
	DMOnly
)

// Subcommand is one leaf of a command group.
type Subcommand struct {
	Name        string
	Description string
	Options     []*discordgo.ApplicationCommandOption
	Handler     Handler
	Gate        Gate
	// Ephemeral replies are only shown to the invoking user.
	Ephemeral bool
}

// Command is a slash command, either a group of subcommands or a single handler.
type Command struct {
	Name        string
	Description string
	Subcommands []Subcommand
	// Leaf is used when the command has no subcommands.
	Leaf *Subcommand
}

// ApplicationCommand returns the definition registered with Discord.
func (c *Command) ApplicationCommand() *discordgo.ApplicationCommand {
	ac := &discordgo.ApplicationCommand{
		Name:        c.Name,
		Description: c.Description,
	}
	if c.Leaf != nil {
		ac.Options = c.Leaf.Options
		return ac
	}
	for _, s := range c.Subcommands {
		ac.Options = append(ac.Options, &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        s.Name,
			Description: s.Description,
			Options:     s.Options,
		})
	}
	return ac
}

type route struct {
	sub Subcommand
}

func routeTable(cmds []*Command) map[string]route {
	out := make(map[string]route)
	for _, c := range cmds {
		if c.Leaf != nil {
			out[c.Name] = route{sub: *c.Leaf}
			continue
		}
		for _, s := range c.Subcommands {
			out[c.Name+" "+s.Name] = route{sub: s}
		}
	}
	return out
}

// ApplicationCommands returns every command definition, sorted by name.
func (b *Bot) ApplicationCommands() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(b.commands))
	for _, c := range b.commands {
		out = append(out, c.ApplicationCommand())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ephemeral reports whether replies to the command are private.
func (b *Bot) ephemeral(command string) bool {
	rt, ok := b.routes[command]
	return ok && rt.sub.Ephemeral
}

// Execute checks gates and the rate limit, then runs the handler for r.Command.
// The returned error is meant for ReplyFor; it has already been logged when its class asks for it.
func (b *Bot) Execute(ctx context.Context, r *Request) (Response, error) {
	rt, ok := b.routes[r.Command]
	if !ok {
		return Response{}, invalid("Unknown command.")
	}
	log := telemetry.LoggerWithCorr(ctx).With(
		slog.String("component", "bot"),
		slog.String("command", r.Command),
		slog.Int64("user", r.UserID))

	if !b.limiter.Allow(r.UserID) {
		telemetry.IncRateLimited()
		log.Debug("rate limited")
		return Response{}, invalid("You are sending commands too quickly. Please wait a moment.")
	}
	if err := b.checkGate(rt.sub.Gate, r); err != nil {
		telemetry.ObserveCommand(r.Command, "denied", 0)
		return Response{}, err
	}

	ctx, span := telemetry.StartSpan(ctx, "command "+r.Command,
		attribute.String("command", r.Command),
		attribute.Bool("guild", r.InGuild()))
	start := time.Now()
	resp, err := rt.sub.Handler(ctx, r)
	telemetry.EndSpan(span, err)

	outcome := "ok"
	if err != nil {
		class := Classify(err)
		outcome = class.String()
		if class.Logged() {
			log.Error("command failed", slog.String("class", outcome), slog.Any("err", err))
		} else {
			log.Debug("command rejected", slog.String("class", outcome), slog.Any("err", err))
		}
	}
	telemetry.ObserveCommand(r.Command, outcome, time.Since(start))
	return resp, err
}

func (b *Bot) checkGate(g Gate, r *Request) error {
	if g&OwnerOnly != 0 && !b.isOwner(r.UserID) {
		return invalid("Only bot owners can use this command.")
	}
	if g&GuildOnly != 0 && !r.InGuild() {
		return invalid("This command can only be used in a server channel.")
	}
	if g&DMOnly != 0 && r.InGuild() {
		return invalid("This command can only be used in a direct message with the bot.")
	}
	return nil
}

func stringOpt(name, desc string, required, autocomplete bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionString,
		Name:         name,
		Description:  desc,
		Required:     required,
		Autocomplete: autocomplete,
	}
}

func intOpt(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: desc,
		Required:    required,
	}
}

func userOpt(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        name,
		Description: desc,
		Required:    required,
	}
}

func choiceOpt(name, desc string, required bool, values ...string) *discordgo.ApplicationCommandOption {
	o := stringOpt(name, desc, required, false)
	for _, v := range values {
		o.Choices = append(o.Choices, &discordgo.ApplicationCommandOptionChoice{Name: v, Value: v})
	}
	return o
}

const maxKeylistBatch = 8

func (b *Bot) buildCommands() []*Command {
	titleOpt := func(required bool) *discordgo.ApplicationCommandOption {
		return stringOpt("title", "Game title", required, true)
	}
	keylistOpt := stringOpt("keylist", "Name of one of your keylists", true, true)
	raffleOpt := stringOpt("raffle", "Name of one of your raffles", true, true)

	keyBatch := []*discordgo.ApplicationCommandOption{keylistOpt}
	for i := 1; i <= maxKeylistBatch; i++ {
		keyBatch = append(keyBatch, intOpt(keyOptName(i), "Game key id", i == 1))
	}

	return []*Command{
		{
			Name:        "game",
			Description: "Manage the game catalog",
			Subcommands: []Subcommand{
				{Name: "list", Description: "List all games", Handler: b.gameList, Gate: OwnerOnly},
				{Name: "details", Description: "Show one game", Handler: b.gameDetails, Gate: OwnerOnly,
					Options: []*discordgo.ApplicationCommandOption{titleOpt(true)}},
				{Name: "add", Description: "Add a game", Handler: b.gameAdd, Gate: OwnerOnly,
					Options: []*discordgo.ApplicationCommandOption{
						stringOpt("title", "Game title", true, false),
						stringOpt("description", "Short description", false, false),
						stringOpt("image_link", "Link to a cover image", false, false),
					}},
				{Name: "edit", Description: "Edit a game", Handler: b.gameEdit, Gate: OwnerOnly,
					Options: []*discordgo.ApplicationCommandOption{
						titleOpt(true),
						stringOpt("new_title", "New title", false, false),
						stringOpt("description", "New description", false, false),
						stringOpt("image_link", "New cover image link", false, false),
					}},
				{Name: "remove", Description: "Remove a game and all of its keys", Handler: b.gameRemove, Gate: OwnerOnly,
					Options: []*discordgo.ApplicationCommandOption{titleOpt(true)}},
				{Name: "quicksetup", Description: "Add a game from its Steam store page", Handler: b.gameQuickSetup, Gate: OwnerOnly,
					Options: []*discordgo.ApplicationCommandOption{stringOpt("app", "Steam app", true, true)}},
			},
		},
		{
			Name:        "gamekey",
			Description: "Manage your game keys",
			Subcommands: []Subcommand{
				{Name: "list", Description: "List your keys of a game", Handler: b.keyList, Ephemeral: true,
					Options: []*discordgo.ApplicationCommandOption{
						titleOpt(true),
						choiceOpt("state", "Only keys in this state", false, string(store.KeyUnused), string(store.KeyUsed)),
						stringOpt("platform", "Only keys for this platform", false, true),
					}},
				{Name: "details", Description: "Show one of your keys", Handler: b.keyDetails, Ephemeral: true,
					Options: []*discordgo.ApplicationCommandOption{intOpt("id", "Game key id", true)}},
				{Name: "add", Description: "Add a key", Handler: b.keyAdd, Gate: DMOnly, Ephemeral: true,
					Options: []*discordgo.ApplicationCommandOption{
						titleOpt(true),
						stringOpt("platform", "Platform", true, true),
						stringOpt("key", "The key", true, false),
						stringOpt("page_link", "Link to the redeem page", false, false),
						stringOpt("notes", "Notes", false, false),
						stringOpt("expires", "Expiration date (YYYY-MM-DD)", false, false),
					}},
				{Name: "edit", Description: "Edit one of your keys", Handler: b.keyEdit, Ephemeral: true,
					Options: []*discordgo.ApplicationCommandOption{
						intOpt("id", "Game key id", true),
						stringOpt("key", "New key", false, false),
						choiceOpt("state", "New state", false, string(store.KeyUnused), string(store.KeyUsed)),
						stringOpt("platform", "New platform", false, true),
						stringOpt("page_link", "New redeem page link", false, false),
						stringOpt("notes", "New notes", false, false),
						stringOpt("expires", "New expiration date (YYYY-MM-DD)", false, false),
					}},
				{Name: "remove", Description: "Remove one of your keys", Handler: b.keyRemove, Ephemeral: true,
					Options: []*discordgo.ApplicationCommandOption{intOpt("id", "Game key id", true)}},
				{Name: "claim", Description: "Claim one of your keys", Handler: b.keyClaim, Gate: OwnerOnly, Ephemeral: true,
					Options: []*discordgo.ApplicationCommandOption{intOpt("id", "Game key id", true)}},
				{Name: "claim-random", Description: "Claim a random unused key", Handler: b.keyClaimRandom, Gate: OwnerOnly, Ephemeral: true},
				{Name: "quickclaim", Description: "Claim the first unused key of a game", Handler: b.keyQuickClaim, Gate: OwnerOnly, Ephemeral: true,
					Options: []*discordgo.ApplicationCommandOption{titleOpt(true), stringOpt("platform", "Platform", false, true)}},
			},
		},
		{
			Name:        "keylist",
			Description: "Group your keys into lists and share them",
			Subcommands: []Subcommand{
				{Name: "list", Description: "List keylists", Handler: b.keylistList,
					Options: []*discordgo.ApplicationCommandOption{
						choiceOpt("origin", "Which keylists", false, string(store.OriginAll), string(store.OriginOwned), string(store.OriginAssigned)),
					}},
				{Name: "create", Description: "Create a keylist", Handler: b.keylistCreate,
					Options: []*discordgo.ApplicationCommandOption{
						stringOpt("name", "Name", true, false),
						stringOpt("description", "Description", false, false),
					}},
				{Name: "edit", Description: "Edit a keylist", Handler: b.keylistEdit,
					Options: []*discordgo.ApplicationCommandOption{
						keylistOpt,
						stringOpt("new_name", "New name", false, false),
						stringOpt("description", "New description", false, false),
					}},
				{Name: "delete", Description: "Delete a keylist", Handler: b.keylistDelete,
					Options: []*discordgo.ApplicationCommandOption{keylistOpt}},
				{Name: "add", Description: "Add keys to a keylist", Handler: b.keylistAdd, Options: keyBatch},
				{Name: "remove-key", Description: "Remove a key from a keylist", Handler: b.keylistRemoveKey,
					Options: []*discordgo.ApplicationCommandOption{keylistOpt, intOpt("key", "Game key id", true)}},
				{Name: "show", Description: "Show the keys of a keylist", Handler: b.keylistShow, Ephemeral: true,
					Options: []*discordgo.ApplicationCommandOption{keylistOpt}},
				{Name: "share", Description: "Share a keylist", Handler: b.keylistShare,
					Options: []*discordgo.ApplicationCommandOption{
						keylistOpt,
						userOpt("user", "Who to share with", true),
						choiceOpt("right", "Access right", false,
							string(store.AccessRead), string(store.AccessWrite), string(store.AccessFull), string(store.AccessAdmin)),
					}},
				{Name: "unshare", Description: "Stop sharing a keylist", Handler: b.keylistUnshare,
					Options: []*discordgo.ApplicationCommandOption{keylistOpt, userOpt("user", "Who to remove", true)}},
			},
		},
		{
			Name:        "raffle",
			Description: "Raffle keys among the members of a channel",
			Subcommands: []Subcommand{
				{Name: "list", Description: "List your raffles", Handler: b.raffleList},
				{Name: "create", Description: "Create a raffle", Handler: b.raffleCreate,
					Options: []*discordgo.ApplicationCommandOption{
						stringOpt("name", "Name", true, false),
						stringOpt("duration", "How long it runs, e.g. 30m or 2h", true, false),
						intOpt("winners", "Maximum number of winners", false),
						stringOpt("description", "Description", false, false),
						stringOpt("image_link", "Link to an image", false, false),
					}},
				{Name: "add-key", Description: "Add one of your keys to a raffle", Handler: b.raffleAddKey,
					Options: []*discordgo.ApplicationCommandOption{raffleOpt, intOpt("key", "Game key id", true)}},
				{Name: "start", Description: "Start a raffle in this channel", Handler: b.raffleStart, Gate: GuildOnly,
					Options: []*discordgo.ApplicationCommandOption{raffleOpt}},
				{Name: "abort", Description: "Abort a raffle", Handler: b.raffleAbort,
					Options: []*discordgo.ApplicationCommandOption{raffleOpt}},
				{Name: "end", Description: "Draw the winners now", Handler: b.raffleEnd,
					Options: []*discordgo.ApplicationCommandOption{raffleOpt}},
				{Name: "delete", Description: "Delete a raffle", Handler: b.raffleDelete,
					Options: []*discordgo.ApplicationCommandOption{raffleOpt}},
			},
		},
		{
			Name:        "statistics",
			Description: "Show key statistics",
			Leaf:        &Subcommand{Name: "statistics", Handler: b.statistics},
		},
		{
			Name:        "version",
			Description: "Show the bot version",
			Leaf:        &Subcommand{Name: "version", Handler: b.version},
		},
	}
}
