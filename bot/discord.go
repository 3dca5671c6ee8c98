package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/gemuki/bot/paginate"
	"github.com/gemuki/bot/telemetry"
)

// Open connects to the Discord gateway, registers the slash commands and starts
// serving interactions. Handlers run with ctx, so cancelling it ends open
// pagination sessions. Call Close on shutdown.
func (b *Bot) Open(ctx context.Context) error {
	if b.cfg.DiscordToken == "" {
		return errors.New("discord token is not configured")
	}
	s, err := discordgo.New("Bot " + b.cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsDirectMessages

	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		telemetry.SetDiscordReady(true)
		b.logger.Info("discord ready", slog.String("user", r.User.Username), slog.Int("guilds", len(r.Guilds)))
	})
	s.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		telemetry.SetDiscordReady(false)
		b.logger.Warn("discord disconnected")
	})
	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.onInteraction(ctx, s, i)
	})

	if err := s.Open(); err != nil {
		return &TransportError{Service: "Discord", Err: err}
	}
	b.session = s
	if b.gateway == nil {
		b.gateway = &discordGateway{s: s}
	}

	cmds, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, b.cfg.GuildID, b.ApplicationCommands(), discordgo.WithContext(ctx))
	if err != nil {
		_ = s.Close()
		return fmt.Errorf("register commands: %w", err)
	}
	b.logger.Info("commands registered", slog.Int("count", len(cmds)), slog.String("guild", b.cfg.GuildID))
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	telemetry.SetDiscordReady(false)
	if b.session == nil {
		return nil
	}
	return b.session.Close()
}

func (b *Bot) onInteraction(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.onCommand(ctx, s, i.Interaction)
	case discordgo.InteractionApplicationCommandAutocomplete:
		b.onAutocomplete(ctx, s, i.Interaction)
	case discordgo.InteractionMessageComponent:
		b.onComponent(ctx, s, i.Interaction)
	}
}

func interactionUser(i *discordgo.Interaction) (int64, error) {
	u := i.User
	if i.Member != nil && i.Member.User != nil {
		u = i.Member.User
	}
	if u == nil {
		return 0, errors.New("interaction has no user")
	}
	return parseID(u.ID)
}

// requestFrom flattens a command or autocomplete interaction.
func requestFrom(i *discordgo.Interaction) (*Request, error) {
	user, err := interactionUser(i)
	if err != nil {
		return nil, err
	}
	data := i.ApplicationCommandData()
	r := &Request{
		Command:   data.Name,
		UserID:    user,
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Options:   make(map[string]any),
	}
	opts := data.Options
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		r.Command += " " + opts[0].Name
		opts = opts[0].Options
	}
	for _, o := range opts {
		r.Options[o.Name] = o.Value
		if o.Focused {
			r.Focused = o.Name
		}
	}
	return r, nil
}

func (b *Bot) onCommand(ctx context.Context, s *discordgo.Session, i *discordgo.Interaction) {
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "bot"))
	r, err := requestFrom(i)
	if err != nil {
		log.Warn("malformed interaction", slog.Any("err", err))
		return
	}
	var flags discordgo.MessageFlags
	if b.ephemeral(r.Command) {
		flags = discordgo.MessageFlagsEphemeral
	}
	err = s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	}, discordgo.WithContext(ctx))
	if err != nil {
		log.Warn("defer reply failed", slog.String("command", r.Command), slog.Any("err", err))
		return
	}

	resp, err := b.Execute(ctx, r)
	if err != nil {
		resp = Response{Content: ReplyFor(err)}
	}
	if len(resp.Pages) > 0 {
		opts := []paginate.Option{paginate.WithLogger(log)}
		if b.cfg.PaginationTimeout > 0 {
			opts = append(opts, paginate.WithTimeout(b.cfg.PaginationTimeout))
		}
		m := &interactionMessenger{s: s, i: i}
		if err := paginate.Run(ctx, m, b.hub, resp.Pages, opts...); err != nil {
			log.Warn("pagination ended with error", slog.String("command", r.Command), slog.Any("err", err))
		}
		return
	}
	if _, err := s.InteractionResponseEdit(i, webhookEdit(resp), discordgo.WithContext(ctx)); err != nil {
		log.Warn("reply failed", slog.String("command", r.Command), slog.Any("err", err))
	}
}

func (b *Bot) onAutocomplete(ctx context.Context, s *discordgo.Session, i *discordgo.Interaction) {
	r, err := requestFrom(i)
	if err != nil {
		return
	}
	choices := b.Complete(ctx, r)
	out := make([]*discordgo.ApplicationCommandOptionChoice, len(choices))
	for n, c := range choices {
		out[n] = &discordgo.ApplicationCommandOptionChoice{Name: c.Name, Value: c.Value}
	}
	err = s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: out},
	}, discordgo.WithContext(ctx))
	if err != nil {
		telemetry.LoggerWithCorr(ctx).Debug("autocomplete reply failed", slog.Any("err", err))
	}
}

func (b *Bot) onComponent(ctx context.Context, s *discordgo.Session, i *discordgo.Interaction) {
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "bot"))
	id := i.MessageComponentData().CustomID

	if raffleID, ok := parseJoinControl(id); ok {
		user, err := interactionUser(i)
		if err != nil {
			return
		}
		msg := b.JoinRaffle(ctx, raffleID, user)
		err = s.InteractionRespond(i, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: msg, Flags: discordgo.MessageFlagsEphemeral},
		}, discordgo.WithContext(ctx))
		if err != nil {
			log.Warn("join reply failed", slog.Any("err", err))
		}
		return
	}

	p := &componentPress{s: s, i: i, id: id}
	if !b.hub.Dispatch(p) {
		if err := p.Acknowledge(ctx); err != nil {
			log.Debug("acknowledge stale control failed", slog.Any("err", err))
		}
	}
}

// interactionMessenger sends the first page of a session as the deferred reply.
type interactionMessenger struct {
	s *discordgo.Session
	i *discordgo.Interaction
}

func (m *interactionMessenger) Send(ctx context.Context, page paginate.Page, controls paginate.Controls) error {
	embeds := []*discordgo.MessageEmbed{embed(page)}
	components := controlRow(controls)
	_, err := m.s.InteractionResponseEdit(m.i, &discordgo.WebhookEdit{
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	return err
}

// componentPress is a button press on a paginated message.
type componentPress struct {
	s  *discordgo.Session
	i  *discordgo.Interaction
	id string
}

func (p *componentPress) ControlID() string { return p.id }

func (p *componentPress) Update(ctx context.Context, page paginate.Page, controls paginate.Controls) error {
	return p.s.InteractionRespond(p.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed(page)},
			Components: controlRow(controls),
		},
	}, discordgo.WithContext(ctx))
}

func (p *componentPress) Acknowledge(ctx context.Context) error {
	return p.s.InteractionRespond(p.i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	}, discordgo.WithContext(ctx))
}

// discordGateway posts to channels and direct messages through the REST API.
type discordGateway struct {
	s *discordgo.Session
}

func (g *discordGateway) SendMessage(ctx context.Context, channelID string, page paginate.Page, components []discordgo.MessageComponent) (string, error) {
	msg, err := g.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed(page)},
		Components: components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (g *discordGateway) SendDirect(ctx context.Context, userID int64, content string) error {
	ch, err := g.s.UserChannelCreate(formatID(userID), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm channel: %w", err)
	}
	_, err = g.s.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx))
	return err
}
