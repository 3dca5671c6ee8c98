package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gemuki/bot/steam"
	"github.com/gemuki/bot/store"
)

func (b *Bot) gameList(ctx context.Context, _ *Request) (Response, error) {
	games, err := b.store.ListGameDetails(ctx)
	if err != nil {
		return Response{}, err
	}
	if len(games) == 0 {
		return text("There are no games yet.")
	}
	return Response{Pages: gamePages(games)}, nil
}

func (b *Bot) gameDetails(ctx context.Context, r *Request) (Response, error) {
	title, err := r.RequiredString("title")
	if err != nil {
		return Response{}, err
	}
	g, err := b.store.GetGameDetails(ctx, title)
	if err != nil {
		return Response{}, lookup(err, "a game titled %q", title)
	}
	page := gamePage{game: g}.Render()
	return Response{Page: &page}, nil
}

func (b *Bot) gameAdd(ctx context.Context, r *Request) (Response, error) {
	title, err := r.RequiredString("title")
	if err != nil {
		return Response{}, err
	}
	image, err := r.Link("image_link")
	if err != nil {
		return Response{}, err
	}
	g, err := b.store.CreateGame(ctx, store.NewGame{
		Title:       title,
		Description: r.OptString("description"),
		ImageLink:   image,
		UserID:      r.UserID,
	})
	if errors.Is(err, store.ErrConflict) {
		return Response{}, invalid("A game titled %q already exists.", title)
	}
	if err != nil {
		return Response{}, err
	}
	b.refreshTitles(ctx)
	return text(fmt.Sprintf("Added **%s**.", g.Title))
}

func (b *Bot) gameEdit(ctx context.Context, r *Request) (Response, error) {
	title, err := r.RequiredString("title")
	if err != nil {
		return Response{}, err
	}
	image, err := r.Link("image_link")
	if err != nil {
		return Response{}, err
	}
	upd := store.GameUpdate{
		Title:       r.OptString("new_title"),
		Description: r.OptString("description"),
		ImageLink:   image,
		UserID:      r.UserID,
	}
	if upd.Title == nil && upd.Description == nil && upd.ImageLink == nil {
		return Response{}, invalid("Nothing to change.")
	}
	g, err := b.store.GetGameByTitle(ctx, title)
	if err != nil {
		return Response{}, lookup(err, "a game titled %q", title)
	}
	upd.ID = g.ID
	g, err = b.store.UpdateGame(ctx, upd)
	if errors.Is(err, store.ErrConflict) {
		return Response{}, invalid("A game titled %q already exists.", *upd.Title)
	}
	if err != nil {
		return Response{}, lookup(err, "a game titled %q", title)
	}
	b.refreshTitles(ctx)
	return text(fmt.Sprintf("Updated **%s**.", g.Title))
}

func (b *Bot) gameRemove(ctx context.Context, r *Request) (Response, error) {
	title, err := r.RequiredString("title")
	if err != nil {
		return Response{}, err
	}
	g, err := b.store.GetGameByTitle(ctx, title)
	if err != nil {
		return Response{}, lookup(err, "a game titled %q", title)
	}
	res, err := b.store.DeleteGame(ctx, g.ID)
	if err != nil {
		return Response{}, lookup(err, "a game titled %q", title)
	}
	b.refreshTitles(ctx)
	return text(fmt.Sprintf("Removed **%s** and %d key(s).", g.Title, res.Keys))
}

// gameQuickSetup creates a game from the Steam store details of an app. The
// app option carries either a typed app title or the app id chosen through
// autocomplete.
func (b *Bot) gameQuickSetup(ctx context.Context, r *Request) (Response, error) {
	raw, err := r.RequiredString("app")
	if err != nil {
		return Response{}, err
	}
	id, err := b.resolveApp(ctx, raw)
	if err != nil {
		return Response{}, err
	}
	if b.appDetails == nil {
		return Response{}, invalid("Steam lookups are not configured.")
	}
	d, err := b.appDetails.Get(ctx, id)
	if err != nil {
		if errors.Is(err, steam.ErrAppNotFound) {
			return Response{}, err
		}
		return Response{}, &TransportError{Service: "Steam", Err: err}
	}

	in := store.NewGame{Title: d.Name, UserID: r.UserID}
	if desc := d.Description(); desc != "" {
		in.Description = &desc
	}
	if d.HeaderImage != "" {
		img := d.HeaderImage
		in.ImageLink = &img
	}
	g, err := b.store.CreateGame(ctx, in)
	if errors.Is(err, store.ErrConflict) {
		return Response{}, invalid("A game titled %q already exists.", d.Name)
	}
	if err != nil {
		return Response{}, err
	}
	b.refreshTitles(ctx)

	details, err := b.store.GetGameDetails(ctx, g.Title)
	if err != nil {
		return text(fmt.Sprintf("Added **%s** from Steam.", g.Title))
	}
	page := gamePage{game: details}.Render()
	page.URL = d.StorePage()
	return Response{Content: fmt.Sprintf("Added **%s** from Steam.", g.Title), Page: &page}, nil
}

// resolveApp prefers an app whose title matches raw, so titles made of digits
// resolve by name, and falls back to reading raw as an app id.
func (b *Bot) resolveApp(ctx context.Context, raw string) (uint32, error) {
	if b.apps != nil {
		b.apps.Update(ctx)
		for _, a := range b.apps.Items() {
			if strings.EqualFold(a.Title(), raw) {
				return a.ID, nil
			}
		}
	}
	if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
		return uint32(id), nil
	}
	return 0, &NotFoundError{What: fmt.Sprintf("a Steam app named %q", raw)}
}
