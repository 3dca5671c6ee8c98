package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/gemuki/bot/store"
)

func (b *Bot) game(ctx context.Context, r *Request) (store.Game, error) {
	title, err := r.RequiredString("title")
	if err != nil {
		return store.Game{}, err
	}
	g, err := b.store.GetGameByTitle(ctx, title)
	if err != nil {
		return store.Game{}, lookup(err, "a game titled %q", title)
	}
	return g, nil
}

func (b *Bot) platform(ctx context.Context, name string) (store.Platform, error) {
	p, err := b.store.GetPlatformByName(ctx, name)
	if err != nil {
		return store.Platform{}, lookup(err, "a platform named %q", name)
	}
	return p, nil
}

func keyState(r *Request) (*store.Keystate, error) {
	v := r.String("state")
	if v == "" {
		return nil, nil
	}
	s := store.Keystate(v)
	if !s.Valid() {
		return nil, invalid("State must be %s or %s.", store.KeyUnused, store.KeyUsed)
	}
	return &s, nil
}

func (b *Bot) keyList(ctx context.Context, r *Request) (Response, error) {
	g, err := b.game(ctx, r)
	if err != nil {
		return Response{}, err
	}
	filter := store.KeyFilter{Platform: r.String("platform")}
	state, err := keyState(r)
	if err != nil {
		return Response{}, err
	}
	if state != nil {
		filter.State = *state
	}
	keys, err := b.store.ListGameKeyDetails(ctx, g.ID, r.UserID, filter)
	if err != nil {
		return Response{}, err
	}
	if len(keys) == 0 {
		return text(fmt.Sprintf("You have no matching keys for **%s**.", g.Title))
	}
	return Response{Pages: keyPages(keys, b.now())}, nil
}

func (b *Bot) keyDetails(ctx context.Context, r *Request) (Response, error) {
	id, err := r.RequiredInt("id")
	if err != nil {
		return Response{}, err
	}
	k, err := b.store.GetGameKey(ctx, id, r.UserID)
	if err != nil {
		return Response{}, lookup(err, "a key with id %d", id)
	}
	page := keyPage{key: k, now: b.now()}.Render()
	return Response{Page: &page}, nil
}

func (b *Bot) keyAdd(ctx context.Context, r *Request) (Response, error) {
	g, err := b.game(ctx, r)
	if err != nil {
		return Response{}, err
	}
	platformName, err := r.RequiredString("platform")
	if err != nil {
		return Response{}, err
	}
	value, err := r.RequiredString("key")
	if err != nil {
		return Response{}, err
	}
	link, err := r.Link("page_link")
	if err != nil {
		return Response{}, err
	}
	expires, err := r.Date("expires")
	if err != nil {
		return Response{}, err
	}
	p, err := b.platform(ctx, platformName)
	if err != nil {
		return Response{}, err
	}
	k, err := b.store.CreateGameKey(ctx, store.NewGameKey{
		GameID:         g.ID,
		PlatformID:     p.ID,
		Value:          value,
		PageLink:       link,
		Notes:          r.OptString("notes"),
		ExpirationDate: expires,
		OwnerID:        r.UserID,
		UserID:         r.UserID,
	})
	if err != nil {
		return Response{}, err
	}
	return text(fmt.Sprintf("Added a %s key for **%s** with id %d.", p.Name, g.Title, k.ID))
}

func (b *Bot) keyEdit(ctx context.Context, r *Request) (Response, error) {
	id, err := r.RequiredInt("id")
	if err != nil {
		return Response{}, err
	}
	link, err := r.Link("page_link")
	if err != nil {
		return Response{}, err
	}
	expires, err := r.Date("expires")
	if err != nil {
		return Response{}, err
	}
	state, err := keyState(r)
	if err != nil {
		return Response{}, err
	}
	upd := store.GameKeyUpdate{
		ID:             id,
		OwnerID:        r.UserID,
		Value:          r.OptString("key"),
		State:          state,
		PageLink:       link,
		Notes:          r.OptString("notes"),
		ExpirationDate: expires,
		UserID:         r.UserID,
	}
	if name := r.String("platform"); name != "" {
		p, err := b.platform(ctx, name)
		if err != nil {
			return Response{}, err
		}
		upd.PlatformID = &p.ID
	}
	if upd.Value == nil && upd.State == nil && upd.PageLink == nil && upd.Notes == nil &&
		upd.ExpirationDate == nil && upd.PlatformID == nil {
		return Response{}, invalid("Nothing to change.")
	}
	if _, err := b.store.UpdateGameKey(ctx, upd); err != nil {
		return Response{}, lookup(err, "a key with id %d", id)
	}
	return text(fmt.Sprintf("Updated key %d.", id))
}

func (b *Bot) keyRemove(ctx context.Context, r *Request) (Response, error) {
	id, err := r.RequiredInt("id")
	if err != nil {
		return Response{}, err
	}
	if _, err := b.store.DeleteGameKey(ctx, id, r.UserID); err != nil {
		return Response{}, lookup(err, "a key with id %d", id)
	}
	return text(fmt.Sprintf("Removed key %d.", id))
}

func (b *Bot) claimed(k store.GameKeyDetails) Response {
	page := keyPage{key: k, reveal: true, now: b.now()}.Render()
	return Response{Content: fmt.Sprintf("Claimed a %s key for **%s**.", k.PlatformName, k.GameTitle), Page: &page}
}

func (b *Bot) keyClaim(ctx context.Context, r *Request) (Response, error) {
	id, err := r.RequiredInt("id")
	if err != nil {
		return Response{}, err
	}
	k, err := b.store.ClaimGameKey(ctx, id, r.UserID, r.UserID)
	if err != nil {
		return Response{}, lookup(err, "a key with id %d", id)
	}
	return b.claimed(k), nil
}

// claimAny tries the candidates in order and returns the first key it could claim.
// Keys claimed concurrently by another request are skipped.
func (b *Bot) claimAny(ctx context.Context, user int64, ids []int64) (store.GameKeyDetails, bool, error) {
	for _, id := range ids {
		k, err := b.store.ClaimGameKey(ctx, id, user, user)
		if errors.Is(err, store.ErrKeyUsed) || errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return store.GameKeyDetails{}, false, err
		}
		return k, true, nil
	}
	return store.GameKeyDetails{}, false, nil
}

func (b *Bot) keyClaimRandom(ctx context.Context, r *Request) (Response, error) {
	ids, err := b.store.ListClaimableKeyIDs(ctx, r.UserID)
	if err != nil {
		return Response{}, err
	}
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	k, ok, err := b.claimAny(ctx, r.UserID, ids)
	if err != nil {
		return Response{}, err
	}
	if !ok {
		return text("You have no unused keys left.")
	}
	return b.claimed(k), nil
}

func (b *Bot) keyQuickClaim(ctx context.Context, r *Request) (Response, error) {
	g, err := b.game(ctx, r)
	if err != nil {
		return Response{}, err
	}
	keys, err := b.store.ListGameKeyDetails(ctx, g.ID, r.UserID, store.KeyFilter{
		State:    store.KeyUnused,
		Platform: r.String("platform"),
	})
	if err != nil {
		return Response{}, err
	}
	now := b.now()
	ids := make([]int64, 0, len(keys))
	for _, k := range keys {
		if !k.Expired(now) {
			ids = append(ids, k.ID)
		}
	}
	k, ok, err := b.claimAny(ctx, r.UserID, ids)
	if err != nil {
		return Response{}, err
	}
	if !ok {
		return text(fmt.Sprintf("You have no unused keys for **%s**.", g.Title))
	}
	return b.claimed(k), nil
}
