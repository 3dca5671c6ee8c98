package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gemuki/bot/store"
)

func keyOptName(i int) string {
	if i == 1 {
		return "key"
	}
	return fmt.Sprintf("key%d", i)
}

// keylist resolves the keylist option to a list the caller owns or has been
// granted, and checks that the caller's right allows the subcommand.
func (b *Bot) keylist(ctx context.Context, r *Request, allowed func(store.KeylistDetails) bool) (store.KeylistDetails, error) {
	name, err := r.RequiredString("keylist")
	if err != nil {
		return store.KeylistDetails{}, err
	}
	l, err := b.store.GetKeylistByName(ctx, name, r.UserID)
	if err != nil {
		return store.KeylistDetails{}, lookup(err, "a keylist named %q that you can use", name)
	}
	if !allowed(l) {
		return store.KeylistDetails{}, invalid("You only have %s access to **%s**.", l.AccessRight, l.Name)
	}
	return l, nil
}

func anyAccess(store.KeylistDetails) bool { return true }

func canWrite(l store.KeylistDetails) bool { return l.Owned() || l.AccessRight.CanWrite() }

func canShare(l store.KeylistDetails) bool { return l.Owned() || l.AccessRight.CanShare() }

func ownerOnly(l store.KeylistDetails) bool { return l.Owned() }

func (b *Bot) keylistList(ctx context.Context, r *Request) (Response, error) {
	origin := store.KeylistOrigin(r.String("origin"))
	switch origin {
	case "", store.OriginAll, store.OriginOwned, store.OriginAssigned:
	default:
		return Response{}, invalid("Origin must be All, Owned or Assigned.")
	}
	lists, err := b.store.ListKeylists(ctx, r.UserID, origin)
	if err != nil {
		return Response{}, err
	}
	if len(lists) == 0 {
		return text("You have no keylists.")
	}
	return Response{Pages: keylistPages(lists)}, nil
}

func (b *Bot) keylistCreate(ctx context.Context, r *Request) (Response, error) {
	name, err := r.RequiredString("name")
	if err != nil {
		return Response{}, err
	}
	l, err := b.store.CreateKeylist(ctx, store.NewKeylist{
		Name:        name,
		Description: r.OptString("description"),
		OwnerID:     r.UserID,
	})
	if errors.Is(err, store.ErrConflict) {
		return Response{}, invalid("You already have a keylist named %q.", name)
	}
	if err != nil {
		return Response{}, err
	}
	return text(fmt.Sprintf("Created keylist **%s**.", l.Name))
}

func (b *Bot) keylistEdit(ctx context.Context, r *Request) (Response, error) {
	l, err := b.keylist(ctx, r, ownerOnly)
	if err != nil {
		return Response{}, err
	}
	upd := store.KeylistUpdate{
		ID:          l.ID,
		OwnerID:     r.UserID,
		Name:        r.OptString("new_name"),
		Description: r.OptString("description"),
		UserID:      r.UserID,
	}
	if upd.Name == nil && upd.Description == nil {
		return Response{}, invalid("Nothing to change.")
	}
	updated, err := b.store.UpdateKeylist(ctx, upd)
	if errors.Is(err, store.ErrConflict) {
		return Response{}, invalid("You already have a keylist named %q.", *upd.Name)
	}
	if err != nil {
		return Response{}, lookup(err, "that keylist")
	}
	return text(fmt.Sprintf("Updated keylist **%s**.", updated.Name))
}

func (b *Bot) keylistDelete(ctx context.Context, r *Request) (Response, error) {
	l, err := b.keylist(ctx, r, ownerOnly)
	if err != nil {
		return Response{}, err
	}
	if err := b.store.DeleteKeylist(ctx, l.ID, r.UserID); err != nil {
		return Response{}, lookup(err, "a keylist of yours named %q", l.Name)
	}
	return text(fmt.Sprintf("Deleted keylist **%s**.", l.Name))
}

// keylistAdd adds up to maxKeylistBatch keys and reports the outcome of each.
// A storage failure on one key does not stop the others.
func (b *Bot) keylistAdd(ctx context.Context, r *Request) (Response, error) {
	l, err := b.keylist(ctx, r, canWrite)
	if err != nil {
		return Response{}, err
	}
	var ids []int64
	for i := 1; i <= maxKeylistBatch; i++ {
		if id, ok := r.Int(keyOptName(i)); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return Response{}, invalid("Give at least one key id.")
	}

	var lines []string
	added := 0
	for _, id := range ids {
		err := b.store.AddKeylistKey(ctx, l.ID, id, r.UserID)
		switch {
		case err == nil:
			added++
			lines = append(lines, fmt.Sprintf("✅ key %d added", id))
		case errors.Is(err, store.ErrConflict):
			lines = append(lines, fmt.Sprintf("❌ key %d is already in the list", id))
		case errors.Is(err, store.ErrNotFound):
			lines = append(lines, fmt.Sprintf("❌ key %d is not one of your keys", id))
		default:
			b.logger.Error("add keylist key failed", slog.Int64("keylist", l.ID), slog.Int64("key", id), slog.Any("err", err))
			lines = append(lines, fmt.Sprintf("❌ key %d could not be added", id))
		}
	}
	header := fmt.Sprintf("Added %d of %d key(s) to **%s**:", added, len(ids), l.Name)
	return text(header + "\n" + strings.Join(lines, "\n"))
}

func (b *Bot) keylistRemoveKey(ctx context.Context, r *Request) (Response, error) {
	l, err := b.keylist(ctx, r, canWrite)
	if err != nil {
		return Response{}, err
	}
	id, err := r.RequiredInt("key")
	if err != nil {
		return Response{}, err
	}
	if err := b.store.RemoveKeylistKey(ctx, l.ID, id); err != nil {
		return Response{}, lookup(err, "key %d in %q", id, l.Name)
	}
	return text(fmt.Sprintf("Removed key %d from **%s**.", id, l.Name))
}

func (b *Bot) keylistShow(ctx context.Context, r *Request) (Response, error) {
	l, err := b.keylist(ctx, r, anyAccess)
	if err != nil {
		return Response{}, err
	}
	keys, err := b.store.ListKeylistKeys(ctx, l.ID)
	if err != nil {
		return Response{}, err
	}
	if len(keys) == 0 {
		return text(fmt.Sprintf("**%s** has no keys.", l.Name))
	}
	return Response{Pages: keyPages(keys, b.now())}, nil
}

func (b *Bot) keylistShare(ctx context.Context, r *Request) (Response, error) {
	l, err := b.keylist(ctx, r, canShare)
	if err != nil {
		return Response{}, err
	}
	target, err := r.User("user")
	if err != nil {
		return Response{}, err
	}
	if target == l.OwnerID {
		return Response{}, invalid("%s owns this keylist.", mention(target))
	}
	if target == r.UserID {
		return Response{}, invalid("You cannot change your own access.")
	}
	right := store.AccessRead
	if v := r.String("right"); v != "" {
		right = store.AccessRight(v)
		if !right.Valid() {
			return Response{}, invalid("Right must be Read, Write, Full or Admin.")
		}
	}
	if _, err := b.store.GrantKeylistAccess(ctx, l.ID, target, right, r.UserID); err != nil {
		return Response{}, err
	}
	return text(fmt.Sprintf("Shared **%s** with %s (%s).", l.Name, mention(target), right))
}

func (b *Bot) keylistUnshare(ctx context.Context, r *Request) (Response, error) {
	l, err := b.keylist(ctx, r, canShare)
	if err != nil {
		return Response{}, err
	}
	target, err := r.User("user")
	if err != nil {
		return Response{}, err
	}
	if err := b.store.RevokeKeylistAccess(ctx, l.ID, target); err != nil {
		return Response{}, lookup(err, "a share of %q with that user", l.Name)
	}
	return text(fmt.Sprintf("Stopped sharing **%s** with %s.", l.Name, mention(target)))
}
