package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/gemuki/bot/paginate"
	"github.com/gemuki/bot/store"
)

const (
	colorGame    = 0x5865F2
	colorKey     = 0x57F287
	colorUsed    = 0xED4245
	colorKeylist = 0xFEE75C
	colorRaffle  = 0xEB459E
)

var (
	_ paginate.Renderable = gamePage{}
	_ paginate.Renderable = keyPage{}
	_ paginate.Renderable = keylistPage{}
	_ paginate.Renderable = rafflePage{}
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

type gamePage struct {
	game store.GameDetails
}

func (p gamePage) Render() paginate.Page {
	return paginate.Page{
		Title:       p.game.Title,
		Description: deref(p.game.Description),
		ImageURL:    deref(p.game.ImageLink),
		Color:       colorGame,
		Fields: []paginate.Field{
			{Name: "Unused keys", Value: fmt.Sprint(p.game.KeyCount), Inline: true},
			{Name: "Added", Value: p.game.CreateDate.Format(time.DateOnly), Inline: true},
		},
	}
}

func gamePages(games []store.GameDetails) []paginate.Renderable {
	out := make([]paginate.Renderable, len(games))
	for i, g := range games {
		out[i] = gamePage{game: g}
	}
	return out
}

// keyPage shows a key. Values are only rendered when reveal is set, and then as a spoiler.
type keyPage struct {
	key    store.GameKeyDetails
	reveal bool
	now    time.Time
}

func (p keyPage) Render() paginate.Page {
	k := p.key
	color := colorKey
	if k.Keystate == store.KeyUsed {
		color = colorUsed
	}
	fields := []paginate.Field{
		{Name: "Id", Value: fmt.Sprint(k.ID), Inline: true},
		{Name: "Platform", Value: k.PlatformName, Inline: true},
		{Name: "State", Value: string(k.Keystate), Inline: true},
	}
	if p.reveal {
		fields = append(fields, paginate.Field{Name: "Key", Value: "||" + k.Value + "||"})
	}
	if k.PageLink != nil {
		fields = append(fields, paginate.Field{Name: "Redeem", Value: *k.PageLink})
	}
	if k.ExpirationDate != nil {
		exp := k.ExpirationDate.Format(time.DateOnly)
		if k.Expired(p.now) {
			exp += " (expired)"
		}
		fields = append(fields, paginate.Field{Name: "Expires", Value: exp, Inline: true})
	}
	if k.Notes != nil {
		fields = append(fields, paginate.Field{Name: "Notes", Value: orDash(*k.Notes)})
	}
	return paginate.Page{
		Title:       k.GameTitle,
		Description: deref(k.GameDescription),
		ImageURL:    deref(k.GameImageLink),
		Color:       color,
		Fields:      fields,
	}
}

// keyPages lists keys without their values.
func keyPages(keys []store.GameKeyDetails, now time.Time) []paginate.Renderable {
	out := make([]paginate.Renderable, len(keys))
	for i, k := range keys {
		out[i] = keyPage{key: k, now: now}
	}
	return out
}

type keylistPage struct {
	list store.KeylistDetails
}

func (p keylistPage) Render() paginate.Page {
	access := "Owner"
	if p.list.AccessRight != "" {
		access = string(p.list.AccessRight)
	}
	return paginate.Page{
		Title:       p.list.Name,
		Description: deref(p.list.Description),
		Color:       colorKeylist,
		Fields: []paginate.Field{
			{Name: "Keys", Value: fmt.Sprint(p.list.KeyCount), Inline: true},
			{Name: "Access", Value: access, Inline: true},
		},
	}
}

func keylistPages(lists []store.KeylistDetails) []paginate.Renderable {
	out := make([]paginate.Renderable, len(lists))
	for i, l := range lists {
		out[i] = keylistPage{list: l}
	}
	return out
}

type rafflePage struct {
	raffle store.RaffleDetails
}

func (p rafflePage) Render() paginate.Page {
	r := p.raffle
	fields := []paginate.Field{
		{Name: "State", Value: string(r.State), Inline: true},
		{Name: "Keys", Value: fmt.Sprint(r.KeyCount), Inline: true},
		{Name: "Entries", Value: fmt.Sprint(r.EntryCount), Inline: true},
		{Name: "Winners", Value: fmt.Sprint(r.PossibleWinners), Inline: true},
		{Name: "Duration", Value: r.Duration().String(), Inline: true},
	}
	if r.EndAt != nil {
		fields = append(fields, paginate.Field{Name: "Ends", Value: discordTime(*r.EndAt), Inline: true})
	}
	return paginate.Page{
		Title:       r.Name,
		Description: deref(r.Description),
		ImageURL:    deref(r.ImageLink),
		Color:       colorRaffle,
		Fields:      fields,
	}
}

func rafflePages(raffles []store.RaffleDetails) []paginate.Renderable {
	out := make([]paginate.Renderable, len(raffles))
	for i, r := range raffles {
		out[i] = rafflePage{raffle: r}
	}
	return out
}

// discordTime formats t as a Discord timestamp that each client shows in its own zone.
func discordTime(t time.Time) string {
	return fmt.Sprintf("<t:%d:f>", t.Unix())
}

func mention(user int64) string { return fmt.Sprintf("<@%d>", user) }
