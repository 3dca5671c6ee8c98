// Package raffle draws raffle winners and closes raffles whose time is up.
package raffle

import (
	"math/rand/v2"

	"github.com/gemuki/bot/store"
)

// Assignment hands one pool key to one entrant.
type Assignment struct {
	Key    store.RaffleKey
	UserID int64
}

// Draw picks winners among entries. Each entrant wins at most once and each
// key is given at most once; at most min(len(keys), maxWinners, distinct
// entrants) assignments are made. maxWinners <= 0 means no cap beyond the
// pool size. Keys are handed out in pool order to the shuffled entrants.
func Draw(entries []int64, keys []store.RaffleKey, maxWinners int, rng *rand.Rand) []Assignment {
	seen := make(map[int64]struct{}, len(entries))
	entrants := make([]int64, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e]; dup {
			continue
		}
		seen[e] = struct{}{}
		entrants = append(entrants, e)
	}

	n := min(len(keys), len(entrants))
	if maxWinners > 0 {
		n = min(n, maxWinners)
	}
	if n == 0 {
		return nil
	}

	rng.Shuffle(len(entrants), func(i, j int) { entrants[i], entrants[j] = entrants[j], entrants[i] })
	out := make([]Assignment, n)
	for i := 0; i < n; i++ {
		out[i] = Assignment{Key: keys[i], UserID: entrants[i]}
	}
	return out
}

// Winners converts assignments into the rows FinishRaffle records.
func Winners(as []Assignment) []store.Winner {
	out := make([]store.Winner, len(as))
	for i, a := range as {
		out[i] = store.Winner{RaffleKeyID: a.Key.ID, GameKeyID: a.Key.GameKeyID, UserID: a.UserID}
	}
	return out
}
