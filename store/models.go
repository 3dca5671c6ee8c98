package store

import "time"

// Keystate marks whether a license key has been claimed.
type Keystate string

const (
	KeyUnused Keystate = "Unused"
	KeyUsed   Keystate = "Used"
)

// Valid reports whether k is a known keystate.
func (k Keystate) Valid() bool { return k == KeyUnused || k == KeyUsed }

// AccessRight is the level of access granted on a shared keylist.
type AccessRight string

const (
	AccessRead  AccessRight = "Read"
	AccessWrite AccessRight = "Write"
	AccessFull  AccessRight = "Full"
	AccessAdmin AccessRight = "Admin"
)

// Valid reports whether a is a known access right.
func (a AccessRight) Valid() bool {
	switch a {
	case AccessRead, AccessWrite, AccessFull, AccessAdmin:
		return true
	}
	return false
}

// CanWrite reports whether the right allows adding or removing keys.
func (a AccessRight) CanWrite() bool { return a == AccessWrite || a == AccessFull || a == AccessAdmin }

// CanShare reports whether the right allows granting and revoking access for others.
func (a AccessRight) CanShare() bool { return a == AccessAdmin }

// KeylistOrigin selects which keylists a listing returns.
type KeylistOrigin string

const (
	OriginAll      KeylistOrigin = "All"
	OriginOwned    KeylistOrigin = "Owned"
	OriginAssigned KeylistOrigin = "Assigned"
)

// RaffleState is the lifecycle position of a raffle.
type RaffleState string

const (
	RaffleCreated RaffleState = "Created"
	RaffleRunning RaffleState = "Running"
	RaffleEnded   RaffleState = "Ended"
	RaffleAborted RaffleState = "Aborted"
)

// Audit holds the create/modify bookkeeping columns shared by most tables.
type Audit struct {
	CreateDate   time.Time  `db:"create_date"`
	CreateUserID int64      `db:"create_user_id"`
	ModifyDate   *time.Time `db:"modify_date"`
	ModifyUserID *int64     `db:"modify_user_id"`
}

type Platform struct {
	ID        int64   `db:"id"`
	Name      string  `db:"name"`
	StoreLink *string `db:"store_link"`
}

type Game struct {
	ID          int64   `db:"id"`
	Title       string  `db:"title"`
	Description *string `db:"description"`
	ImageLink   *string `db:"image_link"`
	Audit
}

// GameDetails is a game with the number of its unused keys.
type GameDetails struct {
	Game
	KeyCount int64 `db:"key_count"`
}

type GameKey struct {
	ID             int64      `db:"id"`
	GameID         int64      `db:"game_id"`
	PlatformID     int64      `db:"platform_id"`
	Value          string     `db:"value"`
	Keystate       Keystate   `db:"keystate"`
	PageLink       *string    `db:"page_link"`
	Notes          *string    `db:"notes"`
	OwnerID        int64      `db:"owner_id"`
	ExpirationDate *time.Time `db:"expiration_date"`
	Audit
}

// Expired reports whether the key has an expiration date before now.
func (k GameKey) Expired(now time.Time) bool {
	return k.ExpirationDate != nil && k.ExpirationDate.Before(now)
}

// GameKeyDetails is a key joined with its game and platform.
type GameKeyDetails struct {
	GameKey
	GameTitle       string  `db:"game_title"`
	GameDescription *string `db:"game_description"`
	GameImageLink   *string `db:"game_image_link"`
	PlatformName    string  `db:"platform_name"`
}

// KeyFilter narrows ListGameKeyDetails. Zero values match everything.
type KeyFilter struct {
	State    Keystate
	Platform string
}

type Keylist struct {
	ID          int64   `db:"id"`
	Name        string  `db:"name"`
	Description *string `db:"description"`
	OwnerID     int64   `db:"owner_id"`
	Audit
}

// KeylistDetails is a keylist with its key count and the caller's access right
// (empty when the caller owns it).
type KeylistDetails struct {
	Keylist
	KeyCount    int64       `db:"key_count"`
	AccessRight AccessRight `db:"access_right"`
}

// Owned reports whether the caller owns the keylist.
func (l KeylistDetails) Owned() bool { return l.AccessRight == "" }

type KeylistAccess struct {
	ID           int64       `db:"id"`
	KeylistID    int64       `db:"keylist_id"`
	TargetUserID int64       `db:"target_user_id"`
	AccessRight  AccessRight `db:"access_right"`
	Audit
}

type Raffle struct {
	ID                int64       `db:"id"`
	Name              string      `db:"name"`
	Description       *string     `db:"description"`
	ImageLink         *string     `db:"image_link"`
	OwnerID           int64       `db:"owner_id"`
	State             RaffleState `db:"state"`
	ChannelID         *string     `db:"channel_id"`
	MessageID         *string     `db:"message_id"`
	StartAt           *time.Time  `db:"start_at"`
	EndAt             *time.Time  `db:"end_at"`
	DurationInSeconds int64       `db:"duration_in_seconds"`
	PossibleWinners   int         `db:"possible_winners"`
	Audit
}

// Duration returns the configured running time of the raffle.
func (r Raffle) Duration() time.Duration { return time.Duration(r.DurationInSeconds) * time.Second }

// RaffleDetails is a raffle with its key and entry counts.
type RaffleDetails struct {
	Raffle
	KeyCount   int64 `db:"key_count"`
	EntryCount int64 `db:"entry_count"`
}

// RaffleKey is a key in a raffle pool joined with its game and platform.
type RaffleKey struct {
	ID           int64  `db:"id"`
	RaffleID     int64  `db:"key_raffle_id"`
	GameKeyID    int64  `db:"gamekey_id"`
	Value        string `db:"value"`
	GameTitle    string `db:"game_title"`
	PlatformName string `db:"platform_name"`
}

// Winner assigns one raffle key to one entrant.
type Winner struct {
	RaffleKeyID int64
	GameKeyID   int64
	UserID      int64
}

// KeyStats summarizes key counts.
type KeyStats struct {
	Total  int64 `db:"total" json:"total"`
	Unused int64 `db:"unused" json:"unused"`
	Used   int64 `db:"used" json:"used"`
}

// DeleteResult reports how many rows a cascading delete removed.
type DeleteResult struct {
	Keys  int64
	Games int64
}
