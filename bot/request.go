package bot

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gemuki/bot/paginate"
)

// Request is one command invocation with its options flattened.
// Option values use the gateway's JSON types: string, float64 or bool.
type Request struct {
	Command   string // "game list", "statistics"
	UserID    int64
	GuildID   string
	ChannelID string
	Options   map[string]any
	// Focused names the option being autocompleted.
	Focused string
}

// InGuild reports whether the request was sent from a server channel.
func (r *Request) InGuild() bool { return r.GuildID != "" }

// String returns the trimmed string option, or "".
func (r *Request) String(name string) string {
	v, _ := r.Options[name].(string)
	return strings.TrimSpace(v)
}

// OptString returns the string option or nil when it is absent or blank.
func (r *Request) OptString(name string) *string {
	v := r.String(name)
	if v == "" {
		return nil
	}
	return &v
}

// Int returns the integer option and whether it was present.
func (r *Request) Int(name string) (int64, bool) {
	switch v := r.Options[name].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// RequiredString returns a non-blank string option or a ValidationError.
func (r *Request) RequiredString(name string) (string, error) {
	v := r.String(name)
	if v == "" {
		return "", invalid("Option `%s` is required.", name)
	}
	return v, nil
}

// RequiredInt returns an integer option or a ValidationError.
func (r *Request) RequiredInt(name string) (int64, error) {
	v, ok := r.Int(name)
	if !ok {
		return 0, invalid("Option `%s` must be a number.", name)
	}
	return v, nil
}

// User returns a user option as an id.
func (r *Request) User(name string) (int64, error) {
	v := r.String(name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("Option `%s` must be a user.", name)
	}
	return id, nil
}

// Link returns an optional http(s) URL option.
func (r *Request) Link(name string) (*string, error) {
	v := r.OptString(name)
	if v == nil {
		return nil, nil
	}
	if err := validateURL(*v); err != nil {
		return nil, invalid("Option `%s` must be an http or https link.", name)
	}
	return v, nil
}

// Date returns an optional YYYY-MM-DD date option at midnight UTC.
func (r *Request) Date(name string) (*time.Time, error) {
	v := r.OptString(name)
	if v == nil {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, *v)
	if err != nil {
		return nil, invalid("Option `%s` must be a date like 2025-12-31.", name)
	}
	return &t, nil
}

func validateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errInvalidURL
	}
	return nil
}

var errInvalidURL = errors.New("url must be absolute http or https")

// Response is what a handler produces. Exactly one of Content, Page or Pages is
// normally set; Content may accompany Page.
type Response struct {
	Content string
	Page    *paginate.Page
	// Pages are shown through an interactive paginator. Handlers never return an
	// empty Pages slice; they reply with Content instead.
	Pages      []paginate.Renderable
	Components []discordgo.MessageComponent
}

func text(s string) (Response, error) { return Response{Content: s}, nil }

// Handler serves one subcommand.
type Handler func(ctx context.Context, r *Request) (Response, error)
