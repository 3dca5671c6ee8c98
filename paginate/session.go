// Package paginate shows a fixed list of pages as one chat message with
// previous/next controls and edits that message in place as the controls are
// pressed. All per-page data must be fetched before a session starts, so
// rendering is pure formatting.
package paginate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNoPages is returned when a session is started without pages.
var ErrNoPages = errors.New("paginate: no pages")

// Field is one name/value pair of a page.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Page is one display unit.
type Page struct {
	Title       string
	Description string
	URL         string
	ImageURL    string
	Color       int
	Fields      []Field
	Footer      string
}

// Renderable produces the page for one item. Render must not perform I/O.
type Renderable interface {
	Render() Page
}

// Controls are the identifiers of a session's two buttons.
type Controls struct {
	Previous string
	Next     string
}

// State is the lifecycle position of a session.
type State int

const (
	Active State = iota
	TimedOut
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case TimedOut:
		return "timed_out"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session tracks the current page of one paginated message.
type Session struct {
	id       string
	pages    []Renderable
	index    int
	state    State
	controls Controls
}

// NewSession starts a session on the first page.
func NewSession(pages []Renderable) (*Session, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	id := uuid.NewString()
	return &Session{
		id:    id,
		pages: pages,
		controls: Controls{
			Previous: id + ":prev",
			Next:     id + ":next",
		},
	}, nil
}

func (s *Session) ID() string         { return s.id }
func (s *Session) Controls() Controls { return s.controls }
func (s *Session) Index() int         { return s.index }
func (s *Session) Len() int           { return len(s.pages) }
func (s *Session) State() State       { return s.state }

// Accepts reports whether a control id was minted for this session.
// Accepted ids that are neither control are still ignored by Handle.
func (s *Session) Accepts(controlID string) bool {
	return strings.HasPrefix(controlID, s.id+":")
}

// Next moves forward, wrapping from the last page to the first.
func (s *Session) Next() { s.index = (s.index + 1) % len(s.pages) }

// Previous moves back, wrapping from the first page to the last.
func (s *Session) Previous() { s.index = (s.index - 1 + len(s.pages)) % len(s.pages) }

// Handle applies a press and reports whether it changed the session.
// Presses on a timed out session and unknown ids are ignored.
func (s *Session) Handle(controlID string) bool {
	if s.state != Active {
		return false
	}
	switch controlID {
	case s.controls.Previous:
		s.Previous()
	case s.controls.Next:
		s.Next()
	default:
		return false
	}
	return true
}

// Expire moves the session to TimedOut. It is the only transition.
func (s *Session) Expire() { s.state = TimedOut }

// Current renders the current page with its position in the footer.
func (s *Session) Current() Page {
	p := s.pages[s.index].Render()
	pos := fmt.Sprintf("Page %d/%d", s.index+1, len(s.pages))
	if p.Footer == "" {
		p.Footer = pos
	} else {
		p.Footer = p.Footer + " • " + pos
	}
	return p
}
