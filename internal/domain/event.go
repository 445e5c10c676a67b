package domain

import (
	"fmt"
	"strings"
)

type EventKind int

const (
	EventText EventKind = iota + 1
	EventPhoto
	EventAction
	EventCommand
	// EventOther covers stickers, voice notes and anything else the flows do not accept.
	EventOther
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventPhoto:
		return "photo"
	case EventAction:
		return "action"
	case EventCommand:
		return "command"
	default:
		return "other"
	}
}

type Photo struct {
	FileID   string
	UniqueID string
}

// Event is one inbound interaction from a user, already decoded from the transport.
type Event struct {
	Kind     EventKind
	UserID   int64
	Username string
	FullName string

	Text    string
	Command string
	Args    []string

	Action     string
	CallbackID string

	Photo *Photo
}

// Handle identifies the user to another user: @username, or full name with id.
func (e Event) Handle() string {
	if e.Username != "" {
		return "@" + e.Username
	}
	name := strings.TrimSpace(e.FullName)
	if name == "" {
		name = "user"
	}
	return fmt.Sprintf("%s (id:%d)", name, e.UserID)
}

type Button struct {
	Text   string `json:"text"`
	Action string `json:"action"`
}

// Unit is one transport-ready message: text, an optional stored image and button rows.
type Unit struct {
	Text     string     `json:"text"`
	Image    string     `json:"image,omitempty"`
	Buttons  [][]Button `json:"buttons,omitempty"`
	Markdown bool       `json:"markdown,omitempty"`
}

func TextUnit(text string) Unit { return Unit{Text: text} }
