package telegram

import (
	"strings"

	"detaltap/internal/domain"
)

// EventFromUpdate decodes an update into an engine event. It reports false for
// updates the bot ignores: channel posts, messages without a sender, bots.
func EventFromUpdate(u Update) (domain.Event, bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		if cq.From.IsBot {
			return domain.Event{}, false
		}
		ev := base(cq.From)
		ev.Kind = domain.EventAction
		ev.Action = cq.Data
		ev.CallbackID = cq.ID
		return ev, true
	case u.Message != nil && u.Message.From != nil:
		m := u.Message
		if m.From.IsBot || (m.Chat.Type != "" && m.Chat.Type != "private") {
			return domain.Event{}, false
		}
		ev := base(*m.From)
		switch {
		case strings.HasPrefix(m.Text, "/"):
			ev.Kind = domain.EventCommand
			ev.Command, ev.Args = parseCommand(m.Text)
		case len(m.Photo) > 0:
			ev.Kind = domain.EventPhoto
			p := largest(m.Photo)
			ev.Photo = &domain.Photo{FileID: p.FileID, UniqueID: p.FileUniqueID}
			ev.Text = m.Caption
		case m.Document != nil && strings.HasPrefix(m.Document.MimeType, "image/"):
			ev.Kind = domain.EventPhoto
			ev.Photo = &domain.Photo{FileID: m.Document.FileID, UniqueID: m.Document.FileUniqueID}
			ev.Text = m.Caption
		case m.Text != "":
			ev.Kind = domain.EventText
			ev.Text = m.Text
		default:
			ev.Kind = domain.EventOther
		}
		return ev, true
	}
	return domain.Event{}, false
}

func base(from User) domain.Event {
	return domain.Event{
		UserID:   from.ID,
		Username: from.Username,
		FullName: strings.TrimSpace(from.FirstName + " " + from.LastName),
	}
}

// parseCommand splits "/cmd@bot a b" into "cmd" and its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), fields[1:]
}

func largest(ps []PhotoSize) PhotoSize {
	best := ps[0]
	for _, p := range ps[1:] {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best
}
