package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"detaltap/internal/domain"
	"detaltap/internal/present"
	"detaltap/internal/validate"
)

func (e *Engine) adminCommand(ctx context.Context, ev domain.Event) error {
	switch ev.Command {
	case "admin":
		if err := e.Gate.Authorize(ctx, ev.UserID, "admin"); err != nil {
			return err
		}
		e.reply(ctx, ev.UserID, present.AdminHelp())
		return nil
	case "list":
		page := 0
		if len(ev.Args) > 0 {
			page = validate.Page(ev.Args[0])
		}
		return e.adminList(ctx, ev, page)
	case "delete":
		if err := e.Gate.Authorize(ctx, ev.UserID, "delete"); err != nil {
			return err
		}
		id, ok := firstID(ev.Args)
		if !ok {
			e.reply(ctx, ev.UserID, domain.TextUnit("Usage: /delete <id>"))
			return nil
		}
		_, err := e.adminDelete(ctx, ev, id)
		return err
	case "ban":
		if err := e.Gate.Authorize(ctx, ev.UserID, "ban"); err != nil {
			return err
		}
		target, ok := firstID(ev.Args)
		if !ok {
			e.reply(ctx, ev.UserID, domain.TextUnit("Usage: /ban <userID> [reason]"))
			return nil
		}
		reason := strings.Join(ev.Args[1:], " ")
		if err := e.Gate.Ban(ctx, ev.UserID, target, reason); err != nil {
			return err
		}
		e.reply(ctx, ev.UserID, domain.TextUnit(fmt.Sprintf("🚫 User %d banned.", target)))
		return nil
	case "unban":
		if err := e.Gate.Authorize(ctx, ev.UserID, "unban"); err != nil {
			return err
		}
		target, ok := firstID(ev.Args)
		if !ok {
			e.reply(ctx, ev.UserID, domain.TextUnit("Usage: /unban <userID>"))
			return nil
		}
		if err := e.Gate.Unban(ctx, ev.UserID, target); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				e.reply(ctx, ev.UserID, domain.TextUnit(fmt.Sprintf("User %d is not banned.", target)))
				return nil
			}
			return err
		}
		e.reply(ctx, ev.UserID, domain.TextUnit(fmt.Sprintf("✅ User %d unbanned.", target)))
		return nil
	case "stats":
		s, err := e.Gate.Stats(ctx, ev.UserID)
		if err != nil {
			return err
		}
		e.reply(ctx, ev.UserID, e.Format.Stats(s))
		return nil
	}
	return nil
}

func (e *Engine) adminList(ctx context.Context, ev domain.Event, page int) error {
	ls, w, err := e.Gate.ListAll(ctx, ev.UserID, page, e.PageSize)
	if err != nil {
		return err
	}
	if w.Total == 0 {
		e.reply(ctx, ev.UserID, domain.TextUnit("No listings."))
		return nil
	}
	e.reply(ctx, ev.UserID, e.Format.AdminPage(ls, w))
	return nil
}

func (e *Engine) adminDelete(ctx context.Context, ev domain.Event, id int64) (string, error) {
	if err := e.Gate.Delete(ctx, ev.UserID, id); err != nil {
		return "", err
	}
	e.Metrics.ListingsDeleted.Inc()
	e.reply(ctx, ev.UserID, domain.TextUnit(fmt.Sprintf("🗑 Listing #%d deleted.", id)))
	return "Deleted", nil
}

func firstID(args []string) (int64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	return validate.ID(args[0])
}
