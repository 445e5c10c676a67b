package services

import (
	"context"
	"errors"

	"detaltap/internal/domain"
	applog "detaltap/internal/log"
	"detaltap/internal/present"
)

const (
	msgEmptyMarket    = "No parts uploaded yet. Be the first to upload!"
	msgSellerNotified = "✅ I notified the seller. They will contact you soon (or check their Telegram)."
	msgSellerHidden   = "Could not message seller. Seller may have privacy settings. Try browsing other listings or ask admin for help."
	msgOwnListing     = "This is your own listing."
)

func (e *Engine) browse(ctx context.Context, ev domain.Event, page int) error {
	total, err := e.Listings.Count(ctx)
	if err != nil {
		return err
	}
	if total == 0 {
		e.reply(ctx, ev.UserID, domain.TextUnit(msgEmptyMarket))
		return nil
	}
	w := present.Paginate(page, e.PageSize, total)
	if w.Offset >= total {
		// Stale button after deletions: show the last page instead.
		w = present.Paginate(w.Pages()-1, e.PageSize, total)
	}
	ls, err := e.Listings.Page(ctx, w.PageSize, w.Offset)
	if err != nil {
		return err
	}
	e.reply(ctx, ev.UserID, e.Format.Page(ls, w))
	return nil
}

func (e *Engine) view(ctx context.Context, ev domain.Event, id int64) error {
	l, err := e.Listings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	e.reply(ctx, ev.UserID, e.Format.Detail(*l))
	return nil
}

// contact notifies the seller of listing id. When the seller cannot be reached
// the buyer gets the seller's @username if there is one.
func (e *Engine) contact(ctx context.Context, ev domain.Event, id int64) (string, error) {
	if b, err := e.banned(ctx, ev); err != nil || b {
		return "", err
	}
	l, err := e.Listings.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if l.UploaderID == ev.UserID {
		e.reply(ctx, ev.UserID, domain.TextUnit(msgOwnListing))
		return "", nil
	}

	err = e.send(ctx, l.UploaderID, e.Format.SellerNotice(*l, ev.Handle()))
	switch {
	case err == nil:
		applog.Audit(ctx, "contact.notify", map[string]any{"listing_id": id, "seller": l.UploaderID})
		e.reply(ctx, ev.UserID, domain.TextUnit(msgSellerNotified))
		return "Seller notified", nil
	case errors.Is(err, domain.ErrDelivery):
		applog.Info(ctx, "contact.undeliverable", map[string]any{"listing_id": id, "seller": l.UploaderID})
		if l.UploaderName != "" {
			e.reply(ctx, ev.UserID, domain.TextUnit("Seller's username: @"+l.UploaderName+". You can message them directly."))
		} else {
			e.reply(ctx, ev.UserID, domain.TextUnit(msgSellerHidden))
		}
		return "", nil
	default:
		return "", err
	}
}
