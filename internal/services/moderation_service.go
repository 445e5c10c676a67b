package services

import (
	"context"
	"strings"
	"time"

	"detaltap/internal/domain"
	applog "detaltap/internal/log"
	"detaltap/internal/present"
	"detaltap/internal/validate"
)

// Gate authorises admin operations against a fixed admin id set and performs them.
// Every operation checks the actor first; a rejected call touches nothing.
type Gate struct {
	admins   map[int64]struct{}
	Listings domain.ListingStore
	Bans     domain.BanStore
	Sessions domain.SessionStore
	Now      func() time.Time
}

func NewGate(adminIDs []int64, listings domain.ListingStore, bans domain.BanStore, sessions domain.SessionStore) *Gate {
	m := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		m[id] = struct{}{}
	}
	return &Gate{admins: m, Listings: listings, Bans: bans, Sessions: sessions, Now: time.Now}
}

func (g *Gate) IsAdmin(userID int64) bool {
	_, ok := g.admins[userID]
	return ok
}

func (g *Gate) Authorize(ctx context.Context, userID int64, op string) error {
	if g.IsAdmin(userID) {
		return nil
	}
	applog.Security(ctx, "access.denied.admin", map[string]any{"actor": userID, "op": op})
	return domain.ErrUnauthorized
}

// ListAll returns one page of every listing, newest first.
func (g *Gate) ListAll(ctx context.Context, actor int64, page, pageSize int) ([]domain.Listing, present.Window, error) {
	if err := g.Authorize(ctx, actor, "list"); err != nil {
		return nil, present.Window{}, err
	}
	total, err := g.Listings.Count(ctx)
	if err != nil {
		return nil, present.Window{}, err
	}
	w := present.Paginate(page, pageSize, total)
	if total > 0 && w.Offset >= total {
		w = present.Paginate(w.Pages()-1, pageSize, total)
	}
	ls, err := g.Listings.Page(ctx, w.PageSize, w.Offset)
	if err != nil {
		return nil, w, err
	}
	return ls, w, nil
}

func (g *Gate) Delete(ctx context.Context, actor, listingID int64) error {
	if err := g.Authorize(ctx, actor, "delete"); err != nil {
		return err
	}
	if err := g.Listings.Delete(ctx, listingID); err != nil {
		return err
	}
	applog.Audit(ctx, "admin.listing.delete", map[string]any{"actor": actor, "listing_id": listingID})
	return nil
}

func (g *Gate) Stats(ctx context.Context, actor int64) (domain.Stats, error) {
	if err := g.Authorize(ctx, actor, "stats"); err != nil {
		return domain.Stats{}, err
	}
	s, err := g.Listings.Stats(ctx, g.Now())
	if err != nil {
		return s, err
	}
	if s.Bans, err = g.Bans.Count(ctx); err != nil {
		return s, err
	}
	if s.ActiveSessions, err = g.Sessions.Len(ctx); err != nil {
		return s, err
	}
	return s, nil
}

// Ban blocks target from uploading and contacting sellers and drops any flow they had open.
// Admins cannot be banned.
func (g *Gate) Ban(ctx context.Context, actor, target int64, reason string) error {
	if err := g.Authorize(ctx, actor, "ban"); err != nil {
		return err
	}
	if g.IsAdmin(target) {
		return domain.ValidationError{Field: "user_id", Value: target, Message: "admins cannot be banned"}
	}
	reason = validate.Clip(strings.TrimSpace(reason), validate.MaxReason)
	if err := g.Bans.Ban(ctx, domain.Ban{UserID: target, Reason: reason, BannedBy: actor}); err != nil {
		return err
	}
	if err := g.Sessions.Clear(ctx, target); err != nil {
		applog.Error(ctx, "admin.ban.session.clear.fail", err, map[string]any{"target": target})
	}
	applog.Audit(ctx, "admin.ban", map[string]any{"actor": actor, "target": target, "reason": reason})
	return nil
}

func (g *Gate) Unban(ctx context.Context, actor, target int64) error {
	if err := g.Authorize(ctx, actor, "unban"); err != nil {
		return err
	}
	if err := g.Bans.Unban(ctx, target); err != nil {
		return err
	}
	applog.Audit(ctx, "admin.unban", map[string]any{"actor": actor, "target": target})
	return nil
}

func (g *Gate) ListBans(ctx context.Context, actor int64) ([]domain.Ban, error) {
	if err := g.Authorize(ctx, actor, "bans"); err != nil {
		return nil, err
	}
	return g.Bans.List(ctx)
}

func (g *Gate) IsBanned(ctx context.Context, userID int64) (bool, error) {
	if g.IsAdmin(userID) {
		return false, nil
	}
	return g.Bans.IsBanned(ctx, userID)
}
