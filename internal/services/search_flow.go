package services

import (
	"context"
	"errors"

	"detaltap/internal/domain"
	applog "detaltap/internal/log"
	"detaltap/internal/present"
	"detaltap/internal/validate"
)

var queryPrompts = map[domain.SearchMode]string{
	domain.SearchKeyword: "Enter name or keyword:",
	domain.SearchVIN:     "Enter VIN (exact match):",
	domain.SearchOEM:     "Enter OEM code (exact match):",
}

const (
	msgNoResults     = "No results found."
	msgNoPriceResult = "No parts found in that price range."
	msgBadMin        = "Please enter a valid number for minimum price."
	msgBadMax        = "Please enter a valid number for maximum price."
	msgChooseMode    = "Please choose a search option from the buttons."
	msgSearchExpired = "That search is no longer active. Send /start to begin again."
)

func (e *Engine) startSearch(ctx context.Context, ev domain.Event) error {
	s := domain.NewSearchSession(ev.UserID, e.NewToken())
	if err := e.Sessions.Set(ctx, s); err != nil {
		return err
	}
	e.reply(ctx, ev.UserID, present.SearchMenu())
	return nil
}

// searchSession returns the user's search session, opening one when the mode
// buttons are pressed from an older menu message.
func (e *Engine) searchSession(ctx context.Context, userID int64) (*domain.Session, error) {
	s, err := e.Sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Flow() != domain.FlowSearch {
		s = domain.NewSearchSession(userID, e.NewToken())
	}
	return s, nil
}

func (e *Engine) chooseMode(ctx context.Context, ev domain.Event, mode domain.SearchMode) error {
	s, err := e.searchSession(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if err := s.EnterQuery(mode); err != nil {
		return err
	}
	if err := e.Sessions.Set(ctx, s); err != nil {
		return err
	}
	e.reply(ctx, ev.UserID, domain.TextUnit(queryPrompts[mode]))
	return nil
}

func (e *Engine) choosePriceRange(ctx context.Context, ev domain.Event) error {
	s, err := e.searchSession(ctx, ev.UserID)
	if err != nil {
		return err
	}
	s.Mode = ""
	s.Step = domain.StepAwaitingPriceMin
	if err := e.Sessions.Set(ctx, s); err != nil {
		return err
	}
	e.reply(ctx, ev.UserID, domain.TextUnit("Enter minimum price ("+e.Format.Currency+"):"))
	return nil
}

func (e *Engine) backToMenu(ctx context.Context, ev domain.Event) error {
	s, err := e.Sessions.Get(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if s != nil && s.Flow() == domain.FlowSearch {
		if err := e.Sessions.Clear(ctx, ev.UserID); err != nil {
			return err
		}
	}
	e.reply(ctx, ev.UserID, present.MainMenu())
	return nil
}

func (e *Engine) searchInput(ctx context.Context, ev domain.Event, s *domain.Session) error {
	if s.Step == domain.StepChoosingMode {
		e.reply(ctx, ev.UserID, domain.TextUnit(msgChooseMode))
		return nil
	}
	if ev.Kind != domain.EventText {
		e.reply(ctx, ev.UserID, domain.TextUnit(msgNeedText))
		return nil
	}

	switch s.Step {
	case domain.StepAwaitingQuery:
		return e.runQuery(ctx, ev, s)
	case domain.StepAwaitingPriceMin:
		min, ok := validate.Price(ev.Text)
		if !ok {
			e.reply(ctx, ev.UserID, domain.TextUnit(msgBadMin))
			return nil
		}
		s.PriceMin = min
		s.Step = domain.StepAwaitingPriceMax
		if err := e.Sessions.Set(ctx, s); err != nil {
			return err
		}
		e.reply(ctx, ev.UserID, domain.TextUnit("Enter maximum price ("+e.Format.Currency+"):"))
		return nil
	case domain.StepAwaitingPriceMax:
		max, ok := validate.Price(ev.Text)
		if !ok {
			e.reply(ctx, ev.UserID, domain.TextUnit(msgBadMax))
			return nil
		}
		ls, err := e.catalog.PriceRange(ctx, s.PriceMin, max)
		if err != nil {
			return err
		}
		return e.finishSearch(ctx, ev, ls, msgNoPriceResult)
	}
	return e.Sessions.Clear(ctx, ev.UserID)
}

// runQuery dispatches on the mode fixed when the session entered AwaitingQuery.
// A session without a valid mode is corrupt and dropped.
func (e *Engine) runQuery(ctx context.Context, ev domain.Event, s *domain.Session) error {
	if !s.Mode.Valid() {
		applog.Error(ctx, "search.session.corrupt", errors.New("missing search mode"), map[string]any{"mode": string(s.Mode)})
		if err := e.Sessions.Clear(ctx, ev.UserID); err != nil {
			return err
		}
		e.reply(ctx, ev.UserID, domain.TextUnit(msgSearchExpired))
		return nil
	}
	q, ok := validate.Q(ev.Text)
	if !ok {
		e.reply(ctx, ev.UserID, domain.TextUnit(queryPrompts[s.Mode]))
		return nil
	}

	ls, err := e.catalog.Search(ctx, s.Mode, q)
	if err != nil {
		return err
	}
	return e.finishSearch(ctx, ev, ls, msgNoResults)
}

// finishSearch clears the session and delivers at most MaxResults cards.
func (e *Engine) finishSearch(ctx context.Context, ev domain.Event, ls []domain.Listing, empty string) error {
	if err := e.Sessions.Clear(ctx, ev.UserID); err != nil {
		return err
	}
	if len(ls) == 0 {
		e.reply(ctx, ev.UserID, domain.TextUnit(empty))
		return nil
	}
	total := len(ls)
	if total > e.MaxResults {
		ls = ls[:e.MaxResults]
	}
	e.reply(ctx, ev.UserID, present.ResultsHeader(len(ls), total))
	e.replyAll(ctx, ev.UserID, e.Format.Cards(ls))
	return nil
}
