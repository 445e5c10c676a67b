package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"detaltap/internal/domain"
	applog "detaltap/internal/log"
	"detaltap/internal/metrics"
	"detaltap/internal/present"
	"detaltap/internal/validate"
)

const (
	msgGenericFailure = "Something went wrong. Please try again."
	msgNotFound       = "Part not found."
	msgDenied         = "⛔ Access denied."
	msgBanned         = "🚫 Your account is restricted. You can browse and search, but not upload or contact sellers."
	msgUnknownCommand = "Unknown command. Send /help to see what I can do."
)

type EngineDeps struct {
	Listings  domain.ListingStore
	Sessions  domain.SessionStore
	Transport domain.Transport
	Images    domain.ImageStore
	Gate      *Gate
	Format    *present.Formatter
	Metrics   *metrics.Metrics
	Throttle  *Throttle // optional

	PageSize   int
	MaxResults int
	NewToken   func() string
	Now        func() time.Time
}

// Engine drives the upload and search conversations. Events from one user are
// handled one at a time; events from different users run concurrently.
type Engine struct {
	EngineDeps
	catalog *CatalogService
	locks   *userLocks
}

func NewEngine(d EngineDeps) *Engine {
	if d.Format == nil {
		d.Format = present.New("")
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New(nil)
	}
	if d.PageSize <= 0 {
		d.PageSize = 5
	}
	if d.MaxResults <= 0 {
		d.MaxResults = 20
	}
	if d.NewToken == nil {
		d.NewToken = uuid.NewString
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Engine{EngineDeps: d, catalog: NewCatalogService(d.Listings, d.Metrics), locks: newUserLocks()}
}

// Handle processes one inbound event. Failures are reported to the user and
// returned for logging; they never escape as panics.
func (e *Engine) Handle(ctx context.Context, ev domain.Event) (err error) {
	ctx = applog.WithUserID(ctx, ev.UserID)
	e.Metrics.Events.WithLabelValues(ev.Kind.String()).Inc()

	if e.Throttle != nil && !e.Throttle.Allow(ev.UserID) {
		e.Metrics.Throttled.Inc()
		applog.Security(ctx, "rate.user.hit", map[string]any{"kind": ev.Kind.String()})
		e.answer(ctx, ev, "Slow down a little, please.")
		return nil
	}

	unlock := e.locks.lock(ev.UserID)
	defer unlock()

	ack := ""
	defer func() {
		if r := recover(); r != nil {
			e.Metrics.HandlerPanics.Inc()
			err = fmt.Errorf("panic: %v", r)
			applog.Error(ctx, "engine.panic", err, map[string]any{"kind": ev.Kind.String()})
			e.reply(ctx, ev.UserID, domain.TextUnit(msgGenericFailure))
		}
		e.answer(ctx, ev, ack)
	}()

	switch ev.Kind {
	case domain.EventCommand:
		ack, err = e.command(ctx, ev)
	case domain.EventAction:
		ack, err = e.action(ctx, ev)
	default:
		err = e.input(ctx, ev)
	}
	if err != nil {
		e.fail(ctx, ev, err)
	}
	return err
}

func (e *Engine) command(ctx context.Context, ev domain.Event) (string, error) {
	switch ev.Command {
	case "start":
		if err := e.Sessions.Clear(ctx, ev.UserID); err != nil {
			return "", err
		}
		e.reply(ctx, ev.UserID, present.MainMenu())
	case "cancel":
		return "", e.abandon(ctx, ev)
	case "help":
		e.reply(ctx, ev.UserID, present.Help(e.Gate.IsAdmin(ev.UserID)))
	case "admin", "list", "delete", "ban", "unban", "stats":
		return "", e.adminCommand(ctx, ev)
	default:
		e.reply(ctx, ev.UserID, domain.TextUnit(msgUnknownCommand))
	}
	return "", nil
}

func (e *Engine) action(ctx context.Context, ev domain.Event) (string, error) {
	name, arg, hasArg := present.ParseAction(ev.Action)
	switch {
	case name == present.ActBrowse && hasArg:
		return "", e.browse(ctx, ev, validate.PageNumber(arg))
	case name == present.ActView && hasArg:
		return "", e.view(ctx, ev, arg)
	case name == present.ActContact && hasArg:
		return e.contact(ctx, ev, arg)
	case name == present.ActAdminList && hasArg:
		return "", e.adminList(ctx, ev, validate.PageNumber(arg))
	case name == present.ActAdminDelete && hasArg:
		return e.adminDelete(ctx, ev, arg)
	}
	switch ev.Action {
	case present.ActUpload:
		return "", e.startUpload(ctx, ev)
	case present.ActConfirmUpload:
		return e.confirmUpload(ctx, ev)
	case present.ActCancelUpload:
		return e.cancelUpload(ctx, ev)
	case present.ActSearch:
		return "", e.startSearch(ctx, ev)
	case present.ActSearchName:
		return "", e.chooseMode(ctx, ev, domain.SearchKeyword)
	case present.ActSearchVIN:
		return "", e.chooseMode(ctx, ev, domain.SearchVIN)
	case present.ActSearchOEM:
		return "", e.chooseMode(ctx, ev, domain.SearchOEM)
	case present.ActSearchPrice:
		return "", e.choosePriceRange(ctx, ev)
	case present.ActBackMenu:
		return "", e.backToMenu(ctx, ev)
	}
	applog.Debug(ctx, "engine.action.unknown", map[string]any{"action": ev.Action})
	return "", nil
}

// input routes free text, photos and anything else to the user's open flow.
// With no open flow the event is ignored.
func (e *Engine) input(ctx context.Context, ev domain.Event) error {
	s, err := e.Sessions.Get(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if s == nil {
		applog.Debug(ctx, "engine.input.idle", map[string]any{"kind": ev.Kind.String()})
		return nil
	}
	switch s.Flow() {
	case domain.FlowUpload:
		return e.uploadInput(ctx, ev, s)
	case domain.FlowSearch:
		return e.searchInput(ctx, ev, s)
	}
	applog.Error(ctx, "engine.session.corrupt", errors.New("unknown step"), map[string]any{"step": string(s.Step)})
	return e.Sessions.Clear(ctx, ev.UserID)
}

func (e *Engine) abandon(ctx context.Context, ev domain.Event) error {
	s, err := e.Sessions.Get(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if s == nil {
		e.reply(ctx, ev.UserID, domain.TextUnit("Nothing to cancel."))
		return nil
	}
	if err := e.Sessions.Clear(ctx, ev.UserID); err != nil {
		return err
	}
	applog.Info(ctx, "session.abandon", map[string]any{"flow": string(s.Flow()), "step": string(s.Step)})
	e.reply(ctx, ev.UserID, domain.TextUnit("Cancelled. Send /start to see the menu."))
	return nil
}

// banned reports whether ev's user may not upload or contact sellers, telling them if so.
func (e *Engine) banned(ctx context.Context, ev domain.Event) (bool, error) {
	b, err := e.Gate.IsBanned(ctx, ev.UserID)
	if err != nil {
		return false, err
	}
	if b {
		applog.Security(ctx, "banned.user.blocked", nil)
		e.reply(ctx, ev.UserID, domain.TextUnit(msgBanned))
	}
	return b, nil
}

// send delivers u to userID and counts delivery failures.
func (e *Engine) send(ctx context.Context, userID int64, u domain.Unit) error {
	err := e.Transport.Send(ctx, userID, u)
	if errors.Is(err, domain.ErrDelivery) {
		e.Metrics.DeliveryFailures.Inc()
	}
	return err
}

// reply sends to the acting user; a failure has nowhere else to go but the log.
func (e *Engine) reply(ctx context.Context, userID int64, u domain.Unit) {
	if err := e.send(ctx, userID, u); err != nil {
		applog.Error(ctx, "transport.reply.fail", err, map[string]any{"to": userID})
	}
}

func (e *Engine) replyAll(ctx context.Context, userID int64, us []domain.Unit) {
	for _, u := range us {
		e.reply(ctx, userID, u)
	}
}

func (e *Engine) answer(ctx context.Context, ev domain.Event, text string) {
	if ev.CallbackID == "" {
		return
	}
	if err := e.Transport.Answer(ctx, ev.CallbackID, text); err != nil {
		applog.Debug(ctx, "transport.answer.fail", map[string]any{"err": err.Error()})
	}
}

// fail tells the user what went wrong without leaking internals.
func (e *Engine) fail(ctx context.Context, ev domain.Event, err error) {
	var ve domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		e.reply(ctx, ev.UserID, domain.TextUnit(msgNotFound))
	case errors.Is(err, domain.ErrUnauthorized):
		e.reply(ctx, ev.UserID, domain.TextUnit(msgDenied))
	case errors.As(err, &ve):
		e.reply(ctx, ev.UserID, domain.TextUnit("⚠️ "+ve.Message))
	default:
		applog.Error(ctx, "engine.event.fail", err, map[string]any{"kind": ev.Kind.String(), "action": ev.Action, "command": ev.Command})
		e.reply(ctx, ev.UserID, domain.TextUnit(msgGenericFailure))
	}
}
