package services

import (
	"context"

	"detaltap/internal/domain"
	applog "detaltap/internal/log"
	"detaltap/internal/validate"
)

var uploadPrompts = map[domain.Step]string{
	domain.StepAwaitingVIN:          "🔧 Upload flow started. Please enter the *VIN* code for the vehicle:",
	domain.StepAwaitingOEM:          "Now enter the *OEM code* for the part (or type `none`):",
	domain.StepAwaitingName:         "What is the *part name*? (e.g., 'Front Brake Pads')",
	domain.StepAwaitingDescription:  "Add a short *description* for the part (condition, notes):",
	domain.StepAwaitingPhoto:        "Finally, please *send a photo* of the part (clear photo).",
	domain.StepAwaitingConfirmation: "Please use the buttons above to confirm or cancel your listing.",
}

const (
	msgBadPrice    = "Please enter a valid numeric price (e.g. 120 or 99.50)."
	msgNeedText    = "Please answer with text."
	msgNeedPhoto   = "Please send a photo of the part as an image."
	msgUploaded    = "✅ Your part was uploaded successfully! Thanks — it will appear in Browse/Search."
	msgUploadGone  = "This upload is no longer active. Send /start to begin again."
	msgUploadAbort = "Upload cancelled."
)

func (e *Engine) prompt(step domain.Step) domain.Unit {
	text := uploadPrompts[step]
	if step == domain.StepAwaitingPrice {
		text = "Enter the *price* in " + e.Format.Currency + " (numbers only):"
	}
	return domain.Unit{Text: text, Markdown: true}
}

// startUpload opens a fresh upload, discarding whatever flow the user had open.
func (e *Engine) startUpload(ctx context.Context, ev domain.Event) error {
	if b, err := e.banned(ctx, ev); err != nil || b {
		return err
	}
	s := domain.NewUploadSession(ev.UserID, e.NewToken())
	s.Username = ev.Username
	if err := e.Sessions.Set(ctx, s); err != nil {
		return err
	}
	applog.Info(ctx, "upload.start", map[string]any{"token": s.Token})
	e.reply(ctx, ev.UserID, e.prompt(s.Step))
	return nil
}

func (e *Engine) uploadInput(ctx context.Context, ev domain.Event, s *domain.Session) error {
	switch s.Step {
	case domain.StepAwaitingPhoto:
		return e.acceptPhoto(ctx, ev, s)
	case domain.StepAwaitingConfirmation:
		e.reply(ctx, ev.UserID, e.prompt(s.Step))
		return nil
	}

	if ev.Kind != domain.EventText {
		e.reply(ctx, ev.UserID, domain.TextUnit(msgNeedText))
		return nil
	}

	switch s.Step {
	case domain.StepAwaitingVIN:
		v, ok := validate.VIN(ev.Text)
		if !ok {
			e.reply(ctx, ev.UserID, e.prompt(s.Step))
			return nil
		}
		s.Draft.VIN = v
	case domain.StepAwaitingOEM:
		v, ok := validate.OEM(ev.Text)
		if !ok {
			e.reply(ctx, ev.UserID, e.prompt(s.Step))
			return nil
		}
		s.Draft.OEM = v
	case domain.StepAwaitingName:
		v, ok := validate.Text(ev.Text, validate.MaxName)
		if !ok {
			e.reply(ctx, ev.UserID, e.prompt(s.Step))
			return nil
		}
		s.Draft.Name = v
	case domain.StepAwaitingPrice:
		p, ok := validate.Price(ev.Text)
		if !ok {
			applog.Debug(ctx, "upload.price.invalid", map[string]any{"input": validate.Clip(ev.Text, 32)})
			e.reply(ctx, ev.UserID, domain.TextUnit(msgBadPrice))
			return nil
		}
		s.Draft.Price = p
	case domain.StepAwaitingDescription:
		v, ok := validate.Text(ev.Text, validate.MaxDescription)
		if !ok {
			e.reply(ctx, ev.UserID, e.prompt(s.Step))
			return nil
		}
		s.Draft.Description = v
	default:
		return e.Sessions.Clear(ctx, ev.UserID)
	}

	s.Step = s.Step.Next()
	if err := e.Sessions.Set(ctx, s); err != nil {
		return err
	}
	e.reply(ctx, ev.UserID, e.prompt(s.Step))
	return nil
}

func (e *Engine) acceptPhoto(ctx context.Context, ev domain.Event, s *domain.Session) error {
	if ev.Kind != domain.EventPhoto || ev.Photo == nil {
		e.reply(ctx, ev.UserID, domain.TextUnit(msgNeedPhoto))
		return nil
	}
	data, err := e.Transport.FetchImage(ctx, ev.Photo.FileID)
	if err != nil {
		return err
	}
	ref, err := e.Images.Save(ctx, data)
	if err != nil {
		return err
	}
	s.Draft.PhotoRef = ref
	s.Step = domain.StepAwaitingConfirmation
	if err := e.Sessions.Set(ctx, s); err != nil {
		return err
	}
	e.reply(ctx, ev.UserID, e.Format.Confirmation(s.Draft))
	return nil
}

// confirmUpload commits the draft once. The insert is keyed by the session token,
// so a confirm replayed before the session was cleared returns the same listing.
func (e *Engine) confirmUpload(ctx context.Context, ev domain.Event) (string, error) {
	s, err := e.Sessions.Get(ctx, ev.UserID)
	if err != nil {
		return "", err
	}
	if s == nil || s.Step != domain.StepAwaitingConfirmation {
		return msgUploadGone, nil
	}
	if b, err := e.banned(ctx, ev); err != nil || b {
		if b {
			err = e.Sessions.Clear(ctx, ev.UserID)
		}
		return "", err
	}

	l := s.Listing(ev.UserID, e.Now().UTC())
	if l.UploaderName == "" {
		l.UploaderName = ev.Username
	}
	id, err := e.Listings.Create(ctx, &l)
	if err != nil {
		return "", err
	}
	if err := e.Sessions.Clear(ctx, ev.UserID); err != nil {
		applog.Error(ctx, "upload.session.clear.fail", err, map[string]any{"listing_id": id})
	}
	e.Metrics.ListingsCreated.Inc()
	applog.Audit(ctx, "listing.create", map[string]any{"listing_id": id, "token": s.Token})
	e.reply(ctx, ev.UserID, domain.TextUnit(msgUploaded))
	return "Uploaded", nil
}

func (e *Engine) cancelUpload(ctx context.Context, ev domain.Event) (string, error) {
	s, err := e.Sessions.Get(ctx, ev.UserID)
	if err != nil {
		return "", err
	}
	if s == nil || s.Flow() != domain.FlowUpload {
		return msgUploadGone, nil
	}
	if err := e.Sessions.Clear(ctx, ev.UserID); err != nil {
		return "", err
	}
	applog.Info(ctx, "upload.cancel", map[string]any{"step": string(s.Step)})
	e.reply(ctx, ev.UserID, domain.TextUnit(msgUploadAbort))
	return msgUploadAbort, nil
}
