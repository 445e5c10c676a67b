package telegram

import (
	"context"
	"io"
	"unicode/utf8"

	"detaltap/internal/domain"
	applog "detaltap/internal/log"
)

// MaxCaption is the Bot API limit for photo captions, in characters.
const MaxCaption = 1024

// Sender implements domain.Transport over the Bot API.
type Sender struct {
	Client *Client
	Images domain.ImageStore
}

func NewSender(c *Client, images domain.ImageStore) *Sender {
	return &Sender{Client: c, Images: images}
}

func keyboard(rows [][]domain.Button) *InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := &InlineKeyboardMarkup{InlineKeyboard: make([][]InlineKeyboardButton, 0, len(rows))}
	for _, row := range rows {
		r := make([]InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			r = append(r, InlineKeyboardButton{Text: b.Text, CallbackData: b.Action})
		}
		kb.InlineKeyboard = append(kb.InlineKeyboard, r)
	}
	return kb
}

// Send delivers u to userID. A unit with an image goes out as a photo; when the
// image cannot be read the text is sent alone.
func (s *Sender) Send(ctx context.Context, userID int64, u domain.Unit) error {
	mode := ""
	if u.Markdown {
		mode = "Markdown"
	}
	markup := keyboard(u.Buttons)

	if u.Image != "" && s.Images != nil {
		data, err := s.readImage(u.Image)
		if err != nil {
			applog.Error(ctx, "telegram.image.read", err, map[string]any{"ref": u.Image})
		} else {
			return s.sendPhoto(ctx, userID, u.Text, mode, markup, data)
		}
	}
	return s.Client.SendMessage(ctx, SendMessageRequest{ChatID: userID, Text: u.Text, ParseMode: mode, ReplyMarkup: markup})
}

func (s *Sender) sendPhoto(ctx context.Context, userID int64, text, mode string, markup *InlineKeyboardMarkup, data []byte) error {
	if utf8.RuneCountInString(text) <= MaxCaption {
		return s.Client.SendPhoto(ctx, userID, text, mode, markup, data)
	}
	// caption too long: photo first, then the text with the buttons
	if err := s.Client.SendPhoto(ctx, userID, "", "", nil, data); err != nil {
		return err
	}
	return s.Client.SendMessage(ctx, SendMessageRequest{ChatID: userID, Text: text, ParseMode: mode, ReplyMarkup: markup})
}

func (s *Sender) readImage(ref string) ([]byte, error) {
	rc, err := s.Images.Open(ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Sender) Answer(ctx context.Context, callbackID, text string) error {
	return s.Client.AnswerCallbackQuery(ctx, callbackID, text)
}

func (s *Sender) FetchImage(ctx context.Context, fileID string) ([]byte, error) {
	f, err := s.Client.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return s.Client.Download(ctx, f)
}
