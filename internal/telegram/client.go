package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"detaltap/internal/domain"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	// PollTimeout is the long-polling wait passed to getUpdates, in seconds.
	PollTimeout = 30
	// MaxFileSize is the largest file the Bot API lets bots download.
	MaxFileSize = 20 << 20
)

// APIError is a non-OK Bot API reply.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: status=%d: %s", e.StatusCode, e.Description)
}

// Is reports recipient-side failures as domain.ErrDelivery.
func (e *APIError) Is(target error) bool {
	if target != domain.ErrDelivery {
		return false
	}
	if e.StatusCode == http.StatusForbidden {
		return true
	}
	d := strings.ToLower(e.Description)
	return strings.Contains(d, "chat not found") || strings.Contains(d, "user is deactivated")
}

// Client is a Bot API client with retries on network errors, 429 and 5xx.
type Client struct {
	token    string
	baseURL  string
	http     *http.Client
	pipeline failsafe.Executor[*http.Response]
}

func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	retryPolicy := retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled)
			}
			return resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		}).
		WithBackoff(100*time.Millisecond, 2*time.Second).
		WithMaxRetries(3).
		Build()

	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		// long polls hold the connection for PollTimeout seconds
		http:     &http.Client{Timeout: (PollTimeout + 15) * time.Second},
		pipeline: failsafe.With[*http.Response](retryPolicy),
	}
}

func (c *Client) methodURL(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

// do runs one request through the retry pipeline. newReq is called per attempt
// so request bodies are fresh on every retry.
func (c *Client) do(newReq func() (*http.Request, error)) ([]byte, int, error) {
	resp, err := c.pipeline.GetWithExecution(func(exec failsafe.Execution[*http.Response]) (*http.Response, error) {
		req, err := newReq()
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		// buffer so discarded attempts do not leak connections
		body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileSize+1))
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp, nil
	})
	if resp == nil {
		if err == nil {
			err = errors.New("empty response")
		}
		return nil, 0, fmt.Errorf("telegram request failed: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	return body, resp.StatusCode, nil
}

func (c *Client) decode(body []byte, status int, out any) error {
	var r apiResponse
	if err := json.Unmarshal(body, &r); err != nil {
		if status >= 400 {
			return &APIError{StatusCode: status, Description: string(body)}
		}
		return fmt.Errorf("telegram: decode response: %w", err)
	}
	if !r.OK {
		code := r.ErrorCode
		if code == 0 {
			code = status
		}
		return &APIError{StatusCode: code, Description: r.Description}
	}
	if out != nil && len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, out); err != nil {
			return fmt.Errorf("telegram: decode result: %w", err)
		}
	}
	return nil
}

// call posts payload as JSON to a Bot API method and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal %s: %w", method, err)
	}
	resp, status, err := c.do(func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	return c.decode(resp, status, out)
}

func (c *Client) SendMessage(ctx context.Context, m SendMessageRequest) error {
	return c.call(ctx, "sendMessage", m, nil)
}

// SendPhoto uploads image bytes with an optional caption and keyboard.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, caption, parseMode string, markup *InlineKeyboardMarkup, image []byte) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{"chat_id": strconv.FormatInt(chatID, 10)}
	if caption != "" {
		fields["caption"] = caption
		if parseMode != "" {
			fields["parse_mode"] = parseMode
		}
	}
	if markup != nil {
		b, err := json.Marshal(markup)
		if err != nil {
			return fmt.Errorf("telegram: marshal markup: %w", err)
		}
		fields["reply_markup"] = string(b)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("photo", "photo.jpg")
	if err != nil {
		return err
	}
	if _, err := part.Write(image); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	payload := buf.Bytes()

	resp, status, err := c.do(func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendPhoto"), bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	})
	if err != nil {
		return err
	}
	return c.decode(resp, status, nil)
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, id, text string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{"callback_query_id": id, "text": text}, nil)
}

// GetUpdates long-polls for updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	var out []Update
	err := c.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         timeout,
		"allowed_updates": []string{"message", "callback_query"},
	}, &out)
	return out, err
}

func (c *Client) GetFile(ctx context.Context, fileID string) (File, error) {
	var f File
	err := c.call(ctx, "getFile", map[string]string{"file_id": fileID}, &f)
	return f, err
}

// Download fetches a file previously resolved with GetFile.
func (c *Client) Download(ctx context.Context, f File) ([]byte, error) {
	if f.FilePath == "" {
		return nil, fmt.Errorf("telegram: file %s has no path", f.FileID)
	}
	if f.FileSize > MaxFileSize {
		return nil, domain.ValidationError{Field: "photo", Value: f.FileSize, Message: "image is too large"}
	}
	body, status, err := c.do(func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/file/bot"+c.token+"/"+f.FilePath, nil)
	})
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, &APIError{StatusCode: status, Description: "file download failed"}
	}
	if len(body) > MaxFileSize {
		return nil, domain.ValidationError{Field: "photo", Value: len(body), Message: "image is too large"}
	}
	return body, nil
}

func (c *Client) SetWebhook(ctx context.Context, url, secret string) error {
	return c.call(ctx, "setWebhook", map[string]any{
		"url":             url,
		"secret_token":    secret,
		"allowed_updates": []string{"message", "callback_query"},
	}, nil)
}

func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", map[string]any{}, nil)
}
