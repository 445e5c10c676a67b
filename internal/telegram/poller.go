package telegram

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"detaltap/internal/domain"
	applog "detaltap/internal/log"
)

// Handler consumes decoded events. The engine satisfies it.
type Handler interface {
	Handle(ctx context.Context, ev domain.Event) error
}

// Poller feeds getUpdates batches to a Handler. Within a batch each user's
// updates run in order on their own goroutine; the next batch starts when the
// current one is done.
type Poller struct {
	Client  *Client
	Handler Handler
	Timeout int
	offset  int64
}

func NewPoller(c *Client, h Handler) *Poller {
	return &Poller{Client: c, Handler: h, Timeout: PollTimeout}
}

func (p *Poller) Run(ctx context.Context) error {
	if err := p.Client.DeleteWebhook(ctx); err != nil {
		applog.Error(ctx, "telegram.webhook.delete", err, nil)
	}
	applog.Info(ctx, "telegram.poll.start", nil)
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		updates, err := p.Client.GetUpdates(ctx, p.offset, p.Timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			applog.Error(ctx, "telegram.poll", err, map[string]any{"retry_in": backoff.String()})
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, 30*time.Second)
			continue
		}
		backoff = time.Second
		p.Dispatch(ctx, updates)
	}
}

// Dispatch handles one batch and advances the offset past it.
func (p *Poller) Dispatch(ctx context.Context, updates []Update) {
	var order []int64
	byUser := make(map[int64][]domain.Event)
	for _, u := range updates {
		if u.UpdateID >= p.offset {
			p.offset = u.UpdateID + 1
		}
		ev, ok := EventFromUpdate(u)
		if !ok {
			continue
		}
		if _, seen := byUser[ev.UserID]; !seen {
			order = append(order, ev.UserID)
		}
		byUser[ev.UserID] = append(byUser[ev.UserID], ev)
	}

	var g errgroup.Group
	for _, id := range order {
		events := byUser[id]
		g.Go(func() error {
			for _, ev := range events {
				// the engine reports failures to the user itself
				_ = p.Handler.Handle(ctx, ev)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Poller) Offset() int64 { return p.offset }
