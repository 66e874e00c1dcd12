package renderworker

import (
	"context"
	"errors"
	"sync"

	"github.com/cryguy/renderworker/internal/core"
)

// acceptedBuffer is how many fresh results Accepted holds before the oldest
// is replaced.
const acceptedBuffer = 4

// Client drives a Session and delivers only fresh results.
type Client struct {
	session  *Session
	gate     Gate
	accepted chan RenderResult
	ready    chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	lastErr string
}

// NewClient starts a session with opts and begins consuming its outbox.
func NewClient(ctx context.Context, opts Options) *Client {
	c := &Client{
		session:  Start(ctx, opts),
		accepted: make(chan RenderResult, acceptedBuffer),
		ready:    make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.consume()
	return c
}

// Session returns the underlying session.
func (c *Client) Session() *Session { return c.session }

// Ready is closed once the session has emitted ready.
func (c *Client) Ready() <-chan struct{} { return c.ready }

// Done is closed when the session has stopped and Accepted is closed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Accepted carries results whose id was the latest issued one when they
// arrived. It is closed when the session stops.
func (c *Client) Accepted() <-chan RenderResult { return c.accepted }

// Latest returns the last accepted result.
func (c *Client) Latest() (RenderResult, bool) { return c.gate.Latest() }

// Render issues a new id for code and sends the request. Every result for
// an earlier id is discarded from now on.
func (c *Client) Render(ctx context.Context, code string) (int64, error) {
	id := c.gate.Issue()
	err := c.session.Send(ctx, Message{Type: MessageRenderRequest, ID: id, Code: code})
	return id, err
}

// PurgeCache asks the session to drop its resource cache.
func (c *Client) PurgeCache(ctx context.Context) error {
	return c.session.Send(ctx, Message{Type: MessagePurgeCache})
}

// PutPersistentImage registers data under src for every later render. A
// persistent locator is never fetched.
func (c *Client) PutPersistentImage(ctx context.Context, src string, data []byte) error {
	return c.session.Send(ctx, Message{Type: MessagePutImage, Src: src, Data: data})
}

// ClearImageStore drops every persistent image.
func (c *Client) ClearImageStore(ctx context.Context) error {
	return c.session.Send(ctx, Message{Type: MessageClearImages})
}

// Err returns the last protocol error the session reported, if any.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastErr == "" {
		return nil
	}
	return errors.New(c.lastErr)
}

// Close terminates the session and waits for the client to stop.
func (c *Client) Close() {
	c.session.Terminate()
	<-c.done
}

func (c *Client) consume() {
	defer close(c.done)
	defer close(c.accepted)

	var readyOnce sync.Once
	for msg := range c.session.Outbox() {
		switch msg.Type {
		case MessageReady:
			readyOnce.Do(func() { close(c.ready) })
		case MessageRenderResult:
			if msg.Result == nil {
				continue
			}
			r := *msg.Result
			r.ID = msg.ID
			if !c.gate.Offer(r) {
				core.Logger().Debug("client: dropping stale result", "id", r.ID, "latest", c.gate.LatestID())
				continue
			}
			c.deliver(r)
		case MessageError:
			c.mu.Lock()
			c.lastErr = msg.Message
			c.mu.Unlock()
		}
	}
}

// deliver never blocks the consumer: when Accepted is full the oldest
// queued result is dropped, since a newer one supersedes it anyway.
func (c *Client) deliver(r RenderResult) {
	for {
		select {
		case c.accepted <- r:
			return
		default:
		}
		select {
		case <-c.accepted:
		default:
		}
	}
}
