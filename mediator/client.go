package mediator

import (
	"context"
	"sync"

	"github.com/maruel/ksid"

	"github.com/shakahl/db-diagram/protocol"
)

// eventBuffer bounds the per-client change event queue. A client that stops
// draining its events loses the overflow rather than stalling mutations.
const eventBuffer = 64

// Client is one connected diagram frame. Requests posted through it are
// answered exactly once; change events caused by other clients arrive on a
// separate per-client queue consumed by registered listeners.
type Client struct {
	id   ksid.ID
	kind protocol.FrameKind
	url  string
	m    *Mediator

	events    chan protocol.ChangeEvent
	done      chan struct{}
	closeOnce sync.Once

	lmu       sync.Mutex
	nextToken int
	listeners map[protocol.EventType]map[int]func(protocol.ChangeEvent)
}

// ID returns the client's session id.
func (c *Client) ID() ksid.ID { return c.id }

// Info returns the caller identity metadata answered to a META request.
func (c *Client) Info() protocol.ClientInfo {
	return protocol.ClientInfo{Kind: c.kind, ID: c.id.String(), URL: c.url}
}

// Post submits one request and waits for its single response. The reply
// channel is private to this call; a canceled ctx abandons the reply without
// blocking the handler.
func (c *Client) Post(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	reply := make(chan protocol.Response, 1)
	go func() {
		reply <- c.m.handle(ctx, c, req)
	}()
	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	}
}

// On registers fn for change events of the given type and returns a function
// that removes the registration.
func (c *Client) On(typ protocol.EventType, fn func(protocol.ChangeEvent)) func() {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	if c.listeners[typ] == nil {
		c.listeners[typ] = make(map[int]func(protocol.ChangeEvent))
	}
	token := c.nextToken
	c.nextToken++
	c.listeners[typ][token] = fn
	return func() {
		c.lmu.Lock()
		defer c.lmu.Unlock()
		delete(c.listeners[typ], token)
	}
}

// Close disconnects the client. It stops event delivery and removes the
// client from mutation fan-out. Closing an already closed client is a no-op.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.m.disconnect(c)
		close(c.done)
	})
}

// run drains the event queue and delivers each event to the listeners
// registered for its type. One goroutine per client.
func (c *Client) run() {
	for {
		select {
		case ev := <-c.events:
			c.deliver(ev)
		case <-c.done:
			return
		}
	}
}

func (c *Client) deliver(ev protocol.ChangeEvent) {
	c.lmu.Lock()
	fns := make([]func(protocol.ChangeEvent), 0, len(c.listeners[ev.Type]))
	for _, fn := range c.listeners[ev.Type] {
		fns = append(fns, fn)
	}
	c.lmu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}
