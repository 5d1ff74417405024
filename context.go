package via

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/ryanhamamura/hellovia/h"
	"golang.org/x/time/rate"
)

// Context is the living bridge between Go and the browser.
//
// It holds the runtime state of one page view, defines actions and defines UI through View.
type Context struct {
	id              string
	route           string
	app             *V
	view            func() h.H
	csrfToken       string
	createdAt       time.Time
	sseConnected    atomic.Bool
	patchChan       chan string
	ctxDisposedChan chan struct{}
	disposeOnce     sync.Once
	actionLimiter   *rate.Limiter

	mu             sync.RWMutex
	actionRegistry map[string]actionEntry
	subscriptions  []Subscription
	reqCtx         context.Context
}

// ID returns the context id. It is empty for the throwaway context used to
// validate a page at registration.
func (c *Context) ID() string {
	return c.id
}

// View defines the UI rendered by this context.
// The function should return an h.H element (from hellovia/h).
//
// State changes are pushed live with Sync().
func (c *Context) View(f func() h.H) {
	if f == nil {
		panic("nil viewfn")
	}
	c.view = func() h.H { return h.Div(h.ID(c.id), f()) }
}

// Action registers an event handler and returns a trigger to that event that
// can be added to the view fn as any other via.h element.
//
// Example:
//
//	on := false
//	toggle := c.Action(func() {
//		on = !on
//		c.Sync()
//	})
//
//	c.View(func() h.H {
//		return h.Button(h.Text("Toggle"), toggle.OnClick())
//	})
func (c *Context) Action(f func(), options ...ActionOption) *ActionTrigger {
	id := genRandID()
	if f == nil {
		c.app.logErr(c, "failed to bind action '%s' to context: nil func", id)
		return nil
	}
	entry := actionEntry{fn: f}
	for _, opt := range options {
		opt(&entry)
	}
	c.mu.Lock()
	c.actionRegistry[id] = entry
	c.mu.Unlock()
	return &ActionTrigger{id: id}
}

func (c *Context) getAction(id string) (actionEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.actionRegistry[id]; ok {
		return e, nil
	}
	return actionEntry{}, fmt.Errorf("action '%s' not found", id)
}

// sendPatch queues a patch on this *Context sse stream. A patch still waiting
// in the queue is replaced, since every patch is a full render of the view.
func (c *Context) sendPatch(p string) {
	for {
		select {
		case c.patchChan <- p:
			return
		default:
		}
		select {
		case <-c.patchChan:
		default:
		}
	}
}

// Render renders the current view of this context.
func (c *Context) Render() (string, error) {
	if c.view == nil {
		return "", fmt.Errorf("ctx '%s' has no view", c.id)
	}
	b := bytes.NewBuffer(nil)
	if err := c.view().Render(b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Sync pushes the current view state to the browser immediately
// over the live SSE event stream.
func (c *Context) Sync() {
	elems, err := c.Render()
	if err != nil {
		c.app.logErr(c, "sync view failed: %v", err)
		return
	}
	c.sendPatch(elems)
}

// Session returns the session for this context.
// Returns a no-op session if no SessionManager is configured.
func (c *Context) Session() *Session {
	return &Session{
		ctx:     c.requestContext(),
		manager: c.app.sessionManager,
	}
}

// Publish sends data on subject through the app PubSub. It is a no-op on the
// context used to validate a page at registration.
func (c *Context) Publish(subject string, data []byte) error {
	if c.app.pubsub == nil {
		return ErrNoPubSub
	}
	if c.id == "" {
		return nil
	}
	return c.app.pubsub.Publish(subject, data)
}

// Subscribe registers handler on subject. The subscription ends when the
// context is disposed.
func (c *Context) Subscribe(subject string, handler func(data []byte)) (Subscription, error) {
	if c.app.pubsub == nil {
		return nil, ErrNoPubSub
	}
	if c.id == "" {
		return nil, nil
	}
	sub, err := c.app.pubsub.Subscribe(subject, handler)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.subscriptions = append(c.subscriptions, sub)
	c.mu.Unlock()
	return sub, nil
}

// Logger returns the app logger tagged with this context id.
func (c *Context) Logger() zerolog.Logger {
	return c.app.logger.With().Str("via-ctx", c.id).Str("route", c.route).Logger()
}

func (c *Context) setReqCtx(ctx context.Context) {
	c.mu.Lock()
	c.reqCtx = ctx
	c.mu.Unlock()
}

func (c *Context) requestContext() context.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reqCtx
}

// dispose releases subscriptions and stops the SSE loop of this context.
func (c *Context) dispose() {
	c.disposeOnce.Do(func() {
		close(c.ctxDisposedChan)
		c.mu.Lock()
		subs := c.subscriptions
		c.subscriptions = nil
		c.mu.Unlock()
		for _, s := range subs {
			if err := s.Unsubscribe(); err != nil {
				c.app.logWarn(c, "unsubscribe failed: %v", err)
			}
		}
	})
}

func newContext(id string, route string, v *V) *Context {
	if v == nil {
		panic("create context failed: app pointer is nil")
	}
	return &Context{
		id:              id,
		route:           route,
		app:             v,
		csrfToken:       genCSRFToken(),
		createdAt:       time.Now(),
		actionRegistry:  make(map[string]actionEntry),
		patchChan:       make(chan string, 1),
		ctxDisposedChan: make(chan struct{}),
		actionLimiter:   newLimiter(v.actionRateLimit, defaultActionRate, defaultActionBurst),
	}
}
