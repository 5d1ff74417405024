// Package toggle is the hello page: a heading and a button that flips a
// boolean held by the view.
//
// The state and its rendering are pure functions so the same view can be
// hosted by the via engine, the terminal program and the static bundle.
package toggle

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	via "github.com/ryanhamamura/hellovia"
	"github.com/ryanhamamura/hellovia/components/button"
	"github.com/ryanhamamura/hellovia/h"
)

const (
	// PromptOff is the button label while the toggle is off.
	PromptOff = "Toggle Me!"
	// PromptOn is the button label while the toggle is on.
	PromptOn = "Yeah! Again!"

	// DefaultHello completes the heading "Hello, ".
	DefaultHello = "world!"

	// FlippedSubject is the pubsub subject flip events are published on.
	FlippedSubject = "toggle.flipped"

	// SessionFlipsKey counts the flips of a browser session when the app has
	// sessions enabled.
	SessionFlipsKey = "toggle.flips"
)

// ViewState is the state owned by one toggle view.
type ViewState struct {
	Toggle bool
	Hello  string
}

// NewState returns the initial state: toggle off, heading completed by hello.
func NewState(hello string) ViewState {
	if hello == "" {
		hello = DefaultHello
	}
	return ViewState{Hello: hello}
}

// Flip returns s with the toggle negated.
func (s ViewState) Flip() ViewState {
	s.Toggle = !s.Toggle
	return s
}

// Prompt is the button label for a toggle value.
func Prompt(on bool) string {
	if on {
		return PromptOn
	}
	return PromptOff
}

// Rest is the display-only part of the state, dumped under the heading.
func (s ViewState) Rest() string {
	b, _ := json.Marshal(struct {
		Hello string `json:"hello"`
	}{s.Hello})
	return string(b)
}

// Render draws s. onClick is the click handler given to the button.
func Render(s ViewState, onClick h.H) h.H {
	return h.Div(
		h.H1(h.Textf("Hello, %s", s.Hello)),
		h.Pre(h.Text(s.Rest())),
		button.Render(button.Props{
			Label:   Prompt(s.Toggle),
			OnClick: onClick,
		}),
	)
}

// Event is published on FlippedSubject after every flip.
type Event struct {
	Ctx    string `json:"ctx"`
	Toggle bool   `json:"toggle"`
}

// View owns a ViewState and is the only code that mutates it.
type View struct {
	clicks sync.Mutex // serialises HandleToggleClick
	mu     sync.Mutex
	state  ViewState
	redraw func()
	flips  []func(ViewState)
}

// New returns a view in its initial state.
func New(hello string) *View {
	return &View{state: NewState(hello)}
}

// State returns a copy of the current state.
func (v *View) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// OnRedraw sets the func called after each state change. The host uses it to
// schedule a new render.
func (v *View) OnRedraw(f func()) {
	v.mu.Lock()
	v.redraw = f
	v.mu.Unlock()
}

// OnFlip adds a func called with the new state after each flip.
func (v *View) OnFlip(f func(ViewState)) {
	v.mu.Lock()
	v.flips = append(v.flips, f)
	v.mu.Unlock()
}

// HandleToggleClick flips the toggle once and notifies the host. Concurrent
// calls are applied one after the other.
func (v *View) HandleToggleClick() {
	v.clicks.Lock()
	defer v.clicks.Unlock()

	v.mu.Lock()
	v.state = v.state.Flip()
	s := v.state
	redraw := v.redraw
	flips := v.flips
	v.mu.Unlock()

	for _, f := range flips {
		f(s)
	}
	if redraw != nil {
		redraw()
	}
}

// Render draws the current state.
func (v *View) Render(onClick h.H) h.H {
	return Render(v.State(), onClick)
}

// Page returns the via page init func for the toggle view. Every browser tab
// gets its own View.
func Page(hello string) func(c *via.Context) {
	return func(c *via.Context) {
		New(hello).Mount(c)
	}
}

// Mount hosts v on c: clicks become a via action, redraws become c.Sync, and
// flips are published on FlippedSubject when the app has a pubsub.
//
// The click action is not rate limited: every click must flip the toggle.
func (v *View) Mount(c *via.Context) {
	click := c.Action(v.HandleToggleClick, via.WithoutRateLimit())
	v.OnRedraw(c.Sync)
	v.OnFlip(func(s ViewState) {
		sess := c.Session()
		flips := sess.GetInt(SessionFlipsKey) + 1
		sess.Set(SessionFlipsKey, flips)

		l := c.Logger()
		l.Debug().Stringer("state", s).Int("session_flips", flips).Msg("toggle flipped")
		err := via.Publish(c, FlippedSubject, Event{Ctx: c.ID(), Toggle: s.Toggle})
		if err != nil && !errors.Is(err, via.ErrNoPubSub) {
			l.Warn().Err(err).Msg("publish flip event failed")
		}
	})
	c.View(func() h.H {
		return v.Render(click.OnClick())
	})
}

// String is a one-line summary used in logs.
func (s ViewState) String() string {
	return fmt.Sprintf("toggle=%t prompt=%q", s.Toggle, Prompt(s.Toggle))
}
