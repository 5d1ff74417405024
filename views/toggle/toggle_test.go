package toggle

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/google/go-cmp/cmp"
	via "github.com/ryanhamamura/hellovia"
	"github.com/ryanhamamura/hellovia/h"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderString(t *testing.T, n h.H) string {
	t.Helper()
	out, err := h.String(n)
	require.NoError(t, err)
	return out
}

func TestNewState(t *testing.T) {
	assert.Equal(t, ViewState{Toggle: false, Hello: "world!"}, NewState(""))
	assert.Equal(t, ViewState{Toggle: false, Hello: "Go"}, NewState("Go"))
}

func TestFlipAfterNClicks(t *testing.T) {
	for n := 0; n <= 7; n++ {
		v := New("")
		for range n {
			v.HandleToggleClick()
		}
		assert.Equal(t, n%2 == 1, v.State().Toggle, "after %d clicks", n)
	}
}

func TestFlipSequence(t *testing.T) {
	s := NewState("")
	var got []bool
	for range 4 {
		s = s.Flip()
		got = append(got, s.Toggle)
	}
	if diff := cmp.Diff([]bool{true, false, true, false}, got); diff != "" {
		t.Errorf("flip sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestInitialRender(t *testing.T) {
	out := renderString(t, Render(NewState(""), nil))

	assert.Equal(t,
		`<div><h1>Hello, world!</h1><pre>{&#34;hello&#34;:&#34;world!&#34;}</pre><button type="button">Toggle Me!</button></div>`,
		out)
	assert.NotContains(t, out, PromptOn)
}

func TestRenderIsPure(t *testing.T) {
	s := NewState("").Flip()
	first := renderString(t, Render(s, h.Data("on:click", "x")))
	second := renderString(t, Render(s, h.Data("on:click", "x")))
	assert.Equal(t, first, second)
	assert.True(t, s.Toggle)
}

func TestClickScenarios(t *testing.T) {
	v := New("")

	assert.Contains(t, renderString(t, v.Render(nil)), ">Toggle Me!</button>")

	v.HandleToggleClick()
	assert.Contains(t, renderString(t, v.Render(nil)), ">Yeah! Again!</button>")

	v.HandleToggleClick()
	out := renderString(t, v.Render(nil))
	assert.Contains(t, out, ">Toggle Me!</button>")
	assert.NotContains(t, out, PromptOn)
}

func TestConcurrentClicksEachFlipOnce(t *testing.T) {
	v := New("")
	var redraws, flips int
	var mu sync.Mutex
	v.OnRedraw(func() {
		mu.Lock()
		redraws++
		mu.Unlock()
	})
	v.OnFlip(func(ViewState) { flips++ })

	var wg sync.WaitGroup
	for range 101 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.HandleToggleClick()
		}()
	}
	wg.Wait()

	assert.True(t, v.State().Toggle)
	assert.Equal(t, 101, redraws)
	assert.Equal(t, 101, flips)
}

func TestFlipCallbacksSeeOrderedStates(t *testing.T) {
	v := New("")
	var seen []bool
	v.OnFlip(func(s ViewState) {
		seen = append(seen, s.Toggle)
		// callbacks may read the view
		assert.Equal(t, s, v.State())
	})
	for range 3 {
		v.HandleToggleClick()
	}
	assert.Equal(t, []bool{true, false, true}, seen)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, `toggle=true prompt="Yeah! Again!"`, NewState("").Flip().String())
}

func TestRenderClient(t *testing.T) {
	out := renderString(t, RenderClient(NewState("")))

	assert.Contains(t, out, `data-signals:toggle="false"`)
	assert.Contains(t, out, `data-on:click="$toggle = !$toggle"`)
	assert.Contains(t, out, `data-text="$toggle ? &#39;Yeah! Again!&#39; : &#39;Toggle Me!&#39;"`)
	assert.Contains(t, out, ">Toggle Me!</button>")
}

// memPubSub delivers published messages synchronously.
type memPubSub struct {
	mu   sync.Mutex
	subs map[string][]func([]byte)
}

func (m *memPubSub) Publish(subject string, data []byte) error {
	m.mu.Lock()
	fns := m.subs[subject]
	m.mu.Unlock()
	for _, fn := range fns {
		fn(data)
	}
	return nil
}

func (m *memPubSub) Subscribe(subject string, handler func([]byte)) (via.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs == nil {
		m.subs = make(map[string][]func([]byte))
	}
	m.subs[subject] = append(m.subs[subject], handler)
	return noopSub{}, nil
}

func (m *memPubSub) Close() error { return nil }

type noopSub struct{}

func (noopSub) Unsubscribe() error { return nil }

var (
	signalsRe = regexp.MustCompile(`\{&#39;via-ctx&#39;:&#39;([^&]+)&#39;,&#39;via-csrf&#39;:&#39;([0-9a-f]+)&#39;\}`)
	actionRe  = regexp.MustCompile(`/_action/([0-9a-f]+)`)
)

// tab is one browser tab on srv. It keeps the cookies the server sets.
type tab struct {
	srv     http.Handler
	ctxID   string
	action  string
	signals string
	cookies map[string]*http.Cookie
}

func openTab(t *testing.T, srv http.Handler) *tab {
	t.Helper()
	tb := &tab{srv: srv, cookies: make(map[string]*http.Cookie)}
	w := tb.do(httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()

	sig := signalsRe.FindStringSubmatch(body)
	require.Len(t, sig, 3)
	act := actionRe.FindStringSubmatch(body)
	require.Len(t, act, 2)

	signals, err := json.Marshal(map[string]string{"via-ctx": sig[1], "via-csrf": sig[2]})
	require.NoError(t, err)
	tb.ctxID, tb.action, tb.signals = sig[1], act[1], string(signals)
	return tb
}

func (tb *tab) do(r *http.Request) *httptest.ResponseRecorder {
	for _, ck := range tb.cookies {
		r.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	tb.srv.ServeHTTP(w, r)
	for _, ck := range w.Result().Cookies() {
		tb.cookies[ck.Name] = ck
	}
	return w
}

func (tb *tab) click() int {
	target := "/_action/" + tb.action + "?datastar=" + url.QueryEscape(tb.signals)
	return tb.do(httptest.NewRequest("GET", target, nil)).Code
}

func TestPageOverHTTP(t *testing.T) {
	ps := &memPubSub{}
	var events []Event
	_, err := ps.Subscribe(FlippedSubject, func(data []byte) {
		var e Event
		require.NoError(t, json.Unmarshal(data, &e))
		events = append(events, e)
	})
	require.NoError(t, err)

	v := via.New()
	v.Config(via.Options{PubSub: ps})
	v.Page("/", Page(""))
	srv := v.Handler()
	assert.Empty(t, events, "registering the page must not publish")

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<div id="root">`)
	assert.Contains(t, body, "<h1>Hello, world!</h1>")
	assert.Contains(t, body, ">Toggle Me!</button>")

	tb := openTab(t, srv)
	require.Equal(t, http.StatusOK, tb.click())
	require.Equal(t, http.StatusOK, tb.click())

	want := []Event{{Ctx: tb.ctxID, Toggle: true}, {Ctx: tb.ctxID, Toggle: false}}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("flip events mismatch (-want +got):\n%s", diff)
	}
}

func TestRapidClicksOverHTTPAreNeverDropped(t *testing.T) {
	for _, n := range []int{1, 2, 25, 64} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			ps := &memPubSub{}
			var last Event
			flips := 0
			_, err := ps.Subscribe(FlippedSubject, func(data []byte) {
				require.NoError(t, json.Unmarshal(data, &last))
				flips++
			})
			require.NoError(t, err)

			v := via.New()
			v.Config(via.Options{PubSub: ps})
			v.Page("/", Page(""))
			tb := openTab(t, v.Handler())

			codes := map[int]int{}
			for range n {
				codes[tb.click()]++
			}
			assert.Equal(t, map[int]int{http.StatusOK: n}, codes)
			assert.Equal(t, n, flips)
			assert.Equal(t, n%2 == 1, last.Toggle)
		})
	}
}

func TestFlipsCountedInSession(t *testing.T) {
	sm := scs.New()
	v := via.New()
	v.Config(via.Options{SessionManager: sm})
	v.Page("/", Page(""))
	srv := v.Handler()

	tb := openTab(t, srv)
	for range 3 {
		require.Equal(t, http.StatusOK, tb.click())
	}
	require.NotEmpty(t, tb.cookies, "flipping must start a session")

	// a second tab of the same browser shares the session
	other := openTab(t, srv)
	other.cookies = tb.cookies
	require.Equal(t, http.StatusOK, other.click())

	var flips int
	read := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flips = sm.GetInt(r.Context(), SessionFlipsKey)
	}))
	tb.srv = read
	tb.do(httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 4, flips)
}
