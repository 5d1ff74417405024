// Package via is the reactive engine that hosts hellovia views. A page is a
// Go function that owns state and a view; clicks in the browser reach the
// page as actions, and every state change is pushed back as a rendered patch
// over a Datastar SSE stream.
package via

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/rs/zerolog"
	"github.com/ryanhamamura/hellovia/h"
)

// V is the root application.
// It manages page routing, user sessions, and SSE connections for live updates.
type V struct {
	cfg                  Options
	mux                  *http.ServeMux
	server               *http.Server
	logger               zerolog.Logger
	contextRegistry      map[string]*Context
	contextRegistryMutex sync.RWMutex
	documentHeadIncludes []h.H
	sessionManager       *scs.SessionManager
	pubsub               PubSub
	actionRateLimit      RateLimitConfig
	datastarOnce         sync.Once
	reaperStop           chan struct{}
}

func (v *V) logEvent(evt *zerolog.Event, c *Context) *zerolog.Event {
	if c != nil && c.id != "" {
		evt = evt.Str("via-ctx", c.id).Str("route", c.route)
	}
	return evt
}

func (v *V) logErr(c *Context, format string, a ...any) {
	v.logEvent(v.logger.Error(), c).Msgf(format, a...)
}

func (v *V) logWarn(c *Context, format string, a ...any) {
	v.logEvent(v.logger.Warn(), c).Msgf(format, a...)
}

func (v *V) logInfo(c *Context, format string, a ...any) {
	v.logEvent(v.logger.Info(), c).Msgf(format, a...)
}

func (v *V) logDebug(c *Context, format string, a ...any) {
	v.logEvent(v.logger.Debug(), c).Msgf(format, a...)
}

// Logger returns the application logger.
func (v *V) Logger() zerolog.Logger {
	return v.logger
}

// NewConsoleLogger returns the human readable logger used in dev mode.
func NewConsoleLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger().Level(level)
}

// Config overrides the default configuration with the given options.
func (v *V) Config(cfg Options) {
	if cfg.Logger != nil {
		v.logger = *cfg.Logger
	} else if cfg.LogLevel != nil || cfg.DevMode != v.cfg.DevMode {
		level := zerolog.InfoLevel
		if cfg.LogLevel != nil {
			level = *cfg.LogLevel
		}
		if cfg.DevMode {
			v.logger = NewConsoleLogger(level)
		} else {
			v.logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
		}
	}
	if cfg.DocumentTitle != "" {
		v.cfg.DocumentTitle = cfg.DocumentTitle
	}
	if cfg.MountID != "" {
		v.cfg.MountID = cfg.MountID
	}
	for _, plugin := range cfg.Plugins {
		if plugin != nil {
			plugin(v)
		}
	}
	v.cfg.DevMode = cfg.DevMode
	if cfg.ServerAddress != "" {
		v.cfg.ServerAddress = cfg.ServerAddress
	}
	if cfg.SessionManager != nil {
		v.sessionManager = cfg.SessionManager
	}
	if cfg.DatastarContent != nil {
		v.cfg.DatastarContent = cfg.DatastarContent
	}
	if cfg.DatastarPath != "" {
		v.cfg.DatastarPath = cfg.DatastarPath
	}
	if cfg.DatastarURL != "" {
		v.cfg.DatastarURL = cfg.DatastarURL
	}
	if cfg.PubSub != nil {
		v.pubsub = cfg.PubSub
	}
	if cfg.ContextTTL != 0 {
		v.cfg.ContextTTL = cfg.ContextTTL
	}
	if cfg.ActionRateLimit.Rate != 0 || cfg.ActionRateLimit.Burst != 0 {
		v.actionRateLimit = cfg.ActionRateLimit
	}
}

// AppendToHead appends the given h.H nodes to the head of the base HTML document.
func (v *V) AppendToHead(elements ...h.H) {
	for _, el := range elements {
		if el != nil {
			v.documentHeadIncludes = append(v.documentHeadIncludes, el)
		}
	}
}

// MountID returns the id of the element that hosts page views.
func (v *V) MountID() string {
	return v.cfg.MountID
}

// Page registers a route and its associated page handler. The handler receives a *Context
// that defines state, UI, and actions.
//
// Example:
//
//	v.Page("/", func(c *via.Context) {
//		c.View(func() h.H {
//			return h.H1(h.Text("Hello, world!"))
//		})
//	})
func (v *V) Page(route string, initContextFn func(c *Context)) {
	v.ensureDatastarHandler()
	// a page that panics on init never gets a route
	func() {
		defer func() {
			if err := recover(); err != nil {
				v.logger.WithLevel(zerolog.FatalLevel).Msgf("failed to register page with init func that panics: %v", err)
				panic(err)
			}
		}()
		c := newContext("", "", v)
		initContextFn(c)
		c.view()
		c.dispose()
	}()

	v.mux.HandleFunc("GET "+route, func(w http.ResponseWriter, r *http.Request) {
		v.logDebug(nil, "GET %s", r.URL.String())
		if strings.Contains(r.URL.Path, "favicon") ||
			strings.Contains(r.URL.Path, ".well-known") {
			http.NotFound(w, r)
			return
		}
		id := fmt.Sprintf("%s_/%s", route, genRandID())
		c := newContext(id, route, v)
		c.reqCtx = r.Context()
		initContextFn(c)
		v.registerCtx(c)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := v.document(c).Render(w); err != nil {
			v.logErr(c, "render page failed: %v", err)
		}
	})
}

// document wraps the view of c in the HTML5 shell with the Datastar bootstrap.
func (v *V) document(c *Context) h.H {
	head := []h.H{h.Script(h.Type("module"), h.Src(v.datastarSrc()))}
	head = append(head, v.documentHeadIncludes...)
	head = append(head,
		h.Meta(h.Data("signals", fmt.Sprintf("{'via-ctx':'%s','via-csrf':'%s'}", c.id, c.csrfToken))),
		h.Meta(h.Data("init", "@get('/_sse')")),
		h.Meta(h.Data("init", fmt.Sprintf(`window.addEventListener('beforeunload', (evt) => {
			navigator.sendBeacon('/_session/close', '%s');});`, c.id))),
	)

	body := []h.H{h.Div(h.ID(v.cfg.MountID), c.view())}
	if v.cfg.DevMode {
		body = append(body,
			h.Script(h.Type("module"),
				h.Src("https://cdn.jsdelivr.net/gh/dataSPA/dataSPA-inspector@latest/dataspa-inspector.bundled.js")),
			h.Raw("<dataspa-inspector/>"),
		)
	}
	return h.HTML5(h.HTML5Props{
		Title: v.cfg.DocumentTitle,
		Head:  head,
		Body:  body,
	})
}

func (v *V) datastarSrc() string {
	if v.cfg.DatastarContent != nil {
		return v.cfg.DatastarPath
	}
	return v.cfg.DatastarURL
}

func (v *V) ensureDatastarHandler() {
	v.datastarOnce.Do(func() {
		if v.cfg.DatastarContent == nil {
			return
		}
		v.mux.HandleFunc("GET "+v.cfg.DatastarPath, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/javascript")
			_, _ = w.Write(v.cfg.DatastarContent)
		})
	})
}

func (v *V) registerCtx(c *Context) {
	if c == nil {
		v.logErr(c, "failed to add nil context to registry")
		return
	}
	v.contextRegistryMutex.Lock()
	v.contextRegistry[c.id] = c
	n := len(v.contextRegistry)
	v.contextRegistryMutex.Unlock()
	v.logDebug(c, "new context added to registry")
	v.logDebug(nil, "number of contexts in registry: %d", n)
}

func (v *V) cleanupCtx(c *Context) {
	c.dispose()
	v.unregisterCtx(c)
}

func (v *V) unregisterCtx(c *Context) {
	if c.id == "" {
		v.logErr(c, "unregister ctx failed: ctx contains empty id")
		return
	}
	v.contextRegistryMutex.Lock()
	delete(v.contextRegistry, c.id)
	n := len(v.contextRegistry)
	v.contextRegistryMutex.Unlock()
	v.logDebug(c, "ctx removed from registry")
	v.logDebug(nil, "number of contexts in registry: %d", n)
}

func (v *V) getCtx(id string) (*Context, error) {
	v.contextRegistryMutex.RLock()
	defer v.contextRegistryMutex.RUnlock()
	if c, ok := v.contextRegistry[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("ctx '%s' not found", id)
}

func (v *V) startReaper() {
	ttl := v.cfg.ContextTTL
	if ttl < 0 {
		return
	}
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	interval := max(ttl/3, 5*time.Second)
	v.reaperStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-v.reaperStop:
				return
			case <-ticker.C:
				v.reapOrphanedContexts(ttl)
			}
		}
	}()
}

func (v *V) reapOrphanedContexts(ttl time.Duration) {
	now := time.Now()
	v.contextRegistryMutex.RLock()
	var orphans []*Context
	for _, c := range v.contextRegistry {
		if !c.sseConnected.Load() && now.Sub(c.createdAt) > ttl {
			orphans = append(orphans, c)
		}
	}
	v.contextRegistryMutex.RUnlock()

	for _, c := range orphans {
		v.logInfo(c, "reaping orphaned context (no SSE connection after %s)", ttl)
		v.cleanupCtx(c)
	}
}

// Handler returns the root http.Handler, wrapped with the session middleware
// when a SessionManager is configured.
func (v *V) Handler() http.Handler {
	if v.sessionManager != nil {
		return v.sessionManager.LoadAndSave(v.mux)
	}
	return v.mux
}

// Start starts the Via HTTP server and blocks until a SIGINT or SIGTERM
// signal is received, then performs a graceful shutdown.
func (v *V) Start() error {
	v.server = &http.Server{
		Addr:              v.cfg.ServerAddress,
		Handler:           v.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	v.startReaper()

	errCh := make(chan error, 1)
	go func() {
		errCh <- v.server.ListenAndServe()
	}()

	v.logInfo(nil, "via started at [%s]", v.cfg.ServerAddress)

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer ossignal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		v.logInfo(nil, "received signal %v, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			v.shutdown()
			return fmt.Errorf("via: http server: %w", err)
		}
		return nil
	}

	v.shutdown()
	return nil
}

// Shutdown gracefully shuts down the server and all contexts.
// Safe for programmatic or test use.
func (v *V) Shutdown() {
	v.shutdown()
}

func (v *V) shutdown() {
	if v.reaperStop != nil {
		close(v.reaperStop)
		v.reaperStop = nil
	}
	v.logInfo(nil, "draining all contexts")
	v.drainAllContexts()

	if v.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := v.server.Shutdown(ctx); err != nil {
			v.logErr(nil, "http server shutdown error: %v", err)
		}
	}

	if v.pubsub != nil {
		if err := v.pubsub.Close(); err != nil {
			v.logErr(nil, "pubsub close error: %v", err)
		}
	}

	v.logInfo(nil, "shutdown complete")
}

func (v *V) drainAllContexts() {
	v.contextRegistryMutex.Lock()
	contexts := make([]*Context, 0, len(v.contextRegistry))
	for _, c := range v.contextRegistry {
		contexts = append(contexts, c)
	}
	v.contextRegistry = make(map[string]*Context)
	v.contextRegistryMutex.Unlock()

	for _, c := range contexts {
		v.logDebug(c, "disposing context")
		c.dispose()
	}
	v.logInfo(nil, "drained %d context(s)", len(contexts))
}

// New creates a new *V application with default configuration.
func New() *V {
	v := &V{
		mux:             http.NewServeMux(),
		logger:          NewConsoleLogger(zerolog.InfoLevel),
		contextRegistry: make(map[string]*Context),
		cfg: Options{
			ServerAddress: ":3000",
			DocumentTitle: "Hello",
			MountID:       "root",
			DatastarPath:  "/_datastar.js",
			DatastarURL:   DefaultDatastarURL,
		},
	}
	v.routeInternals()
	return v
}

func genRandID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)[:8]
}

func genCSRFToken() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
