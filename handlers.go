package via

import (
	"crypto/subtle"
	"io"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"
)

// routeInternals registers the endpoints the Datastar client talks to.
func (v *V) routeInternals() {
	v.mux.HandleFunc("GET /_sse", v.handleSSE)
	v.mux.HandleFunc("GET /_action/{id}", v.handleAction)
	v.mux.HandleFunc("POST /_session/close", v.handleSessionClose)
}

func (v *V) handleSSE(w http.ResponseWriter, r *http.Request) {
	var sigs map[string]any
	_ = datastar.ReadSignals(r, &sigs)
	cID, _ := sigs["via-ctx"].(string)

	c, err := v.getCtx(cID)
	if err != nil {
		v.logErr(nil, "sse stream failed to start: %v", err)
		http.Error(w, "unknown context", http.StatusNotFound)
		return
	}

	sse := datastar.NewSSE(w, r, datastar.WithCompression(datastar.WithBrotli(datastar.WithBrotliLevel(5))))

	// use last-event-id to tell if request is a sse reconnect
	sse.Send(datastar.EventTypePatchElements, []string{}, datastar.WithSSEEventId("via"))

	c.sseConnected.Store(true)
	v.logDebug(c, "SSE connection established")

	go c.Sync()

	for {
		select {
		case <-sse.Context().Done():
			v.logDebug(c, "SSE connection ended")
			v.cleanupCtx(c)
			return
		case <-c.ctxDisposedChan:
			v.logDebug(c, "context disposed, closing SSE")
			return
		case elems := <-c.patchChan:
			// a closed connection is not worth logging
			if err := sse.PatchElements(elems); err != nil && sse.Context().Err() == nil {
				v.logErr(c, "PatchElements failed: %v", err)
			}
		}
	}
}

func (v *V) handleAction(w http.ResponseWriter, r *http.Request) {
	actionID := r.PathValue("id")
	var sigs map[string]any
	_ = datastar.ReadSignals(r, &sigs)
	cID, _ := sigs["via-ctx"].(string)
	c, err := v.getCtx(cID)
	if err != nil {
		v.logErr(nil, "action '%s' failed: %v", actionID, err)
		http.Error(w, "unknown context", http.StatusNotFound)
		return
	}
	csrfToken, _ := sigs["via-csrf"].(string)
	if subtle.ConstantTimeCompare([]byte(csrfToken), []byte(c.csrfToken)) != 1 {
		v.logWarn(c, "action '%s' rejected: invalid CSRF token", actionID)
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}
	entry, err := c.getAction(actionID)
	if err != nil {
		v.logDebug(c, "action '%s' failed: %v", actionID, err)
		http.Error(w, "unknown action", http.StatusNotFound)
		return
	}
	if !entry.unlimited && c.actionLimiter != nil && !c.actionLimiter.Allow() {
		v.logWarn(c, "action '%s' rate limited", actionID)
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}
	if entry.limiter != nil && !entry.limiter.Allow() {
		v.logWarn(c, "action '%s' rate limited (per-action)", actionID)
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}
	c.setReqCtx(r.Context())
	defer func() {
		if r := recover(); r != nil {
			v.logErr(c, "action '%s' failed: %v", actionID, r)
			http.Error(w, "action failed", http.StatusInternalServerError)
		}
	}()

	entry.fn()
}

func (v *V) handleSessionClose(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		v.logErr(nil, "error reading body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	c, err := v.getCtx(string(body))
	if err != nil {
		v.logDebug(nil, "failed to handle session close: %v", err)
		return
	}
	v.logDebug(c, "session close event triggered")
	v.cleanupCtx(c)
}
