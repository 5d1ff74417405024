package via

import (
	"context"

	"github.com/alexedwards/scs/v2"
)

// Session provides access to the user's session data.
// Session data persists across page views for the same browser.
type Session struct {
	ctx     context.Context
	manager *scs.SessionManager
}

func (s *Session) active() bool {
	return s.manager != nil && s.ctx != nil
}

// Get retrieves a value from the session.
func (s *Session) Get(key string) any {
	if !s.active() {
		return nil
	}
	return s.manager.Get(s.ctx, key)
}

// GetString retrieves a string value from the session.
func (s *Session) GetString(key string) string {
	if !s.active() {
		return ""
	}
	return s.manager.GetString(s.ctx, key)
}

// GetInt retrieves an int value from the session.
func (s *Session) GetInt(key string) int {
	if !s.active() {
		return 0
	}
	return s.manager.GetInt(s.ctx, key)
}

// Set stores a value in the session.
func (s *Session) Set(key string, val any) {
	if !s.active() {
		return
	}
	s.manager.Put(s.ctx, key, val)
}

// Delete removes a value from the session.
func (s *Session) Delete(key string) {
	if !s.active() {
		return
	}
	s.manager.Remove(s.ctx, key)
}

// Exists returns true if the key exists in the session.
func (s *Session) Exists(key string) bool {
	if !s.active() {
		return false
	}
	return s.manager.Exists(s.ctx, key)
}

// Destroy destroys the session entirely.
func (s *Session) Destroy() error {
	if !s.active() {
		return nil
	}
	return s.manager.Destroy(s.ctx)
}
