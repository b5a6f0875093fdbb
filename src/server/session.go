package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	sessionCookieName = "codeassist_session"
	sessionIDKey      = "sid"
)

// sessionManager keeps only an opaque session id in a signed cookie; the
// history itself lives in the history store.
type sessionManager struct {
	store *sessions.CookieStore
}

func newSessionManager(secret string, ttl time.Duration, secure bool) *sessionManager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	maxAge := int(ttl / time.Second)
	if maxAge < 0 {
		maxAge = 0
	}
	store.MaxAge(maxAge)
	return &sessionManager{store: store}
}

// ID returns the caller's session id, issuing a new cookie when the request
// has none or it fails verification. Call it before writing the body.
func (m *sessionManager) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	// Get returns a fresh session alongside a decode error.
	sess, _ := m.store.Get(r, sessionCookieName)
	if id, ok := sess.Values[sessionIDKey].(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	sess.Values[sessionIDKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", err
	}
	return id, nil
}
