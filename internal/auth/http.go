// ABOUTME: Session cookie plumbing and HTTP middleware for protected routes
// ABOUTME: Issues, verifies, and clears the signed session cookie

package auth

import (
	"net/http"
)

// SessionCookieName is the name of the session cookie.
const SessionCookieName = "dushu_session"

// SetSessionCookie issues a token for the session and sets it as an
// HttpOnly cookie on the response.
func (c *TokenCodec) SetSessionCookie(w http.ResponseWriter, r *http.Request, sess Session) error {
	token, err := c.Issue(sess)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSessionCookie expires the session cookie. Clearing an absent
// cookie is fine; logout is idempotent.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionFromRequest verifies the session cookie on the request and
// returns the session it carries.
func (c *TokenCodec) SessionFromRequest(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return Session{}, ErrInvalidToken
	}
	return c.Verify(cookie.Value)
}

// RequireSession creates an HTTP middleware that rejects requests without
// a valid session before any side effect, answering 401. On success the
// verified Session is attached to the request context.
func RequireSession(codec *TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := codec.SessionFromRequest(r)
			if err != nil || !sess.Authenticated {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}
