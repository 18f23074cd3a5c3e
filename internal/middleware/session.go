package middleware

import (
	"crypto/sha256"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"github.com/sjperalta/parktime-api/internal/config"
)

// sessionKeyToken is the cookie session value holding the opaque session token.
const sessionKeyToken = "token"

// CookieSessions carries the session token in a signed cookie. The token itself
// is validated server-side; the cookie only transports it.
type CookieSessions struct {
	store *sessions.CookieStore
	name  string
}

// NewCookieSessions builds the signed cookie store. The secret is SHA-256 hashed
// to derive a 32-byte signing key.
func NewCookieSessions(cfg config.SessionConfig) *CookieSessions {
	key := sha256.Sum256([]byte(cfg.Secret))
	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TTL / time.Second),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
	return &CookieSessions{store: store, name: cfg.CookieName}
}

// Token returns the token stored in the request's cookie, or "" when absent or
// the signature does not verify.
func (s *CookieSessions) Token(r *http.Request) string {
	session, err := s.store.Get(r, s.name)
	if err != nil {
		return ""
	}
	token, _ := session.Values[sessionKeyToken].(string)
	return token
}

// Save writes token into the response cookie
func (s *CookieSessions) Save(c *gin.Context, token string) error {
	session, _ := s.store.Get(c.Request, s.name)
	session.Values[sessionKeyToken] = token
	return session.Save(c.Request, c.Writer)
}

// Clear expires the cookie
func (s *CookieSessions) Clear(c *gin.Context) error {
	session, _ := s.store.Get(c.Request, s.name)
	delete(session.Values, sessionKeyToken)
	session.Options.MaxAge = -1
	return session.Save(c.Request, c.Writer)
}
