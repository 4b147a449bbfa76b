package auth

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/goliatone/go-handyadmin/pkg/client"
)

// Session is the authenticated state of one request.
type Session struct {
	Access  string
	Profile Profile
}

type sessionKey struct{}

// ContextWithSession attaches s to ctx along with its bearer token.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	ctx = client.ContextWithToken(ctx, s.Access)
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session placed by Guard.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// SetCookies stores tokens. The refresh cookie is only written when present.
func (s *Service) SetCookies(w http.ResponseWriter, tokens Tokens) {
	http.SetCookie(w, s.cookie(s.cfg.AccessCookie, tokens.Access))
	if tokens.Refresh != "" {
		http.SetCookie(w, s.cookie(s.cfg.RefreshCookie, tokens.Refresh))
	}
}

// ClearCookies expires both token cookies.
func (s *Service) ClearCookies(w http.ResponseWriter) {
	for _, name := range []string{s.cfg.AccessCookie, s.cfg.RefreshCookie} {
		c := s.cookie(name, "")
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (s *Service) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Session resolves the request's session, refreshing an expired access
// token. The returned bool reports whether the access cookie must be
// rewritten.
func (s *Service) Session(ctx context.Context, r *http.Request) (Session, bool, error) {
	access := cookieValue(r, s.cfg.AccessCookie)
	if access == "" {
		return Session{}, false, ErrNoToken
	}

	refreshed := false
	if s.Expired(access) {
		next, err := s.Refresh(ctx, cookieValue(r, s.cfg.RefreshCookie))
		if err != nil {
			return Session{}, false, errors.Join(ErrTokenExpired, err)
		}
		access = next
		refreshed = true
	}
	return Session{Access: access, Profile: ProfileFromToken(access)}, refreshed, nil
}

// Optional resolves a session when one exists without failing the request.
// Public pages use it to show the profile of a logged-in visitor.
func (s *Service) Optional(r *http.Request) (Session, bool) {
	access := cookieValue(r, s.cfg.AccessCookie)
	if access == "" || s.Expired(access) {
		return Session{}, false
	}
	return Session{Access: access, Profile: ProfileFromToken(access)}, true
}

// ExpiredHandler runs when Guard cannot establish a session. Cookies have
// already been cleared.
type ExpiredHandler func(w http.ResponseWriter, r *http.Request, err error)

// Guard returns middleware that requires a session, refreshing the access
// token when it has expired. On failure it clears the cookies and calls
// onExpired, or redirects to the login path when onExpired is nil.
func (s *Service) Guard(onExpired ExpiredHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, refreshed, err := s.Session(r.Context(), r)
			if err != nil {
				s.logger.Info("auth guard rejected request",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				s.ClearCookies(w)
				if onExpired != nil {
					onExpired(w, r, err)
					return
				}
				http.Redirect(w, r, s.cfg.LoginPath, http.StatusSeeOther)
				return
			}
			if refreshed {
				s.logger.Debug("access token refreshed", zap.String("user", session.Profile.Display()))
				http.SetCookie(w, s.cookie(s.cfg.AccessCookie, session.Access))
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), session)))
		})
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
