package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/storefront/internal/flash"
	"github.com/sakif/storefront/internal/model"
)

// SessionCookie is the name of the cookie carrying the signed session token.
const SessionCookie = "session"

// LoginRequiredMessage is flashed when an anonymous user hits a protected page.
const LoginRequiredMessage = "Please log in to access this page."

// UserLoader resolves a session's user ID to a live account. It returns nil
// when the user no longer exists; the session is then treated as anonymous.
type UserLoader interface {
	GetUser(ctx context.Context, id int64) *model.User
}

// Sessions issues, resolves and ends cookie sessions.
type Sessions struct {
	tokens *TokenService
	store  SessionStore
	secure bool
	logger *slog.Logger
	now    func() time.Time
}

// NewSessions wires the token service and the revocation store. secure marks
// the cookie HTTPS-only and should be true outside development.
func NewSessions(tokens *TokenService, store SessionStore, secure bool, logger *slog.Logger) *Sessions {
	return &Sessions{
		tokens: tokens,
		store:  store,
		secure: secure,
		logger: logger,
		now:    time.Now,
	}
}

// Login starts a session for userID and sets the session cookie.
func (s *Sessions) Login(w http.ResponseWriter, userID int64) error {
	sess, token, err := s.tokens.Issue(userID)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(s.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout revokes the request's session, if any, and clears the cookie. The
// cookie is cleared even when revocation fails.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	defer http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	sess, ok := SessionFromContext(r.Context())
	if !ok {
		c, err := r.Cookie(SessionCookie)
		if err != nil {
			return nil
		}
		if sess, err = s.tokens.Parse(c.Value); err != nil {
			return nil
		}
	}

	if err := s.store.Revoke(r.Context(), sess.ID, sess.ExpiresAt.Sub(s.now())); err != nil {
		return fmt.Errorf("auth: logout: %w", err)
	}
	return nil
}

// resolve returns the live session carried by the request cookie.
func (s *Sessions) resolve(r *http.Request) (Session, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return Session{}, err
	}

	sess, err := s.tokens.Parse(c.Value)
	if err != nil {
		return Session{}, err
	}

	revoked, err := s.store.IsRevoked(r.Context(), sess.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, errors.New("auth: session revoked")
	}
	return sess, nil
}

type contextKey string

const (
	userKey    contextKey = "user"
	sessionKey contextKey = "session"
)

// LoadUser is a middleware that resolves the session cookie to a user and
// stores both in the request context. It never blocks a request: anonymous
// visitors simply have no user. Pair it with RequireLogin on protected routes.
func (s *Sessions) LoadUser(loader UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := s.resolve(r)
			if err != nil {
				if !errors.Is(err, http.ErrNoCookie) {
					s.logger.Debug("ignoring session cookie", slog.String("error", err.Error()))
				}
				next.ServeHTTP(w, r)
				return
			}

			user := loader.GetUser(r.Context(), sess.UserID)
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			ctx = context.WithValue(ctx, sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLogin redirects anonymous requests to the login page, remembering
// where they were headed.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r.Context()); !ok {
			flash.Add(w, r, flash.Error, LoginRequiredMessage)
			target := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentUser returns the logged-in user, if any.
func CurrentUser(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// SessionFromContext returns the live session, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey).(Session)
	return sess, ok
}

// SafeRedirect returns next if it is a local path, otherwise fallback. It keeps
// the ?next= parameter from becoming an open redirect.
func SafeRedirect(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}
