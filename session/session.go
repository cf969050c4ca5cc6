package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/db44/storefront/utils"
)

// Flash kinds rendered by the layout.
const (
	FlashSuccess = "success_messages"
	FlashError   = "error_messages"
)

const contextKey = "session"

type Options struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager issues signed session cookies and persists session data in a Store.
type Manager struct {
	store Store
	opts  Options
}

func NewManager(store Store, opts Options) *Manager {
	return &Manager{store: store, opts: opts}
}

// Session is the per-request view of one browser session.
type Session struct {
	ID   string
	Data *Data

	manager *Manager
	c       echo.Context
	stale   []string
	// stored is set when the session was loaded from the store.
	stored bool
}

// Middleware loads the session named by the cookie, or starts a new one,
// and saves it once the handler returns. Sessions with no user and no
// pending flashes are not kept.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			s := m.load(ctx, c)
			if err := s.writeCookie(); err != nil {
				return err
			}
			c.Set(contextKey, s)

			err := next(c)

			for _, id := range s.stale {
				if derr := m.store.Delete(ctx, id); derr != nil {
					log.WithError(derr).Warn("Failed to delete old session")
				}
			}
			switch {
			case !s.Data.empty():
				if serr := m.store.Save(ctx, s.ID, s.Data, m.opts.TTL); serr != nil {
					log.WithError(serr).WithField("session", s.ID).Error("Failed to save session")
				}
			case s.stored:
				if derr := m.store.Delete(ctx, s.ID); derr != nil {
					log.WithError(derr).WithField("session", s.ID).Warn("Failed to delete empty session")
				}
			}
			return err
		}
	}
}

func (m *Manager) load(ctx context.Context, c echo.Context) *Session {
	s := &Session{manager: m, c: c}
	if cookie, err := c.Cookie(m.opts.CookieName); err == nil {
		if claims, err := utils.ValidateSessionToken(cookie.Value, m.opts.Secret); err == nil {
			data, err := m.store.Get(ctx, claims.SessionID)
			switch {
			case err == nil:
				s.ID, s.Data, s.stored = claims.SessionID, data, true
				return s
			case !errors.Is(err, ErrNotFound):
				log.WithError(err).Warn("Failed to load session")
			}
		}
	}
	s.ID = uuid.NewString()
	s.Data = &Data{}
	return s
}

func (s *Session) writeCookie() error {
	token, err := utils.GenerateSessionToken(s.ID, s.manager.opts.Secret, s.manager.opts.TTL)
	if err != nil {
		return err
	}
	s.c.SetCookie(&http.Cookie{
		Name:     s.manager.opts.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.manager.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.manager.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Get returns the request's session. It panics if the middleware is missing.
func Get(c echo.Context) *Session {
	return c.Get(contextKey).(*Session)
}

// Renew moves the session data to a fresh id, as done on login and logout.
func (s *Session) Renew() error {
	s.stale = append(s.stale, s.ID)
	s.ID = uuid.NewString()
	return s.writeCookie()
}

func (s *Session) AddFlash(kind, message string) {
	if s.Data.Flashes == nil {
		s.Data.Flashes = map[string][]string{}
	}
	s.Data.Flashes[kind] = append(s.Data.Flashes[kind], message)
}

// Flashes returns and clears the pending messages.
func (s *Session) Flashes() map[string][]string {
	flashes := s.Data.Flashes
	s.Data.Flashes = nil
	return flashes
}

func (s *Session) Authenticated() bool {
	return s.Data.UserID != ""
}

// Login binds the session to a user and rotates its id.
func (s *Session) Login(userID, email, role, supplierID string, cartCount int) error {
	if err := s.Renew(); err != nil {
		return err
	}
	flashes := s.Data.Flashes
	s.Data = &Data{
		UserID:     userID,
		Email:      email,
		Role:       role,
		SupplierID: supplierID,
		CartCount:  cartCount,
		Flashes:    flashes,
	}
	return nil
}

// Logout clears the user but keeps pending flashes.
func (s *Session) Logout() error {
	if err := s.Renew(); err != nil {
		return err
	}
	s.Data = &Data{Flashes: s.Data.Flashes}
	return nil
}

func (s *Session) SetCartCount(n int) {
	s.Data.CartCount = n
}
