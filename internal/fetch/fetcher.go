// Package fetch retrieves raw profile pages over an authenticated session.
// A politeness delay is applied between network requests; artifact cache
// hits never reach this package, so cached profiles incur no delay.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	colly "github.com/gocolly/colly/v2"

	"github.com/north-cloud/sourcing/internal/artifacts"
	"github.com/north-cloud/sourcing/internal/logger"
)

// ErrAuthRequired is returned when LinkedIn serves an auth wall and no
// fresh session can be established.
var ErrAuthRequired = errors.New("linkedin authentication required")

// LoginFunc establishes a fresh authenticated session. Implementations
// drive an external browser automation step; tests stub it.
type LoginFunc func(ctx context.Context) (*artifacts.Session, error)

// Fetcher downloads profile pages using persisted session cookies.
type Fetcher struct {
	sessionPath   string
	sessionMaxAge time.Duration
	userAgent     string
	delay         time.Duration
	login         LoginFunc
	logger        logger.Logger

	mu        sync.Mutex
	session   *artifacts.Session
	lastFetch time.Time
}

type Config struct {
	SessionPath   string
	SessionMaxAge time.Duration
	UserAgent     string
	RequestDelay  time.Duration
}

func NewFetcher(cfg Config, login LoginFunc, log logger.Logger) *Fetcher {
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = 24 * time.Hour
	}
	return &Fetcher{
		sessionPath:   cfg.SessionPath,
		sessionMaxAge: cfg.SessionMaxAge,
		userAgent:     cfg.UserAgent,
		delay:         cfg.RequestDelay,
		login:         login,
		logger:        log,
	}
}

// Fetch downloads one profile page. On an auth wall it re-authenticates
// once and retries; a second auth wall yields ErrAuthRequired.
func (f *Fetcher) Fetch(ctx context.Context, profileURL string) ([]byte, error) {
	if err := f.ensureSession(ctx, false); err != nil {
		return nil, err
	}
	if err := f.politeWait(ctx); err != nil {
		return nil, err
	}

	body, err := f.fetchOnce(ctx, profileURL)
	if err != nil {
		return nil, err
	}

	if isAuthWall(body) {
		f.logger.Warn("Hit auth wall, re-authenticating",
			logger.String("url", profileURL))
		if err := f.ensureSession(ctx, true); err != nil {
			return nil, err
		}
		body, err = f.fetchOnce(ctx, profileURL)
		if err != nil {
			return nil, err
		}
		if isAuthWall(body) {
			return nil, fmt.Errorf("fetch %s: %w", profileURL, ErrAuthRequired)
		}
	}
	return body, nil
}

// ensureSession loads or refreshes the persisted session. With force set,
// the cached session is discarded and a new login is attempted.
func (f *Fetcher) ensureSession(ctx context.Context, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !force {
		if f.session != nil {
			return nil
		}
		sess, err := artifacts.LoadSession(f.sessionPath, f.sessionMaxAge)
		if err != nil {
			return err
		}
		if sess != nil {
			f.logger.Debug("Using saved session")
			f.session = sess
			return nil
		}
	}

	if f.login == nil {
		return ErrAuthRequired
	}

	sess, err := f.login(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := artifacts.SaveSession(f.sessionPath, sess); err != nil {
		return err
	}
	f.logger.Info("Established new session")
	f.session = sess
	return nil
}

// politeWait enforces the inter-request delay.
func (f *Fetcher) politeWait(ctx context.Context) error {
	f.mu.Lock()
	now := time.Now()
	wait := f.delay - now.Sub(f.lastFetch)
	if wait < 0 {
		wait = 0
	}
	f.lastFetch = now.Add(wait)
	f.mu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, profileURL string) ([]byte, error) {
	f.mu.Lock()
	sess := f.session
	f.mu.Unlock()

	c := colly.NewCollector(
		colly.UserAgent(f.sessionUserAgent(sess)),
		colly.StdlibContext(ctx),
	)

	if sess != nil {
		if err := c.SetCookies(profileURL, sess.HTTPCookies()); err != nil {
			return nil, fmt.Errorf("set session cookies: %w", err)
		}
	}

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})

	var fetchErr error
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(profileURL); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", profileURL, err)
	}
	c.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", profileURL, fetchErr)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch %s: empty response", profileURL)
	}
	return body, nil
}

func (f *Fetcher) sessionUserAgent(sess *artifacts.Session) string {
	if sess != nil && sess.UserAgent != "" {
		return sess.UserAgent
	}
	return f.userAgent
}

// authWallMarkers identify LinkedIn's logged-out interstitials.
var authWallMarkers = []string{
	"authwall",
	"join linkedin",
	"sign in to linkedin",
	"session_redirect",
}

func isAuthWall(body []byte) bool {
	lowered := strings.ToLower(string(body))
	for _, marker := range authWallMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
