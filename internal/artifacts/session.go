package artifacts

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Cookie is one persisted authentication cookie.
type Cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Expires  int64  `json:"expires,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
	HTTPOnly bool   `json:"http_only,omitempty"`
}

// Session is a persisted authenticated browsing session.
type Session struct {
	Cookies   []Cookie `json:"cookies"`
	Timestamp int64    `json:"timestamp"`
	UserAgent string   `json:"user_agent"`
	IsValid   bool     `json:"is_valid"`
}

// HTTPCookies converts the session cookies for use with an HTTP client jar.
func (s *Session) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		})
	}
	return out
}

// SaveSession writes a session to path with a current timestamp.
func SaveSession(path string, sess *Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	sess.Timestamp = time.Now().Unix()
	sess.IsValid = true

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// LoadSession reads a session from path. It returns nil without error when
// no session file exists, the session is older than maxAge, or it is marked
// invalid; a stale session is equivalent to no session at all.
func LoadSession(path string, maxAge time.Duration) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}

	if !sess.IsValid {
		return nil, nil
	}
	if time.Since(time.Unix(sess.Timestamp, 0)) > maxAge {
		return nil, nil
	}
	return &sess, nil
}
