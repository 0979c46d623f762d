package fetch

import (
	"context"
	"fmt"
	"net/http"

	colly "github.com/gocolly/colly/v2"

	"github.com/north-cloud/sourcing/internal/artifacts"
	"github.com/north-cloud/sourcing/internal/logger"
)

const linkedinBaseURL = "https://www.linkedin.com"

// sessionCookie is the cookie LinkedIn sets on a successful login. Its
// absence after the form submit means the credentials were rejected or a
// verification checkpoint was raised.
const sessionCookie = "li_at"

// NewFormLogin returns a LoginFunc that authenticates with email and
// password through LinkedIn's login form. Accounts with two-factor or
// checkpoint verification enabled cannot log in this way; seed the session
// file from a browser instead.
func NewFormLogin(email, password, userAgent string, log logger.Logger) LoginFunc {
	return formLogin(linkedinBaseURL, email, password, userAgent, log)
}

func formLogin(baseURL, email, password, userAgent string, log logger.Logger) LoginFunc {
	return func(ctx context.Context) (*artifacts.Session, error) {
		c := colly.NewCollector(
			colly.UserAgent(userAgent),
			colly.StdlibContext(ctx),
		)

		var csrf string
		c.OnHTML(`input[name="loginCsrfParam"]`, func(e *colly.HTMLElement) {
			csrf = e.Attr("value")
		})

		if err := c.Visit(baseURL + "/login"); err != nil {
			return nil, fmt.Errorf("load login page: %w", err)
		}
		c.Wait()
		if csrf == "" {
			return nil, fmt.Errorf("login page: csrf token not found")
		}

		err := c.Post(baseURL+"/checkpoint/lg/login-submit", map[string]string{
			"session_key":      email,
			"session_password": password,
			"loginCsrfParam":   csrf,
		})
		if err != nil {
			return nil, fmt.Errorf("submit login form: %w", err)
		}
		c.Wait()

		cookies := c.Cookies(baseURL)
		if !hasCookie(cookies, sessionCookie) {
			return nil, fmt.Errorf("login rejected for %s: %w", email, ErrAuthRequired)
		}

		log.Info("Logged in to LinkedIn", logger.String("email", email))
		return sessionFromCookies(cookies, userAgent), nil
	}
}

func hasCookie(cookies []*http.Cookie, name string) bool {
	for _, c := range cookies {
		if c.Name == name && c.Value != "" {
			return true
		}
	}
	return false
}

func sessionFromCookies(cookies []*http.Cookie, userAgent string) *artifacts.Session {
	sess := &artifacts.Session{UserAgent: userAgent}
	for _, c := range cookies {
		cookie := artifacts.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		}
		if !c.Expires.IsZero() {
			cookie.Expires = c.Expires.Unix()
		}
		sess.Cookies = append(sess.Cookies, cookie)
	}
	return sess
}
