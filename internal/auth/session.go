// Package auth holds the per-client authentication state sent with every
// request: basic credentials, server-issued cookies and the CSRF crumb.
package auth

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
)

// Static errors for err113 compliance.
var (
	ErrSessionClosed = errors.New("session is closed")
)

// Crumb is a CSRF token issued by crumbIssuer.
type Crumb struct {
	Field string `json:"crumbRequestField"`
	Value string `json:"crumb"`
}

// Session is explicit, per-client authentication state. It is established
// by the first successful authenticated response and torn down by Close.
// A Session is safe for concurrent use.
type Session struct {
	username string
	apiToken string

	mutex         sync.RWMutex
	jar           *cookiejar.Jar
	crumb         *Crumb
	crumbDisabled bool
	established   bool
	closed        bool
}

// NewSession creates a session. Empty username means anonymous access.
func NewSession(username, apiToken string) *Session {
	return &Session{
		username: username,
		apiToken: apiToken,
		jar:      newJar(),
	}
}

// Username returns the configured user, empty for anonymous sessions.
func (s *Session) Username() string {
	return s.username
}

// Apply adds credentials to an outgoing request.
func (s *Session) Apply(req *http.Request) error {
	s.mutex.RLock()
	closed := s.closed
	s.mutex.RUnlock()

	if closed {
		return ErrSessionClosed
	}

	if s.username != "" {
		req.SetBasicAuth(s.username, s.apiToken)
	}

	return nil
}

// SetCookies implements http.CookieJar.
func (s *Session) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mutex.RLock()
	jar := s.jar
	s.mutex.RUnlock()

	jar.SetCookies(u, cookies)
}

// Cookies implements http.CookieJar.
func (s *Session) Cookies(u *url.URL) []*http.Cookie {
	s.mutex.RLock()
	jar := s.jar
	s.mutex.RUnlock()

	return jar.Cookies(u)
}

// Crumb returns the cached crumb.
func (s *Session) Crumb() (Crumb, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.crumb == nil {
		return Crumb{}, false
	}

	return *s.crumb, true
}

// SetCrumb caches a crumb for subsequent POSTs.
func (s *Session) SetCrumb(crumb Crumb) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.crumb = &crumb
}

// ClearCrumb drops the cached crumb so the next POST fetches a new one.
func (s *Session) ClearCrumb() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.crumb = nil
}

// DisableCrumb records that the server issues no crumbs.
func (s *Session) DisableCrumb() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.crumb = nil
	s.crumbDisabled = true
}

// CrumbDisabled reports whether crumb fetching was turned off.
func (s *Session) CrumbDisabled() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.crumbDisabled
}

// MarkEstablished records a successful authenticated exchange.
func (s *Session) MarkEstablished() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.closed {
		s.established = true
	}
}

// Established reports whether a request has succeeded with this session.
func (s *Session) Established() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.established
}

// Close discards cookies and crumbs. Requests made through a closed
// session fail with ErrSessionClosed.
func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.jar = newJar()
	s.crumb = nil
	s.established = false
	s.closed = true

	return nil
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.closed
}

func newJar() *cookiejar.Jar {
	// cookiejar.New only fails on a nil-safe PublicSuffixList error path
	// that cannot occur with nil options.
	jar, _ := cookiejar.New(nil)

	return jar
}
