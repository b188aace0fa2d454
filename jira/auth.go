package jira

import (
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// DefaultSessionCookie is the cookie Jira Server uses for its web session.
const DefaultSessionCookie = "JSESSIONID"

// Credentials authenticates outgoing requests. Exactly one implementation is
// chosen from configuration at startup.
type Credentials interface {
	Apply(req *http.Request) error
	// Scheme is a short name for logs ("basic", "cookie", "token").
	Scheme() string
}

// BasicAuth uses HTTP Basic with a username and password (or API token).
type BasicAuth struct {
	Username string
	Password string
}

func (b BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

func (BasicAuth) Scheme() string { return "basic" }

// SessionCookie attaches an existing Jira web session to each request.
type SessionCookie struct {
	Name  string
	Value string
}

func (s SessionCookie) Apply(req *http.Request) error {
	name := s.Name
	if name == "" {
		name = DefaultSessionCookie
	}
	req.AddCookie(&http.Cookie{Name: name, Value: s.Value})
	return nil
}

func (SessionCookie) Scheme() string { return "cookie" }

// TokenAuth sends a bearer token, e.g. a Jira personal access token.
type TokenAuth struct {
	source oauth2.TokenSource
}

// NewTokenAuth wraps a static personal access token.
func NewTokenAuth(token string) *TokenAuth {
	return &TokenAuth{source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})}
}

func (t *TokenAuth) Apply(req *http.Request) error {
	tok, err := t.source.Token()
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	tok.SetAuthHeader(req)
	return nil
}

func (*TokenAuth) Scheme() string { return "token" }
