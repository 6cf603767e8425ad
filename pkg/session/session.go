// Package session manages the signed-in Google identity. The session object
// is created once, passed explicitly to the components that need it, and
// torn down on sign-out; nothing here is a package-level singleton. Sign-out
// (voluntary or forced by an expired credential) notifies registered
// listeners so dependents like the remote task subscription can cascade.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/tracka/pkg/auth"
)

// ErrSignedOut is returned by credential accessors when no session exists.
var ErrSignedOut = errors.New("not signed in")

// Identity is the authenticated user as shown in the UI.
type Identity struct {
	Name    string
	Email   string
	Picture string
}

// Flow performs the external authentication steps. The default flow talks to
// Google; tests plug in a stub.
type Flow interface {
	// Authorize obtains a credential, interactively if necessary.
	Authorize(ctx context.Context) (*oauth2.Token, error)
	// Identify resolves the credential to the user behind it.
	Identify(ctx context.Context, tok *oauth2.Token) (Identity, error)
	// Client wraps the credential in an HTTP client for API calls.
	Client(ctx context.Context, tok *oauth2.Token) (*http.Client, error)
	// Revoke discards any locally cached credential.
	Revoke() error
}

// Session holds the current identity and credential.
type Session struct {
	flow   Flow
	logger *slog.Logger

	mu        sync.Mutex
	identity  *Identity
	token     *oauth2.Token
	onSignOut []func()
}

type Option func(*Session)

// WithFlow replaces the Google flow, for tests.
func WithFlow(f Flow) Option {
	return func(s *Session) { s.flow = f }
}

func New(logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{flow: &googleFlow{logger: logger}, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn authenticates and records the resulting identity. Failures leave
// the session signed out.
func (s *Session) SignIn(ctx context.Context) (Identity, error) {
	tok, err := s.flow.Authorize(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("authorization failed: %w", err)
	}
	id, err := s.flow.Identify(ctx, tok)
	if err != nil {
		return Identity{}, fmt.Errorf("could not resolve identity: %w", err)
	}

	s.mu.Lock()
	s.identity = &id
	s.token = tok
	s.mu.Unlock()
	s.logger.Info("signed in", "user", id.Email)
	return id, nil
}

// SignOut discards the credential and identity and notifies listeners.
func (s *Session) SignOut() {
	if err := s.flow.Revoke(); err != nil {
		s.logger.Warn("could not revoke cached credential", "error", err.Error())
	}
	s.clear("signed out")
}

// Invalidate drops the session without revoking, used when a call came back
// unauthorized and the credential is already dead.
func (s *Session) Invalidate() {
	s.clear("session expired")
}

func (s *Session) clear(reason string) {
	s.mu.Lock()
	wasSignedIn := s.identity != nil
	s.identity = nil
	s.token = nil
	listeners := append([]func(){}, s.onSignOut...)
	s.mu.Unlock()

	if !wasSignedIn {
		return
	}
	s.logger.Info(reason)
	for _, fn := range listeners {
		fn()
	}
}

// OnSignOut registers fn to run whenever the session transitions to
// signed-out, including forced invalidation.
func (s *Session) OnSignOut(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSignOut = append(s.onSignOut, fn)
}

// Current returns the signed-in identity, or nil.
func (s *Session) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// Token returns the current credential, or nil when signed out.
func (s *Session) Token() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SignedIn reports whether an identity and credential are present.
func (s *Session) SignedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity != nil && s.token != nil
}

// HTTPClient returns an authenticated client for Google API calls.
func (s *Session) HTTPClient(ctx context.Context) (*http.Client, error) {
	s.mu.Lock()
	tok := s.token
	s.mu.Unlock()
	if tok == nil {
		return nil, ErrSignedOut
	}
	return s.flow.Client(ctx, tok)
}

// googleFlow is the production Flow: localhost OAuth capture
// plus a userinfo lookup for the identity.
type googleFlow struct {
	logger *slog.Logger

	mu     sync.Mutex
	config *oauth2.Config
}

func (g *googleFlow) oauthConfig() (*oauth2.Config, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.config == nil {
		cfg, err := auth.GetConfig()
		if err != nil {
			return nil, err
		}
		g.config = cfg
	}
	return g.config, nil
}

func (g *googleFlow) Authorize(ctx context.Context) (*oauth2.Token, error) {
	cfg, err := g.oauthConfig()
	if err != nil {
		return nil, err
	}
	return auth.Token(ctx, cfg, g.logger)
}

func (g *googleFlow) Identify(ctx context.Context, tok *oauth2.Token) (Identity, error) {
	cfg, err := g.oauthConfig()
	if err != nil {
		return Identity{}, err
	}
	svc, err := oauth2api.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx, tok)))
	if err != nil {
		return Identity{}, fmt.Errorf("failed to create userinfo service: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Identity{}, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	name := info.GivenName
	if name == "" {
		name = info.Name
	}
	return Identity{Name: name, Email: info.Email, Picture: info.Picture}, nil
}

func (g *googleFlow) Client(ctx context.Context, tok *oauth2.Token) (*http.Client, error) {
	cfg, err := g.oauthConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Client(ctx, tok), nil
}

func (g *googleFlow) Revoke() error {
	return auth.RemoveToken()
}
