// Package auth keeps the console's access and refresh tokens in cookies and
// guards admin routes. Tokens are issued upstream; the console only reads
// their expiry and never verifies signatures.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/goliatone/go-handyadmin/pkg/client"
)

// Upstream token endpoints.
const (
	TokenPath   = "token/"
	RefreshPath = "token/refresh/"
)

// SessionExpiredMessage is the toast shown when a refresh fails.
const SessionExpiredMessage = "Your session has expired, please log in again."

var (
	// ErrNoToken means the request carries no access cookie.
	ErrNoToken = errors.New("auth: no token")
	// ErrTokenExpired means the access token's exp claim has passed.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrRefreshFailed means the refresh endpoint rejected the refresh token.
	ErrRefreshFailed = errors.New("auth: refresh failed")
	// ErrInvalidCredentials means the token endpoint rejected a login.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
)

// TokenAPI is the subset of client.Client used for token exchange.
type TokenAPI interface {
	PostJSON(ctx context.Context, path string, in, out any) error
}

// Tokens is the pair returned by the token endpoint.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Config names the cookies and the login route.
type Config struct {
	AccessCookie  string
	RefreshCookie string
	LoginPath     string
	// Secure marks cookies as HTTPS-only.
	Secure bool
}

func (c Config) withDefaults() Config {
	if c.AccessCookie == "" {
		c.AccessCookie = "access"
	}
	if c.RefreshCookie == "" {
		c.RefreshCookie = "refresh"
	}
	if c.LoginPath == "" {
		c.LoginPath = "/login"
	}
	return c
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service logs users in and out and resolves sessions from cookies.
type Service struct {
	api    TokenAPI
	cfg    Config
	now    func() time.Time
	logger *zap.Logger
}

// NewService constructs a Service.
func NewService(api TokenAPI, cfg Config, opts ...Option) *Service {
	s := &Service{
		api:    api,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// Login exchanges credentials for tokens.
func (s *Service) Login(ctx context.Context, username, password string) (Tokens, error) {
	var tokens Tokens
	in := map[string]string{"username": username, "password": password}
	if err := s.api.PostJSON(ctx, TokenPath, in, &tokens); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
			return Tokens{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return Tokens{}, fmt.Errorf("auth: login: %w", err)
	}
	if tokens.Access == "" {
		return Tokens{}, fmt.Errorf("%w: empty access token", ErrInvalidCredentials)
	}
	return tokens, nil
}

// Refresh trades a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refresh string) (string, error) {
	if refresh == "" {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, ErrNoToken)
	}
	var out struct {
		Access string `json:"access"`
	}
	if err := s.api.PostJSON(ctx, RefreshPath, map[string]string{"refresh": refresh}, &out); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if out.Access == "" {
		return "", fmt.Errorf("%w: empty access token", ErrRefreshFailed)
	}
	return out.Access, nil
}

// Expired reports whether token's exp claim is at or before now. Tokens
// without exp never expire; tokens that fail to decode are expired.
func (s *Service) Expired(token string) bool {
	exp, err := Expiry(token)
	if err != nil {
		return true
	}
	return !exp.IsZero() && !s.now().Before(exp)
}

// Expiry decodes the exp claim without verifying the signature.
func Expiry(token string) (time.Time, error) {
	claims, err := parseClaims(token)
	if err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("auth: read exp: %w", err)
	}
	if exp == nil {
		return time.Time{}, nil
	}
	return exp.Time, nil
}

func parseClaims(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("auth: decode token: %w", err)
	}
	return claims, nil
}

// Profile is the user shown in the topbar, read from token claims.
type Profile struct {
	UserID   string
	Username string
}

// Display returns the name shown in the page shell.
func (p Profile) Display() string {
	if p.Username != "" {
		return p.Username
	}
	return p.UserID
}

// ProfileFromToken reads the username and user id claims.
func ProfileFromToken(token string) Profile {
	claims, err := parseClaims(token)
	if err != nil {
		return Profile{}
	}
	var p Profile
	for _, key := range []string{"username", "name", "email"} {
		if v, ok := claims[key].(string); ok && strings.TrimSpace(v) != "" {
			p.Username = v
			break
		}
	}
	switch v := claims["user_id"].(type) {
	case string:
		p.UserID = v
	case float64:
		p.UserID = fmt.Sprintf("%.0f", v)
	}
	if p.UserID == "" {
		if sub, err := claims.GetSubject(); err == nil {
			p.UserID = sub
		}
	}
	return p
}
