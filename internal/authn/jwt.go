// Package authn guards the admin API with HS256 bearer tokens.
package authn

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/auditoria360/auditoria360/internal/audit"
	"github.com/auditoria360/auditoria360/internal/platform/httpx"
)

// ScopeWrite allows create, update and delete.
const ScopeWrite = "parametros:write"

// Claims are the token claims understood by the middleware. Scope is a
// space-separated list as in OAuth 2.0.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// HasScope reports whether the claims grant scope.
func (c Claims) HasScope(scope string) bool {
	return slices.Contains(strings.Fields(c.Scope), scope)
}

// Middleware validates bearer tokens. A nil Middleware or an empty secret
// disables authentication.
type Middleware struct {
	secret []byte
	logger *slog.Logger
}

// New constructs the middleware.
func New(secret string, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{secret: []byte(secret), logger: logger}
}

// Enabled reports whether tokens are required.
func (m *Middleware) Enabled() bool {
	return m != nil && len(m.secret) > 0
}

// Handler enforces authentication on next. Safe methods need any valid token,
// others need ScopeWrite. The token subject is stored as the change-log actor.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	if !m.Enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.authenticate(r)
		if err != nil {
			m.logger.Warn("reject token", slog.String("path", r.URL.Path), slog.Any("error", err))
			w.Header().Set("WWW-Authenticate", `Bearer realm="auditoria360"`)
			httpx.RespondError(w, err)
			return
		}
		if !safeMethod(r.Method) && !claims.HasScope(ScopeWrite) {
			httpx.RespondError(w, fmt.Errorf("%w: scope %s required", httpx.ErrForbidden, ScopeWrite))
			return
		}
		ctx := audit.WithActor(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) authenticate(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: bearer token missing", httpx.ErrUnauthorized)
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token subject missing", httpx.ErrUnauthorized)
	}
	return claims, nil
}

// Issue signs a token for subject carrying scopes, valid for ttl.
func Issue(secret, subject string, scopes []string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("authn: secret required")
	}
	if subject == "" {
		return "", errors.New("authn: subject required")
	}
	now := time.Now()
	claims := Claims{
		Scope: strings.Join(scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func safeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
