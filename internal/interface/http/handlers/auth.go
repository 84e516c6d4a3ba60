package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// SessionAuth verifies JWTs issued by the external identity subsystem. This
// service never issues tokens; it only checks the HMAC signature and expiry
// and exposes the subject to downstream handlers.
type SessionAuth struct {
	secret     []byte
	cookieName string
}

// NewSessionAuth creates a session verifier. An empty secret disables
// verification entirely, which is only acceptable in development.
func NewSessionAuth(secret, cookieName string) *SessionAuth {
	return &SessionAuth{
		secret:     []byte(secret),
		cookieName: cookieName,
	}
}

// Enabled reports whether verification is active.
func (a *SessionAuth) Enabled() bool {
	return len(a.secret) > 0
}

// sessionClaims is the subset of claims this service reads.
type sessionClaims struct {
	jwt.RegisteredClaims
}

// ContextKeySubject is the context key under which the verified token
// subject (the caller's user ID) is stored.
const ContextKeySubject ContextKey = "auth_subject"

// SubjectFromContext returns the verified caller identity, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	sub, ok := ctx.Value(ContextKeySubject).(string)
	return sub, ok
}

// extractToken pulls the raw JWT from the Authorization header or the
// session cookie, in that order.
func (a *SessionAuth) extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if a.cookieName != "" {
		if c, err := r.Cookie(a.cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}

// Verify parses and validates a raw token, returning the subject.
func (a *SessionAuth) Verify(raw string) (string, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Middleware rejects requests without a valid session token. When
// verification is disabled the middleware passes everything through.
func (a *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		raw := a.extractToken(r)
		if raw == "" {
			writeAuthError(w, "missing_token", "Authentication token is required")
			return
		}

		subject, err := a.Verify(raw)
		if err != nil {
			writeAuthError(w, "invalid_token", "Authentication token is invalid or expired")
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeySubject, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeAuthError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"error":{"code":"` + code + `","message":"` + message + `"}}`))
}
