// Package auth authenticates API callers from bearer JWTs. Tokens are issued
// elsewhere; this package only verifies them.
package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/fieldsales/internal/platform/httpx"
	"github.com/odyssey-erp/fieldsales/internal/shared"
)

const (
	claimRole   = "rol"
	claimZone   = "zona_id"
	claimName   = "nombre"
	signingAlgo = "HS256"
)

// Verifier validates HS256 bearer tokens and exposes the caller in context.
type Verifier struct {
	ja     *jwtauth.JWTAuth
	logger *slog.Logger
}

// NewVerifier constructs a Verifier for the shared signing secret.
func NewVerifier(secret string, logger *slog.Logger) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: jwt secret must be provided")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{ja: jwtauth.New(signingAlgo, []byte(secret), nil), logger: logger}, nil
}

// JWTAuth exposes the underlying signer, used by tooling that mints tokens.
func (v *Verifier) JWTAuth() *jwtauth.JWTAuth {
	return v.ja
}

// Authenticate rejects requests without a valid token and stores the caller
// in the request context.
func (v *Verifier) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := jwtauth.TokenFromHeader(r)
		if raw == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}
		caller, err := v.Verify(raw)
		if err != nil {
			v.logger.Debug("reject token", slog.Any("error", err))
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithCaller(r.Context(), caller)))
	})
}

// Verify validates a token string and maps its claims to a Caller.
func (v *Verifier) Verify(raw string) (*shared.Caller, error) {
	token, err := jwtauth.VerifyToken(v.ja, raw)
	if err != nil {
		return nil, fmt.Errorf("auth: verify: %w", err)
	}
	if token.Subject() == "" {
		return nil, fmt.Errorf("auth: token without subject: %w", shared.ErrUnauthenticated)
	}
	claims := token.PrivateClaims()
	role := shared.Role(stringClaim(claims, claimRole))
	if !role.Valid() {
		return nil, fmt.Errorf("auth: unknown role %q: %w", role, shared.ErrUnauthenticated)
	}
	caller := &shared.Caller{
		UserID: token.Subject(),
		Name:   stringClaim(claims, claimName),
		Role:   role,
	}
	if zone := stringClaim(claims, claimZone); zone != "" {
		id, err := uuid.Parse(zone)
		if err != nil {
			return nil, fmt.Errorf("auth: zone claim: %w", shared.ErrUnauthenticated)
		}
		caller.ZoneID = &id
	}
	return caller, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
