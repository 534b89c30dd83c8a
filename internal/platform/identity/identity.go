// Package identity verifies bearer tokens issued by the hosted identity
// provider.
package identity

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
)

var (
	ErrMissingToken = apperror.Auth("Missing or invalid token")
	ErrInvalidToken = apperror.Auth("Invalid or expired token")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID        string
	Email         string
	EmailVerified bool
}

// Claims are the token claims this service reads.
type Claims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 tokens.
type Verifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewVerifier creates a verifier. Empty issuer or audience skips that check.
func NewVerifier(secret, issuer, audience string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Verify parses tokenString and returns the caller it identifies.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, apperror.Wrap(ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		UserID:        claims.Subject,
		Email:         strings.ToLower(strings.TrimSpace(claims.Email)),
		EmailVerified: claims.EmailVerified,
	}, nil
}

// Sign issues a token for id valid for ttl. Used by tests and local tooling;
// production tokens come from the identity provider.
func (v *Verifier) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// TokenFromRequest reads the bearer token from the Authorization header.
func TokenFromRequest(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// UpgradeTokenFromRequest is TokenFromRequest that also accepts the token
// query parameter. Browsers cannot set headers on a WebSocket upgrade, so
// only upgrade routes may use it.
func UpgradeTokenFromRequest(r *http.Request) string {
	if tok := TokenFromRequest(r); tok != "" {
		return tok
	}
	return r.URL.Query().Get("token")
}

// Authenticate verifies the request's Authorization header.
func (v *Verifier) Authenticate(r *http.Request) (Identity, error) {
	return v.Verify(TokenFromRequest(r))
}

// AuthenticateUpgrade verifies a WebSocket upgrade request.
func (v *Verifier) AuthenticateUpgrade(r *http.Request) (Identity, error) {
	return v.Verify(UpgradeTokenFromRequest(r))
}
