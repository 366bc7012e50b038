// Package auth provides identity for the studio: GitHub OAuth sign-in, JWT
// session cookies, and the middleware that turns a request into either a
// signed-in user or an anonymous studio session.
//
// AUTHENTICATION FLOW:
//  1. User visits /auth/github/login and is redirected to GitHub
//  2. GitHub calls back /auth/github/callback with a code
//  3. The server exchanges the code for the GitHub profile and upserts the user
//  4. The server issues a JWT and stores it in the HttpOnly "token" cookie
//  5. On later requests the middleware validates the JWT and puts the user
//     ID in the request context
//
// Every browser also carries a "sid" cookie, signed in or not. The studio
// is keyed on it, so editor state survives reloads and sign-in.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer is written to and required on every token.
const Issuer = "code-studio"

// TokenTTL is the lifetime of a session token.
const TokenTTL = 24 * time.Hour

// TokenService handles JWT creation and validation with an HMAC secret.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims uses "sub" for the internal user ID.
type claims struct {
	jwt.RegisteredClaims
}

// Generate signs a session token for userID valid for TokenTTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, TokenTTL)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use a
// negative duration to get an expired token.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a JWT string and returns its subject.
//
// Only HS256 tokens from this issuer with an expiry are accepted; passing
// jwt.WithValidMethods rules out "alg: none" and algorithm confusion.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}
	return c.Subject, nil
}
