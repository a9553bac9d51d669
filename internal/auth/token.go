// ABOUTME: JWT session token issue and verification for HTTP requests
// ABOUTME: Uses HS256 signing with configurable secret and TTL

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/2389/dushu/internal/store"
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Session is the verified identity carried by a session token.
type Session struct {
	Authenticated bool
	User          string // lowercased email; empty in password mode
	Name          string // display name; empty in password mode
}

// Identity returns the store partition key for this session: the user
// email, or the sentinel user when the session carries no identity.
func (s Session) Identity() string {
	if s.User == "" {
		return store.SentinelUser
	}
	return s.User
}

// TokenCodec issues and verifies HS256-signed session tokens.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenCodec creates a codec with the given signing secret and token TTL.
func NewTokenCodec(secret []byte, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: secret, ttl: ttl}
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue creates a signed token carrying the session claims.
func (c *TokenCodec) Issue(sess Session) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"authenticated": sess.Authenticated,
		"user":          sess.User,
		"name":          sess.Name,
		"iat":           now.Unix(),
		"exp":           now.Add(c.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify validates the token signature and expiry and extracts the session.
func (c *TokenCodec) Verify(tokenString string) (Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, ErrExpiredToken
		}
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return Session{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Session{}, ErrInvalidToken
	}

	sess := Session{}
	if v, ok := claims["authenticated"].(bool); ok {
		sess.Authenticated = v
	}
	if v, ok := claims["user"].(string); ok {
		sess.User = v
	}
	if v, ok := claims["name"].(string); ok {
		sess.Name = v
	}

	if !sess.Authenticated {
		return Session{}, ErrInvalidToken
	}

	return sess, nil
}
