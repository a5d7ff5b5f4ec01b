package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/boddenberg/nextcrm-core/internal/domain"
)

const sessionTokenBytes = 32

// generateSessionToken returns 256 random bits, hex encoded.
func generateSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// TokenCodec converts between the session token kept in the store and the
// access token handed to clients.
type TokenCodec interface {
	Encode(sess *domain.Session, email string) (string, error)
	// Decode returns the session token carried by raw. Any failure is an
	// AUTH.INVALID_TOKEN error.
	Decode(raw string) (string, error)
}

// OpaqueCodec hands out the session token itself.
type OpaqueCodec struct{}

func (OpaqueCodec) Encode(sess *domain.Session, _ string) (string, error) {
	return sess.Token, nil
}

func (OpaqueCodec) Decode(raw string) (string, error) {
	return raw, nil
}

// sessionClaims is the signed envelope. jti carries the session token so
// revocation stays server-side.
type sessionClaims struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// JWTCodec wraps the session token in an HS256 JWT.
type JWTCodec struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTCodec creates a codec signing with secret.
func NewJWTCodec(secret, issuer, audience string) *JWTCodec {
	return &JWTCodec{secret: []byte(secret), issuer: issuer, audience: audience}
}

func (c *JWTCodec) Encode(sess *domain.Session, email string) (string, error) {
	claims := sessionClaims{
		TenantID: sess.TenantID,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			Subject:   sess.UserID,
			ID:        sess.Token,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (c *JWTCodec) Decode(raw string) (string, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil || claims.ID == "" {
		return "", domain.InvalidToken(domain.TokenNotFound)
	}
	return claims.ID, nil
}
