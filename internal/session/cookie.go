package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hetaoshu/hetaoshu-web/internal/crypto"
)

var ErrInvalidCookie = errors.New("invalid session cookie")

// Signer turns session ids into HS256 tokens for the session cookie. The
// tokens carry no expiry: a session ends on logout or on a 401 from the API.
type Signer struct {
	key []byte
}

func NewSigner(secret string) (*Signer, error) {
	key, err := crypto.DeriveKey(secret, "hetaoshu-web session cookie", 32)
	if err != nil {
		return nil, err
	}
	return &Signer{key: key}, nil
}

func (s *Signer) Sign(sessionID string) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:       sessionID,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("can't sign session cookie: %w", err)
	}
	return token, nil
}

// Parse verifies the cookie value and returns the session id.
func (s *Signer) Parse(value string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(value, &claims, func(token *jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrInvalidCookie
	}
	if claims.ID == "" {
		return "", ErrInvalidCookie
	}
	return claims.ID, nil
}
