package crypto

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	ErrInvalidPublicKey = errors.New("public key is not a valid RSA key")
	ErrEmptyPassword    = errors.New("password is empty")
)

// ParsePublicKey accepts PEM ("PUBLIC KEY" or "RSA PUBLIC KEY") as well as a
// bare base64 DER body, the shapes JSEncrypt accepts.
func ParsePublicKey(key string) (*rsa.PublicKey, error) {
	key = strings.TrimSpace(key)
	var der []byte
	if block, _ := pem.Decode([]byte(key)); block != nil {
		der = block.Bytes
	} else {
		decoded, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(key), ""))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
		}
		der = decoded
	}

	if pub, err := x509.ParsePKIXPublicKey(der); err == nil {
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, ErrInvalidPublicKey
		}
		return rsaPub, nil
	}
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	return pub, nil
}

// EncryptPassword encrypts with RSA PKCS#1 v1.5 and base64 encodes the
// result, which is what the login endpoint decrypts.
func EncryptPassword(pub *rsa.PublicKey, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(password))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt password: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// KeyFetcher returns the current public key from the API.
type KeyFetcher func(ctx context.Context) (string, error)

// DefaultKeyTTL bounds how long a fetched key is used before it is fetched
// again.
const DefaultKeyTTL = time.Hour

// PasswordEncrypter fetches the public key on first use and keeps it for
// ttl. A failed fetch is retried on the next call.
type PasswordEncrypter struct {
	fetch KeyFetcher
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	key       *rsa.PublicKey
	fetchedAt time.Time
}

func NewPasswordEncrypter(fetch KeyFetcher) *PasswordEncrypter {
	return &PasswordEncrypter{fetch: fetch, ttl: DefaultKeyTTL, now: time.Now}
}

func (e *PasswordEncrypter) publicKey(ctx context.Context) (*rsa.PublicKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.key != nil && (e.ttl <= 0 || e.now().Sub(e.fetchedAt) < e.ttl) {
		return e.key, nil
	}
	return e.fetchLocked(ctx)
}

func (e *PasswordEncrypter) fetchLocked(ctx context.Context) (*rsa.PublicKey, error) {
	raw, err := e.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public key: %w", err)
	}
	key, err := ParsePublicKey(raw)
	if err != nil {
		return nil, err
	}
	e.key = key
	e.fetchedAt = e.now()
	return key, nil
}

// Refresh fetches the key again and reports whether it differs from the one
// that was in use. On error the old key is kept.
func (e *PasswordEncrypter) Refresh(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.key
	key, err := e.fetchLocked(ctx)
	if err != nil {
		return false, err
	}
	return old == nil || !old.Equal(key), nil
}

func (e *PasswordEncrypter) Encrypt(ctx context.Context, password string) (string, error) {
	key, err := e.publicKey(ctx)
	if err != nil {
		return "", err
	}
	return EncryptPassword(key, password)
}
