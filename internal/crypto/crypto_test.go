package crypto

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	return key
}

func pkcs1PEM(pub *rsa.PublicKey) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(pub)}))
}

func TestParsePublicKey_Formats(t *testing.T) {
	key := generateKey(t)
	pkix, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	formats := map[string]string{
		"pkcs1 pem": pkcs1PEM(&key.PublicKey),
		"pkix pem":  string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pkix})),
		"bare der":  base64.StdEncoding.EncodeToString(pkix),
	}
	for name, raw := range formats {
		t.Run(name, func(t *testing.T) {
			pub, err := ParsePublicKey(raw)
			require.NoError(t, err)
			assert.True(t, pub.Equal(&key.PublicKey))
		})
	}

	_, err = ParsePublicKey("not a key")
	assert.ErrorIs(t, err, ErrInvalidPublicKey)
}

func TestEncryptPassword_RoundTrip(t *testing.T) {
	key := generateKey(t)

	encoded, err := EncryptPassword(&key.PublicKey, "12345678")
	require.NoError(t, err)

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, key, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "12345678", string(plain))

	_, err = EncryptPassword(&key.PublicKey, "")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestPasswordEncrypter_FetchesKeyOnce(t *testing.T) {
	key := generateKey(t)
	var calls atomic.Int32
	enc := NewPasswordEncrypter(func(context.Context) (string, error) {
		calls.Add(1)
		return pkcs1PEM(&key.PublicKey), nil
	})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := enc.Encrypt(context.Background(), "secret")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestPasswordEncrypter_RetriesAfterFailure(t *testing.T) {
	key := generateKey(t)
	fail := true
	enc := NewPasswordEncrypter(func(context.Context) (string, error) {
		if fail {
			return "", errors.New("api down")
		}
		return pkcs1PEM(&key.PublicKey), nil
	})

	_, err := enc.Encrypt(context.Background(), "secret")
	require.Error(t, err)

	fail = false
	_, err = enc.Encrypt(context.Background(), "secret")
	assert.NoError(t, err)
}

func TestPasswordEncrypter_RefetchesAfterTTL(t *testing.T) {
	key := generateKey(t)
	var calls atomic.Int32
	enc := NewPasswordEncrypter(func(context.Context) (string, error) {
		calls.Add(1)
		return pkcs1PEM(&key.PublicKey), nil
	})
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	enc.now = func() time.Time { return now }

	_, err := enc.Encrypt(context.Background(), "secret")
	require.NoError(t, err)
	now = now.Add(DefaultKeyTTL - time.Second)
	_, err = enc.Encrypt(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	now = now.Add(2 * time.Second)
	_, err = enc.Encrypt(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPasswordEncrypter_Refresh(t *testing.T) {
	first, second := generateKey(t), generateKey(t)
	current := first
	var down bool
	enc := NewPasswordEncrypter(func(context.Context) (string, error) {
		if down {
			return "", errors.New("api down")
		}
		return pkcs1PEM(&current.PublicKey), nil
	})
	ctx := context.Background()

	_, err := enc.Encrypt(ctx, "secret")
	require.NoError(t, err)

	changed, err := enc.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "same key")

	current = second
	changed, err = enc.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed, "rotated key")

	encoded, err := enc.Encrypt(ctx, "secret")
	require.NoError(t, err)
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	plain, err := rsa.DecryptPKCS1v15(rand.Reader, second, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(plain))

	down = true
	_, err = enc.Refresh(ctx)
	require.Error(t, err)
	_, err = enc.Encrypt(ctx, "secret")
	assert.NoError(t, err, "old key stays in use")
}

func TestDeriveKey(t *testing.T) {
	a, err := DeriveKey("secret", "session cookie", 32)
	require.NoError(t, err)
	b, err := DeriveKey("secret", "session cookie", 32)
	require.NoError(t, err)
	c, err := DeriveKey("secret", "csrf", 32)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err = DeriveKey("", "session cookie", 32)
	assert.Error(t, err)
}
