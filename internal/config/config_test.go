package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hetaoshu/hetaoshu-web/internal/carousel"
	"github.com/hetaoshu/hetaoshu-web/internal/replytree"
)

func writeConfig(t *testing.T, public, private string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "public.yaml"), []byte(public), 0o600))
	if private != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "private.yaml"), []byte(private), 0o600))
	}
	return dir
}

func TestMustLoad_RequiredFields(t *testing.T) {
	// api_base_url is intentionally missing
	dir := writeConfig(t, "request_timeout: 5s\n", "session_secret: 'a-long-enough-secret'\n")

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic due to missing required field, got none")
		}
	}()

	_ = MustLoad(dir)
}

func TestLoad_Defaults(t *testing.T) {
	dir := writeConfig(t, "api_base_url: http://api:8000/api\n", "session_secret: 'a-long-enough-secret'\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Public.Port)
	assert.Equal(t, "Token", cfg.Public.AuthScheme)
	assert.Equal(t, 10, cfg.Public.MaxImages)
	assert.Equal(t, int64(30<<20), cfg.Public.MaxImageSize)
	assert.Equal(t, replytree.DefaultMaxDepth, cfg.Public.CommentMaxDepth)
	assert.Equal(t, carousel.DefaultMaxAspect, cfg.Public.CarouselMaxAspect)
	assert.Equal(t, carousel.DefaultFallbackAspect, cfg.Public.CarouselDefaultAspect)
	assert.Equal(t, SessionBackendMemory, cfg.Public.SessionBackend)
}

func TestLoad_YAMLValues(t *testing.T) {
	dir := writeConfig(t,
		"api_base_url: http://api:8000/api\nrequest_timeout: 2s\ncomment_max_depth: 3\nsession_backend: redis\n",
		"session_secret: 'a-long-enough-secret'\nredis:\n  addr: localhost:6379\n")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Public.RequestTimeout)
	assert.Equal(t, 3, cfg.Public.CommentMaxDepth)
	assert.Equal(t, "localhost:6379", cfg.Private.Redis.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := writeConfig(t, "api_base_url: http://api:8000/api\n", "")
	t.Setenv("SESSION_SECRET", "secret-from-the-environment")
	t.Setenv("API_BASE_URL", "http://other:9000/api")
	t.Setenv("PG_HOST", "db")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://other:9000/api", cfg.Public.APIBaseURL)
	assert.Equal(t, "secret-from-the-environment", cfg.Private.SessionSecret)
	assert.Equal(t, "db", cfg.Private.Pg.Host)
}

func TestLoad_BackendRequiresConnectionSettings(t *testing.T) {
	dir := writeConfig(t,
		"api_base_url: http://api:8000/api\nsession_backend: postgres\n",
		"session_secret: 'a-long-enough-secret'\n")

	_, err := Load(dir)
	assert.ErrorContains(t, err, "pg.host")
}

func TestLoad_MissingPublicFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "does not exist")
}

func TestLoad_TrustedProxies(t *testing.T) {
	dir := writeConfig(t, "api_base_url: http://api:8000/api\ntrusted_proxies: ['127.0.0.1', '10.0.0.0/8']\n", "session_secret: 'a-long-enough-secret'\n")
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1", "10.0.0.0/8"}, cfg.Public.TrustedProxies)

	dir = writeConfig(t, "api_base_url: http://api:8000/api\ntrusted_proxies: ['everyone']\n", "session_secret: 'a-long-enough-secret'\n")
	_, err = Load(dir)
	assert.Error(t, err)
}
