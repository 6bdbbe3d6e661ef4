package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_Defaults(t *testing.T) {
	cfg, err := ParseFlags([]string{"-token-secret", "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:80", cfg.Addr)
	assert.Equal(t, "qforms.sqlite", cfg.DBUrl)
	assert.Equal(t, 120*time.Second, cfg.TokenTTL)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadSize)
	assert.Equal(t, "/uploads", cfg.UploadBaseURL)
	assert.True(t, cfg.OneResponsePerIP)
	assert.Equal(t, 3, cfg.PreviewImages)
	assert.Equal(t, "http://localhost:80", cfg.Url())
}

func TestParseFlags_MissingSecret(t *testing.T) {
	_, err := ParseFlags([]string{})
	assert.EqualError(t, err, "missing parameter -token-secret")
}

func TestParseFlags_AdminNeedsPassword(t *testing.T) {
	_, err := ParseFlags([]string{"-token-secret", "x", "-admin-user", "root"})
	assert.EqualError(t, err, "missing parameter -admin-password")
}

func TestParseFlags_EnvFallback(t *testing.T) {
	t.Setenv("QF_PORT", "9000")
	t.Setenv("QF_TOKEN_SECRET", "from-env")
	t.Setenv("QF_ONE_RESPONSE_PER_IP", "false")

	cfg, err := ParseFlags([]string{})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, "from-env", cfg.TokenSecret)
	assert.False(t, cfg.OneResponsePerIP)
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("QF_PORT", "9000")

	cfg, err := ParseFlags([]string{"-port", "8080", "-token-secret", "x", "-upload-base-url", "https://cdn.example.com/u/"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, "https://cdn.example.com/u", cfg.UploadBaseURL)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("QF_TEST_LOADENV=yes\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("QF_TEST_LOADENV") })

	require.NoError(t, LoadEnv(path))
	assert.Equal(t, "yes", os.Getenv("QF_TEST_LOADENV"))

	assert.NoError(t, LoadEnv(filepath.Join(dir, "missing.env")))
}
