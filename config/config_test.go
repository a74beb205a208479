package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(newFlags(t, "--token-secret", "s3cret"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:80", cfg.Addr)
	assert.Equal(t, "formify.sqlite", cfg.DBUrl)
	assert.Equal(t, 120*time.Second, cfg.TokenTTL)
	assert.Equal(t, time.Minute, cfg.Reports.SweepInterval)
	assert.Equal(t, 25, cfg.SMTP.Port)
	assert.Equal(t, "http://localhost:80", cfg.Url())
}

func TestLoad_MissingSecret(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load(newFlags(t, "--db-url", "other.sqlite"))
	require.ErrorIs(t, err, ErrMissingSecret)
	assert.Contains(t, err.Error(), "token-secret")
	assert.Equal(t, "other.sqlite", cfg.DBUrl)
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FORMIFY_TOKEN_SECRET", "from-env")
	t.Setenv("FORMIFY_SMTP_HOST", "mail.local")

	cfg, err := Load(newFlags(t, "--port", "8080"))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.TokenSecret)
	assert.Equal(t, "mail.local", cfg.SMTP.Host)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
}
