package app

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("CSRF_SECRET", "s3cret")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, int32(10), cfg.PGMaxConns)
	assert.Equal(t, "stockroom_session", cfg.SessionCookie)
	assert.False(t, cfg.IsProduction())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Ho_Chi_Minh", loc.String())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("CSRF_SECRET", "s3cret")
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("SESSION_TTL", "0s")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRequiresCSRFSecret(t *testing.T) {
	t.Setenv("CSRF_SECRET", "")
	_, err := LoadConfig()
	require.Error(t, err)
}
