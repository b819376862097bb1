package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"DESARQ_ADDR", "JWT_SIGNING_KEY", "DATABASE_URL", "LOG_LEVEL", "LOG_FORMAT",
		"STALE_THRESHOLD", "SCAN_SCHEDULE", "CLEANUP_SCHEDULE", "NOTIFICATION_RETENTION", "SCHEDULER_ENABLED", "DOCUMENT_FORMAT"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.True(t, cfg.UsesDevSigningKey())
	assert.Empty(t, cfg.Database.URL)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, DefaultStaleThreshold, cfg.Scheduler.StaleThreshold)
	assert.Equal(t, DefaultNotificationRetention, cfg.Scheduler.NotificationRetention)
	assert.Equal(t, DefaultScanSchedule, cfg.Scheduler.ScanSchedule)
	assert.Equal(t, "text", cfg.Document.Format)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DESARQ_ADDR", ":9090")
	t.Setenv("STALE_THRESHOLD", "72h")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("LOG_FORMAT", "TEXT")

	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 72*time.Hour, cfg.Scheduler.StaleThreshold)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestValidateReportsBadValues(t *testing.T) {
	t.Setenv("STALE_THRESHOLD", "five days")
	t.Setenv("SCAN_SCHEDULE", "every hour")
	t.Setenv("JWT_SIGNING_KEY", "short")
	t.Setenv("LOG_LEVEL", "loud")
	t.Setenv("DOCUMENT_FORMAT", "pdf")

	cfg := FromEnv()
	assert.Equal(t, DefaultStaleThreshold, cfg.Scheduler.StaleThreshold, "bad duration falls back")

	err := cfg.Validate()
	require.Error(t, err)
	for _, fragment := range []string{"STALE_THRESHOLD", "SCAN_SCHEDULE", "JWT_SIGNING_KEY", "LOG_LEVEL", "DOCUMENT_FORMAT"} {
		assert.Contains(t, err.Error(), fragment)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DESARQ_TEST_ONLY=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DESARQ_TEST_ONLY") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("DESARQ_TEST_ONLY"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
