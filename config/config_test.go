package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "https://www.gebiz.gov.sg/", cfg.Portal.URL)
	assert.Equal(t, DefaultKeywords, cfg.Portal.Keywords)
	assert.Equal(t, 5*time.Second, cfg.Scraper.WaitTimeout)
	assert.Equal(t, 15*time.Second, cfg.Scraper.StalenessTimeout)
	assert.Equal(t, 1, cfg.Scraper.MaxSessions)
	assert.Equal(t, 4, cfg.Classifier.Workers)
	assert.True(t, cfg.Auth.Enabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TENDERSCOPE_PORT", "9090")
	t.Setenv("TENDERSCOPE_KEYWORDS", "Cleaning, Security ,")
	t.Setenv("TENDERSCOPE_WAIT_TIMEOUT", "2s")
	t.Setenv("TENDERSCOPE_STEALTH", "true")
	t.Setenv("TENDERSCOPE_MAX_SESSIONS", "not-a-number")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"Cleaning", "Security"}, cfg.Portal.Keywords)
	assert.Equal(t, 2*time.Second, cfg.Scraper.WaitTimeout)
	assert.True(t, cfg.Browser.Stealth)
	assert.Equal(t, 1, cfg.Scraper.MaxSessions, "invalid ints fall back to the default")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TENDERSCOPE_DOTENV_CHECK=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TENDERSCOPE_DOTENV_CHECK") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("TENDERSCOPE_DOTENV_CHECK"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
