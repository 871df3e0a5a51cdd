package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Flaque/filet"
	"github.com/UnknownOlympus/mapview/internal/config"
	"github.com/stretchr/testify/assert"
)

const missingEnvFile = "testdata/does-not-exist.env"

func Test_MustLoadFromEnvironment(t *testing.T) {
	t.Setenv("MAPVIEW_ENV", "local")
	t.Setenv("MAPVIEW_SESSION_TTL", "10m")
	t.Setenv("MAPVIEW_PROVIDER_TYPE", "nominatim")
	t.Setenv("MAPVIEW_PROVIDER_KEY", "testAPIKey")
	t.Setenv("MAPVIEW_RATE_LIMIT", "25")
	t.Setenv("DB_HOST", "testHost")
	t.Setenv("DB_PORT", "12345")
	t.Setenv("DB_USERNAME", "admin")
	t.Setenv("DB_PASSWORD", "adminpass")
	t.Setenv("DB_NAME", "testName")

	cfg := config.MustLoadFrom(missingEnvFile)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "nominatim", cfg.ProviderType)
	assert.Equal(t, "testHost", cfg.Database.Host)
	assert.Equal(t, "12345", cfg.Database.Port)
	assert.Equal(t, "admin", cfg.Database.User)
	assert.Equal(t, "adminpass", cfg.Database.Password)
	assert.Equal(t, "testName", cfg.Database.Name)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 25, cfg.RateLimit)
	assert.Equal(t, "testAPIKey", cfg.APIKey)
	assert.Equal(t, "testAPIKey", cfg.MapsJSKey, "browser key falls back to the provider key")
}

func Test_MustLoadDefaults(t *testing.T) {
	cfg := config.MustLoadFrom(missingEnvFile)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "google", cfg.ProviderType)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "en", cfg.Language)
	assert.False(t, cfg.Database.Enabled())
}

func Test_MustLoadFromFile(t *testing.T) {
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")
	envFile := filepath.Join(dir, ".env")
	filet.File(t, envFile, "MAPVIEW_PORT=9090\nMAPVIEW_MAPS_JS_KEY=browserKey\nMAPVIEW_PROVIDER_KEY=fileKey\n")

	t.Setenv("MAPVIEW_PROVIDER_KEY", "envKey")

	cfg := config.MustLoadFrom(envFile)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "browserKey", cfg.MapsJSKey)
	assert.Equal(t, "envKey", cfg.APIKey, "environment wins over the env file")
}

func TestMustLoad_SessionTTLError(t *testing.T) {
	t.Setenv("MAPVIEW_SESSION_TTL", "error_value")

	assert.PanicsWithValue(t, "failed to parse session ttl from configuration", func() {
		config.MustLoadFrom(missingEnvFile)
	})
}

func TestMustLoad_PortError(t *testing.T) {
	t.Setenv("MAPVIEW_PORT", "error_value")

	assert.PanicsWithValue(t, "failed to parse port for server from configuration", func() {
		config.MustLoadFrom(missingEnvFile)
	})
}

func TestMustLoad_RateLimitError(t *testing.T) {
	t.Setenv("MAPVIEW_RATE_LIMIT", "error_value")

	assert.PanicsWithValue(t, "failed to parse rate limit from configuration, must be an integer types", func() {
		config.MustLoadFrom(missingEnvFile)
	})
}
