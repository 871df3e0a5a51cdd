package config

import (
	"errors"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the map view server.
//
// Fields:
// - Env: The current environment (local, development, production).
// - Port: The HTTP port serving the page, API, health and metrics.
// - ProviderType: The geocoding provider to use (google, nominatim, visicom).
// - APIKey: The provider API key (required for google and visicom).
// - MapsJSKey: The browser key for the Maps JavaScript API.
// - RateLimit: Provider requests per second, 0 for the provider default.
// - SessionTTL: How long an untouched view stays mounted.
// - Database: Optional PostgreSQL geocode cache.
type Config struct {
	Env          string         `mapstructure:"env"`
	Port         int            `mapstructure:"port"`
	ProviderType string         `mapstructure:"provider_type"`
	APIKey       string         `mapstructure:"provider_key"`
	MapsJSKey    string         `mapstructure:"maps_js_key"`
	RateLimit    int            `mapstructure:"rate_limit"`
	Region       string         `mapstructure:"region"`
	Language     string         `mapstructure:"language"`
	AddrPrefix   string         `mapstructure:"address_prefix"`
	SessionTTL   time.Duration  `mapstructure:"session_ttl"`
	Database     PostgresConfig `mapstructure:"db"`
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
}

// Enabled reports whether a cache database is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

type setting struct {
	key, env, def string
}

var settings = []setting{
	{"env", "MAPVIEW_ENV", "production"},
	{"port", "MAPVIEW_PORT", "8080"},
	{"provider_type", "MAPVIEW_PROVIDER_TYPE", "google"},
	{"provider_key", "MAPVIEW_PROVIDER_KEY", ""},
	{"maps_js_key", "MAPVIEW_MAPS_JS_KEY", ""},
	{"rate_limit", "MAPVIEW_RATE_LIMIT", "0"},
	{"region", "MAPVIEW_REGION", ""},
	{"language", "MAPVIEW_LANGUAGE", "en"},
	{"address_prefix", "MAPVIEW_ADDRESS_PREFIX", ""},
	{"session_ttl", "MAPVIEW_SESSION_TTL", "30m"},
	{"db.host", "DB_HOST", ""},
	{"db.port", "DB_PORT", "5432"},
	{"db.user", "DB_USERNAME", ""},
	{"db.password", "DB_PASSWORD", ""},
	{"db.name", "DB_NAME", ""},
}

// MustLoad reads the configuration from the environment, falling back to a
// .env file in the working directory.
func MustLoad() *Config {
	return MustLoadFrom(".env")
}

// MustLoadFrom is MustLoad with an explicit dotenv path. Real environment
// variables always win over the file; a missing file is not an error.
func MustLoadFrom(envFile string) *Config {
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("failed to read env file: " + err.Error())
	}

	v := viper.New()
	for _, s := range settings {
		_ = v.BindEnv(s.key, s.env)
		if val, ok := dotenv[s.env]; ok {
			v.SetDefault(s.key, val)
		} else {
			v.SetDefault(s.key, s.def)
		}
	}

	ttl, err := time.ParseDuration(v.GetString("session_ttl"))
	if err != nil {
		panic("failed to parse session ttl from configuration")
	}

	port, err := strconv.Atoi(v.GetString("port"))
	if err != nil {
		panic("failed to parse port for server from configuration")
	}

	rateLimit, err := strconv.Atoi(v.GetString("rate_limit"))
	if err != nil {
		panic("failed to parse rate limit from configuration, must be an integer types")
	}

	cfg := &Config{
		Env:          v.GetString("env"),
		Port:         port,
		ProviderType: v.GetString("provider_type"),
		APIKey:       v.GetString("provider_key"),
		MapsJSKey:    v.GetString("maps_js_key"),
		RateLimit:    rateLimit,
		Region:       v.GetString("region"),
		Language:     v.GetString("language"),
		AddrPrefix:   v.GetString("address_prefix"),
		SessionTTL:   ttl,
		Database: PostgresConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			Name:     v.GetString("db.name"),
		},
	}
	if cfg.MapsJSKey == "" {
		cfg.MapsJSKey = cfg.APIKey
	}

	return cfg
}
