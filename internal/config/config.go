// Package config loads process-wide configuration from the environment,
// with an optional .env file for development setups.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Supabase  SupabaseConfig
	Storage   StorageConfig
	Directory DirectoryConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string // empty disables bearer auth
}

// SupabaseConfig points at the hosted backend. Both values are required
// for the hosted gateway; their absence is a startup warning, not a hard
// failure — requests will subsequently fail.
type SupabaseConfig struct {
	URL string
	Key string
}

type StorageConfig struct {
	DataDir string
	Local   bool // use the local SQLite gateway instead of Supabase
}

type DirectoryConfig struct {
	PageSize     int
	ImportPolicy string // "keep" or "reject"
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Directory: DirectoryConfig{
			PageSize:     6,
			ImportPolicy: "keep",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".sayhello"
	}
	return filepath.Join(base, "sayhello")
}

// Load reads configuration: defaults, then a .env file when present
// (best-effort, development convenience), then SAYHELLO_* environment
// variables. Missing Supabase credentials only log a warning unless the
// local gateway is selected.
func Load() (Config, error) {
	// A missing .env file is the normal case; ignore the error.
	_ = godotenv.Load()

	cfg := defaults()
	applyEnv(&cfg)

	if !cfg.Storage.Local && (cfg.Supabase.URL == "" || cfg.Supabase.Key == "") {
		slog.Warn("Supabase env vars are missing; backend requests will fail",
			"hint", "set SAYHELLO_SUPABASE_URL and SAYHELLO_SUPABASE_KEY, or run with SAYHELLO_LOCAL=1")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setInt("SAYHELLO_PORT", &cfg.Server.Port)
	setString("SAYHELLO_API_TOKEN", &cfg.Server.APIToken)
	setString("SAYHELLO_SUPABASE_URL", &cfg.Supabase.URL)
	setString("SAYHELLO_SUPABASE_KEY", &cfg.Supabase.Key)
	setString("SAYHELLO_DATA_DIR", &cfg.Storage.DataDir)
	setBool("SAYHELLO_LOCAL", &cfg.Storage.Local)
	setInt("SAYHELLO_PAGE_SIZE", &cfg.Directory.PageSize)
	setString("SAYHELLO_IMPORT_POLICY", &cfg.Directory.ImportPolicy)
	setString("SAYHELLO_LOG_LEVEL", &cfg.Log.Level)
}
