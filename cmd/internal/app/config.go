package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// MigrateOnStart applies embedded schema migrations during startup.
	MigrateOnStart bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("VOUCH_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("VOUCH_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("VOUCH_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("VOUCH_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("VOUCH_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("VOUCH_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("VOUCH_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("VOUCH_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("VOUCH_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("VOUCH_DB_MIN_CONNS", 0),

		MigrateOnStart: EnvBool("VOUCH_MIGRATE_ON_START", true),
	}
}
