package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultAPIEndpoint       = "https://api.telegram.org/bot%s/%s"
	DefaultPollTimeout       = 30 * time.Second
	DefaultRequestTimeout    = 60 * time.Second
	DefaultRetryBaseDelay    = 1 * time.Second
	DefaultRetryMaxDelay     = 60 * time.Second
	DefaultRoutesBackend     = BackendFile
	DefaultRoutesPath        = "user_topics.json"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 4
	DefaultMinConns          = 1
	DefaultWorkers           = 4
	DefaultBufferSize        = 256
	DefaultUnsupportedNotice = "Unsupported message received."
	DefaultHealthPort        = 8080
	DefaultLogFormat         = "text"
	DefaultLogLevel          = "info"
)

func (c *RelayConfig) applyDefaults() {
	// Telegram defaults
	if c.Telegram.APIEndpoint == "" {
		c.Telegram.APIEndpoint = DefaultAPIEndpoint
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = DefaultPollTimeout
	}
	if c.Telegram.RequestTimeout == 0 {
		c.Telegram.RequestTimeout = DefaultRequestTimeout
	}
	if c.Telegram.RetryBaseDelay == 0 {
		c.Telegram.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.Telegram.RetryMaxDelay == 0 {
		c.Telegram.RetryMaxDelay = DefaultRetryMaxDelay
	}

	// Routes defaults
	if c.Routes.Backend == "" {
		c.Routes.Backend = DefaultRoutesBackend
	}
	if c.Routes.Path == "" {
		c.Routes.Path = DefaultRoutesPath
	}

	// Database defaults only matter for the postgres backend.
	if c.Routes.Backend == BackendPostgres {
		applyDBDefaults(&c.Database.Postgres)
	}

	// Relay defaults
	if c.Relay.Workers == 0 {
		c.Relay.Workers = DefaultWorkers
	}
	if c.Relay.BufferSize == 0 {
		c.Relay.BufferSize = DefaultBufferSize
	}
	if c.Relay.UnsupportedNotice == "" {
		c.Relay.UnsupportedNotice = DefaultUnsupportedNotice
	}

	// Health defaults
	if c.Health.Port == 0 {
		c.Health.Port = DefaultHealthPort
	}

	// Logging defaults
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
