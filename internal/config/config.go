package config

import "time"

// RelayConfig is the root configuration for a relay instance.
type RelayConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	Telegram TelegramConfig `yaml:"telegram"`
	Routes   RoutesConfig   `yaml:"routes"`
	Database DatabaseConfig `yaml:"database"`
	Relay    DispatchConfig `yaml:"relay"`
	Health   HealthConfig   `yaml:"health"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InstanceConfig identifies this relay.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	Token          string        `yaml:"token"`
	APIEndpoint    string        `yaml:"api_endpoint"`   // fmt template: token, method
	AdminGroupID   int64         `yaml:"admin_group_id"` // forum supergroup, negative id
	PollTimeout    time.Duration `yaml:"poll_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`
	Debug          bool          `yaml:"debug"`
}

// RoutesConfig selects where the user->topic table is persisted.
type RoutesConfig struct {
	Backend string `yaml:"backend"` // "file" or "postgres"
	Path    string `yaml:"path"`    // file backend only
}

// DatabaseConfig holds the optional PostgreSQL connection for the routes table.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// DispatchConfig holds relay worker settings.
type DispatchConfig struct {
	Workers           int    `yaml:"workers"`
	BufferSize        int    `yaml:"buffer_size"`
	UnsupportedNotice string `yaml:"unsupported_notice"`
	ForwardCommands   bool   `yaml:"forward_commands"`
}

// HealthConfig holds the health/debug HTTP server settings.
type HealthConfig struct {
	Port     int  `yaml:"port"`
	Disabled bool `yaml:"disabled"`
}

// LoggingConfig holds slog handler settings.
type LoggingConfig struct {
	Format string `yaml:"format"` // "text" or "json"
	Level  string `yaml:"level"`
}

// Backends accepted by routes.backend.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)
