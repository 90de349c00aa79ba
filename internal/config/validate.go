package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *RelayConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Telegram.Token == "" {
		return errors.New("telegram.token is required")
	}
	if c.Telegram.AdminGroupID == 0 {
		return errors.New("telegram.admin_group_id is required")
	}
	if c.Telegram.AdminGroupID > 0 {
		return fmt.Errorf("telegram.admin_group_id must be a supergroup id (negative), got %d", c.Telegram.AdminGroupID)
	}
	if strings.Count(c.Telegram.APIEndpoint, "%s") != 2 {
		return errors.New("telegram.api_endpoint must contain two %s verbs (token, method)")
	}
	if c.Telegram.RequestTimeout <= c.Telegram.PollTimeout {
		return fmt.Errorf("telegram.request_timeout (%s) must exceed poll_timeout (%s)", c.Telegram.RequestTimeout, c.Telegram.PollTimeout)
	}
	if c.Telegram.RetryBaseDelay > c.Telegram.RetryMaxDelay {
		return fmt.Errorf("telegram.retry_base_delay (%s) cannot exceed retry_max_delay (%s)", c.Telegram.RetryBaseDelay, c.Telegram.RetryMaxDelay)
	}

	switch c.Routes.Backend {
	case BackendFile:
		if c.Routes.Path == "" {
			return errors.New("routes.path is required for the file backend")
		}
	case BackendPostgres:
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("routes.backend must be %q or %q, got %q", BackendFile, BackendPostgres, c.Routes.Backend)
	}

	if c.Relay.Workers < 1 {
		return errors.New("relay.workers must be >= 1")
	}
	if c.Relay.BufferSize < 1 {
		return errors.New("relay.buffer_size must be >= 1")
	}

	if !c.Health.Disabled && (c.Health.Port < 1 || c.Health.Port > 65535) {
		return fmt.Errorf("health.port must be between 1 and 65535, got %d", c.Health.Port)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
