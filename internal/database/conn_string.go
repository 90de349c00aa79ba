package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/topicrelay/internal/config"
)

// ApplicationName is reported to PostgreSQL so relay sessions show up in
// pg_stat_activity.
const ApplicationName = "topicrelay"

// BuildConnString builds a PostgreSQL URL from cfg. Credentials are
// userinfo-escaped and IPv6 hosts are bracketed.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	query.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: query.Encode(),
	}
	return u.String()
}
