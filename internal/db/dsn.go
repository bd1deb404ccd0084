package db

import (
	"fmt"
	"net/url"
	"strings"
)

// WithDBName swaps the database path of a postgres DSN, keeping every
// other component. A bare host:port DSN without a scheme is accepted and
// normalized to postgres://.
func WithDBName(dsn, database string) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("empty DSN")
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		if !strings.Contains(dsn, "://") {
			u, err = url.Parse("postgres://" + dsn)
			if err != nil {
				return "", err
			}
		}
	}
	u.Path = "/" + strings.TrimPrefix(database, "/")
	return u.String(), nil
}
