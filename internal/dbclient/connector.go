// Package dbclient opens the database behind the ads API: one of the SQL
// drivers through database/sql, or MongoDB.
package dbclient

import (
	"fmt"
	"strings"
)

// Driver names a supported database engine.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverMongoDB  Driver = "mongodb"
)

// ParseDriver validates a configured driver name.
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(s))); d {
	case DriverSQLite, DriverMySQL, DriverPostgres, DriverMongoDB:
		return d, nil
	case "mongo":
		return DriverMongoDB, nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", s)
	}
}

// IsSQL reports whether the driver goes through database/sql.
func (d Driver) IsSQL() bool { return d != DriverMongoDB }

// Conn describes how to reach the database. DSN, when set, is used verbatim
// (file path for sqlite, full URI for mongodb); otherwise it is built from the
// discrete fields. The password is kept out of configuration and supplied by
// the caller from the secret store.
type Conn struct {
	Driver   Driver `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	SSLMode  string `yaml:"ssl_mode"`
}

// sqlDSN returns the database/sql driver name and DSN for c.
func (c Conn) sqlDSN(password string) (string, string, error) {
	switch c.Driver {
	case DriverSQLite:
		return "sqlite", buildSQLiteDSN(c), nil
	case DriverMySQL:
		if c.DSN != "" {
			return "mysql", c.DSN, nil
		}
		return "mysql", buildMySQLDSN(c, password), nil
	case DriverPostgres:
		if c.DSN != "" {
			return "postgres", c.DSN, nil
		}
		return "postgres", buildPostgresDSN(c, password), nil
	default:
		return "", "", fmt.Errorf("unsupported sql driver: %s", c.Driver)
	}
}
