package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SQL is an open database/sql handle plus the dialect quirks the ads store
// has to care about.
type SQL struct {
	DB     *sql.DB
	Driver Driver
}

// OpenSQL opens and pings a SQL database.
func OpenSQL(ctx context.Context, c Conn, password string) (*SQL, error) {
	driverName, dsn, err := c.sqlDSN(password)
	if err != nil {
		return nil, err
	}
	if c.Driver == DriverSQLite {
		if err := ensureSQLiteDir(c); err != nil {
			return nil, fmt.Errorf("prepare sqlite directory: %w", err)
		}
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if c.Driver == DriverSQLite {
		// SQLite only supports one writer; a single connection also keeps
		// ":memory:" databases alive.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(10 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}
	return &SQL{DB: db, Driver: c.Driver}, nil
}

// Rebind rewrites "?" placeholders into "$n" for Postgres.
func (s *SQL) Rebind(query string) string {
	if s.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// TextType is the column type for unbounded text.
func (s *SQL) TextType() string {
	if s.Driver == DriverMySQL {
		return "LONGTEXT"
	}
	return "TEXT"
}

// IsDuplicateIndex recognizes the error MySQL returns for an index that
// already exists, since it has no CREATE INDEX IF NOT EXISTS.
func IsDuplicateIndex(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Duplicate key name")
}

func (s *SQL) Close() error { return s.DB.Close() }
