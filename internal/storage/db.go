package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"adsconsole/internal/dbclient"
)

// DB wraps the SQL connection holding the ads table.
type DB struct {
	sql *dbclient.SQL
}

// Open connects to the configured SQL database and applies migrations.
func Open(ctx context.Context, conn dbclient.Conn, password string) (*DB, error) {
	s, err := dbclient.OpenSQL(ctx, conn, password)
	if err != nil {
		return nil, err
	}
	db := &DB{sql: s}
	if err := db.migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.sql.Close()
}

func (db *DB) migrate(ctx context.Context) error {
	migrations := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS ads (
			id VARCHAR(64) PRIMARY KEY,
			site VARCHAR(255) NOT NULL,
			position VARCHAR(16) NOT NULL,
			sort_order INTEGER NOT NULL DEFAULT 0,
			content %s NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, db.sql.TextType()),
		`CREATE INDEX idx_ads_site_position ON ads(site, position, sort_order)`,
	}

	for _, m := range migrations {
		if strings.HasPrefix(m, "CREATE INDEX") && db.sql.Driver != dbclient.DriverMySQL {
			m = strings.Replace(m, "CREATE INDEX", "CREATE INDEX IF NOT EXISTS", 1)
		}
		if _, err := db.sql.DB.ExecContext(ctx, m); err != nil {
			// MySQL has no IF NOT EXISTS for indexes; a rerun reports a duplicate.
			if dbclient.IsDuplicateIndex(err) {
				continue
			}
			return fmt.Errorf("migration failed: %s: %w", m[:40], err)
		}
	}
	return nil
}

func now() time.Time { return time.Now().UTC() }
