package dbclient

import (
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// buildSQLiteDSN opens the file in WAL mode with a busy timeout. ":memory:"
// and DSNs that already carry parameters are passed through.
func buildSQLiteDSN(c Conn) string {
	path := c.DSN
	if path == "" {
		path = c.Host
	}
	if path == ":memory:" || strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// ensureSQLiteDir creates the directory of a file database so a fresh
// install can open it.
func ensureSQLiteDir(c Conn) error {
	path := c.DSN
	if path == "" {
		path = c.Host
	}
	path, _, _ = strings.Cut(strings.TrimPrefix(path, "file:"), "?")
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
