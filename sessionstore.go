package via

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

const sqliteSessionSchema = `CREATE TABLE IF NOT EXISTS sessions (
	token TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expiry REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`

// NewSQLiteSessionManager creates the sessions table in db if needed and
// returns a session manager backed by it. Expired sessions are purged every
// cleanup interval; zero disables the purge.
//
// The caller registers the driver, e.g. with _ "github.com/mattn/go-sqlite3".
func NewSQLiteSessionManager(db *sql.DB, cleanup time.Duration) (*scs.SessionManager, error) {
	if _, err := db.Exec(sqliteSessionSchema); err != nil {
		return nil, fmt.Errorf("via: create sessions table: %w", err)
	}
	sm := scs.New()
	sm.Store = sqlite3store.NewWithCleanupInterval(db, cleanup)
	return sm, nil
}
