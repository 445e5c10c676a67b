package repos

import (
	"database/sql/driver"
	"strings"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
)

// SQLite's LOWER and LIKE only fold ASCII; fold(x) lowercases every Unicode letter
// so keyword search works for Cyrillic and Azerbaijani text.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("fold", 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return foldText(v), nil
			case []byte:
				return foldText(string(v)), nil
			default:
				return v, nil
			}
		})
}

func foldText(s string) string { return strings.ToLower(s) }

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Every connection to ":memory:" is its own database.
	if isMemory(dsn) {
		db.SetMaxOpenConns(1)
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}
	if !isMemory(dsn) {
		if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
			return nil, err
		}
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return db, nil
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Listings
CREATE TABLE IF NOT EXISTS listings(
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  vin TEXT NOT NULL,
  oem TEXT NOT NULL DEFAULT 'none',
  name TEXT NOT NULL,
  price NUMERIC NOT NULL CHECK (price >= 0),
  description TEXT NOT NULL DEFAULT '',
  photo_ref TEXT NOT NULL DEFAULT '',
  uploader_id INTEGER NOT NULL,
  uploader_name TEXT NOT NULL DEFAULT '',
  commit_token TEXT UNIQUE,               -- session generation that created the row
  created_at INTEGER NOT NULL             -- unix millis
);
CREATE INDEX IF NOT EXISTS idx_listings_vin        ON listings(vin);
CREATE INDEX IF NOT EXISTS idx_listings_oem        ON listings(oem);
CREATE INDEX IF NOT EXISTS idx_listings_price      ON listings(price);
CREATE INDEX IF NOT EXISTS idx_listings_uploader   ON listings(uploader_id);
CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings(created_at);

-- Bans
CREATE TABLE IF NOT EXISTS bans(
  user_id INTEGER PRIMARY KEY,
  reason TEXT NOT NULL DEFAULT '',
  banned_by INTEGER NOT NULL,
  banned_at INTEGER NOT NULL
);

-- Conversation sessions (SESSION_BACKEND=sqlite)
CREATE TABLE IF NOT EXISTS sessions(
  user_id INTEGER PRIMARY KEY,
  data TEXT NOT NULL,                     -- JSON encoded domain.Session
  updated_at INTEGER NOT NULL             -- unix millis
);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
`
	_, err := db.Exec(schema)
	return err
}
