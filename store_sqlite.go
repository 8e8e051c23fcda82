package statsync

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements OfflineStore on a local SQLite database, the
// usual choice for a client-side install.
type SQLiteStore struct {
	DB        *sql.DB
	TableName string
}

// NewSQLiteStore creates a SQLite offline store.
func NewSQLiteStore(db *sql.DB, tableName string) *SQLiteStore {
	if tableName == "" {
		tableName = "statsync_offline"
	}
	return &SQLiteStore{DB: db, TableName: tableName}
}

// Setup initializes the table schema and applies connection pragmas.
func (s *SQLiteStore) Setup() error {
	if s.DB == nil {
		return fmt.Errorf("sqlite store requires DB")
	}
	if err := s.applyPragmas(); err != nil {
		return err
	}
	query := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (user_id TEXT PRIMARY KEY, data BLOB NOT NULL, updated_at TEXT NOT NULL DEFAULT (datetime('now')));`,
		s.TableName,
	)
	_, err := s.DB.Exec(query)
	return err
}

func (s *SQLiteStore) Description() string {
	return "SQLiteStore"
}

// Save upserts the blob for a user.
func (s *SQLiteStore) Save(userID string, data []byte) error {
	if s.DB == nil {
		return fmt.Errorf("sqlite store requires DB")
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (user_id, data, updated_at) VALUES (?, ?, datetime('now')) ON CONFLICT (user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at;`,
		s.TableName,
	)
	_, err := s.DB.Exec(query, userID, data)
	return err
}

// Load fetches the blob for a user.
func (s *SQLiteStore) Load(userID string) ([]byte, bool, error) {
	if s.DB == nil {
		return nil, false, fmt.Errorf("sqlite store requires DB")
	}
	query := fmt.Sprintf(`SELECT data FROM %s WHERE user_id = ?;`, s.TableName)
	var data []byte
	err := s.DB.QueryRow(query, userID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Delete removes the blob for a user.
func (s *SQLiteStore) Delete(userID string) error {
	if s.DB == nil {
		return fmt.Errorf("sqlite store requires DB")
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = ?;`, s.TableName)
	_, err := s.DB.Exec(query, userID)
	return err
}

func (s *SQLiteStore) applyPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := s.DB.Exec(p); err != nil {
			return err
		}
	}
	return nil
}
