package statsync

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements OfflineStore on PostgreSQL, for hosts that
// run the engine server-side on behalf of many clients.
type PostgresStore struct {
	DB        *sql.DB
	TableName string
}

// NewPostgresStore creates a PostgreSQL offline store.
func NewPostgresStore(db *sql.DB, tableName string) *PostgresStore {
	if tableName == "" {
		tableName = "statsync_offline"
	}
	return &PostgresStore{DB: db, TableName: tableName}
}

// Setup initializes the table schema.
func (s *PostgresStore) Setup() error {
	if s.DB == nil {
		return fmt.Errorf("postgres store requires DB")
	}
	query := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (user_id VARCHAR(255) PRIMARY KEY, data BYTEA NOT NULL, updated_at TIMESTAMPTZ NOT NULL DEFAULT now());`,
		s.TableName,
	)
	_, err := s.DB.Exec(query)
	return err
}

func (s *PostgresStore) Description() string {
	return "PostgresStore"
}

// Save upserts the blob for a user.
func (s *PostgresStore) Save(userID string, data []byte) error {
	if s.DB == nil {
		return fmt.Errorf("postgres store requires DB")
	}
	query := fmt.Sprintf(
		`INSERT INTO %s (user_id, data, updated_at) VALUES ($1, $2, now()) ON CONFLICT (user_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at;`,
		s.TableName,
	)
	_, err := s.DB.Exec(query, userID, data)
	return err
}

// Load fetches the blob for a user.
func (s *PostgresStore) Load(userID string) ([]byte, bool, error) {
	if s.DB == nil {
		return nil, false, fmt.Errorf("postgres store requires DB")
	}
	query := fmt.Sprintf(`SELECT data FROM %s WHERE user_id = $1;`, s.TableName)
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
func (s *PostgresStore) Delete(userID string) error {
	if s.DB == nil {
		return fmt.Errorf("postgres store requires DB")
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1;`, s.TableName)
	_, err := s.DB.Exec(query, userID)
	return err
}
