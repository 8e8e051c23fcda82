package statsync

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore implements OfflineStore on MySQL.
type MySQLStore struct {
	DB        *sql.DB
	TableName string
}

// NewMySQLStore creates a MySQL offline store.
func NewMySQLStore(db *sql.DB, tableName string) *MySQLStore {
	if tableName == "" {
		tableName = "statsync_offline"
	}
	return &MySQLStore{DB: db, TableName: tableName}
}

// Setup initializes the table schema.
func (s *MySQLStore) Setup() error {
	if s.DB == nil {
		return fmt.Errorf("mysql store requires DB")
	}
	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (`user_id` VARCHAR(255) PRIMARY KEY, `data` BLOB NOT NULL, `updated_at` DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6));",
		quoteMySQLIdentifier(s.TableName),
	)
	_, err := s.DB.Exec(query)
	return err
}

func (s *MySQLStore) Description() string {
	return "MySQLStore"
}

// Save upserts the blob for a user.
func (s *MySQLStore) Save(userID string, data []byte) error {
	if s.DB == nil {
		return fmt.Errorf("mysql store requires DB")
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (`user_id`, `data`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `data` = VALUES(`data`);",
		quoteMySQLIdentifier(s.TableName),
	)
	_, err := s.DB.Exec(query, userID, data)
	return err
}

// Load fetches the blob for a user.
func (s *MySQLStore) Load(userID string) ([]byte, bool, error) {
	if s.DB == nil {
		return nil, false, fmt.Errorf("mysql store requires DB")
	}
	query := fmt.Sprintf("SELECT `data` FROM %s WHERE `user_id` = ?;", quoteMySQLIdentifier(s.TableName))
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
func (s *MySQLStore) Delete(userID string) error {
	if s.DB == nil {
		return fmt.Errorf("mysql store requires DB")
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE `user_id` = ?;", quoteMySQLIdentifier(s.TableName))
	_, err := s.DB.Exec(query, userID)
	return err
}

func quoteMySQLIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
