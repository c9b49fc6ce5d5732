package migrations

import (
	"database/sql"
	"fmt"
	"time"
)

// Dialect selects the DDL flavour.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite3"
)

var usersDDL = map[Dialect]string{
	MySQL: `
		CREATE TABLE IF NOT EXISTS users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(20) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at DATETIME NOT NULL
		);
	`,
	SQLite: `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
	`,
}

var tasksDDL = map[Dialect]string{
	MySQL: `
		CREATE TABLE IF NOT EXISTS tasks (
			id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			priority VARCHAR(16) NOT NULL DEFAULT 'medium',
			due_date DATETIME NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			INDEX idx_tasks_user_created (user_id, created_at),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		);
	`,
	SQLite: `
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			priority TEXT NOT NULL DEFAULT 'medium',
			due_date DATETIME NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`,
}

// AutoMigrateUsers creates the users table if it does not exist.
func AutoMigrateUsers(dialect Dialect, retries int, db *sql.DB) error {
	return migrate(db, usersDDL, dialect, retries)
}

// AutoMigrateTasks creates the tasks table if it does not exist. It must run
// after AutoMigrateUsers because of the foreign key.
func AutoMigrateTasks(dialect Dialect, retries int, db *sql.DB) error {
	return migrate(db, tasksDDL, dialect, retries)
}

func migrate(db *sql.DB, ddl map[Dialect]string, dialect Dialect, retries int) error {
	query, ok := ddl[dialect]
	if !ok {
		return fmt.Errorf("unsupported dialect %q", dialect)
	}

	_, err := db.Exec(query)
	for i := 0; err != nil && i < retries; i++ {
		// Retry creating the table
		time.Sleep(retryDelay)
		_, err = db.Exec(query)
	}
	if err != nil {
		return fmt.Errorf("migration failed after %d retries: %w", retries, err)
	}
	return nil
}

var retryDelay = 1 * time.Second
