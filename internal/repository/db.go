package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "repository").Logger()

// Connect opens a pool and pings it, retrying while the database comes up.
func Connect(driver, dsn string, attempts int, delay time.Duration) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < attempts; i++ {
		db, err = sql.Open(driver, dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				configurePool(db, driver)
				logger.Info().Str("driver", driver).Msg("connected to database")
				return db, nil
			}
			db.Close()
		}
		logger.Warn().Err(err).Int("attempt", i+1).Str("driver", driver).Msg("failed to connect to database, retrying")
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("failed to connect to %s database after %d attempts: %w", driver, attempts, err)
}

func configurePool(db *sql.DB, driver string) {
	if driver == "sqlite3" {
		// Writers serialize on the file lock anyway.
		db.SetMaxOpenConns(1)
		return
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)
}

// isDuplicateKey reports unique index violations for both supported drivers.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// now truncates to whole seconds to match DATETIME precision.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
