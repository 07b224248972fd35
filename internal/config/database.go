package config

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create sheets table (schema descriptors)
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sheets (
			name VARCHAR(255) PRIMARY KEY,
			schema_type VARCHAR(10) NOT NULL,
			columns TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create sheet_records table (one record snapshot per sheet). No
	// foreign key to sheets: remote-only sheets can have snapshots
	// before a local descriptor exists.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sheet_records (
			sheet_name VARCHAR(255) PRIMARY KEY,
			records JSONB NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	return nil
}
