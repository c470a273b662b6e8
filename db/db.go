package db

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// DB wraps the database connection
type DB struct {
	conn   *sql.DB
	logger *logrus.Entry
}

// NewDB opens a PostgreSQL connection and makes sure the schema exists.
// An empty connStr falls back to DATABASE_URL, then to the DB_* variables.
func NewDB(connStr string, logger *logrus.Entry) (*DB, error) {
	conn, err := sql.Open("postgres", ConnectionString(connStr))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, logger: logger}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// ConnectionString resolves the connection string NewDB uses
func ConnectionString(connStr string) string {
	if connStr != "" {
		return connStr
	}
	if env := os.Getenv("DATABASE_URL"); env != "" {
		return env
	}

	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "catalog_scraper")
	password := getEnvOrDefault("DB_PASSWORD", "")
	dbname := getEnvOrDefault("DB_NAME", "catalog_scraper")
	sslmode := getEnvOrDefault("DB_SSLMODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist
func (db *DB) initSchema() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS crawl_runs (
			id UUID PRIMARY KEY,
			source TEXT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'in_progress',
			records_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT valid_status CHECK (status IN ('in_progress', 'done', 'failed'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create crawl_runs table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS crawl_records (
			id SERIAL PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			data JSONB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create crawl_records table: %w", err)
	}

	_, err = db.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_crawl_records_run_id ON crawl_records(run_id)`)
	if err != nil {
		db.logger.WithError(err).Warn("failed to create index on crawl_records.run_id")
	}

	return nil
}
