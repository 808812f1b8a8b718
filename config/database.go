package config

import (
	"database/sql"
	"fmt"
	"os"
	"sync"

	_ "github.com/lib/pq"
)

var (
	db     *sql.DB
	dbOnce sync.Once
	dbErr  error
)

// GetDB opens the process-wide connection pool exactly once; repeated
// calls (dev hot reload re-enters startup) return the same handle.
func GetDB() (*sql.DB, error) {
	dbOnce.Do(func() {
		db, dbErr = open()
	})
	return db, dbErr
}

func open() (*sql.DB, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	d, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := d.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d.SetMaxOpenConns(25)
	d.SetMaxIdleConns(5)

	return d, nil
}

// RunMigrations creates the documents table backing the store gateway.
func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			leaf TEXT NOT NULL,
			data JSONB NOT NULL,
			updated_at TIMESTAMP DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_documents_leaf ON documents(leaf)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_leaf_uid ON documents(leaf, (data->>'uid'))`,
		`CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents((data->>'ownerUid')) WHERE collection = 'projects'`,
		`CREATE INDEX IF NOT EXISTS idx_documents_yearmonth ON documents((data->>'yearMonth')) WHERE leaf = 'expenses'`,
		`CREATE INDEX IF NOT EXISTS idx_documents_project ON documents((data->>'projectId'))`,
		`CREATE INDEX IF NOT EXISTS idx_documents_email ON documents((data->>'email')) WHERE collection = 'users'`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
