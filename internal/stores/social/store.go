// Package social is the persistent store for the publishing pipeline:
// integrations, posts and their per-platform results, ingested comments,
// reply policies, and the external API call audit trail.
package social

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Store handles storage and retrieval of all social publishing entities using MySQL
type Store struct {
	db *gorm.DB
}

// NewStore creates a new social store with a MySQL connection
func NewStore(databaseURL string) (*Store, error) {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return NewStoreWithDB(db)
}

// NewStoreWithDB creates a store around an existing gorm connection.
// Tests use this with an in-memory sqlite database.
func NewStoreWithDB(db *gorm.DB) (*Store, error) {
	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate tables: %w", err)
	}

	return store, nil
}

// migrate creates or updates the required database tables
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&Integration{},
		&Post{},
		&PostResult{},
		&Comment{},
		&ReplyPolicy{},
		&APICall{},
	)
}
