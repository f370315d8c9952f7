package store

import (
	"database/sql"
	"testing"

	"github.com/dukerupert/chorepoints/internal/database"
	"github.com/dukerupert/chorepoints/internal/model"
)

func setupStoreTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// In-memory SQLite gives each connection its own database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestParent(t *testing.T, db *sql.DB, email string) *model.Account {
	t.Helper()
	a, err := NewAccountStore(db).CreateParent(email, "hash")
	if err != nil {
		t.Fatalf("create test parent: %v", err)
	}
	return a
}

func createTestKid(t *testing.T, db *sql.DB, username, parentEmail string) *model.Account {
	t.Helper()
	a, err := NewAccountStore(db).CreateKid(username, parentEmail, "hash")
	if err != nil {
		t.Fatalf("create test kid: %v", err)
	}
	return a
}
