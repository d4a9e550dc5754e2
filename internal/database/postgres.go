package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Sentinel errors returned by the store. Raw driver errors never cross the
// package boundary: unique-index violations are translated here so handlers
// can map them to Conflict responses, and sql.ErrNoRows becomes ErrNotFound.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already in use")
)

func InitDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// notFound reports whether a query failed because the row does not exist.
// A malformed UUID in a path parameter surfaces as 22P02; callers see that
// as a missing resource, not a server fault.
func notFound(err error) bool {
	if errors.Is(err, sql.ErrNoRows) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}

// translateUnique maps a Postgres unique_violation to the sentinel naming
// the colliding field. Uniqueness is enforced by the indexes themselves, so
// a race between two identical registrations is resolved by the second
// insert failing here, never by a pre-check.
func translateUnique(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case "users_username_lower_key":
			return ErrDuplicateUsername
		case "users_email_lower_key":
			return ErrDuplicateEmail
		}
	}
	return err
}
