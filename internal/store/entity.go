// Package store is the storefront's data access layer.
//
// Entities are plain values persisted as JSON documents keyed by an integer
// id, either in memory or in PostgreSQL (one table per entity, columns id
// and data). Repository and AsyncRepository expose the same operations to
// business services; EntityRepository implements both.
package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no entity matches.
	ErrNotFound = errors.New("store: not found")

	// ErrDatabase wraps driver and encoding failures.
	ErrDatabase = errors.New("store: database error")
)

// Entity is implemented by value types stored in a table. WithID returns a
// copy carrying id.
type Entity[E any] interface {
	GetID() int
	WithID(id int) E
}

// DatabaseError names the database a failure came from.
type DatabaseError struct {
	Err      error
	Database string
	Op       string
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("store: %s on %s: %v", e.Op, e.Database, e.Err)
}

func (e *DatabaseError) Unwrap() []error {
	return []error{ErrDatabase, e.Err}
}

func dbErr(db, op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &DatabaseError{Database: db, Op: op, Err: err}
}
