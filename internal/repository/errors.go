// Package repository holds the MySQL data access layer.  Store-level
// sentinel errors live here; domain errors (not found, seat conflicts,
// availability violations) come from the model package so that the
// service layer can produce them without a database.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a delete or update cannot be
// performed because of conflicting state, such as deleting an
// event that still has live bookings. Handlers should translate
// this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when a user is created or renamed onto an
// email address that is already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrNameExists is returned on a duplicate category name.
var ErrNameExists = errors.New("name already exists")

const (
	mysqlDuplicateEntry  = 1062
	mysqlNoReferencedRow = 1452
)

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

// isMissingParent reports a foreign key pointing at a row that does not
// exist.
func isMissingParent(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlNoReferencedRow
}
