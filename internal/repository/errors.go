// Package repository defines error values shared by the catalog
// repositories so that higher layers can tell failure scenarios apart
// without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a write violates a foreign key, e.g. a
// rental pointing at a user or movie that does not exist.  Handlers
// translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrRentalNotFound is returned when no rental has the requested id.
var ErrRentalNotFound = errors.New("rental not found")

// MySQL error numbers for foreign key violations.
const (
	errRowIsReferenced uint16 = 1451 // parent row still referenced
	errNoReferencedRow uint16 = 1452 // child row points at nothing
)

// translate maps driver errors onto the package's sentinel values.
func translate(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errRowIsReferenced, errNoReferencedRow:
			return ErrConflict
		}
	}
	return err
}
