package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Support-Desk/agent/contract"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrConstraint = errors.New("constraint violation")
	ErrNoChanges  = errors.New("no fields to update")
)

// classify maps driver errors onto the store's sentinels. Anything that is not
// a missing row or a constraint failure is a storage fault.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConstraint) || errors.Is(err, contractx.ErrStorageFault) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if isConstraintError(err) {
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	return fmt.Errorf("%w: %v", contractx.ErrStorageFault, err)
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return strings.Contains(err.Error(), "constraint failed")
}
