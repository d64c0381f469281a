// Package store holds the typed MySQL repositories. Rows are decoded into explicit
// structs and checked here, so nothing downstream sees an unvalidated column.
package store

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// MySQL error 1062: ER_DUP_ENTRY.
const errDupEntry = 1062

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errDupEntry
}
