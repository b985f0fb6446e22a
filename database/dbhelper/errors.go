package dbhelper

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrDuplicateName   = errors.New("name already exists")
	ErrCategoryInUse   = errors.New("category still has meals")
	ErrUnknownCategory = errors.New("category does not exist")
	ErrOutOfRange      = errors.New("value out of range")
)

const (
	pqUniqueViolation     pq.ErrorCode = "23505"
	pqForeignKeyViolation pq.ErrorCode = "23503"
	pqNumericOutOfRange   pq.ErrorCode = "22003"
)

func isPQError(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
