package repository

import (
	"errors"
	"time"

	"zombiezen.com/go/sqlite"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint (a second registration for the same chat identity).
var ErrDuplicate = errors.New("duplicate record")

// created_at is stored by the engine as CURRENT_TIMESTAMP text.
const timeLayout = "2006-01-02 15:04:05"

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueViolation(err error) bool {
	code := sqlite.ErrCode(err)
	return code == sqlite.ResultConstraintUnique || code.ToPrimary() == sqlite.ResultConstraint
}
