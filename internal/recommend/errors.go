package recommend

import (
	"errors"
	"fmt"
)

// ErrEmptyUserID is wrapped by a QueryError for a blank user id.
var ErrEmptyUserID = errors.New("user id is empty")

// QueryError means a recommendation read failed. It is never returned for
// an empty result.
type QueryError struct {
	UserID string
	Pass   string
	Err    error
}

func (e *QueryError) Error() string {
	if e.UserID == "" {
		return fmt.Sprintf("recommend (%s): %v", e.Pass, e.Err)
	}
	return fmt.Sprintf("recommend %q (%s pass): %v", e.UserID, e.Pass, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// InvalidInput reports whether the failure was caused by the request rather
// than the store.
func (e *QueryError) InvalidInput() bool {
	return errors.Is(e.Err, ErrEmptyUserID)
}
