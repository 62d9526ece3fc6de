package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/arw/arw-api/domain/apperror"
)

// storeError reports a failed store operation as StoreUnavailable, keeping the
// SQLSTATE in the details when the server supplied one.
func storeError(operation string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		operation = fmt.Sprintf("%s (sqlstate %s)", operation, pqErr.Code)
	}
	return apperror.ErrStoreUnavailable(operation, err)
}
