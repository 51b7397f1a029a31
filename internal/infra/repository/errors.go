package repository

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/totegamma/curatorgate/internal/domain"
)

// storageErr tags a driver error as a storage outage while keeping the cause
// reachable through errors.Is.
func storageErr(err error, msg string) error {
	return errors.Wrap(fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err), msg)
}
