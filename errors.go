package mesa

import (
	"errors"
	"fmt"
)

// ErrDatasetNotFound is matched by errors.Is for every
// DatasetNotFoundError.
var ErrDatasetNotFound = errors.New("dataset doesn't exist")

// A DatasetNotFoundError reports that the file for a subject could
// not be located or opened.
type DatasetNotFoundError struct {
	ID   int
	Path string
	Err  error
}

func (e *DatasetNotFoundError) Error() string {
	return fmt.Sprintf("dataset with id %04d doesn't exist: %v", e.ID, e.Err)
}

func (e *DatasetNotFoundError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDatasetNotFound) succeed.
func (e *DatasetNotFoundError) Is(target error) bool {
	return target == ErrDatasetNotFound
}
