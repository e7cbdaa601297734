package storage

import (
	"errors"

	"github.com/cuemby/fsbench/pkg/types"
)

// ErrNotFound is returned when a run is not in the ledger
var ErrNotFound = errors.New("not found")

// Store is the run ledger: every Run the pipeline creates, keyed by ID,
// plus an index of the latest run for each (device, filesystem) pair
type Store interface {
	SaveRun(run *types.Run) error
	GetRun(id string) (*types.Run, error)
	ListRuns() ([]*types.Run, error)
	LatestByPair(devicePath string, fs types.FilesystemKind) (*types.Run, error)
	DeleteRun(id string) error

	Close() error
}
