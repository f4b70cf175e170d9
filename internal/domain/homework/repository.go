package homework

import "context"

// Snapshot is a loaded DataFile together with the revision it was read at.
type Snapshot struct {
	Data     *DataFile
	Revision string
}

// Store persists the single DataFile document.
//
// Save must reject the write with ErrRevisionConflict when expectedRevision
// no longer matches the stored revision. An empty expectedRevision is only
// valid while nothing has been stored yet.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, data *DataFile, expectedRevision string) (string, error)
}
