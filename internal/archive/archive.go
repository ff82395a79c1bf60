// Package archive persists exported session snapshots for later review.
//
// Archiving is optional: when no database is configured the coordinator runs
// with a nil [Archiver] and exports are served to the requester only. A
// persistence failure never fails the export itself; it is logged and the
// snapshot is still returned to the client.
package archive

import (
	"context"

	"github.com/MrWong99/signbridge/internal/session"
)

// Archiver stores one exported session snapshot per call.
//
// Implementations must be safe for concurrent use.
type Archiver interface {
	// SaveSnapshot persists snap. Snapshots are append-only: exporting the
	// same session twice stores two rows.
	SaveSnapshot(ctx context.Context, snap session.Snapshot) error
}
