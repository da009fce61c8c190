package shared

import "context"

// Collision kinds.
const (
	// CollisionConcurrentWrite means the document changed between this
	// instance's read and its write.
	CollisionConcurrentWrite = "concurrent_write"
	// CollisionLostUpdate means a change this instance wrote is no longer on
	// disk, or was superseded by an older write.
	CollisionLostUpdate = "lost_update"
)

// Collision describes a detected lost-update hazard on a shared document.
type Collision struct {
	Document string
	Kind     string
	Key      string
	Detail   string
}

// CollisionSink records collisions for later inspection.
type CollisionSink interface {
	RecordCollision(ctx context.Context, c Collision) error
}
