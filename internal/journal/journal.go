package journal

import (
	"sync"

	"project-hunter/server/internal/vec"
)

// Telemetry captures the metrics adapter used by the journal to report drops.
type Telemetry interface {
	RecordJournalDrop(metric string)
}

// PatchKind identifies the type of diff entry.
type PatchKind string

const (
	// PatchGroundItemAdded announces a new ground item.
	PatchGroundItemAdded PatchKind = "ground_item_added"
	// PatchGroundItemRemoved announces that a ground item left the world.
	PatchGroundItemRemoved PatchKind = "ground_item_removed"
	// PatchGroundItemPos updates a ground item's position.
	PatchGroundItemPos PatchKind = "ground_item_pos"
)

// Patch represents a diff entry that can be applied to the client state.
type Patch struct {
	Kind     PatchKind `json:"kind"`
	EntityID uint64    `json:"entityId"`
	Payload  any       `json:"payload,omitempty"`
}

// GroundItemPayload describes a ground item when it is added.
type GroundItemPayload struct {
	ItemID   string   `json:"itemId"`
	Type     string   `json:"type"`
	Rarity   string   `json:"rarity"`
	Quantity int      `json:"qty"`
	Visual   string   `json:"visual"`
	Position vec.Vec3 `json:"position"`
}

// PositionPayload captures the coordinates for a position patch.
type PositionPayload struct {
	Position vec.Vec3 `json:"position"`
}

const metricJournalOverflow = "journal_overflow"

// Journal accumulates patches generated during a tick until the transport
// drains them. A non-zero limit caps the buffer; patches beyond it are
// dropped and reported through the attached telemetry.
type Journal struct {
	mu        sync.RWMutex
	patches   []Patch
	limit     int
	dropped   uint64
	telemetry Telemetry
}

// New constructs a journal holding at most limit staged patches. Zero means
// unbounded.
func New(limit int) *Journal {
	if limit < 0 {
		limit = 0
	}
	return &Journal{limit: limit}
}

// AppendPatch records a patch for the current tick.
func (j *Journal) AppendPatch(p Patch) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.limit > 0 && len(j.patches) >= j.limit {
		j.dropped++
		if j.telemetry != nil {
			j.telemetry.RecordJournalDrop(metricJournalOverflow)
		}
		return
	}
	j.patches = append(j.patches, p)
}

// DrainPatches returns all staged patches and clears the in-memory slice.
func (j *Journal) DrainPatches() []Patch {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.patches) == 0 {
		return nil
	}
	drained := make([]Patch, len(j.patches))
	copy(drained, j.patches)
	j.patches = j.patches[:0]
	return drained
}

// SnapshotPatches returns a copy of the staged patches without clearing the
// journal.
func (j *Journal) SnapshotPatches() []Patch {
	if j == nil {
		return nil
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if len(j.patches) == 0 {
		return nil
	}
	snapshot := make([]Patch, len(j.patches))
	copy(snapshot, j.patches)
	return snapshot
}

// RestorePatches prepends the provided patches back into the journal. It is
// used when a caller drains the journal but the broadcast fails.
func (j *Journal) RestorePatches(p []Patch) {
	if j == nil || len(p) == 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	restored := make([]Patch, 0, len(p)+len(j.patches))
	restored = append(restored, p...)
	restored = append(restored, j.patches...)
	j.patches = restored
}

// Dropped reports how many patches overflowed the buffer.
func (j *Journal) Dropped() uint64 {
	if j == nil {
		return 0
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.dropped
}

func (j *Journal) AttachTelemetry(t Telemetry) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.telemetry = t
	j.mu.Unlock()
}
