package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pscheid92/webmon/internal/domain"
)

// SnapshotDeduper remembers the serialized form of the last emitted snapshot.
// encoding/json sorts map keys, so equal snapshots always serialize to equal bytes.
type SnapshotDeduper struct {
	mu       sync.RWMutex
	last     []byte
	snapshot domain.Snapshot
}

func NewSnapshotDeduper() *SnapshotDeduper {
	return &SnapshotDeduper{}
}

// ShouldEmit reports whether s differs from the last emitted snapshot, and records
// s as the last emitted one when it does. A snapshot that cannot be serialized
// returns an error wrapping ErrMalformedPayload and leaves the state untouched.
func (d *SnapshotDeduper) ShouldEmit(s domain.Snapshot) (bool, error) {
	encoded, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("%w: encode snapshot: %w", domain.ErrMalformedPayload, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.last != nil && bytes.Equal(d.last, encoded) {
		return false, nil
	}
	d.last = encoded
	d.snapshot = s
	return true, nil
}

// Last returns the most recently emitted snapshot, for viewers that join late.
func (d *SnapshotDeduper) Last() (domain.Snapshot, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshot, d.last != nil
}
