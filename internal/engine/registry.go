package engine

import "sync"

// UploadRegistry tracks uploads currently being categorized so the same
// batch is never processed twice concurrently.
type UploadRegistry struct {
	active map[string]struct{}
	mu     sync.Mutex
}

// NewUploadRegistry creates an empty registry.
func NewUploadRegistry() *UploadRegistry {
	return &UploadRegistry{active: make(map[string]struct{})}
}

// Acquire marks an upload as in flight. It returns false when the upload is
// already being processed.
func (r *UploadRegistry) Acquire(uploadID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.active[uploadID]; busy {
		return false
	}
	r.active[uploadID] = struct{}{}
	return true
}

// Release frees an upload slot.
func (r *UploadRegistry) Release(uploadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, uploadID)
}
