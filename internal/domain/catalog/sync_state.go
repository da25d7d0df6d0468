package catalog

import (
	"context"
	"time"
)

// SyncState is the singleton watermark of the ERP product sync
type SyncState struct {
	LastSyncedAt *time.Time
	UpdatedAt    time.Time
}

// Advance moves the watermark to at
func (s *SyncState) Advance(at time.Time) {
	at = at.UTC()
	s.LastSyncedAt = &at
	s.UpdatedAt = time.Now().UTC()
}

// SyncStateRepository persists the product sync watermark
type SyncStateRepository interface {
	// Get returns the stored state, or nil when no sync has completed yet
	Get(ctx context.Context) (*SyncState, error)

	// Save creates or replaces the stored state
	Save(ctx context.Context, state *SyncState) error
}
