// Package workspace owns the client-side mirror of a shared workspace
// document and keeps it consistent with the remote store: local mutations
// are applied in memory and pushed as full-document snapshots, and remote
// push notifications replace the mirror wholesale (last write wins).
package workspace

import (
	"context"
	"fmt"

	"github.com/magpsaad/partner-calculator/internal/models"
)

// Store is the remote document service the controller talks to. Any
// versioned key-value document backend satisfies it; internal/remote
// implements it over HTTP+SSE and tests use an in-memory fake.
type Store interface {
	// GetDocument fetches the current workspace document, or
	// models.ErrNotFound.
	GetDocument(ctx context.Context, workspaceID string) (*models.Workspace, error)

	// SetDocument overwrites the workspace document with the given
	// snapshot. Full-document overwrite, not a field patch; the store
	// assigns the lastUpdated timestamp server-side.
	SetDocument(ctx context.Context, workspaceID string, state *models.Workspace) error

	// Subscribe registers a push handler fired once per confirmed remote
	// write, including this client's own. The returned function releases
	// the subscription.
	Subscribe(ctx context.Context, workspaceID string, onChange func(*models.Workspace)) (func(), error)
}

// SyncError wraps a remote fetch or save failure. It is surfaced to the
// user, never fatal: the in-memory state stays valid (if possibly stale)
// and the next successful sync carries it forward.
type SyncError struct {
	Op  string // "load" or "save"
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s failed: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
