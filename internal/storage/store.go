// Package storage provides abstractions for persisting workspace documents
// on the server side of the sync protocol.
package storage

import (
	"context"
	"errors"

	"github.com/magpsaad/partner-calculator/internal/models"
)

// ErrWorkspaceNotFound is returned for unknown workspace ids.
var ErrWorkspaceNotFound = errors.New("workspace not found")

// DocumentStore is the server-side persistence interface: one workspace
// document per workspace id, plus the password hash guarding it. The hash
// lives beside the document, never inside it, so state snapshots pushed to
// clients carry no credential material. The abstraction allows swapping
// backends (SQLite, PostgreSQL, etc.) without touching handlers.
type DocumentStore interface {
	// CreateWorkspace stores a new workspace with the given bcrypt
	// password hash and the all-empty default state, returning its id.
	CreateWorkspace(ctx context.Context, passwordHash string) (string, error)

	// PasswordHash returns the stored hash for login verification.
	PasswordHash(ctx context.Context, workspaceID string) (string, error)

	// State returns the current document and its server-assigned
	// lastUpdated timestamp (unix milliseconds).
	State(ctx context.Context, workspaceID string) (*models.Workspace, int64, error)

	// SetState overwrites the document wholesale and returns the new
	// lastUpdated timestamp.
	SetState(ctx context.Context, workspaceID string, state *models.Workspace) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}
