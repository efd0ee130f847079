// Package sqlite provides a SQLite-backed implementation of the
// storage.DocumentStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/magpsaad/partner-calculator/internal/models"
	"github.com/magpsaad/partner-calculator/internal/storage"
)

// Ensure SQLiteStore implements storage.DocumentStore
var _ storage.DocumentStore = (*SQLiteStore)(nil)

// SQLiteStore implements storage.DocumentStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path. It creates
// the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateWorkspace inserts a new workspace row with the default empty state.
func (s *SQLiteStore) CreateWorkspace(ctx context.Context, passwordHash string) (string, error) {
	workspaceID := "ws_" + uuid.New().String()
	now := time.Now().UnixMilli()

	state, err := json.Marshal(models.NewWorkspace())
	if err != nil {
		return "", fmt.Errorf("failed to encode default state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO workspaces (id, password_hash, state, created_at, last_updated) VALUES (?, ?, ?, ?, ?)",
		workspaceID, passwordHash, string(state), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert workspace: %w", err)
	}

	return workspaceID, nil
}

// PasswordHash retrieves the stored bcrypt hash for a workspace.
func (s *SQLiteStore) PasswordHash(ctx context.Context, workspaceID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT password_hash FROM workspaces WHERE id = ?",
		workspaceID,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", storage.ErrWorkspaceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get password hash: %w", err)
	}
	return hash, nil
}

// State retrieves the workspace document and its lastUpdated timestamp.
func (s *SQLiteStore) State(ctx context.Context, workspaceID string) (*models.Workspace, int64, error) {
	var raw string
	var lastUpdated int64
	err := s.db.QueryRowContext(ctx,
		"SELECT state, last_updated FROM workspaces WHERE id = ?",
		workspaceID,
	).Scan(&raw, &lastUpdated)
	if err == sql.ErrNoRows {
		return nil, 0, storage.ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get workspace state: %w", err)
	}

	state := models.NewWorkspace()
	if err := json.Unmarshal([]byte(raw), state); err != nil {
		return nil, 0, fmt.Errorf("failed to decode workspace state: %w", err)
	}
	if state.Projects == nil {
		state.Projects = []*models.Project{}
	}

	return state, lastUpdated, nil
}

// SetState overwrites the workspace document and stamps last_updated.
func (s *SQLiteStore) SetState(ctx context.Context, workspaceID string, state *models.Workspace) (int64, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return 0, fmt.Errorf("failed to encode workspace state: %w", err)
	}

	now := time.Now().UnixMilli()
	res, err := s.db.ExecContext(ctx,
		"UPDATE workspaces SET state = ?, last_updated = ? WHERE id = ?",
		string(raw), now, workspaceID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update workspace state: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return 0, storage.ErrWorkspaceNotFound
	}

	return now, nil
}
