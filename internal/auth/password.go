package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid workspace id or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// WorkspaceStorage defines the interface for workspace credential
// persistence. This allows the authenticator to be independent of the
// storage implementation.
type WorkspaceStorage interface {
	CreateWorkspace(ctx context.Context, passwordHash string) (string, error)
	PasswordHash(ctx context.Context, workspaceID string) (string, error)
}

// PasswordAuthenticator implements workspace password authentication using
// bcrypt. The plaintext password is never stored or persisted; only its
// hash reaches the store, and the hash never appears in the workspace
// document clients sync.
type PasswordAuthenticator struct {
	storage WorkspaceStorage
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage WorkspaceStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{
		storage: storage,
	}
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// CreateWorkspace creates a new workspace guarded by the hashed password.
func (a *PasswordAuthenticator) CreateWorkspace(ctx context.Context, credential string) (string, error) {
	if err := a.ValidateCredential(credential); err != nil {
		return "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	workspaceID, err := a.storage.CreateWorkspace(ctx, string(hashedPassword))
	if err != nil {
		return "", fmt.Errorf("failed to create workspace: %w", err)
	}

	return workspaceID, nil
}

// Authenticate verifies the workspace password.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, workspaceID, credential string) error {
	hash, err := a.storage.PasswordHash(ctx, workspaceID)
	if err != nil {
		return ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential)); err != nil {
		return ErrInvalidCredentials
	}

	return nil
}
