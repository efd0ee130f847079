package auth

import "context"

// Authenticator defines the interface for workspace authentication.
// Workspaces have no user accounts: one shared password guards the whole
// workspace. The abstraction allows swapping credential schemes without
// changing the handler layer.
type Authenticator interface {
	// CreateWorkspace validates and hashes the credential, stores a new
	// workspace, and returns its id.
	CreateWorkspace(ctx context.Context, credential string) (string, error)

	// Authenticate verifies the credential against the workspace's stored
	// hash. Returns ErrInvalidCredentials on any mismatch, including an
	// unknown workspace id, so callers cannot probe for workspace
	// existence.
	Authenticate(ctx context.Context, workspaceID, credential string) error

	// ValidateCredential checks if the credential meets the
	// implementation's requirements.
	ValidateCredential(credential string) error
}
