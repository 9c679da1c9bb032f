package sessions

import "context"

// Repo defines the interface for session storage operations.
// Implementations expire sessions at SessionData.ExpiresAt.
type Repo interface {
	// Get retrieves a session by ID, or errors.ErrSessionNotFound
	Get(ctx context.Context, sessionID string) (*SessionData, error)

	// Upsert creates or updates a session
	Upsert(ctx context.Context, data *SessionData) error

	// Delete removes a session by ID
	Delete(ctx context.Context, sessionID string) error
}
