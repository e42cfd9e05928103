package repository

import (
	"context"

	"github.com/and161185/taskkeeper/internal/model"
	"github.com/gofrs/uuid/v5"
)

// TaskRepository provides owner-scoped access to tasks. Every method takes the
// owner explicitly; no method may touch a row with a different user_id.
type TaskRepository interface {
	// Create inserts a task; t.UserID must already be the owner.
	Create(ctx context.Context, t *model.Task) error

	// List returns one page matching f and the total count before pagination.
	List(ctx context.Context, userID uuid.UUID, f model.TaskFilter) ([]model.Task, int64, error)

	// CountByStatus groups the owner's tasks by raw status value.
	CountByStatus(ctx context.Context, userID uuid.UUID) (map[string]int64, error)

	// Update replaces the editable fields of (id, userID) and returns the new row.
	Update(ctx context.Context, userID, id uuid.UUID, f model.TaskFields) (*model.Task, error)

	// Delete removes (id, userID).
	Delete(ctx context.Context, userID, id uuid.UUID) error
}
