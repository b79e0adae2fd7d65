package tasks

import "context"

// Store is implemented by PostgresStore and MongoStore. Every call is
// scoped to the owner; a task of another user is reported as ErrNotFound.
type Store interface {
	List(ctx context.Context, userID string, f Filter) ([]Task, error)
	Get(ctx context.Context, userID, id string) (*Task, error)
	Create(ctx context.Context, t *Task) error
	Update(ctx context.Context, userID, id string, p Patch) (*Task, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteForUser(ctx context.Context, userID string) error
}
