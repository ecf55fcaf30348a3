package video

import "context"

// Store is the durable video catalog.
type Store interface {
	Create(ctx context.Context, in CreateInput) (Video, error)
	// GetByID returns the video regardless of publish state; visibility is
	// the caller's concern (owners may see their own unpublished videos).
	GetByID(ctx context.Context, id string) (Video, error)
	List(ctx context.Context, p ListParams) (Page, error)
	UpdateDetails(ctx context.Context, id string, in UpdateInput) (Video, error)
	TogglePublish(ctx context.Context, id string) (Video, error)
	// Delete removes the row and returns it so the caller can clean up the
	// stored objects.
	Delete(ctx context.Context, id string) (Video, error)
	// IncrementViews bumps the view counter (best-effort read-path side effect).
	IncrementViews(ctx context.Context, id string) error
}
