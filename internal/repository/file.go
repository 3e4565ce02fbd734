package repository

import (
	"context"

	"filevault/internal/model"
)

// FileRepository defines data access for file metadata using SQL queries only.
// No business logic here, strictly persistence operations.
//
// Every lookup and mutation is scoped by owner. A row that does not exist, or
// exists for another owner, is reported as sql.ErrNoRows.
type FileRepository interface {
	// Create inserts a new file record and returns the stored row.
	Create(ctx context.Context, f *model.File) (*model.File, error)

	// FindByID returns the owner's file by ID, including soft-deleted rows.
	FindByID(ctx context.Context, ownerID, id string) (*model.File, error)

	// ListByOwner returns the owner's files whose is_deleted flag equals deleted,
	// newest first.
	ListByOwner(ctx context.Context, ownerID string, deleted bool) ([]model.File, error)

	// Update writes the mutable columns (name, thumbnail, is_deleted) of f.
	Update(ctx context.Context, f *model.File) (*model.File, error)

	// SetDeleted flips is_deleted in a single statement and returns the row.
	SetDeleted(ctx context.Context, ownerID, id string, deleted bool) (*model.File, error)

	// Delete removes the owner's file row. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, ownerID, id string) error
}
