package postgres

import (
	"context"
	"database/sql"

	"filevault/internal/model"
	"filevault/internal/repository"
)

// FilePostgres is a PostgreSQL implementation of repository.FileRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type FilePostgres struct {
	db *sql.DB
}

// NewFilePostgres creates a new FilePostgres repository.
func NewFilePostgres(db *sql.DB) *FilePostgres {
	return &FilePostgres{db: db}
}

var _ repository.FileRepository = (*FilePostgres)(nil)

const fileColumns = `id, owner_id, name, storage_key, file_type, size, thumbnail, is_deleted, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*model.File, error) {
	var f model.File
	if err := s.Scan(
		&f.ID,
		&f.OwnerID,
		&f.Name,
		&f.StorageKey,
		&f.FileType,
		&f.Size,
		&f.Thumbnail,
		&f.IsDeleted,
		&f.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

// Create inserts a new file row and returns the stored record.
func (r *FilePostgres) Create(ctx context.Context, f *model.File) (*model.File, error) {
	const q = `
		INSERT INTO files (id, owner_id, name, storage_key, file_type, size, thumbnail, is_deleted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + fileColumns
	row := r.db.QueryRowContext(ctx, q,
		f.ID,
		f.OwnerID,
		f.Name,
		f.StorageKey,
		f.FileType,
		f.Size,
		f.Thumbnail,
		f.IsDeleted,
		f.CreatedAt,
	)
	return scanFile(row)
}

// FindByID fetches a single file by ID and owner, regardless of its deleted flag.
func (r *FilePostgres) FindByID(ctx context.Context, ownerID, id string) (*model.File, error) {
	const q = `
		SELECT ` + fileColumns + `
		FROM files
		WHERE id = $1 AND owner_id = $2
	`
	return scanFile(r.db.QueryRowContext(ctx, q, id, ownerID))
}

// ListByOwner returns the owner's files filtered by the deleted flag.
func (r *FilePostgres) ListByOwner(ctx context.Context, ownerID string, deleted bool) ([]model.File, error) {
	const q = `
		SELECT ` + fileColumns + `
		FROM files
		WHERE owner_id = $1 AND is_deleted = $2
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q, ownerID, deleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.File, 0)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update writes name, thumbnail and is_deleted. Immutable columns are never touched.
func (r *FilePostgres) Update(ctx context.Context, f *model.File) (*model.File, error) {
	const q = `
		UPDATE files
		SET name = $3, thumbnail = $4, is_deleted = $5
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + fileColumns
	return scanFile(r.db.QueryRowContext(ctx, q, f.ID, f.OwnerID, f.Name, f.Thumbnail, f.IsDeleted))
}

// SetDeleted sets is_deleted atomically. Setting the current value again is a no-op success.
func (r *FilePostgres) SetDeleted(ctx context.Context, ownerID, id string, deleted bool) (*model.File, error) {
	const q = `
		UPDATE files
		SET is_deleted = $3
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + fileColumns
	return scanFile(r.db.QueryRowContext(ctx, q, id, ownerID, deleted))
}

// Delete removes a file row. It does not return an error if the row does not exist.
func (r *FilePostgres) Delete(ctx context.Context, ownerID, id string) error {
	const q = `DELETE FROM files WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}
