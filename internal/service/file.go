package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"filevault/internal/model"
	"filevault/internal/repository"
	"filevault/internal/storage"
)

const (
	MimePDF    = "application/pdf"
	MimeBinary = "application/octet-stream"

	DefaultKeyPrefix  = "uploads"
	DefaultPreviewTTL = time.Hour
)

var tracer = otel.Tracer("filevault/internal/service")

// FileUpdate carries the client-writable fields of a file. Nil means unchanged.
type FileUpdate struct {
	Name      *string `json:"name"`
	Thumbnail *string `json:"thumbnail"`
	IsDeleted *bool   `json:"is_deleted"`
}

// FileContent is a fully read object ready to be sent to the client.
type FileContent struct {
	Data        []byte
	ContentType string
	Filename    string
}

// StorageFailure records an object that could not be removed during a purge.
// The metadata row is gone; the object may still be in the bucket.
type StorageFailure struct {
	FileID     string
	StorageKey string
	Err        error
}

// PurgeReport is the outcome of a permanent delete or an empty-trash run.
type PurgeReport struct {
	// Purged counts metadata rows removed.
	Purged int
	// StorageFailures lists objects left behind for out-of-band cleanup.
	StorageFailures []StorageFailure
}

// FileService defines the file lifecycle: upload, trash, restore, purge, preview, download.
// Every operation is scoped to ownerID; records of other owners behave as if absent.
type FileService interface {
	// Upload writes the object first and then inserts the metadata row.
	// If the insert fails the object is removed again.
	Upload(ctx context.Context, ownerID string, r io.Reader, fileName, contentType string, size int64) (*model.File, error)

	// List returns the owner's files whose deleted flag equals deleted.
	List(ctx context.Context, ownerID string, deleted bool) ([]model.File, error)

	// Get returns one of the owner's files, trashed or not.
	Get(ctx context.Context, ownerID, id string) (*model.File, error)

	// Update applies client-writable changes. IsDeleted follows SoftDelete/Restore semantics.
	Update(ctx context.Context, ownerID, id string, upd FileUpdate) (*model.File, error)

	// SoftDelete moves the file to trash. Storage is not touched.
	SoftDelete(ctx context.Context, ownerID, id string) (*model.File, error)

	// Restore moves the file out of trash. Storage is not touched.
	Restore(ctx context.Context, ownerID, id string) (*model.File, error)

	// PreviewURL mints a fresh signed read URL for images and PDFs.
	PreviewURL(ctx context.Context, ownerID, id string) (string, error)

	// Download reads the whole object.
	Download(ctx context.Context, ownerID, id string) (*FileContent, error)

	// PermanentlyDelete removes the object best-effort and the metadata row unconditionally.
	PermanentlyDelete(ctx context.Context, ownerID, id string) (*PurgeReport, error)

	// EmptyTrash purges every trashed file of the owner, one at a time, never aborting early.
	EmptyTrash(ctx context.Context, ownerID string) (*PurgeReport, error)
}

// Option customizes a fileService.
type Option func(*fileService)

// WithKeyPrefix sets the namespace under which uploaded objects are stored.
func WithKeyPrefix(prefix string) Option {
	return func(s *fileService) {
		if p := strings.Trim(prefix, "/"); p != "" {
			s.keyPrefix = p
		}
	}
}

// WithPreviewTTL sets how long signed preview URLs stay valid.
func WithPreviewTTL(ttl time.Duration) Option {
	return func(s *fileService) {
		if ttl > 0 {
			s.previewTTL = ttl
		}
	}
}

// fileService is a concrete implementation of FileService.
type fileService struct {
	store      storage.Storage
	repo       repository.FileRepository
	keyPrefix  string
	previewTTL time.Duration
	now        func() time.Time
}

// NewFileService constructs a new FileService.
func NewFileService(store storage.Storage, repo repository.FileRepository, opts ...Option) FileService {
	s := &fileService{
		store:      store,
		repo:       repo,
		keyPrefix:  DefaultKeyPrefix,
		previewTTL: DefaultPreviewTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveMimeType forces PDF for ".pdf" names and otherwise falls back from the
// declared type to a generic binary type.
func ResolveMimeType(fileName, declared string) string {
	if strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		return MimePDF
	}
	if declared = strings.TrimSpace(declared); declared != "" {
		return declared
	}
	return MimeBinary
}

// IsPreviewable reports whether a signed preview URL may be issued for the type.
func IsPreviewable(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/") || mimeType == MimePDF
}

func startSpan(ctx context.Context, name, ownerID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("file.owner_id", ownerID))
	return tracer.Start(ctx, "FileService."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *fileService) Upload(ctx context.Context, ownerID string, r io.Reader, fileName, contentType string, size int64) (_ *model.File, err error) {
	ctx, span := startSpan(ctx, "Upload", ownerID, attribute.Int64("file.size", size))
	defer func() { endSpan(span, err) }()

	if r == nil || size <= 0 {
		return nil, fmt.Errorf("%w: file content is required", ErrInvalidInput)
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}

	mimeType := ResolveMimeType(fileName, contentType)
	key := path.Join(s.keyPrefix, uuid.New().String()+strings.ToLower(filepath.Ext(fileName)))

	objInfo, err := s.store.Put(ctx, key, r, storage.PutObjectOptions{
		Size:        size,
		ContentType: mimeType,
		Metadata: map[string]string{
			"original-filename": fileName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageWriteFailed, err)
	}

	f := &model.File{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		Name:       fileName,
		StorageKey: key,
		FileType:   mimeType,
		Size:       objInfo.Size,
		CreatedAt:  s.now(),
	}
	stored, err := s.repo.Create(ctx, f)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: db save failed: %w; rollback delete failed: %v", ErrStoreUnavailable, err, delErr)
		}
		return nil, fmt.Errorf("%w: db save failed: %w", ErrStoreUnavailable, err)
	}
	return stored, nil
}

func (s *fileService) List(ctx context.Context, ownerID string, deleted bool) (_ []model.File, err error) {
	ctx, span := startSpan(ctx, "List", ownerID, attribute.Bool("file.deleted", deleted))
	defer func() { endSpan(span, err) }()

	items, err := s.repo.ListByOwner(ctx, ownerID, deleted)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return items, nil
}

// fetchOwned is the single ownership check: a record that is absent or belongs
// to someone else is reported as ErrNotFound.
func (s *fileService) fetchOwned(ctx context.Context, ownerID, id string) (*model.File, error) {
	if ownerID == "" || id == "" {
		return nil, ErrNotFound
	}
	f, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return f, nil
}

func translateRepoErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func (s *fileService) Get(ctx context.Context, ownerID, id string) (_ *model.File, err error) {
	ctx, span := startSpan(ctx, "Get", ownerID, attribute.String("file.id", id))
	defer func() { endSpan(span, err) }()

	return s.fetchOwned(ctx, ownerID, id)
}

func (s *fileService) Update(ctx context.Context, ownerID, id string, upd FileUpdate) (_ *model.File, err error) {
	ctx, span := startSpan(ctx, "Update", ownerID, attribute.String("file.id", id))
	defer func() { endSpan(span, err) }()

	f, err := s.fetchOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		f.Name = name
	}
	if upd.Thumbnail != nil {
		f.Thumbnail = *upd.Thumbnail
	}
	if upd.IsDeleted != nil {
		f.IsDeleted = *upd.IsDeleted
	}

	out, err := s.repo.Update(ctx, f)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return out, nil
}

func (s *fileService) SoftDelete(ctx context.Context, ownerID, id string) (_ *model.File, err error) {
	ctx, span := startSpan(ctx, "SoftDelete", ownerID, attribute.String("file.id", id))
	defer func() { endSpan(span, err) }()

	return s.setDeleted(ctx, ownerID, id, true)
}

func (s *fileService) Restore(ctx context.Context, ownerID, id string) (_ *model.File, err error) {
	ctx, span := startSpan(ctx, "Restore", ownerID, attribute.String("file.id", id))
	defer func() { endSpan(span, err) }()

	return s.setDeleted(ctx, ownerID, id, false)
}

func (s *fileService) setDeleted(ctx context.Context, ownerID, id string, deleted bool) (*model.File, error) {
	if ownerID == "" || id == "" {
		return nil, ErrNotFound
	}
	f, err := s.repo.SetDeleted(ctx, ownerID, id, deleted)
	if err != nil {
		return nil, translateRepoErr(err)
	}
	return f, nil
}

func (s *fileService) PreviewURL(ctx context.Context, ownerID, id string) (_ string, err error) {
	ctx, span := startSpan(ctx, "PreviewURL", ownerID, attribute.String("file.id", id))
	defer func() { endSpan(span, err) }()

	f, err := s.fetchOwned(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	if !IsPreviewable(f.FileType) {
		return "", ErrUnsupportedPreviewType
	}

	u, err := s.store.PresignGet(ctx, f.StorageKey, s.previewTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageSigningFailed, err)
	}
	return u, nil
}

func (s *fileService) Download(ctx context.Context, ownerID, id string) (_ *FileContent, err error) {
	ctx, span := startSpan(ctx, "Download", ownerID, attribute.String("file.id", id))
	defer func() { endSpan(span, err) }()

	f, err := s.fetchOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	rc, _, err := s.store.Get(ctx, f.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrObjectMissing, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read object: %w", ErrStorageUnavailable, err)
	}

	ct := f.FileType
	if ct == "" {
		ct = MimeBinary
	}
	return &FileContent{Data: data, ContentType: ct, Filename: f.Name}, nil
}

func (s *fileService) PermanentlyDelete(ctx context.Context, ownerID, id string) (_ *PurgeReport, err error) {
	ctx, span := startSpan(ctx, "PermanentlyDelete", ownerID, attribute.String("file.id", id))
	defer func() { endSpan(span, err) }()

	f, err := s.fetchOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	report := &PurgeReport{}
	if err := s.purge(ctx, ownerID, f, report); err != nil {
		return report, err
	}
	return report, nil
}

func (s *fileService) EmptyTrash(ctx context.Context, ownerID string) (_ *PurgeReport, err error) {
	ctx, span := startSpan(ctx, "EmptyTrash", ownerID)
	defer func() { endSpan(span, err) }()

	trashed, err := s.repo.ListByOwner(ctx, ownerID, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	span.SetAttributes(attribute.Int("file.trashed", len(trashed)))

	report := &PurgeReport{}
	var errs []error
	for i := range trashed {
		if err := s.purge(ctx, ownerID, &trashed[i], report); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}
	return report, nil
}

// purge removes the object best-effort, then the metadata row unconditionally.
// A missing object counts as already clean; any other storage error is recorded
// in the report and does not stop the row deletion.
func (s *fileService) purge(ctx context.Context, ownerID string, f *model.File, report *PurgeReport) error {
	if err := s.store.Delete(ctx, f.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		report.StorageFailures = append(report.StorageFailures, StorageFailure{
			FileID:     f.ID,
			StorageKey: f.StorageKey,
			Err:        err,
		})
	}

	if err := s.repo.Delete(ctx, ownerID, f.ID); err != nil {
		return fmt.Errorf("%w: delete file %s: %w", ErrStoreUnavailable, f.ID, err)
	}
	report.Purged++
	return nil
}
