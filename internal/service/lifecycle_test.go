package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/model"
)

func newLifecycle() (FileService, *memStore, *memRepo) {
	store, repo := newMemStore(), newMemRepo()
	return NewFileService(store, repo), store, repo
}

func upload(t *testing.T, svc FileService, ownerID, name, contentType string, data []byte) *model.File {
	t.Helper()
	f, err := svc.Upload(context.Background(), ownerID, bytes.NewReader(data), name, contentType, int64(len(data)))
	require.NoError(t, err)
	return f
}

func ids(files []model.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.ID)
	}
	return out
}

func TestLifecycle_UploadThenList(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newLifecycle()

	data := bytes.Repeat([]byte{0x42}, 3*1024*1024)
	f := upload(t, svc, owner, "report.pdf", "", data)

	assert.Equal(t, MimePDF, f.FileType)
	assert.Equal(t, int64(3*1024*1024), f.Size)
	assert.True(t, strings.HasPrefix(f.StorageKey, "uploads/"))
	assert.True(t, store.has(f.StorageKey))

	active, err := svc.List(ctx, owner, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, f.ID, active[0].ID)
	assert.Equal(t, int64(len(data)), active[0].Size)
}

func TestLifecycle_TrashRestoreCycles(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newLifecycle()

	var files []*model.File
	for i := 0; i < 3; i++ {
		files = append(files, upload(t, svc, owner, fmt.Sprintf("f%d.txt", i), "text/plain", []byte("data")))
	}

	for cycle := 0; cycle < 4; cycle++ {
		for _, f := range files {
			_, err := svc.SoftDelete(ctx, owner, f.ID)
			require.NoError(t, err)
			// Idempotent.
			_, err = svc.SoftDelete(ctx, owner, f.ID)
			require.NoError(t, err)
		}

		active, err := svc.List(ctx, owner, false)
		require.NoError(t, err)
		trashed, err := svc.List(ctx, owner, true)
		require.NoError(t, err)
		assert.Empty(t, active)
		assert.Len(t, trashed, len(files))

		for _, f := range files {
			_, err := svc.Restore(ctx, owner, f.ID)
			require.NoError(t, err)
			_, err = svc.Restore(ctx, owner, f.ID)
			require.NoError(t, err)
		}

		active, err = svc.List(ctx, owner, false)
		require.NoError(t, err)
		trashed, err = svc.List(ctx, owner, true)
		require.NoError(t, err)
		assert.Len(t, active, len(files))
		assert.Empty(t, trashed)
	}

	for _, f := range files {
		assert.True(t, store.has(f.StorageKey), "trash must not remove bytes")
	}
}

func TestLifecycle_PermanentDeleteWithStorageFailure(t *testing.T) {
	ctx := context.Background()
	svc, store, repo := newLifecycle()

	f := upload(t, svc, owner, "a.png", "image/png", []byte("png"))
	store.deleteErrs[f.StorageKey] = errors.New("access denied")

	report, err := svc.PermanentlyDelete(ctx, owner, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Purged)
	require.Len(t, report.StorageFailures, 1)
	assert.Equal(t, f.StorageKey, report.StorageFailures[0].StorageKey)

	assert.Equal(t, 0, repo.count())
	_, err = svc.Get(ctx, owner, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLifecycle_PermanentDeleteFromTrash(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newLifecycle()

	f := upload(t, svc, owner, "a.txt", "text/plain", []byte("x"))
	_, err := svc.SoftDelete(ctx, owner, f.ID)
	require.NoError(t, err)

	report, err := svc.PermanentlyDelete(ctx, owner, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Purged)
	assert.Empty(t, report.StorageFailures)
	assert.False(t, store.has(f.StorageKey))
}

func TestLifecycle_EmptyTrashWithOneStorageFailure(t *testing.T) {
	ctx := context.Background()
	svc, store, repo := newLifecycle()

	const n = 5
	var trashed []*model.File
	for i := 0; i < n; i++ {
		f := upload(t, svc, owner, fmt.Sprintf("t%d.bin", i), "", []byte("bytes"))
		_, err := svc.SoftDelete(ctx, owner, f.ID)
		require.NoError(t, err)
		trashed = append(trashed, f)
	}
	keep := upload(t, svc, owner, "keep.txt", "text/plain", []byte("keep"))
	store.deleteErrs[trashed[2].StorageKey] = errors.New("throttled")

	report, err := svc.EmptyTrash(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, n, report.Purged)
	assert.Len(t, report.StorageFailures, 1)

	left, err := svc.List(ctx, owner, true)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, 1, repo.count())

	active, err := svc.List(ctx, owner, false)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, ids(active))
}

func TestLifecycle_DownloadObjectMissing(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newLifecycle()

	f := upload(t, svc, owner, "gone.txt", "text/plain", []byte("bye"))
	delete(store.objects, f.StorageKey)

	_, err := svc.Download(ctx, owner, f.ID)
	assert.ErrorIs(t, err, ErrObjectMissing)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestLifecycle_DownloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLifecycle()

	f := upload(t, svc, owner, "hello.txt", "text/plain", []byte("hello world"))

	out, err := svc.Download(ctx, owner, f.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello world"), out.Data)
	assert.Equal(t, "text/plain", out.ContentType)
	assert.Equal(t, "hello.txt", out.Filename)
}

func TestLifecycle_Preview(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newLifecycle()

	txt := upload(t, svc, owner, "a.txt", "text/plain", []byte("x"))
	png := upload(t, svc, owner, "a.png", "image/png", []byte("x"))
	pdf := upload(t, svc, owner, "a.pdf", "", []byte("x"))

	_, err := svc.PreviewURL(ctx, owner, txt.ID)
	assert.ErrorIs(t, err, ErrUnsupportedPreviewType)

	for _, f := range []*model.File{png, pdf} {
		u, err := svc.PreviewURL(ctx, owner, f.ID)
		require.NoError(t, err)
		assert.Contains(t, u, f.StorageKey)
	}
}

func TestLifecycle_CrossOwnerIsolation(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newLifecycle()

	f := upload(t, svc, owner, "secret.png", "image/png", []byte("secret"))
	const intruder = "owner-2"

	list, err := svc.List(ctx, intruder, false)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Get(ctx, intruder, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Download(ctx, intruder, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.PreviewURL(ctx, intruder, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.SoftDelete(ctx, intruder, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Restore(ctx, intruder, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.PermanentlyDelete(ctx, intruder, f.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The victim's trash must survive the intruder emptying their own.
	_, err = svc.SoftDelete(ctx, owner, f.ID)
	require.NoError(t, err)
	report, err := svc.EmptyTrash(ctx, intruder)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Purged)

	got, err := svc.Get(ctx, owner, f.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.True(t, store.has(f.StorageKey))
}
