package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sort"
	"sync"
	"time"

	"filevault/internal/model"
	"filevault/internal/storage"
)

// memStore is an in-memory storage.Storage with per-key failure injection.
type memStore struct {
	mu         sync.Mutex
	objects    map[string][]byte
	deleteErrs map[string]error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, deleteErrs: map[string]error{}}
}

func (m *memStore) Put(_ context.Context, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: opt.ContentType}, nil
}

func (m *memStore) Get(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.deleteErrs[key]; ok {
		return err
	}
	if _, ok := m.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memStore) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return "", storage.ErrNotFound
	}
	return "https://objects.local/" + key + "?X-Amz-Expires=" + expiry.String(), nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// memRepo is an in-memory repository.FileRepository.
type memRepo struct {
	mu    sync.Mutex
	files map[string]model.File
}

func newMemRepo() *memRepo {
	return &memRepo{files: map[string]model.File{}}
}

func (r *memRepo) Create(_ context.Context, f *model.File) (*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[f.ID] = *f
	out := *f
	return &out, nil
}

func (r *memRepo) FindByID(_ context.Context, ownerID, id string) (*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.files[id]
	if !ok || f.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	return &f, nil
}

func (r *memRepo) ListByOwner(_ context.Context, ownerID string, deleted bool) ([]model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.File, 0)
	for _, f := range r.files {
		if f.OwnerID == ownerID && f.IsDeleted == deleted {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) Update(_ context.Context, f *model.File) (*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.files[f.ID]
	if !ok || cur.OwnerID != f.OwnerID {
		return nil, sql.ErrNoRows
	}
	cur.Name, cur.Thumbnail, cur.IsDeleted = f.Name, f.Thumbnail, f.IsDeleted
	r.files[f.ID] = cur
	return &cur, nil
}

func (r *memRepo) SetDeleted(_ context.Context, ownerID, id string, deleted bool) (*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.files[id]
	if !ok || cur.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	cur.IsDeleted = deleted
	r.files[id] = cur
	return &cur, nil
}

func (r *memRepo) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.files[id]; ok && cur.OwnerID == ownerID {
		delete(r.files, id)
	}
	return nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}
