package storage

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"l10ntrack/internal/common"
	"l10ntrack/pkg/models"
)

type fileSnapshot struct {
	Sites   []models.Site  `json:"sites"`
	Results []storedResult `json:"results"`
	Seq     int64          `json:"seq"`
}

// FileStore is a MemoryStore persisted to a single JSON file after every change.
type FileStore struct {
	*MemoryStore
	path   string
	saveMu sync.Mutex
}

// NewFileStore loads path if it exists. A missing file starts an empty store.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{MemoryStore: NewMemoryStore(), path: path}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, storageError(err, "read store file")
	}
	if len(b) == 0 {
		return fs, nil
	}

	var snap fileSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, storageError(err, "decode store file")
	}
	for _, s := range snap.Sites {
		fs.sites[s.ID] = s
	}
	fs.results = snap.Results
	fs.seq = snap.Seq
	return fs, nil
}

func (f *FileStore) save() error {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	f.mu.RLock()
	snap := fileSnapshot{
		Sites:   make([]models.Site, 0, len(f.sites)),
		Results: append([]storedResult(nil), f.results...),
		Seq:     f.seq,
	}
	for _, s := range f.sites {
		snap.Sites = append(snap.Sites, s)
	}
	f.mu.RUnlock()

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return storageError(err, "encode store file")
	}
	err = common.WriteFileAtomic(f.path, b, common.FilePermissionSecure, common.DirPermissionSecure)
	return storageError(err, "write store file")
}

func (f *FileStore) CreateSite(ctx context.Context, site *models.Site) error {
	if err := f.MemoryStore.CreateSite(ctx, site); err != nil {
		return err
	}
	return f.save()
}

func (f *FileStore) UpdateSite(ctx context.Context, site *models.Site) error {
	if err := f.MemoryStore.UpdateSite(ctx, site); err != nil {
		return err
	}
	return f.save()
}

func (f *FileStore) DeleteSite(ctx context.Context, id string) error {
	if err := f.MemoryStore.DeleteSite(ctx, id); err != nil {
		return err
	}
	return f.save()
}

func (f *FileStore) SaveResult(ctx context.Context, result *models.AnalysisResult) error {
	if err := f.MemoryStore.SaveResult(ctx, result); err != nil {
		return err
	}
	return f.save()
}

func (f *FileStore) DeleteExcept(ctx context.Context, siteID string, keepIDs []string) (int, error) {
	n, err := f.MemoryStore.DeleteExcept(ctx, siteID, keepIDs)
	if err != nil || n == 0 {
		return n, err
	}
	return n, f.save()
}
