package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const metaDir = ".meta"

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	basePath string
	mu       sync.Mutex
}

// NewLocalStorage creates the state directories under basePath
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	for _, state := range []State{StatePending, StateImporting, StateProcessed, StateFailed} {
		if err := os.MkdirAll(filepath.Join(basePath, string(state)), 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(basePath, metaDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}

	return &LocalStorage{basePath: basePath}, nil
}

// Save stores an upload in the inbox
func (s *LocalStorage) Save(ctx context.Context, filename, contentType string, r io.Reader) (*FileInfo, error) {
	return s.save(filename, contentType, r, StatePending)
}

// SaveClaimed stores an upload directly in the importing state
func (s *LocalStorage) SaveClaimed(ctx context.Context, filename, contentType string, r io.Reader) (*FileInfo, error) {
	return s.save(filename, contentType, r, StateImporting)
}

func (s *LocalStorage) save(filename, contentType string, r io.Reader, state State) (*FileInfo, error) {
	fileID := uuid.New()

	// UUID prefix keeps same-named uploads apart
	storedFilename := fmt.Sprintf("%s_%s", fileID.String()[:8], sanitizeFilename(filepath.Base(filename)))
	filePath := filepath.Join(s.basePath, string(state), storedFilename)

	f, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	info := &FileInfo{
		ID:          fileID,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
		Path:        storedFilename,
		State:       state,
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveMetadata(info); err != nil {
		os.Remove(filePath)
		return nil, err
	}

	return info, nil
}

// Claim takes a pending file out of the inbox for import
func (s *LocalStorage) Claim(ctx context.Context, fileID uuid.UUID) (*FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.GetInfo(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if info.State != StatePending {
		return nil, fmt.Errorf("%w: %s is %s", ErrClaimed, fileID, info.State)
	}

	if err := s.move(info, StateImporting); err != nil {
		return nil, err
	}
	return info, nil
}

// Open retrieves a file by its ID
func (s *LocalStorage) Open(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error) {
	info, err := s.GetInfo(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(s.filePath(info))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, info, nil
}

// Pending lists the inbox, oldest upload first
func (s *LocalStorage) Pending(ctx context.Context) ([]*FileInfo, error) {
	entries, err := os.ReadDir(filepath.Join(s.basePath, metaDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}

	files := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id, err := uuid.Parse(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}

		info, err := s.GetInfo(ctx, id)
		if err != nil || info.State != StatePending {
			continue
		}
		files = append(files, info)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.Before(files[j].CreatedAt)
	})
	return files, nil
}

// Complete files a pending or importing upload as processed or failed
func (s *LocalStorage) Complete(ctx context.Context, fileID uuid.UUID, ok bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := s.GetInfo(ctx, fileID)
	if err != nil {
		return err
	}
	if info.State != StatePending && info.State != StateImporting {
		return fmt.Errorf("file %s is already %s", fileID, info.State)
	}

	to := StateProcessed
	if !ok {
		to = StateFailed
	}
	return s.move(info, to)
}

// move relocates the file and rewrites its metadata; callers hold mu
func (s *LocalStorage) move(info *FileInfo, to State) error {
	from := s.filePath(info)
	info.State = to
	if err := os.Rename(from, s.filePath(info)); err != nil {
		return fmt.Errorf("failed to move file: %w", err)
	}
	return s.saveMetadata(info)
}

// GetInfo returns metadata for a file
func (s *LocalStorage) GetInfo(ctx context.Context, fileID uuid.UUID) (*FileInfo, error) {
	data, err := os.ReadFile(s.metaPath(fileID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
		}
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var info FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	return &info, nil
}

func (s *LocalStorage) filePath(info *FileInfo) string {
	return filepath.Join(s.basePath, string(info.State), info.Path)
}

func (s *LocalStorage) metaPath(fileID uuid.UUID) string {
	return filepath.Join(s.basePath, metaDir, fileID.String()+".json")
}

func (s *LocalStorage) saveMetadata(info *FileInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(s.metaPath(info.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	return nil
}

// sanitizeFilename removes unsafe characters from filenames
func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		"..", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
	)
	return replacer.Replace(name)
}
