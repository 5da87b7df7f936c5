// Package storage keeps uploaded report-card documents on disk until they are
// imported. Files move from the inbox to processed/ or failed/ once handled.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for an unknown file ID
	ErrNotFound = errors.New("file not found")
	// ErrClaimed is returned when another caller already took the file out of the inbox
	ErrClaimed = errors.New("file already claimed")
)

// State is where a stored file sits in the import lifecycle
type State string

const (
	StatePending   State = "pending"
	StateImporting State = "importing"
	StateProcessed State = "processed"
	StateFailed    State = "failed"
)

// FileInfo contains metadata about a stored file
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"` // Relative to the state directory
	State       State     `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
}

// Storage defines the interface for upload storage operations
type Storage interface {
	// Save stores an upload in the inbox and returns its metadata
	Save(ctx context.Context, filename, contentType string, r io.Reader) (*FileInfo, error)

	// SaveClaimed stores an upload that the caller imports itself. It never
	// appears in Pending.
	SaveClaimed(ctx context.Context, filename, contentType string, r io.Reader) (*FileInfo, error)

	// Claim moves a pending file to importing. Only one caller wins; the
	// others get ErrClaimed.
	Claim(ctx context.Context, fileID uuid.UUID) (*FileInfo, error)

	// Open returns a reader over a stored file
	Open(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Pending lists inbox files, oldest first
	Pending(ctx context.Context) ([]*FileInfo, error)

	// Complete moves a pending or importing file to processed/ or failed/
	Complete(ctx context.Context, fileID uuid.UUID, ok bool) error

	// GetInfo returns metadata for a file without opening it
	GetInfo(ctx context.Context, fileID uuid.UUID) (*FileInfo, error)
}
