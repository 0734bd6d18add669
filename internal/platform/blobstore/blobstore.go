// Package blobstore stores uploaded file content. It defines the
// BlobStore interface, upload validation shared by all backends, and an
// in-memory implementation for testing and development.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrInvalidExtension   = errors.New("file extension is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
)

// MaxFileSize is the maximum allowed upload size in bytes (10 MB).
const MaxFileSize = 10 * 1024 * 1024

// AllowedCategories lists valid upload category values.
var AllowedCategories = map[string]bool{
	"medical_report": true,
	"profile_image":  true,
	"other":          true,
}

// AllowedContentTypes lists accepted upload MIME types.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
}

// AllowedExtensions lists accepted file name extensions, lowercase.
var AllowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Metadata describes a stored blob.
type Metadata struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidateUpload checks a file name and content type against the allowed
// sets before any content is read.
func ValidateUpload(fileName, contentType string) error {
	if fileName == "" {
		return ErrMissingFileName
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	if !AllowedExtensions[ext] {
		return fmt.Errorf("%w: %s", ErrInvalidExtension, ext)
	}
	if !AllowedContentTypes[contentType] {
		return fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}
	return nil
}

// BlobStore is the contract for blob content backends.
type BlobStore interface {
	Put(ctx context.Context, fileName, contentType string, content io.Reader) (*Metadata, error)
	Get(ctx context.Context, id uuid.UUID) (io.ReadCloser, *Metadata, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type storedBlob struct {
	meta    Metadata
	content []byte
}

// MemStore is a thread-safe, in-memory BlobStore.
type MemStore struct {
	mu       sync.RWMutex
	maxBytes int64
	blobs    map[uuid.UUID]*storedBlob
}

// NewMemStore returns a ready-to-use MemStore. maxBytes bounds the size
// of a single blob; values <= 0 fall back to MaxFileSize.
func NewMemStore(maxBytes int64) *MemStore {
	if maxBytes <= 0 {
		maxBytes = MaxFileSize
	}
	return &MemStore{maxBytes: maxBytes, blobs: make(map[uuid.UUID]*storedBlob)}
}

// Put validates the upload, reads the content, computes its SHA-256 hash,
// and stores the blob.
func (s *MemStore) Put(_ context.Context, fileName, contentType string, content io.Reader) (*Metadata, error) {
	if err := ValidateUpload(fileName, contentType); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(content, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)
	meta := Metadata{
		ID:          uuid.New(),
		FileName:    fileName,
		ContentType: contentType,
		Size:        int64(len(data)),
		Hash:        fmt.Sprintf("%x", h),
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	s.blobs[meta.ID] = &storedBlob{meta: meta, content: data}
	s.mu.Unlock()

	out := meta
	return &out, nil
}

// Get returns a reader over the blob content and its metadata.
func (s *MemStore) Get(_ context.Context, id uuid.UUID) (io.ReadCloser, *Metadata, error) {
	s.mu.RLock()
	blob, ok := s.blobs[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrBlobNotFound
	}
	meta := blob.meta
	return io.NopCloser(bytes.NewReader(blob.content)), &meta, nil
}

// Delete removes a blob by id.
func (s *MemStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[id]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, id)
	return nil
}
