package document

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/platform/audit"
	"github.com/medtrack/medtrack/internal/platform/blobstore"
	"github.com/medtrack/medtrack/internal/platform/db"
)

type memRepo struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*FileUpload
	createErr error
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[uuid.UUID]*FileUpload)}
}

func (r *memRepo) Create(_ context.Context, f *FileUpload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	f.ID = uuid.New()
	f.CreatedAt = time.Now().UTC()
	cp := *f
	r.byID[f.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (*FileUpload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *memRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*FileUpload, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*FileUpload
	for _, f := range r.byID {
		if f.PatientID == patientID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func newTestService(repo Repository, blobs blobstore.BlobStore, store audit.Store) *Service {
	return NewService(repo, blobs,
		audit.NewRecorder(store, zerolog.Nop()),
		db.PassthroughTxRunner(), zerolog.Nop())
}

func TestUploadRecordsAudit(t *testing.T) {
	repo := newMemRepo()
	blobs := blobstore.NewMemStore(0)
	store := audit.NewMemStore()
	svc := newTestService(repo, blobs, store)

	actor := audit.Actor{ID: uuid.New(), Name: "Pat", Role: audit.RolePatient}
	patientID := uuid.New()

	f, err := svc.Upload(context.Background(), actor, "10.0.0.6", patientID,
		"scan.pdf", "medical_report", "application/pdf", strings.NewReader("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if f.Size == 0 {
		t.Error("size not captured from blob store")
	}

	entries, _ := store.Query(context.Background(), audit.Filter{PatientID: patientID}, 0, 0)
	if len(entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Action != audit.ActionUpload || e.ResourceType != audit.ResourceFile {
		t.Errorf("entry = %s %s", e.Action, e.ResourceType)
	}
	if e.Description != `Uploaded file "scan.pdf"` {
		t.Errorf("description = %q", e.Description)
	}

	// Content round-trips through the blob store.
	rc, got, err := svc.Download(context.Background(), f.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "%PDF-1.4 fake" {
		t.Errorf("content = %q", data)
	}
	if got.FileName != "scan.pdf" {
		t.Errorf("file name = %q", got.FileName)
	}
}

func TestUploadRejectsBadInput(t *testing.T) {
	svc := newTestService(newMemRepo(), blobstore.NewMemStore(0), audit.NewMemStore())
	actor := audit.Actor{ID: uuid.New(), Role: audit.RolePatient}

	if _, err := svc.Upload(context.Background(), actor, "", uuid.New(),
		"notes.exe", "other", "application/pdf", strings.NewReader("x")); !errors.Is(err, blobstore.ErrInvalidExtension) {
		t.Errorf("extension: err = %v", err)
	}
	if _, err := svc.Upload(context.Background(), actor, "", uuid.New(),
		"scan.pdf", "other", "text/html", strings.NewReader("x")); !errors.Is(err, blobstore.ErrInvalidContentType) {
		t.Errorf("content type: err = %v", err)
	}
	if _, err := svc.Upload(context.Background(), actor, "", uuid.New(),
		"scan.pdf", "vacation_photos", "application/pdf", strings.NewReader("x")); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestUploadCleansUpBlobOnMetadataFailure(t *testing.T) {
	repo := newMemRepo()
	repo.createErr = errors.New("insert failed")
	blobs := blobstore.NewMemStore(0)
	svc := newTestService(repo, blobs, audit.NewMemStore())
	actor := audit.Actor{ID: uuid.New(), Role: audit.RolePatient}

	_, err := svc.Upload(context.Background(), actor, "", uuid.New(),
		"scan.pdf", "other", "application/pdf", strings.NewReader("x"))
	if err == nil {
		t.Fatal("expected upload failure")
	}
	// No stray blob should remain. MemStore has no listing API, so check
	// via a second successful upload and blob retrieval by its metadata
	// id only.
	repo.createErr = nil
	f, err := svc.Upload(context.Background(), actor, "", uuid.New(),
		"scan.pdf", "other", "application/pdf", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if _, _, err := blobs.Get(context.Background(), f.BlobID); err != nil {
		t.Errorf("blob for successful upload missing: %v", err)
	}
}

func TestDeleteRemovesBlob(t *testing.T) {
	repo := newMemRepo()
	blobs := blobstore.NewMemStore(0)
	store := audit.NewMemStore()
	svc := newTestService(repo, blobs, store)
	actor := audit.Actor{ID: uuid.New(), Role: audit.RolePatient}
	patientID := uuid.New()

	f, err := svc.Upload(context.Background(), actor, "", patientID,
		"scan.pdf", "other", "application/pdf", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := svc.Delete(context.Background(), actor, "", f.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := blobs.Get(context.Background(), f.BlobID); !errors.Is(err, blobstore.ErrBlobNotFound) {
		t.Errorf("blob still present: %v", err)
	}

	entries, _ := store.Query(context.Background(), audit.Filter{PatientID: patientID}, 0, 0)
	var sawDelete bool
	for _, e := range entries {
		if e.Action == audit.ActionDelete {
			sawDelete = true
		}
	}
	if !sawDelete {
		t.Error("no delete entry recorded")
	}
}
