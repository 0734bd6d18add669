package document

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/platform/audit"
	"github.com/medtrack/medtrack/internal/platform/blobstore"
	"github.com/medtrack/medtrack/internal/platform/db"
)

// Service owns document uploads. Content goes to the blob store first;
// the metadata row and its audit entry then commit in one transaction
// scope. If that scope fails, the orphaned blob is removed best-effort.
type Service struct {
	repo   Repository
	blobs  blobstore.BlobStore
	rec    *audit.Recorder
	run    db.TxRunner
	logger zerolog.Logger
}

func NewService(repo Repository, blobs blobstore.BlobStore, rec *audit.Recorder, run db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, rec: rec, run: run, logger: logger}
}

func (s *Service) Upload(ctx context.Context, actor audit.Actor, ip string, patientID uuid.UUID, fileName, category, contentType string, content io.Reader) (*FileUpload, error) {
	if !blobstore.AllowedCategories[category] {
		return nil, fmt.Errorf("invalid category: %s", category)
	}
	if err := blobstore.ValidateUpload(fileName, contentType); err != nil {
		return nil, err
	}

	meta, err := s.blobs.Put(ctx, fileName, contentType, content)
	if err != nil {
		return nil, err
	}

	f := &FileUpload{
		PatientID:   patientID,
		UploaderID:  actor.ID,
		FileName:    fileName,
		Category:    category,
		ContentType: contentType,
		Size:        meta.Size,
		BlobID:      meta.ID,
	}

	err = s.run(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, f); err != nil {
			return err
		}
		return s.rec.Record(ctx, audit.Change{
			Actor:        actor,
			Action:       audit.ActionUpload,
			ResourceType: audit.ResourceFile,
			ResourceID:   f.ID,
			PatientID:    f.PatientID,
			NewValues:    f.Snapshot(),
			IPAddress:    ip,
			Label:        f.FileName,
		})
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, meta.ID); delErr != nil {
			s.logger.Warn().Err(delErr).Str("blob_id", meta.ID.String()).
				Msg("could not remove orphaned blob")
		}
		return nil, err
	}
	return f, nil
}

// Download returns the file content stream and its metadata row. The
// caller must close the reader.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, *FileUpload, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Get(ctx, f.BlobID)
	if err != nil {
		return nil, nil, err
	}
	return rc, f, nil
}

func (s *Service) Delete(ctx context.Context, actor audit.Actor, ip string, id uuid.UUID) error {
	var blobID uuid.UUID
	err := s.run(ctx, func(ctx context.Context) error {
		f, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		blobID = f.BlobID
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.rec.Record(ctx, audit.Change{
			Actor:        actor,
			Action:       audit.ActionDelete,
			ResourceType: audit.ResourceFile,
			ResourceID:   f.ID,
			PatientID:    f.PatientID,
			OldValues:    f.Snapshot(),
			IPAddress:    ip,
			Label:        f.FileName,
		})
	})
	if err != nil {
		return err
	}

	if delErr := s.blobs.Delete(ctx, blobID); delErr != nil {
		s.logger.Warn().Err(delErr).Str("blob_id", blobID.String()).
			Msg("could not remove blob for deleted file")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*FileUpload, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*FileUpload, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}
