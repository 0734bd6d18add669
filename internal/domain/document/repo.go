package document

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, f *FileUpload) error
	GetByID(ctx context.Context, id uuid.UUID) (*FileUpload, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*FileUpload, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
