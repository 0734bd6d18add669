package document

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("file upload not found")

// FileUpload is the metadata row for an uploaded document. The content
// itself lives in the blob store under BlobID.
type FileUpload struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	UploaderID  uuid.UUID `db:"uploader_id" json:"uploader_id"`
	FileName    string    `db:"file_name" json:"file_name"`
	Category    string    `db:"category" json:"category"`
	ContentType string    `db:"content_type" json:"content_type"`
	Size        int64     `db:"size_bytes" json:"size"`
	BlobID      uuid.UUID `db:"blob_id" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func (f *FileUpload) Snapshot() map[string]any {
	return map[string]any{
		"file_name":    f.FileName,
		"category":     f.Category,
		"content_type": f.ContentType,
		"size":         f.Size,
	}
}
