package storage

import (
	"context"

	"accountd/internal/domain"
)

// ExportResult describes where a snapshot landed.
type ExportResult struct {
	Location string
	Count    int
}

// Service exports account snapshots to remote object storage. Snapshots go
// through the domain representation codec, so credential hashes never leave
// the process.
type Service interface {
	UploadSnapshot(ctx context.Context, users []domain.User, bucket, keyPrefix string) (ExportResult, error)
}
