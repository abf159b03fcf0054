package storage

import (
	"context"
	"errors"

	"github.com/tubescribe/backend/services/store/entity"
)

// ErrNotFound is returned by Get and Delete when no record exists for the
// video ID.
var ErrNotFound = errors.New("storage: transcript not found")

// Store is the transcript persistence capability. All backends implement the
// same upsert-by-video-ID semantics; callers pick one through Select.
type Store interface {
	Init(ctx context.Context) (*entity.StorageInfo, error)
	Save(ctx context.Context, rec *entity.TranscriptRecord) (*entity.SaveResult, error)
	Get(ctx context.Context, videoID string) (*entity.TranscriptRecord, error)
	GetAll(ctx context.Context, limit, offset int) ([]entity.TranscriptRecord, error)
	Delete(ctx context.Context, videoID string) (*entity.DeleteResult, error)
	Search(ctx context.Context, query string) ([]entity.TranscriptRecord, error)
	Stats(ctx context.Context) (*entity.Stats, error)
	ExportAll(ctx context.Context) ([]entity.TranscriptRecord, error)
	ImportAll(ctx context.Context, records []entity.TranscriptRecord) (*entity.ImportResult, error)
	Close() error
}

func clampLimit(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
