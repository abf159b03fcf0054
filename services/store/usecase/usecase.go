package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/tubescribe/backend/pkg/gen"
	"github.com/tubescribe/backend/services/store/entity"
	"github.com/tubescribe/backend/services/store/storage"
)

// ErrMissingVideoID rejects saves without the upsert key.
var ErrMissingVideoID = errors.New("usecase: video_id is required")

type Usecase interface {
	Init(ctx context.Context) (*entity.StorageInfo, error)
	Save(ctx context.Context, rec *entity.TranscriptRecord) (*entity.SaveResult, error)
	Get(ctx context.Context, videoID string) (*entity.TranscriptRecord, error)
	GetAll(ctx context.Context, limit, offset int) ([]entity.TranscriptRecord, error)
	Delete(ctx context.Context, videoID string) (*entity.DeleteResult, error)
	Search(ctx context.Context, query string) ([]entity.TranscriptRecord, error)
	Stats(ctx context.Context) (*entity.Stats, error)
	ExportAll(ctx context.Context) (*entity.Export, error)
	ImportAll(ctx context.Context, records []entity.TranscriptRecord) (*entity.ImportResult, error)
}

type usecase struct {
	storage storage.Store
	uuid    gen.UUIDGenerator
	now     func() time.Time
}

func New(storage storage.Store) Usecase {
	return &usecase{
		storage: storage,
		uuid:    gen.UUID(),
		now:     time.Now,
	}
}

func (u *usecase) Init(ctx context.Context) (*entity.StorageInfo, error) {
	return u.storage.Init(ctx)
}

// Save upserts by video ID. Every save refreshes CapturedAt, so a re-capture
// of the same video replaces the content and bumps the timestamp.
func (u *usecase) Save(ctx context.Context, rec *entity.TranscriptRecord) (*entity.SaveResult, error) {
	if rec == nil || rec.VideoID == "" {
		return nil, ErrMissingVideoID
	}
	rec.CapturedAt = u.now().UTC()
	return u.storage.Save(ctx, rec)
}

func (u *usecase) Get(ctx context.Context, videoID string) (*entity.TranscriptRecord, error) {
	return u.storage.Get(ctx, videoID)
}

func (u *usecase) GetAll(ctx context.Context, limit, offset int) ([]entity.TranscriptRecord, error) {
	return u.storage.GetAll(ctx, limit, offset)
}

func (u *usecase) Delete(ctx context.Context, videoID string) (*entity.DeleteResult, error) {
	return u.storage.Delete(ctx, videoID)
}

func (u *usecase) Search(ctx context.Context, query string) ([]entity.TranscriptRecord, error) {
	return u.storage.Search(ctx, query)
}

func (u *usecase) Stats(ctx context.Context) (*entity.Stats, error) {
	return u.storage.Stats(ctx)
}

func (u *usecase) ExportAll(ctx context.Context) (*entity.Export, error) {
	records, err := u.storage.ExportAll(ctx)
	if err != nil {
		return nil, err
	}
	return &entity.Export{
		ExportID:   u.uuid.Next().String(),
		Records:    records,
		ExportedAt: u.now().UTC(),
	}, nil
}

// ImportAll upserts each record best effort, keeping the timestamps the
// export carried.
func (u *usecase) ImportAll(ctx context.Context, records []entity.TranscriptRecord) (*entity.ImportResult, error) {
	return u.storage.ImportAll(ctx, records)
}
