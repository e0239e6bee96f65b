package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cellscope/internal/config"
	"cellscope/internal/models"
	"cellscope/internal/repository"
)

type fakeUploads struct {
	byID map[string]models.Upload

	paths  map[string]string
	purged *time.Time
}

func newFakeUploads() *fakeUploads {
	return &fakeUploads{
		byID:  map[string]models.Upload{},
		paths: map[string]string{},
	}
}

func (f *fakeUploads) Create(ctx context.Context, upload models.Upload) error {
	f.byID[upload.ID] = upload
	return nil
}

func (f *fakeUploads) GetByID(ctx context.Context, id, userID string) (models.Upload, error) {
	u, ok := f.byID[id]
	if !ok || u.UserID != userID {
		return models.Upload{}, repository.ErrUploadNotFound
	}
	return u, nil
}

func (f *fakeUploads) GetImage(ctx context.Context, id, userID string) (repository.UploadImage, error) {
	return repository.UploadImage{}, repository.ErrUploadNotFound
}

func (f *fakeUploads) Delete(ctx context.Context, id, userID string) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeUploads) ListByUser(ctx context.Context, userID string, opts repository.ListOptions) ([]models.Upload, error) {
	return nil, nil
}

func (f *fakeUploads) CountByUser(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (f *fakeUploads) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeUploads) GroupByModel(ctx context.Context, userID string) ([]repository.LabelCount, error) {
	return nil, nil
}

func (f *fakeUploads) GroupByCellType(ctx context.Context, userID string) ([]repository.LabelCount, error) {
	return nil, nil
}

func (f *fakeUploads) SetImagePath(ctx context.Context, id, path string) error {
	f.paths[id] = path
	return nil
}

func (f *fakeUploads) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.purged = &cutoff
	return 2, nil
}

func newProcessor(uploads repository.Uploads) *Processor {
	cfg := &config.AppConfig{}
	cfg.Maintenance.Retention = 720 * time.Hour
	return NewProcessor(uploads, nil, cfg, zerolog.Nop())
}

func TestHandle_Purge(t *testing.T) {
	t.Parallel()

	uploads := newFakeUploads()
	p := newProcessor(uploads)

	err := p.Handle(context.Background(), redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"type": "purge"},
	})
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if uploads.purged == nil {
		t.Fatalf("expected purge to run")
	}

	wantCutoff := time.Now().Add(-720 * time.Hour)
	if diff := uploads.purged.Sub(wantCutoff); diff > time.Minute || diff < -time.Minute {
		t.Fatalf("cutoff off by %v", diff)
	}
}

func TestHandle_ArchiveWithoutStoreIsNoop(t *testing.T) {
	t.Parallel()

	uploads := newFakeUploads()
	uploads.byID["up1"] = models.Upload{ID: "up1", UserID: "u1", ImageData: "data:image/png;base64,aGVsbG8="}
	p := newProcessor(uploads)

	err := p.Handle(context.Background(), redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"type": "archive", "uploadId": "up1", "userId": "u1"},
	})
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if len(uploads.paths) != 0 {
		t.Fatalf("no archive path expected without a store, got %v", uploads.paths)
	}
}

func TestHandle_UnknownTypeIgnored(t *testing.T) {
	t.Parallel()

	p := newProcessor(newFakeUploads())

	err := p.Handle(context.Background(), redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"type": "resize"},
	})
	if err != nil {
		t.Fatalf("unknown task must be acked, got error %v", err)
	}
}
