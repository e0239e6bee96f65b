package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cellscope/internal/config"
	"cellscope/internal/repository"
	"cellscope/internal/service"
	"cellscope/internal/storage"
)

// Processor executes upload maintenance tasks: archiving inline image
// payloads to the object store and purging records past retention.
type Processor struct {
	uploads   repository.Uploads
	store     *storage.ObjectStore
	retention time.Duration
	logger    zerolog.Logger
}

type TaskPayload struct {
	Type     string `json:"type"`
	UploadID string `json:"uploadId"`
	UserID   string `json:"userId"`
}

func NewProcessor(uploads repository.Uploads, store *storage.ObjectStore, cfg *config.AppConfig, logger zerolog.Logger) *Processor {
	return &Processor{
		uploads:   uploads,
		store:     store,
		retention: cfg.Maintenance.Retention,
		logger:    logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch payload.Type {
	case "archive":
		return p.handleArchive(ctx, payload)
	case "purge":
		return p.handlePurge(ctx)
	default:
		p.logger.Warn().Str("type", payload.Type).Msg("unknown task type")
		return nil
	}
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// handleArchive copies a record's inline payload into the object store
// and records the resulting path. Skips records already archived or
// without storage configured.
func (p *Processor) handleArchive(ctx context.Context, payload TaskPayload) error {
	if p.store == nil {
		return nil
	}
	if payload.UploadID == "" || payload.UserID == "" {
		p.logger.Warn().Msg("archive task missing ids")
		return nil
	}

	upload, err := p.uploads.GetByID(ctx, payload.UploadID, payload.UserID)
	if err != nil {
		return fmt.Errorf("load upload %s: %w", payload.UploadID, err)
	}
	if upload.ImagePath != nil {
		return nil
	}

	data, err := service.DecodeImageData(upload.ImageData)
	if err != nil {
		return fmt.Errorf("decode upload %s: %w", upload.ID, err)
	}

	contentType := "image/jpeg"
	if upload.ImageMimeType != nil && *upload.ImageMimeType != "" {
		contentType = *upload.ImageMimeType
	}

	objectKey := fmt.Sprintf("%s/%s/%s", upload.UserID, upload.CreatedAt.UTC().Format("2006/01/02"), upload.ID)
	path, err := p.store.PutImage(ctx, objectKey, data, contentType)
	if err != nil {
		return fmt.Errorf("archive upload %s: %w", upload.ID, err)
	}

	if err := p.uploads.SetImagePath(ctx, upload.ID, path); err != nil {
		return fmt.Errorf("record archive path %s: %w", upload.ID, err)
	}

	p.logger.Info().Str("upload_id", upload.ID).Str("path", path).Msg("upload archived")
	return nil
}

func (p *Processor) handlePurge(ctx context.Context) error {
	cutoff := time.Now().Add(-p.retention)
	deleted, err := p.uploads.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge uploads: %w", err)
	}

	p.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("purge complete")
	return nil
}
