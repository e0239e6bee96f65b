package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cellscope/internal/cache"
	"cellscope/internal/config"
	"cellscope/internal/ids"
	"cellscope/internal/models"
	"cellscope/internal/repository"
)

var (
	ErrUploadFieldsMissing  = errors.New("image data, name, and prediction are required")
	ErrPredictionIncomplete = errors.New("prediction must include cellType, confidence, and modelUsed")
	ErrBadImageData         = errors.New("invalid image data format")
)

type UploadService struct {
	uploads repository.Uploads
	stats   *cache.StatsCache
	queue   *redis.Client
	cfg     *config.AppConfig
	log     zerolog.Logger
}

func NewUploadService(uploads repository.Uploads, stats *cache.StatsCache, queue *redis.Client, cfg *config.AppConfig, log zerolog.Logger) *UploadService {
	return &UploadService{
		uploads: uploads,
		stats:   stats,
		queue:   queue,
		cfg:     cfg,
		log:     log,
	}
}

type CreateUploadInput struct {
	ImageData         string
	ImagePath         *string
	ImageOriginalName string
	ImageSize         *int64
	ImageMimeType     *string
	Prediction        models.Prediction
	ProcessingTime    *int64
	Metadata          models.ImageMetadata
}

func (s *UploadService) Create(ctx context.Context, userID string, input CreateUploadInput) (models.Upload, error) {
	if input.ImageData == "" || input.ImageOriginalName == "" {
		return models.Upload{}, ErrUploadFieldsMissing
	}
	if input.Prediction.CellType == "" || input.Prediction.ModelUsed == "" {
		return models.Upload{}, ErrPredictionIncomplete
	}
	if !strings.HasPrefix(input.ImageData, "data:image/") && input.ImagePath == nil {
		return models.Upload{}, ErrBadImageData
	}

	upload := models.Upload{
		ID:                ids.New(),
		UserID:            userID,
		ImageData:         input.ImageData,
		ImagePath:         input.ImagePath,
		ImageOriginalName: input.ImageOriginalName,
		ImageSize:         input.ImageSize,
		ImageMimeType:     input.ImageMimeType,
		Prediction:        input.Prediction,
		ProcessingTime:    input.ProcessingTime,
		Status:            models.UploadStatusCompleted,
		Metadata:          input.Metadata,
	}
	now := time.Now().UTC()
	upload.CreatedAt = now
	upload.UpdatedAt = now

	if err := s.uploads.Create(ctx, upload); err != nil {
		return models.Upload{}, err
	}

	s.afterMutation(ctx, upload)

	return upload, nil
}

// afterMutation invalidates cached aggregates and hands the record to the
// maintenance queue. Both are best-effort.
func (s *UploadService) afterMutation(ctx context.Context, upload models.Upload) {
	s.stats.InvalidateUser(ctx, upload.UserID)

	if s.queue == nil || upload.ID == "" {
		return
	}
	err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: s.cfg.Redis.Stream,
		Values: map[string]any{
			"type":     "archive",
			"uploadId": upload.ID,
			"userId":   upload.UserID,
		},
	}).Err()
	if err != nil {
		s.log.Warn().Err(err).Str("upload_id", upload.ID).Msg("enqueue archive failed")
	}
}

type ListParams struct {
	Page         int
	Limit        int
	SortBy       string
	Descending   bool
	IncludeImage bool
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

func (s *UploadService) List(ctx context.Context, userID string, params ListParams) ([]models.Upload, Pagination, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = 10
	}

	uploads, err := s.uploads.ListByUser(ctx, userID, repository.ListOptions{
		Limit:        params.Limit,
		Offset:       (params.Page - 1) * params.Limit,
		SortBy:       params.SortBy,
		Descending:   params.Descending,
		IncludeImage: params.IncludeImage,
	})
	if err != nil {
		return nil, Pagination{}, err
	}

	total, err := s.uploads.CountByUser(ctx, userID)
	if err != nil {
		return nil, Pagination{}, err
	}

	pages := (total + int64(params.Limit) - 1) / int64(params.Limit)

	return uploads, Pagination{
		Total: total,
		Page:  params.Page,
		Limit: params.Limit,
		Pages: pages,
	}, nil
}

func (s *UploadService) Get(ctx context.Context, id, userID string) (models.Upload, error) {
	return s.uploads.GetByID(ctx, id, userID)
}

func (s *UploadService) GetImage(ctx context.Context, id, userID string) (repository.UploadImage, error) {
	return s.uploads.GetImage(ctx, id, userID)
}

func (s *UploadService) Delete(ctx context.Context, id, userID string) error {
	if err := s.uploads.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.stats.InvalidateUser(ctx, userID)
	return nil
}

type NameValue struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type UploadStats struct {
	TotalUploads    int64       `json:"totalUploads"`
	UploadsToday    int64       `json:"uploadsToday"`
	MostUsedModel   string      `json:"mostUsedModel"`
	UniqueCellTypes int         `json:"uniqueCellTypes"`
	Distribution    []NameValue `json:"distribution"`
}

// Stats aggregates owner-scoped dashboard counters. Today's boundary is
// local midnight, matching the dashboard's notion of "today".
func (s *UploadService) Stats(ctx context.Context, userID string) (UploadStats, error) {
	key := cache.UploadStatsKey(userID)

	var cached UploadStats
	if s.stats.Get(ctx, key, &cached) {
		return cached, nil
	}

	total, err := s.uploads.CountByUser(ctx, userID)
	if err != nil {
		return UploadStats{}, err
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.uploads.CountSince(ctx, userID, midnight)
	if err != nil {
		return UploadStats{}, err
	}

	modelBuckets, err := s.uploads.GroupByModel(ctx, userID)
	if err != nil {
		return UploadStats{}, err
	}
	mostUsed := "-"
	if len(modelBuckets) > 0 {
		mostUsed = modelBuckets[0].Label
	}

	cellBuckets, err := s.uploads.GroupByCellType(ctx, userID)
	if err != nil {
		return UploadStats{}, err
	}
	distribution := make([]NameValue, 0, len(cellBuckets))
	for _, bucket := range cellBuckets {
		distribution = append(distribution, NameValue{Name: bucket.Label, Value: bucket.Count})
	}

	result := UploadStats{
		TotalUploads:    total,
		UploadsToday:    today,
		MostUsedModel:   mostUsed,
		UniqueCellTypes: len(cellBuckets),
		Distribution:    distribution,
	}

	s.stats.Set(ctx, key, result)

	return result, nil
}

type CellTypeCount struct {
	CellType string `json:"cellType"`
	Count    int64  `json:"count"`
}

type ModelCount struct {
	Model string `json:"model"`
	Count int64  `json:"count"`
}

type HistoryStats struct {
	TotalPredictions     int64           `json:"totalPredictions"`
	RecentPredictions    int64           `json:"recentPredictions"`
	CellTypeDistribution []CellTypeCount `json:"cellTypeDistribution"`
	ModelUsage           []ModelCount    `json:"modelUsage"`
}

// StatsHistory is the history page's variant of the aggregation: a 7-day
// recency window instead of today's count.
func (s *UploadService) StatsHistory(ctx context.Context, userID string) (HistoryStats, error) {
	key := cache.HistoryStatsKey(userID)

	var cached HistoryStats
	if s.stats.Get(ctx, key, &cached) {
		return cached, nil
	}

	total, err := s.uploads.CountByUser(ctx, userID)
	if err != nil {
		return HistoryStats{}, err
	}

	recent, err := s.uploads.CountSince(ctx, userID, time.Now().AddDate(0, 0, -7))
	if err != nil {
		return HistoryStats{}, err
	}

	cellBuckets, err := s.uploads.GroupByCellType(ctx, userID)
	if err != nil {
		return HistoryStats{}, err
	}
	cellTypes := make([]CellTypeCount, 0, len(cellBuckets))
	for _, bucket := range cellBuckets {
		cellTypes = append(cellTypes, CellTypeCount{CellType: bucket.Label, Count: bucket.Count})
	}

	modelBuckets, err := s.uploads.GroupByModel(ctx, userID)
	if err != nil {
		return HistoryStats{}, err
	}
	usage := make([]ModelCount, 0, len(modelBuckets))
	for _, bucket := range modelBuckets {
		usage = append(usage, ModelCount{Model: bucket.Label, Count: bucket.Count})
	}

	result := HistoryStats{
		TotalPredictions:     total,
		RecentPredictions:    recent,
		CellTypeDistribution: cellTypes,
		ModelUsage:           usage,
	}

	s.stats.Set(ctx, key, result)

	return result, nil
}
