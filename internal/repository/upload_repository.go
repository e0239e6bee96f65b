package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cellscope/internal/models"
)

var ErrUploadNotFound = errors.New("upload not found")

// ListOptions controls pagination and ordering for owner-scoped listings.
// IncludeImage pulls the inline payload into the projection; it is off by
// default to bound response size.
type ListOptions struct {
	Limit        int
	Offset       int
	SortBy       string
	Descending   bool
	IncludeImage bool
}

// LabelCount is one bucket of a grouping aggregation.
type LabelCount struct {
	Label string
	Count int64
}

// UploadImage is the narrow projection served by the image endpoint.
type UploadImage struct {
	ImageData         string
	ImageMimeType     *string
	ImageOriginalName string
}

type Uploads interface {
	Create(ctx context.Context, upload models.Upload) error
	GetByID(ctx context.Context, id, userID string) (models.Upload, error)
	GetImage(ctx context.Context, id, userID string) (UploadImage, error)
	Delete(ctx context.Context, id, userID string) error
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]models.Upload, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	CountSince(ctx context.Context, userID string, since time.Time) (int64, error)
	GroupByModel(ctx context.Context, userID string) ([]LabelCount, error)
	GroupByCellType(ctx context.Context, userID string) ([]LabelCount, error)
	SetImagePath(ctx context.Context, id, path string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type UploadRepository struct {
	pool *pgxpool.Pool
}

func NewUploadRepository(pool *pgxpool.Pool) *UploadRepository {
	return &UploadRepository{pool: pool}
}

// sortColumns whitelists client-supplied sort keys. Anything else falls
// back to createdAt.
var sortColumns = map[string]string{
	"createdAt":  "created_at",
	"confidence": "prediction_confidence",
	"cellType":   "prediction_cell_type",
	"modelUsed":  "prediction_model",
	"name":       "image_original_name",
}

func (r *UploadRepository) Create(ctx context.Context, upload models.Upload) error {
	const query = `
		INSERT INTO uploads (
			id, user_id, image_data, image_path, image_original_name, image_size,
			image_mime_type, prediction_cell_type, prediction_confidence,
			prediction_model, processing_time_ms, status,
			meta_width, meta_height, meta_format, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12,
			$13, $14, $15, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		upload.ID,
		upload.UserID,
		upload.ImageData,
		upload.ImagePath,
		upload.ImageOriginalName,
		upload.ImageSize,
		upload.ImageMimeType,
		upload.Prediction.CellType,
		upload.Prediction.Confidence,
		upload.Prediction.ModelUsed,
		upload.ProcessingTime,
		upload.Status,
		upload.Metadata.ImageWidth,
		upload.Metadata.ImageHeight,
		upload.Metadata.FileFormat,
	)
	return err
}

// GetByID looks up a record by id and owner in one query. A record owned
// by another user is indistinguishable from a missing one.
func (r *UploadRepository) GetByID(ctx context.Context, id, userID string) (models.Upload, error) {
	const query = `
		SELECT id, user_id, image_data, image_path, image_original_name, image_size,
		       image_mime_type, prediction_cell_type, prediction_confidence,
		       prediction_model, processing_time_ms, status,
		       meta_width, meta_height, meta_format, created_at, updated_at
		FROM uploads WHERE id = $1 AND user_id = $2
	`

	upload, err := scanUpload(r.pool.QueryRow(ctx, query, id, userID), true)
	if err != nil {
		return models.Upload{}, err
	}
	return upload, nil
}

func (r *UploadRepository) GetImage(ctx context.Context, id, userID string) (UploadImage, error) {
	const query = `
		SELECT image_data, image_mime_type, image_original_name
		FROM uploads WHERE id = $1 AND user_id = $2
	`

	var img UploadImage
	if err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&img.ImageData,
		&img.ImageMimeType,
		&img.ImageOriginalName,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UploadImage{}, ErrUploadNotFound
		}
		return UploadImage{}, err
	}
	return img, nil
}

func (r *UploadRepository) Delete(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM uploads WHERE id = $1 AND user_id = $2`

	cmd, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUploadNotFound
	}
	return nil
}

func (r *UploadRepository) ListByUser(ctx context.Context, userID string, opts ListOptions) ([]models.Upload, error) {
	column, ok := sortColumns[opts.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if opts.Descending {
		direction = "DESC"
	}

	imageColumn := "''"
	if opts.IncludeImage {
		imageColumn = "image_data"
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, %s, image_path, image_original_name, image_size,
		       image_mime_type, prediction_cell_type, prediction_confidence,
		       prediction_model, processing_time_ms, status,
		       meta_width, meta_height, meta_format, created_at, updated_at
		FROM uploads
		WHERE user_id = $1
		ORDER BY %s %s
		LIMIT $2 OFFSET $3
	`, imageColumn, column, direction)

	rows, err := r.pool.Query(ctx, query, userID, opts.Limit, opts.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []models.Upload
	for rows.Next() {
		upload, err := scanUpload(rows, false)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, rows.Err()
}

func (r *UploadRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM uploads WHERE user_id = $1`

	var count int64
	err := r.pool.QueryRow(ctx, query, userID).Scan(&count)
	return count, err
}

func (r *UploadRepository) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	const query = `SELECT COUNT(*) FROM uploads WHERE user_id = $1 AND created_at >= $2`

	var count int64
	err := r.pool.QueryRow(ctx, query, userID, since).Scan(&count)
	return count, err
}

func (r *UploadRepository) GroupByModel(ctx context.Context, userID string) ([]LabelCount, error) {
	const query = `
		SELECT prediction_model, COUNT(*) AS count
		FROM uploads WHERE user_id = $1
		GROUP BY prediction_model
		ORDER BY count DESC
	`
	return r.groupQuery(ctx, query, userID)
}

func (r *UploadRepository) GroupByCellType(ctx context.Context, userID string) ([]LabelCount, error) {
	const query = `
		SELECT prediction_cell_type, COUNT(*) AS count
		FROM uploads WHERE user_id = $1
		GROUP BY prediction_cell_type
		ORDER BY count DESC
	`
	return r.groupQuery(ctx, query, userID)
}

func (r *UploadRepository) groupQuery(ctx context.Context, query, userID string) ([]LabelCount, error) {
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []LabelCount
	for rows.Next() {
		var bucket LabelCount
		if err := rows.Scan(&bucket.Label, &bucket.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, bucket)
	}
	return buckets, rows.Err()
}

// SetImagePath records the archive location once the worker has copied the
// inline payload into the object store.
func (r *UploadRepository) SetImagePath(ctx context.Context, id, path string) error {
	const query = `
		UPDATE uploads SET image_path = $2, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, path)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUploadNotFound
	}
	return nil
}

func (r *UploadRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM uploads WHERE created_at < $1`

	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanUpload(row pgx.Row, notFoundErr bool) (models.Upload, error) {
	var upload models.Upload
	if err := row.Scan(
		&upload.ID,
		&upload.UserID,
		&upload.ImageData,
		&upload.ImagePath,
		&upload.ImageOriginalName,
		&upload.ImageSize,
		&upload.ImageMimeType,
		&upload.Prediction.CellType,
		&upload.Prediction.Confidence,
		&upload.Prediction.ModelUsed,
		&upload.ProcessingTime,
		&upload.Status,
		&upload.Metadata.ImageWidth,
		&upload.Metadata.ImageHeight,
		&upload.Metadata.FileFormat,
		&upload.CreatedAt,
		&upload.UpdatedAt,
	); err != nil {
		if notFoundErr && errors.Is(err, pgx.ErrNoRows) {
			return models.Upload{}, ErrUploadNotFound
		}
		return models.Upload{}, err
	}
	return upload, nil
}
