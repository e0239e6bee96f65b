package models

import "time"

type UploadStatus string

const (
	UploadStatusPending   UploadStatus = "pending"
	UploadStatusCompleted UploadStatus = "completed"
	UploadStatusFailed    UploadStatus = "failed"
)

// Prediction is the classification outcome attached to an upload.
// Confidence is a percentage in [0,100].
type Prediction struct {
	CellType   string  `json:"cellType"`
	Confidence float64 `json:"confidence"`
	ModelUsed  string  `json:"modelUsed"`
}

// ImageMetadata carries optional dimensions captured at upload time.
type ImageMetadata struct {
	ImageWidth  *int    `json:"imageWidth,omitempty"`
	ImageHeight *int    `json:"imageHeight,omitempty"`
	FileFormat  *string `json:"fileFormat,omitempty"`
}

type Upload struct {
	ID                string
	UserID            string
	ImageData         string // base64 data URL; empty when excluded from projection
	ImagePath         *string
	ImageOriginalName string
	ImageSize         *int64
	ImageMimeType     *string
	Prediction        Prediction
	ProcessingTime    *int64 // milliseconds
	Status            UploadStatus
	Metadata          ImageMetadata
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
