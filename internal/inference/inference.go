// Package inference talks to the external deep-learning service that
// performs the actual classification, detection and counting. The service
// is an opaque HTTP collaborator; everything here is behind the Service
// interface so handlers and tests never depend on the concrete transport.
package inference

import (
	"context"
	"errors"
)

// ErrUnavailable wraps every transport failure and every response the
// service flags as unsuccessful. Callers surface it as 503.
var ErrUnavailable = errors.New("inference service unavailable")

type ClassificationResult struct {
	PredictedClass string             `json:"predicted_class"`
	Confidence     float64            `json:"confidence"`
	Probabilities  map[string]float64 `json:"probabilities"`
	ModelUsed      string             `json:"model_used"`
}

type Detection struct {
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"`
}

type DetectionResult struct {
	Detections     []Detection `json:"detections"`
	Count          int         `json:"count"`
	AnnotatedImage string      `json:"annotated_image"`
}

type CountResult struct {
	Counts         map[string]int `json:"counts"`
	TotalCells     int            `json:"total_cells"`
	Detections     []Detection    `json:"detections"`
	AnnotatedImage string         `json:"annotated_image"`
}

// ModelList reports which external model ids are loaded, per capability.
type ModelList struct {
	Classification []string `json:"classification"`
	Detection      bool     `json:"detection"`
	Count          bool     `json:"count"`
}

type Service interface {
	Classify(ctx context.Context, image []byte, modelID string) (ClassificationResult, error)
	Detect(ctx context.Context, image []byte, conf float64, showLabels bool) (DetectionResult, error)
	Count(ctx context.Context, image []byte, conf float64, showLabels bool) (CountResult, error)
	Models(ctx context.Context) (ModelList, error)
}
