package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"cellscope/internal/config"
	"cellscope/internal/inference"
	"cellscope/internal/models"
)

var (
	ErrImageRequired = errors.New("image is required")
	ErrNoOptions     = errors.New("at least one analysis option must be selected")
)

// PredictionService drives the inference gateway: it fans the request out
// to the selected external endpoints and persists classification results
// as an upload record, best-effort.
type PredictionService struct {
	engine  inference.Service
	uploads *UploadService
	cfg     *config.AppConfig
	log     zerolog.Logger
}

func NewPredictionService(engine inference.Service, uploads *UploadService, cfg *config.AppConfig, log zerolog.Logger) *PredictionService {
	return &PredictionService{
		engine:  engine,
		uploads: uploads,
		cfg:     cfg,
		log:     log,
	}
}

type PredictOptions struct {
	Classification bool `json:"classification"`
	Detection      bool `json:"detection"`
	Count          bool `json:"count"`
}

type PredictInput struct {
	Image               string
	Options             PredictOptions
	ClassificationModel string
	FileName            string
	FileSize            *int64
	MimeType            *string
	ShowLabels          bool
}

type ClassificationOutput struct {
	CellType      string             `json:"cellType"`
	Confidence    float64            `json:"confidence"`
	Model         string             `json:"model"`
	Probabilities map[string]float64 `json:"probabilities"`
}

type DetectionOutput struct {
	Image         string                `json:"image"`
	DetectedCount int                   `json:"detectedCount"`
	Detections    []inference.Detection `json:"detections"`
}

type CountOutput struct {
	Image      string                `json:"image"`
	WBC        int                   `json:"wbc"`
	RBC        int                   `json:"rbc"`
	Total      int                   `json:"total"`
	Detections []inference.Detection `json:"detections"`
}

type PredictResult struct {
	Classification *ClassificationOutput `json:"classification,omitempty"`
	Detection      *DetectionOutput      `json:"detection,omitempty"`
	Count          *CountOutput          `json:"count,omitempty"`
}

// Predict runs the selected analyses. Any external failure aborts the
// whole call; partial results are never returned. The saved record id is
// empty when classification was not requested or the best-effort save
// failed.
func (s *PredictionService) Predict(ctx context.Context, userID string, input PredictInput) (PredictResult, string, error) {
	if input.Image == "" {
		return PredictResult{}, "", ErrImageRequired
	}
	if !input.Options.Classification && !input.Options.Detection && !input.Options.Count {
		return PredictResult{}, "", ErrNoOptions
	}

	imageBytes, err := DecodeImageData(input.Image)
	if err != nil {
		return PredictResult{}, "", ErrBadImageData
	}

	start := time.Now()
	conf := s.cfg.Inference.ConfidenceThreshold
	var result PredictResult

	if input.Options.Classification {
		modelName := input.ClassificationModel
		if modelName == "" {
			modelName = "MobileNet"
		}
		modelID := inference.ResolveModelID(modelName)

		classification, err := s.engine.Classify(ctx, imageBytes, modelID)
		if err != nil {
			return PredictResult{}, "", err
		}

		result.Classification = &ClassificationOutput{
			CellType:      classification.PredictedClass,
			Confidence:    roundPercent(classification.Confidence),
			Model:         modelName,
			Probabilities: classification.Probabilities,
		}
	}

	if input.Options.Detection {
		detection, err := s.engine.Detect(ctx, imageBytes, conf, input.ShowLabels)
		if err != nil {
			return PredictResult{}, "", err
		}

		result.Detection = &DetectionOutput{
			Image:         "data:image/jpeg;base64," + detection.AnnotatedImage,
			DetectedCount: detection.Count,
			Detections:    detection.Detections,
		}
	}

	if input.Options.Count {
		count, err := s.engine.Count(ctx, imageBytes, conf, input.ShowLabels)
		if err != nil {
			return PredictResult{}, "", err
		}

		result.Count = &CountOutput{
			Image:      "data:image/jpeg;base64," + count.AnnotatedImage,
			WBC:        count.Counts["WBC"],
			RBC:        count.Counts["RBC"],
			Total:      count.TotalCells,
			Detections: count.Detections,
		}
	}

	recordID := ""
	if result.Classification != nil {
		recordID = s.saveRecord(ctx, userID, input, *result.Classification, time.Since(start))
	}

	return result, recordID, nil
}

// saveRecord persists the classification outcome. Failure is logged and
// swallowed: the prediction already succeeded from the caller's point of
// view.
func (s *PredictionService) saveRecord(ctx context.Context, userID string, input PredictInput, classification ClassificationOutput, elapsed time.Duration) string {
	fileName := input.FileName
	if fileName == "" {
		fileName = "uploaded-image.jpg"
	}
	processingTime := elapsed.Milliseconds()

	upload, err := s.uploads.Create(ctx, userID, CreateUploadInput{
		ImageData:         input.Image,
		ImageOriginalName: fileName,
		ImageSize:         input.FileSize,
		ImageMimeType:     input.MimeType,
		Prediction: models.Prediction{
			CellType:   classification.CellType,
			Confidence: classification.Confidence,
			ModelUsed:  classification.Model,
		},
		ProcessingTime: &processingTime,
	})
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("prediction record save failed")
		return ""
	}
	return upload.ID
}

type ModelStatus struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Recommended bool   `json:"recommended,omitempty"`
}

type ModelsOverview struct {
	Classification []ModelStatus `json:"classification"`
	Detection      *ModelStatus  `json:"detection"`
	Count          *ModelStatus  `json:"count"`
}

// AvailableModels queries the external service for its loaded models and
// maps ids back to logical names. When the service is unreachable it
// returns the static catalog flagged inactive instead of failing.
func (s *PredictionService) AvailableModels(ctx context.Context) (ModelsOverview, bool) {
	list, err := s.engine.Models(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("inference service unavailable, returning fallback models")
		return fallbackModels(), true
	}

	classification := make([]ModelStatus, 0, len(list.Classification))
	for _, id := range list.Classification {
		classification = append(classification, ModelStatus{
			Name:        inference.LogicalModelName(id),
			Status:      "active",
			Recommended: id == inference.DefaultModelID,
		})
	}

	overview := ModelsOverview{Classification: classification}
	if list.Detection {
		overview.Detection = &ModelStatus{Name: "YOLO v8", Status: "active"}
	}
	if list.Count {
		overview.Count = &ModelStatus{Name: "Cell Counter v2", Status: "active"}
	}
	return overview, false
}

func fallbackModels() ModelsOverview {
	return ModelsOverview{
		Classification: []ModelStatus{
			{Name: "ResNet", Status: "inactive"},
			{Name: "DenseNet", Status: "inactive"},
			{Name: "MobileNet", Status: "inactive", Recommended: true},
			{Name: "ViT", Status: "inactive"},
		},
		Detection: &ModelStatus{Name: "YOLO v8", Status: "inactive"},
		Count:     &ModelStatus{Name: "Cell Counter v2", Status: "inactive"},
	}
}

// roundPercent scales a [0,1] confidence to a percentage with one decimal.
func roundPercent(confidence float64) float64 {
	return math.Round(confidence*1000) / 10
}
