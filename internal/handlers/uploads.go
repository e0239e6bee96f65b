package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"cellscope/internal/middleware"
	"cellscope/internal/models"
	"cellscope/internal/repository"
	"cellscope/internal/service"
)

type predictionBody struct {
	CellType   string   `json:"cellType"`
	Confidence *float64 `json:"confidence"`
	ModelUsed  string   `json:"modelUsed"`
}

type createUploadRequest struct {
	ImageData         string                `json:"imageData"`
	ImagePath         *string               `json:"imagePath"`
	ImageOriginalName string                `json:"imageOriginalName"`
	ImageSize         *int64                `json:"imageSize"`
	ImageMimeType     *string               `json:"imageMimeType"`
	Prediction        *predictionBody       `json:"prediction"`
	ProcessingTime    *int64                `json:"processingTime"`
	Metadata          *models.ImageMetadata `json:"metadata"`
}

type uploadResponse struct {
	ID                string                `json:"id"`
	UserID            string                `json:"userId"`
	ImageData         string                `json:"imageData,omitempty"`
	ImagePath         *string               `json:"imagePath,omitempty"`
	ImageOriginalName string                `json:"imageOriginalName"`
	ImageSize         *int64                `json:"imageSize,omitempty"`
	ImageMimeType     *string               `json:"imageMimeType,omitempty"`
	Prediction        models.Prediction     `json:"prediction"`
	ProcessingTime    *int64                `json:"processingTime,omitempty"`
	Status            models.UploadStatus   `json:"status"`
	Metadata          *models.ImageMetadata `json:"metadata,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

func toUploadResponse(upload models.Upload) uploadResponse {
	resp := uploadResponse{
		ID:                upload.ID,
		UserID:            upload.UserID,
		ImageData:         upload.ImageData,
		ImagePath:         upload.ImagePath,
		ImageOriginalName: upload.ImageOriginalName,
		ImageSize:         upload.ImageSize,
		ImageMimeType:     upload.ImageMimeType,
		Prediction:        upload.Prediction,
		ProcessingTime:    upload.ProcessingTime,
		Status:            upload.Status,
		CreatedAt:         upload.CreatedAt,
		UpdatedAt:         upload.UpdatedAt,
	}
	if upload.Metadata != (models.ImageMetadata{}) {
		meta := upload.Metadata
		resp.Metadata = &meta
	}
	return resp
}

func (h HandlerSet) CreateUpload(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req createUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Image data, name, and prediction are required")
		return
	}
	if req.Prediction == nil {
		fail(c, http.StatusBadRequest, "Image data, name, and prediction are required")
		return
	}
	if req.Prediction.Confidence == nil || req.Prediction.CellType == "" || req.Prediction.ModelUsed == "" {
		fail(c, http.StatusBadRequest, "Prediction must include cellType, confidence, and modelUsed")
		return
	}

	input := service.CreateUploadInput{
		ImageData:         req.ImageData,
		ImagePath:         req.ImagePath,
		ImageOriginalName: req.ImageOriginalName,
		ImageSize:         req.ImageSize,
		ImageMimeType:     req.ImageMimeType,
		Prediction: models.Prediction{
			CellType:   req.Prediction.CellType,
			Confidence: *req.Prediction.Confidence,
			ModelUsed:  req.Prediction.ModelUsed,
		},
		ProcessingTime: req.ProcessingTime,
	}
	if req.Metadata != nil {
		input.Metadata = *req.Metadata
	}

	upload, err := h.uploads.Create(c.Request.Context(), user.ID, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUploadFieldsMissing):
			fail(c, http.StatusBadRequest, "Image data, name, and prediction are required")
		case errors.Is(err, service.ErrPredictionIncomplete):
			fail(c, http.StatusBadRequest, "Prediction must include cellType, confidence, and modelUsed")
		case errors.Is(err, service.ErrBadImageData):
			fail(c, http.StatusBadRequest, "Invalid image data format")
		default:
			h.log.Error().Err(err).Str("user_id", user.ID).Msg("create upload failed")
			failWithError(c, http.StatusInternalServerError, "Internal server error", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Upload record created successfully",
		"data": gin.H{
			"id":                upload.ID,
			"userId":            upload.UserID,
			"imageOriginalName": upload.ImageOriginalName,
			"prediction":        upload.Prediction,
			"createdAt":         upload.CreatedAt,
		},
	})
}

// listParams parses the shared pagination query contract.
func listParams(c *gin.Context, defaultLimit int) service.ListParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))

	return service.ListParams{
		Page:         page,
		Limit:        limit,
		SortBy:       c.DefaultQuery("sortBy", "createdAt"),
		Descending:   c.DefaultQuery("order", "desc") == "desc",
		IncludeImage: c.Query("includeImage") == "true",
	}
}

func (h HandlerSet) ListUploads(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	uploads, pagination, err := h.uploads.List(c.Request.Context(), user.ID, listParams(c, 10))
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("list uploads failed")
		failWithError(c, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	items := make([]uploadResponse, 0, len(uploads))
	for _, upload := range uploads {
		items = append(items, toUploadResponse(upload))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       items,
		"pagination": pagination,
	})
}

func (h HandlerSet) UploadStats(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	stats, err := h.uploads.Stats(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("upload stats failed")
		failWithError(c, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

func (h HandlerSet) GetUpload(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	upload, err := h.uploads.Get(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUploadNotFound) {
			fail(c, http.StatusNotFound, "Upload not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("get upload failed")
		failWithError(c, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toUploadResponse(upload),
	})
}

func (h HandlerSet) GetUploadImage(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	img, err := h.uploads.GetImage(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrUploadNotFound) {
			fail(c, http.StatusNotFound, "Upload not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("get upload image failed")
		failWithError(c, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"imageData":         img.ImageData,
			"imageMimeType":     img.ImageMimeType,
			"imageOriginalName": img.ImageOriginalName,
		},
	})
}

func (h HandlerSet) DeleteUpload(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	if err := h.uploads.Delete(c.Request.Context(), c.Param("id"), user.ID); err != nil {
		if errors.Is(err, repository.ErrUploadNotFound) {
			fail(c, http.StatusNotFound, "Upload not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", user.ID).Msg("delete upload failed")
		failWithError(c, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Upload deleted successfully",
	})
}
