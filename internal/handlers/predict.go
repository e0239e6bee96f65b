package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cellscope/internal/inference"
	"cellscope/internal/middleware"
	"cellscope/internal/service"
)

type predictRequest struct {
	Image               string                 `json:"image"`
	Options             service.PredictOptions `json:"options"`
	ClassificationModel string                 `json:"classificationModel"`
	FileName            string                 `json:"fileName"`
	FileSize            *int64                 `json:"fileSize"`
	MimeType            *string                `json:"mimeType"`
	ShowLabels          *bool                  `json:"showLabels"`
}

func (h HandlerSet) Predict(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Image is required")
		return
	}

	showLabels := true
	if req.ShowLabels != nil {
		showLabels = *req.ShowLabels
	}

	result, recordID, err := h.predictions.Predict(c.Request.Context(), user.ID, service.PredictInput{
		Image:               req.Image,
		Options:             req.Options,
		ClassificationModel: req.ClassificationModel,
		FileName:            req.FileName,
		FileSize:            req.FileSize,
		MimeType:            req.MimeType,
		ShowLabels:          showLabels,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImageRequired):
			fail(c, http.StatusBadRequest, "Image is required")
		case errors.Is(err, service.ErrNoOptions):
			fail(c, http.StatusBadRequest, "At least one analysis option must be selected")
		case errors.Is(err, service.ErrBadImageData):
			fail(c, http.StatusBadRequest, "Invalid image data format")
		case errors.Is(err, inference.ErrUnavailable):
			failWithError(c, http.StatusServiceUnavailable,
				"Deep Learning service is unavailable. Please ensure the DL server is running.", err)
		default:
			h.log.Error().Err(err).Str("user_id", user.ID).Msg("prediction failed")
			failWithError(c, http.StatusInternalServerError, "Failed to process prediction", err)
		}
		return
	}

	var recordField any
	if recordID != "" {
		recordField = recordID
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Prediction completed successfully",
		"data":     result,
		"recordId": recordField,
	})
}

func (h HandlerSet) AvailableModels(c *gin.Context) {
	overview, fallback := h.predictions.AvailableModels(c.Request.Context())

	resp := gin.H{
		"success": true,
		"data":    overview,
	}
	if fallback {
		resp["warning"] = "DL service is unavailable. Models are not loaded."
	}

	c.JSON(http.StatusOK, resp)
}
