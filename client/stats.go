package client

import (
	"context"
	"time"
)

// UploadStats mirrors the dashboard aggregate payload.
type UploadStats struct {
	TotalUploads    int64  `json:"totalUploads"`
	UploadsToday    int64  `json:"uploadsToday"`
	MostUsedModel   string `json:"mostUsedModel"`
	UniqueCellTypes int    `json:"uniqueCellTypes"`
	Distribution    []struct {
		Name  string `json:"name"`
		Value int64  `json:"value"`
	} `json:"distribution"`
}

// Stats returns dashboard aggregates, served from a 5-minute in-memory
// cache. Mutating calls (predict, upload create/delete) invalidate it so
// the dashboard reflects them immediately.
func (c *Client) Stats(ctx context.Context) (UploadStats, error) {
	c.mu.Lock()
	if c.stats != nil && time.Since(c.statsAt) < statsCacheTTL {
		cached := *c.stats
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	var resp struct {
		Success bool        `json:"success"`
		Data    UploadStats `json:"data"`
	}
	if err := c.get(ctx, "/uploads/stats", &resp); err != nil {
		return UploadStats{}, err
	}

	c.mu.Lock()
	c.stats = &resp.Data
	c.statsAt = time.Now()
	c.mu.Unlock()

	return resp.Data, nil
}

// InvalidateCache drops the cached aggregates.
func (c *Client) InvalidateCache() {
	c.mu.Lock()
	c.stats = nil
	c.mu.Unlock()
}

type PredictOptions struct {
	Classification bool `json:"classification"`
	Detection      bool `json:"detection"`
	Count          bool `json:"count"`
}

type PredictRequest struct {
	Image               string         `json:"image"`
	Options             PredictOptions `json:"options"`
	ClassificationModel string         `json:"classificationModel,omitempty"`
	FileName            string         `json:"fileName,omitempty"`
	ShowLabels          *bool          `json:"showLabels,omitempty"`
}

type PredictResponse struct {
	Success  bool           `json:"success"`
	Result   map[string]any `json:"result"`
	RecordID *string        `json:"recordId"`
}

// Predict runs an analysis request and invalidates the stats cache on
// success, since a saved record changes the aggregates.
func (c *Client) Predict(ctx context.Context, req PredictRequest) (PredictResponse, error) {
	var resp PredictResponse
	if err := c.post(ctx, "/predict", req, &resp); err != nil {
		return PredictResponse{}, err
	}

	c.InvalidateCache()
	return resp, nil
}

// DeleteUpload removes an owned record and invalidates cached aggregates.
func (c *Client) DeleteUpload(ctx context.Context, id string) error {
	var resp struct {
		Success bool `json:"success"`
	}
	if err := c.delete(ctx, "/uploads/"+id, &resp); err != nil {
		return err
	}
	c.InvalidateCache()
	return nil
}
