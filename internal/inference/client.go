package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"cellscope/internal/config"
)

// Client is the HTTP implementation of Service. Calls are synchronous and
// single-attempt; a transient failure surfaces immediately to the caller.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(cfg config.InferenceConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
	Models  json.RawMessage `json:"models"`
	Detail  string          `json:"detail"`
}

func (c *Client) Classify(ctx context.Context, image []byte, modelID string) (ClassificationResult, error) {
	fields := map[string]string{"model_id": modelID}

	var result ClassificationResult
	if err := c.predict(ctx, "/predict/classification", image, fields, &result); err != nil {
		return ClassificationResult{}, err
	}
	return result, nil
}

func (c *Client) Detect(ctx context.Context, image []byte, conf float64, showLabels bool) (DetectionResult, error) {
	fields := map[string]string{
		"conf":        strconv.FormatFloat(conf, 'f', -1, 64),
		"show_labels": strconv.FormatBool(showLabels),
	}

	var result DetectionResult
	if err := c.predict(ctx, "/predict/detection", image, fields, &result); err != nil {
		return DetectionResult{}, err
	}
	return result, nil
}

func (c *Client) Count(ctx context.Context, image []byte, conf float64, showLabels bool) (CountResult, error) {
	fields := map[string]string{
		"conf":        strconv.FormatFloat(conf, 'f', -1, 64),
		"show_labels": strconv.FormatBool(showLabels),
	}

	var result CountResult
	if err := c.predict(ctx, "/predict/count", image, fields, &result); err != nil {
		return CountResult{}, err
	}
	return result, nil
}

func (c *Client) Models(ctx context.Context) (ModelList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return ModelList{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	env, err := c.do(req)
	if err != nil {
		return ModelList{}, err
	}

	var models ModelList
	if err := json.Unmarshal(env.Models, &models); err != nil {
		return ModelList{}, fmt.Errorf("%w: decode models: %w", ErrUnavailable, err)
	}
	return models, nil
}

func (c *Client) predict(ctx context.Context, path string, image []byte, fields map[string]string, out any) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", "image.jpg")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if _, err := part.Write(image); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	env, err := c.do(req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%w: decode result: %w", ErrUnavailable, err)
	}
	return nil
}

func (c *Client) do(req *http.Request) (envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("url", req.URL.String()).Msg("inference request failed")
		return envelope{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return envelope{}, fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: decode response: %w", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK || !env.Success {
		detail := env.Detail
		if detail == "" {
			detail = env.Message
		}
		if detail == "" {
			detail = resp.Status
		}
		return envelope{}, fmt.Errorf("%w: %s", ErrUnavailable, detail)
	}
	return env, nil
}
