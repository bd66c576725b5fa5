package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"pluto_chat_service/pkg/database"

	"github.com/google/uuid"
)

// ImageHost uploads binary image data to an external host and returns a public
// URL. Failures surface to the caller and are not retried here.
type ImageHost interface {
	Upload(ctx context.Context, fileName string, data []byte) (string, error)
}

// ---- freeimage.host (anonymous upload API) ----

type freeImageHost struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewFreeImageHost create an ImageHost over the freeimage.host upload API
func NewFreeImageHost(endpoint, apiKey string) ImageHost {
	return &freeImageHost{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type freeImageResponse struct {
	Image struct {
		URL string `json:"url"`
	} `json:"image"`
}

// Upload post the file as multipart form data, extract the hosted URL
func (h *freeImageHost) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("source", fileName)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.WriteField("action", "upload"); err != nil {
		return "", err
	}
	if err := writer.WriteField("key", h.apiKey); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("image host returned %d: %s", resp.StatusCode, raw)
	}

	var parsed freeImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("invalid image host response: %w", err)
	}
	if parsed.Image.URL == "" {
		return "", fmt.Errorf("no image URL in image host response")
	}

	return parsed.Image.URL, nil
}

// ---- minio-backed host ----

type minioImageHost struct {
	mc *database.MinIOClient
}

// NewMinIOImageHost create an ImageHost over a self-hosted minio bucket
func NewMinIOImageHost(mc *database.MinIOClient) ImageHost {
	return &minioImageHost{mc: mc}
}

// Upload put the object under a unique name so uploads never collide
func (h *minioImageHost) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	objectName := uuid.New().String() + "-" + fileName
	return h.mc.UploadBytes(ctx, objectName, data, http.DetectContentType(data))
}
