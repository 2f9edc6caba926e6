package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const imageEmbedTimeout = 30 * time.Second

// ImageEmbedder talks to a CLIP-style embedding model served behind an
// OpenAI-compatible /v1/embeddings endpoint that accepts base64 image input.
// It shares a vector space with the catalog-image collection only; image
// vectors are never compared against text-collection vectors.
type ImageEmbedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewImageEmbedder creates an ImageEmbedder targeting the given base URL.
func NewImageEmbedder(baseURL, model string) *ImageEmbedder {
	return &ImageEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{},
	}
}

// EncodeImageFile reads an image file and returns its base64 encoding, the
// representation the embedding service expects.
func EncodeImageFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading image %s: %w", path, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// EmbedImage returns the embedding vector for a base64-encoded image.
func (e *ImageEmbedder) EmbedImage(ctx context.Context, imageB64 string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, imageEmbedTimeout)
	defer cancel()

	body, err := json.Marshal(embedRequest{Model: e.model, Input: []string{imageB64}})
	if err != nil {
		return nil, fmt.Errorf("marshalling embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting image embedding: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image embedding: unexpected status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("image embedding: empty response")
	}
	return out.Data[0].Embedding, nil
}
