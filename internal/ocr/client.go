// ABOUTME: Google Cloud Vision client for document text detection
// ABOUTME: Sends base64 images with Chinese language hints under a hard timeout

package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNoText is returned when the image yields no text annotation.
var ErrNoText = errors.New("no text detected in image")

// defaultBaseURL is the production Vision endpoint. Overridden in tests.
const defaultBaseURL = "https://vision.googleapis.com"

// Client calls the Vision images:annotate REST endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Vision client. The timeout bounds the whole request; a
// timeout surfaces as an upstream failure rather than hanging the caller.
func New(apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "ocr"),
	}
}

// Request/response shapes for the annotate call. Only the fields we use.

type annotateRequest struct {
	Requests []annotateRequestEntry `json:"requests"`
}

type annotateRequestEntry struct {
	Image        imageContent `json:"image"`
	Features     []feature    `json:"features"`
	ImageContext imageContext `json:"imageContext"`
}

type imageContent struct {
	Content string `json:"content"`
}

type feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type imageContext struct {
	LanguageHints []string `json:"languageHints"`
}

type annotateResponse struct {
	Responses []annotateResponseEntry `json:"responses"`
	Error     *apiError               `json:"error"`
}

type annotateResponseEntry struct {
	FullTextAnnotation *textAnnotation `json:"fullTextAnnotation"`
	Error              *apiError       `json:"error"`
}

type textAnnotation struct {
	Text string `json:"text"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// DetectText forwards the base64 image to document text detection and
// returns the extracted text, whitespace-trimmed.
func (c *Client) DetectText(ctx context.Context, imageBase64 string) (string, error) {
	payload := annotateRequest{
		Requests: []annotateRequestEntry{{
			Image:        imageContent{Content: imageBase64},
			Features:     []feature{{Type: "DOCUMENT_TEXT_DETECTION", MaxResults: 1}},
			ImageContext: imageContext{LanguageHints: []string{"zh-Hans", "zh-Hant"}},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/images:annotate?key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling vision api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("vision api returned error status", "status", resp.StatusCode)
		return "", fmt.Errorf("vision api status %d", resp.StatusCode)
	}

	var result annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("vision api: %s", result.Error.Message)
	}
	if len(result.Responses) == 0 {
		return "", errors.New("vision api: empty response")
	}
	entry := result.Responses[0]
	if entry.Error != nil {
		return "", fmt.Errorf("vision api: %s", entry.Error.Message)
	}
	if entry.FullTextAnnotation == nil || entry.FullTextAnnotation.Text == "" {
		return "", ErrNoText
	}

	return strings.TrimSpace(entry.FullTextAnnotation.Text), nil
}
