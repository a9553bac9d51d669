// ABOUTME: Tests for the Vision OCR client against a fake upstream
// ABOUTME: Covers success, empty annotations, API errors, and request shape

package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeVision serves a canned annotate response and records the request.
func fakeVision(t *testing.T, response any, gotBody *annotateRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images:annotate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing api key in query: %q", r.URL.RawQuery)
		}
		if gotBody != nil {
			if err := json.NewDecoder(r.Body).Decode(gotBody); err != nil {
				t.Errorf("decoding request body: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	c := New("test-key", 5*time.Second, testLogger())
	c.baseURL = srv.URL
	return c
}

func TestDetectText_Success(t *testing.T) {
	var got annotateRequest
	srv := fakeVision(t, map[string]any{
		"responses": []map[string]any{
			{"fullTextAnnotation": map[string]string{"text": "  你好世界\n"}},
		},
	}, &got)

	text, err := newTestClient(srv).DetectText(context.Background(), "aGVsbG8=")
	if err != nil {
		t.Fatalf("DetectText failed: %v", err)
	}
	if text != "你好世界" {
		t.Errorf("text = %q, want trimmed annotation", text)
	}

	// The upstream request carries the image and Chinese language hints
	if len(got.Requests) != 1 {
		t.Fatalf("got %d requests, want 1", len(got.Requests))
	}
	req := got.Requests[0]
	if req.Image.Content != "aGVsbG8=" {
		t.Errorf("image content = %q", req.Image.Content)
	}
	if len(req.Features) != 1 || req.Features[0].Type != "DOCUMENT_TEXT_DETECTION" {
		t.Errorf("features = %+v", req.Features)
	}
	hints := req.ImageContext.LanguageHints
	if len(hints) != 2 || hints[0] != "zh-Hans" || hints[1] != "zh-Hant" {
		t.Errorf("language hints = %v", hints)
	}
}

func TestDetectText_NoText(t *testing.T) {
	srv := fakeVision(t, map[string]any{
		"responses": []map[string]any{{}},
	}, nil)

	_, err := newTestClient(srv).DetectText(context.Background(), "aGVsbG8=")
	if !errors.Is(err, ErrNoText) {
		t.Errorf("expected ErrNoText, got %v", err)
	}
}

func TestDetectText_TopLevelError(t *testing.T) {
	srv := fakeVision(t, map[string]any{
		"error": map[string]any{"code": 400, "message": "API key not valid"},
	}, nil)

	_, err := newTestClient(srv).DetectText(context.Background(), "aGVsbG8=")
	if err == nil || errors.Is(err, ErrNoText) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestDetectText_PerResponseError(t *testing.T) {
	srv := fakeVision(t, map[string]any{
		"responses": []map[string]any{
			{"error": map[string]any{"code": 3, "message": "Bad image data"}},
		},
	}, nil)

	_, err := newTestClient(srv).DetectText(context.Background(), "aGVsbG8=")
	if err == nil || errors.Is(err, ErrNoText) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestDetectText_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := newTestClient(srv).DetectText(context.Background(), "aGVsbG8=")
	if err == nil {
		t.Fatal("expected error for 500 upstream status")
	}
}

func TestDetectText_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can observe the client disconnect;
		// otherwise r.Context() is never canceled and srv.Close hangs.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv).DetectText(ctx, "aGVsbG8=")
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}
