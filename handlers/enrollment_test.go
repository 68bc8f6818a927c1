package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/camwatch/faceattend/config"
	"github.com/camwatch/faceattend/store"
)

type fakeInvalidator struct{ calls int }

func (f *fakeInvalidator) Invalidate() { f.calls++ }

type fakeQueuer struct{ calls int }

func (f *fakeQueuer) QueueRetrain() bool { f.calls++; return true }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	base := t.TempDir()
	return config.Config{
		EnrollmentDir:    filepath.Join(base, "database"),
		MetadataPath:     filepath.Join(base, "database", "metadata.json"),
		ThumbnailsPath:   filepath.Join(base, "thumbnails"),
		ThumbnailMaxSize: 64,
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 32, 32))); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func multipartEnrollment(t *testing.T, filename, name, age string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if fileData != nil {
		part, err := w.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if name != "" {
		_ = w.WriteField("name", name)
	}
	if age != "" {
		_ = w.WriteField("age", age)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func TestEnroll_CommitsImageAndMetadata(t *testing.T) {
	cfg := testConfig(t)
	metaStore := store.NewMetadataStore(cfg.MetadataPath)
	invalidator := &fakeInvalidator{}
	queuer := &fakeQueuer{}
	eh := &EnrollmentHandler{Cfg: cfg, Store: metaStore, Model: invalidator, Retrain: queuer}

	body, contentType := multipartEnrollment(t, "alice.png", "Alice", "30", pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/api/enrollments", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	eh.Enroll(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	imageID := resp["image_id"]
	if imageID != "alice.png" {
		t.Errorf("expected image_id 'alice.png', got '%s'", imageID)
	}

	if _, err := os.Stat(filepath.Join(cfg.EnrollmentDir, imageID)); err != nil {
		t.Errorf("expected enrollment image on disk: %v", err)
	}

	records := metaStore.Load()
	if records[imageID].Name != "Alice" || records[imageID].Age != "30" {
		t.Errorf("unexpected metadata entry: %+v", records[imageID])
	}

	if invalidator.calls != 1 {
		t.Errorf("expected model invalidated once, got %d", invalidator.calls)
	}
	if queuer.calls != 1 {
		t.Errorf("expected retrain queued once, got %d", queuer.calls)
	}
}

func TestEnroll_MissingNameRejected(t *testing.T) {
	cfg := testConfig(t)
	eh := &EnrollmentHandler{Cfg: cfg, Store: store.NewMetadataStore(cfg.MetadataPath)}

	body, contentType := multipartEnrollment(t, "alice.png", "", "30", pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/api/enrollments", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	eh.Enroll(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing name, got %d", rr.Code)
	}
}

func TestEnroll_NonImageRejected(t *testing.T) {
	cfg := testConfig(t)
	metaStore := store.NewMetadataStore(cfg.MetadataPath)
	eh := &EnrollmentHandler{Cfg: cfg, Store: metaStore}

	body, contentType := multipartEnrollment(t, "alice.png", "Alice", "30", []byte("not an image"))
	req := httptest.NewRequest(http.MethodPost, "/api/enrollments", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	eh.Enroll(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for undecodable upload, got %d", rr.Code)
	}
	if len(metaStore.Load()) != 0 {
		t.Error("expected no metadata committed for a rejected upload")
	}
}

func TestEnroll_DuplicateFilenameGetsFreshImageID(t *testing.T) {
	cfg := testConfig(t)
	metaStore := store.NewMetadataStore(cfg.MetadataPath)
	eh := &EnrollmentHandler{Cfg: cfg, Store: metaStore}

	for i := 0; i < 2; i++ {
		body, contentType := multipartEnrollment(t, "alice.png", "Alice", "30", pngBytes(t))
		req := httptest.NewRequest(http.MethodPost, "/api/enrollments", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		eh.Enroll(rr, req)
		if rr.Code != http.StatusCreated {
			t.Fatalf("enrollment %d failed with %d: %s", i, rr.Code, rr.Body.String())
		}
	}

	records := metaStore.Load()
	if len(records) != 2 {
		t.Errorf("expected two distinct image ids, got %d", len(records))
	}
}

func TestSanitizeImageID(t *testing.T) {
	cases := map[string]string{
		"alice.png":        "alice.png",
		"../../etc/passwd": "",
		".hidden.png":      "",
		"notes.txt":        "",
		"":                 "",
	}
	for input, want := range cases {
		if got := sanitizeImageID(input); got != want {
			t.Errorf("sanitizeImageID(%q) = %q, want %q", input, got, want)
		}
	}
}
