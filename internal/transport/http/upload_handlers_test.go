package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
)

func multipartUpload(t *testing.T, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := io.Copy(part, strings.NewReader(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadAndFetchRoundTrip(t *testing.T) {
	engine, _, _ := createTestRouter(t)

	body, contentType := multipartUpload(t, "shot.png", "image/png", "fake-png-bytes")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp UploadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.FileName != "shot.png" || resp.FileType != "image/png" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// The returned URL path serves the bytes back.
	idx := strings.Index(resp.URL, "/files/")
	if idx < 0 {
		t.Fatalf("url %q missing /files/ path", resp.URL)
	}
	fetch := httptest.NewRecorder()
	engine.ServeHTTP(fetch, httptest.NewRequest(http.MethodGet, resp.URL[idx:], nil))
	if fetch.Code != http.StatusOK {
		t.Fatalf("fetch status = %d", fetch.Code)
	}
	if fetch.Body.String() != "fake-png-bytes" {
		t.Fatalf("fetched body = %q", fetch.Body.String())
	}
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	engine, _, _ := createTestRouter(t)

	body, contentType := multipartUpload(t, "tool.exe", "application/x-msdownload", "MZ")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnsupportedMediaType)
	}
}

func TestUploadMissingFile(t *testing.T) {
	engine, _, _ := createTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestServeFileUnknownKey(t *testing.T) {
	engine, _, _ := createTestRouter(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/never-stored.png", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
