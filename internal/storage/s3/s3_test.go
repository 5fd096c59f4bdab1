package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	appconfig "github.com/tenderhub/tender-insight-hub/internal/config"
	"github.com/tenderhub/tender-insight-hub/internal/storage"
)

// ---------------------------------------------------------------------------
// New(): constructor validation (no AWS connection required)
// ---------------------------------------------------------------------------

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  appconfig.S3StorageConfig
	}{
		{"missing bucket", appconfig.S3StorageConfig{Region: "af-south-1"}},
		{"missing region", appconfig.S3StorageConfig{Bucket: "tender-docs"}},
		{"static without keys", appconfig.S3StorageConfig{Bucket: "tender-docs", Region: "af-south-1", AuthMethod: "static"}},
		{"assume_role without role", appconfig.S3StorageConfig{Bucket: "tender-docs", Region: "af-south-1", AuthMethod: "assume_role"}},
		{"unsupported method", appconfig.S3StorageConfig{Bucket: "tender-docs", Region: "af-south-1", AuthMethod: "oidc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(&tt.cfg); err == nil {
				t.Error("New() = nil error, want error")
			}
		})
	}
}

func TestNew_StaticAuth_WithEndpoint(t *testing.T) {
	s, err := New(&appconfig.S3StorageConfig{
		Bucket:          "tender-docs",
		Region:          "af-south-1",
		AuthMethod:      "static",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Endpoint:        "http://localhost:9000",
	})
	if err != nil {
		t.Fatalf("New() with custom endpoint error: %v", err)
	}
	if s == nil {
		t.Error("New() returned nil storage")
	}
}

// ---------------------------------------------------------------------------
// Mock S3-compatible HTTP server for operations tests
// ---------------------------------------------------------------------------

type s3MockStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	meta    map[string]map[string]string
}

// newS3TestStorage creates an S3Storage backed by a minimal path-style S3 server.
func newS3TestStorage(t *testing.T) (*S3Storage, *s3MockStore) {
	t.Helper()

	ms := &s3MockStore{
		objects: map[string][]byte{},
		meta:    map[string]map[string]string{},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		idx := strings.IndexByte(path, '/')
		if idx < 0 {
			w.WriteHeader(http.StatusOK)
			return
		}
		key := path[idx+1:]

		switch r.Method {
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			meta := map[string]string{}
			for hk, hv := range r.Header {
				lk := strings.ToLower(hk)
				if strings.HasPrefix(lk, "x-amz-meta-") && len(hv) > 0 {
					meta[strings.TrimPrefix(lk, "x-amz-meta-")] = hv[0]
				}
			}
			ms.mu.Lock()
			ms.objects[key] = data
			ms.meta[key] = meta
			ms.mu.Unlock()
			w.Header().Set("ETag", `"test-etag"`)
			w.WriteHeader(http.StatusOK)

		case http.MethodGet:
			ms.mu.Lock()
			data, ok := ms.objects[key]
			ms.mu.Unlock()
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprintf(w, `<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
				return
			}
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
			w.WriteHeader(http.StatusOK)
			w.Write(data)

		case http.MethodHead:
			ms.mu.Lock()
			data, ok := ms.objects[key]
			ms.mu.Unlock()
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
			w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
			w.WriteHeader(http.StatusOK)

		case http.MethodDelete:
			ms.mu.Lock()
			delete(ms.objects, key)
			delete(ms.meta, key)
			ms.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)

	s, err := New(&appconfig.S3StorageConfig{
		Bucket:          "tender-docs",
		Region:          "us-east-1",
		AuthMethod:      "static",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
		Endpoint:        srv.URL,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s, ms
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

func TestUploadDownload(t *testing.T) {
	s, ms := newS3TestStorage(t)
	ctx := context.Background()
	content := []byte("pricing schedule")

	res, err := s.Upload(ctx, "tenders/t1/d1/pricing.xlsx", bytes.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if res.Size != int64(len(content)) || len(res.Checksum) != 64 {
		t.Errorf("Upload() = %+v", res)
	}
	if got := ms.meta["tenders/t1/d1/pricing.xlsx"]["sha256"]; got != res.Checksum {
		t.Errorf("stored sha256 metadata = %q, want %q", got, res.Checksum)
	}

	rc, err := s.Download(ctx, "tenders/t1/d1/pricing.xlsx")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, content) {
		t.Errorf("Download() = %q, want %q", got, content)
	}
}

func TestDownload_Missing(t *testing.T) {
	s, _ := newS3TestStorage(t)
	_, err := s.Download(context.Background(), "missing.pdf")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Download() error = %v, want ErrNotFound", err)
	}
}

func TestExistsAndDelete(t *testing.T) {
	s, _ := newS3TestStorage(t)
	ctx := context.Background()

	if exists, err := s.Exists(ctx, "a.pdf"); err != nil || exists {
		t.Fatalf("Exists(before upload) = %v, %v", exists, err)
	}
	if _, err := s.Upload(ctx, "a.pdf", strings.NewReader("a"), 1); err != nil {
		t.Fatal(err)
	}
	if exists, err := s.Exists(ctx, "a.pdf"); err != nil || !exists {
		t.Fatalf("Exists(after upload) = %v, %v", exists, err)
	}
	if err := s.Delete(ctx, "a.pdf"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if exists, _ := s.Exists(ctx, "a.pdf"); exists {
		t.Error("object still exists after Delete()")
	}
}

func TestGetURL_Presigned(t *testing.T) {
	s, _ := newS3TestStorage(t)
	ctx := context.Background()
	if _, err := s.Upload(ctx, "tenders/t1/spec.pdf", strings.NewReader("spec"), 4); err != nil {
		t.Fatal(err)
	}

	url, err := s.GetURL(ctx, "tenders/t1/spec.pdf", 15*time.Minute)
	if err != nil {
		t.Fatalf("GetURL() error: %v", err)
	}
	if !strings.Contains(url, "tender-docs/tenders/t1/spec.pdf") || !strings.Contains(url, "X-Amz-Signature") {
		t.Errorf("GetURL() = %q, want a presigned path-style URL", url)
	}
}

func TestGetURL_Missing(t *testing.T) {
	s, _ := newS3TestStorage(t)
	if _, err := s.GetURL(context.Background(), "missing.pdf", time.Minute); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetURL() error = %v, want ErrNotFound", err)
	}
}
