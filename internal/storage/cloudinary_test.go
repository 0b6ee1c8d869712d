package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const testPNG = "data:image/png;base64,iVBORw0KGgo="

func newTestStore(t *testing.T, handler http.HandlerFunc) (*CloudinaryStore, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := NewCloudinaryStore(srv.Client(), srv.URL, "demo", "unsigned_uploads", "gallery", "https://res.cloudinary.com/demo", zap.NewNop())
	return store, srv
}

func TestCloudinaryUpload(t *testing.T) {
	var gotPath string
	var gotFields map[string]string

	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		gotFields = map[string]string{
			"upload_preset": r.FormValue("upload_preset"),
			"folder":        r.FormValue("folder"),
			"public_id":     r.FormValue("public_id"),
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"secure_url": "https://res.cloudinary.com/demo/image/upload/v1712/gallery/sunset_x1.png",
			"public_id": "gallery/sunset_x1",
			"format": "png",
			"bytes": 8,
			"width": 1,
			"height": 1,
			"created_at": "2026-08-30T10:00:00Z"
		}`))
	})

	progressCalled := false
	res, err := store.Upload(context.Background(), UploadRequest{
		Source:   testPNG,
		FileName: "sunset.png",
		Progress: func(float64) { progressCalled = true },
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if gotPath != "/v1_1/demo/image/upload" {
		t.Fatalf("endpoint path = %q", gotPath)
	}
	if gotFields["upload_preset"] != "unsigned_uploads" || gotFields["folder"] != "gallery" {
		t.Fatalf("unexpected form fields: %v", gotFields)
	}
	if !strings.HasPrefix(gotFields["public_id"], "sunset_") {
		t.Fatalf("public_id = %q, want sunset_<id>", gotFields["public_id"])
	}
	if res.SecureURL == "" || res.AssetID != "gallery/sunset_x1" || res.Format != "png" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Width != 1 || res.Height != 1 || res.Bytes != 8 {
		t.Fatalf("unexpected metadata: %+v", res)
	}
	if progressCalled {
		t.Fatal("cloudinary path must never invoke the progress callback")
	}
}

func TestCloudinaryUploadNonSuccess(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Upload preset not found"}}`))
	})

	_, err := store.Upload(context.Background(), UploadRequest{Source: testPNG, FileName: "a.png"})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if KindOf(err) != KindResponse {
		t.Fatalf("kind = %v, want response", KindOf(err))
	}
	var uErr *Error
	if !errors.As(err, &uErr) || uErr.Status != http.StatusBadRequest {
		t.Fatalf("status not captured: %+v", err)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Fatalf("message must include the HTTP status: %q", err.Error())
	}
}

func TestCloudinaryUploadParseFailure(t *testing.T) {
	store, _ := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	})

	_, err := store.Upload(context.Background(), UploadRequest{Source: testPNG, FileName: "a.png"})
	if err == nil {
		t.Fatal("expected error for non-JSON response")
	}
	if KindOf(err) != KindParse {
		t.Fatalf("kind = %v, want parse", KindOf(err))
	}
}

func TestCloudinaryUploadNetworkFailure(t *testing.T) {
	store, srv := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := store.Upload(context.Background(), UploadRequest{Source: testPNG, FileName: "a.png"})
	if err == nil {
		t.Fatal("expected error for unreachable backend")
	}
	if KindOf(err) != KindNetwork {
		t.Fatalf("kind = %v, want network", KindOf(err))
	}
}

func TestNewPublicIDUnique(t *testing.T) {
	a := newPublicID("photo.jpg")
	b := newPublicID("photo.jpg")
	if a == b {
		t.Fatalf("two public IDs for the same file collided: %q", a)
	}
	if !strings.HasPrefix(a, "photo_") {
		t.Fatalf("public id %q missing base name prefix", a)
	}
	if newPublicID("") == "" {
		t.Fatal("empty file name must still produce an id")
	}

	if id := newPublicID("my holiday pic.png"); strings.Contains(id, " ") {
		t.Fatalf("public id must not contain spaces: %q", id)
	}
}
