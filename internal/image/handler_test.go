package image

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Ekansh2006/image-upload-portal/internal/storage"
)

const fakeDeliveryBase = "https://res.cloudinary.com/demo"

// fakeStore implements storage.ObjectStore for handler tests.
type fakeStore struct {
	lastReq  storage.UploadRequest
	uploadFn func(storage.UploadRequest) (*storage.UploadResult, error)
}

func (f *fakeStore) Upload(_ context.Context, req storage.UploadRequest) (*storage.UploadResult, error) {
	f.lastReq = req
	if f.uploadFn != nil {
		return f.uploadFn(req)
	}
	return &storage.UploadResult{
		SecureURL: fakeDeliveryBase + "/image/upload/v1/" + req.FileName,
		AssetID:   req.FileName,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeStore) URLFor(assetID string, opts storage.TransformOptions) string {
	return storage.BuildDeliveryURL(fakeDeliveryBase, assetID, opts)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestHandler(t *testing.T, store storage.ObjectStore) (*chi.Mux, *Service) {
	t.Helper()
	svc := NewService(context.Background(), NewNopRepository(), zap.NewNop())
	h := NewHandler(svc, store, 10<<20, zap.NewNop())

	r := chi.NewRouter()
	r.Route("/api/v1/images", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Upload)
		r.Post("/source", h.UploadBySource)
		r.Get("/{id}/url", h.DeliveryURL)
		r.Delete("/{id}", h.Delete)
	})
	return r, svc
}

func multipartBody(t *testing.T, field, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestUploadMultipart(t *testing.T) {
	store := &fakeStore{}
	router, svc := newTestHandler(t, store)

	body, contentType := multipartBody(t, "file", "sunset.png", []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if !bytes.Equal(store.lastReq.Data, []byte("png-bytes")) {
		t.Fatalf("multipart body must be passed through as raw bytes, got %q", store.lastReq.Data)
	}
	if store.lastReq.ContentType == "" {
		t.Fatal("content type not forwarded from the multipart header")
	}
	if store.lastReq.FileName != "sunset.png" {
		t.Fatalf("file name = %q", store.lastReq.FileName)
	}

	list := svc.List()
	if len(list) != 1 || list[0].FileName != "sunset.png" {
		t.Fatalf("record not added: %v", list)
	}
	if list[0].AssetID != "sunset.png" {
		t.Fatalf("backend asset ID not stored on the record: %+v", list[0])
	}
}

func TestUploadMissingFileField(t *testing.T) {
	router, _ := newTestHandler(t, &fakeStore{})

	body, contentType := multipartBody(t, "wrong", "a.png", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestUploadBackendFailure(t *testing.T) {
	store := &fakeStore{
		uploadFn: func(storage.UploadRequest) (*storage.UploadResult, error) {
			return nil, &storage.Error{Kind: storage.KindResponse, Status: 400, Msg: "upload failed: status 400"}
		},
	}
	router, svc := newTestHandler(t, store)

	body, contentType := multipartBody(t, "file", "a.png", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
	if len(svc.List()) != 0 {
		t.Fatal("failed upload must not add a gallery record")
	}
}

func TestUploadBySource(t *testing.T) {
	store := &fakeStore{}
	router, _ := newTestHandler(t, store)

	payload := `{"source":"data:image/png;base64,aGk=","fileName":"hi.png"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/source", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if store.lastReq.Source != "data:image/png;base64,aGk=" {
		t.Fatalf("source = %q", store.lastReq.Source)
	}
}

func TestUploadBySourceValidation(t *testing.T) {
	router, _ := newTestHandler(t, &fakeStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/source", strings.NewReader(`{"fileName":"x.png"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestListGallery(t *testing.T) {
	router, svc := newTestHandler(t, &fakeStore{})
	svc.Add(context.Background(), "https://cdn/a.jpg", "a", "a.jpg", time.Now())
	svc.Add(context.Background(), "https://cdn/b.jpg", "b", "b.jpg", time.Now())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var records []Record
	if err := json.Unmarshal(env.Data, &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 2 || records[0].FileName != "b.jpg" {
		t.Fatalf("expected most-recent first, got %v", records)
	}
}

func TestDeliveryURL(t *testing.T) {
	router, svc := newTestHandler(t, &fakeStore{})
	rec := svc.Add(context.Background(), fakeDeliveryBase+"/image/upload/v1/sunset_x.jpg", "sunset_x", "sunset.jpg", time.Now())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/"+rec.ID+"/url?width=400&height=300&format=webp", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var data struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode url data: %v", err)
	}
	want := fakeDeliveryBase + "/image/upload/w_400,h_300/c_fill,q_auto,f_webp/sunset_x"
	if data.URL != want {
		t.Fatalf("url = %q, want %q", data.URL, want)
	}
}

// bucketLikeStore mimics the bucket backend: asset IDs are full object keys
// ("images/<id>_<name>.<ext>") and URLs are publicBase + "/" + key.
type bucketLikeStore struct{ publicBase string }

func (b *bucketLikeStore) Upload(_ context.Context, req storage.UploadRequest) (*storage.UploadResult, error) {
	key := "images/d6g3kr0p4tq1_" + req.FileName
	return &storage.UploadResult{
		SecureURL: b.publicBase + "/" + key,
		AssetID:   key,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (b *bucketLikeStore) URLFor(assetID string, _ storage.TransformOptions) string {
	return b.publicBase + "/" + assetID
}

// Uploading to the bucket backend and asking for a delivery URL must round
// trip to the stored object: the "images/" key prefix and the file extension
// survive because the record carries the object key verbatim.
func TestDeliveryURLBucketRoundTrip(t *testing.T) {
	store := &bucketLikeStore{publicBase: "http://localhost:9000/images"}
	router, svc := newTestHandler(t, store)

	payload := `{"source":"data:image/jpeg;base64,aGk=","fileName":"photo.jpg"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/images/source", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rec := svc.List()[0]
	req = httptest.NewRequest(http.MethodGet, "/api/v1/images/"+rec.ID+"/url?width=400", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var data struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode url data: %v", err)
	}
	if data.URL != rec.URL {
		t.Fatalf("delivery url = %q, want the stored object url %q", data.URL, rec.URL)
	}
}

// Records persisted before asset IDs were stored fall back to extracting the
// ID from the URL.
func TestDeliveryURLLegacyRecord(t *testing.T) {
	router, svc := newTestHandler(t, &fakeStore{})
	rec := svc.Add(context.Background(), fakeDeliveryBase+"/image/upload/v1/old_x.jpg", "", "old.jpg", time.Now())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/"+rec.ID+"/url?width=100", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	want := `"url":"` + fakeDeliveryBase + `/image/upload/w_100/c_fill,q_auto,f_auto/old_x"`
	if !strings.Contains(rr.Body.String(), want) {
		t.Fatalf("body %q missing %q", rr.Body.String(), want)
	}
}

func TestDeliveryURLUnknownID(t *testing.T) {
	router, _ := newTestHandler(t, &fakeStore{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/images/ghost/url", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestDeleteImage(t *testing.T) {
	router, svc := newTestHandler(t, &fakeStore{})
	rec := svc.Add(context.Background(), "https://cdn/a.jpg", "a", "a.jpg", time.Now())

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/images/"+rec.ID, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if len(svc.List()) != 0 {
		t.Fatal("record not removed")
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/images/"+rec.ID, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rr.Code)
	}
}
