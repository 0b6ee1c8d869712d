package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"
)

// CloudinaryStore implements ObjectStore against Cloudinary's unsigned
// upload API. Validation (size, type) is enforced server-side by the upload
// preset; the client only branches on the source format.
type CloudinaryStore struct {
	httpClient   *http.Client
	apiBase      string
	cloudName    string
	uploadPreset string
	folder       string
	deliveryBase string
	log          *zap.Logger
}

// NewCloudinaryStore returns a store that uploads to
// <apiBase>/v1_1/<cloudName>/image/upload and builds delivery URLs on
// deliveryBase. Pass nil for httpClient to use http.DefaultClient.
func NewCloudinaryStore(httpClient *http.Client, apiBase, cloudName, uploadPreset, folder, deliveryBase string, log *zap.Logger) *CloudinaryStore {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CloudinaryStore{
		httpClient:   httpClient,
		apiBase:      strings.TrimRight(apiBase, "/"),
		cloudName:    cloudName,
		uploadPreset: uploadPreset,
		folder:       folder,
		deliveryBase: deliveryBase,
		log:          log,
	}
}

// cloudinaryResponse is the subset of the upload response the service uses.
type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Format    string `json:"format"`
	Bytes     int64  `json:"bytes"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CreatedAt string `json:"created_at"`
}

// Upload performs exactly one multipart POST and returns the hosted URL.
// Failures carry a Kind so callers can classify them without matching on
// message text. The progress callback is never invoked on this path.
func (s *CloudinaryStore) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	data, _, err := payload(ctx, s.httpClient, req)
	if err != nil {
		return nil, err
	}

	publicID := newPublicID(req.FileName)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", req.FileName)
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Msg: "create multipart file field", Err: err}
	}
	if _, err := part.Write(data); err != nil {
		return nil, &Error{Kind: KindUnknown, Msg: "write multipart payload", Err: err}
	}
	fields := map[string]string{
		"upload_preset": s.uploadPreset,
		"folder":        s.folder,
		"public_id":     publicID,
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, &Error{Kind: KindUnknown, Msg: "write multipart field " + k, Err: err}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, &Error{Kind: KindUnknown, Msg: "finalize multipart payload", Err: err}
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", s.apiBase, s.cloudName)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Msg: "build upload request", Err: err}
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Msg: "upload to cloudinary", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{
			Kind:   KindResponse,
			Status: resp.StatusCode,
			Msg:    fmt.Sprintf("cloudinary upload failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	var cr cloudinaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, &Error{Kind: KindParse, Msg: "decode cloudinary response", Err: err}
	}

	createdAt, err := time.Parse(time.RFC3339, cr.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
	}

	s.log.Info("image uploaded",
		zap.String("backend", "cloudinary"),
		zap.String("publicId", cr.PublicID),
		zap.Int64("bytes", cr.Bytes))

	return &UploadResult{
		SecureURL: cr.SecureURL,
		AssetID:   cr.PublicID,
		Format:    cr.Format,
		Bytes:     cr.Bytes,
		Width:     cr.Width,
		Height:    cr.Height,
		CreatedAt: createdAt,
	}, nil
}

// URLFor builds the transformation URL for a stored asset.
func (s *CloudinaryStore) URLFor(assetID string, opts TransformOptions) string {
	return BuildDeliveryURL(s.deliveryBase, assetID, opts)
}

// newPublicID derives a unique public ID from the display name's base.
// An xid is appended instead of a wall-clock timestamp so rapid concurrent
// uploads of the same file cannot collide.
func newPublicID(fileName string) string {
	base := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	base = strings.ReplaceAll(base, " ", "_")
	if base == "" || base == "." {
		base = "image"
	}
	return base + "_" + xid.New().String()
}
