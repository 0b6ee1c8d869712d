package image

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Ekansh2006/image-upload-portal/internal/response"
	"github.com/Ekansh2006/image-upload-portal/internal/storage"
)

// defaultMaxMemory caps the in-memory portion of parsed multipart forms.
const defaultMaxMemory = 32 << 20

// Handler holds HTTP handlers for gallery and upload endpoints.
type Handler struct {
	svc            *Service
	store          storage.ObjectStore
	maxUploadBytes int64
	log            *zap.Logger
}

// NewHandler creates a new image Handler.
func NewHandler(svc *Service, store storage.ObjectStore, maxUploadBytes int64, log *zap.Logger) *Handler {
	return &Handler{svc: svc, store: store, maxUploadBytes: maxUploadBytes, log: log}
}

type sourceUploadRequest struct {
	Source   string `json:"source"   example:"data:image/png;base64,iVBORw0..."`
	FileName string `json:"fileName" example:"sunset.png"`
}

type uploadData struct {
	Image  Record                `json:"image"`
	Upload *storage.UploadResult `json:"upload"`
}

type urlData struct {
	URL string `json:"url" example:"https://res.cloudinary.com/demo/image/upload/w_400,h_300/c_fill,q_auto,f_webp/abc123"`
}

// Upload godoc
//
//	@Summary		Upload an image
//	@Description	Accepts a multipart form with a "file" field, stores it in the configured backend, and adds it to the gallery.
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"image file"
//	@Success		201	{object}	response.Envelope{data=uploadData}
//	@Failure		400	{object}	response.Envelope
//	@Failure		413	{object}	response.Envelope
//	@Failure		502	{object}	response.Envelope
//	@Router			/images [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(w, http.StatusRequestEntityTooLarge, "uploaded file too large")
			return
		}
		response.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "missing 'file' field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.BadRequest(w, "unreadable file part")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	h.upload(w, r, storage.UploadRequest{
		Data:        data,
		ContentType: mimeType,
		FileName:    header.Filename,
	})
}

// UploadBySource godoc
//
//	@Summary		Upload an image by reference
//	@Description	Uploads from a source reference: a data URI, a remote http(s) URL, or a server-local path.
//	@Tags			images
//	@Accept			json
//	@Produce		json
//	@Param			request	body	sourceUploadRequest	true	"source reference"
//	@Success		201	{object}	response.Envelope{data=uploadData}
//	@Failure		400	{object}	response.Envelope
//	@Failure		502	{object}	response.Envelope
//	@Router			/images/source [post]
func (h *Handler) UploadBySource(w http.ResponseWriter, r *http.Request) {
	var req sourceUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if req.Source == "" {
		response.BadRequest(w, "source is required")
		return
	}
	if req.FileName == "" {
		req.FileName = "image"
	}
	h.upload(w, r, storage.UploadRequest{Source: req.Source, FileName: req.FileName})
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, req storage.UploadRequest) {
	req.Progress = h.progressSink(req.FileName)

	result, err := h.store.Upload(r.Context(), req)
	if err != nil {
		h.writeUploadError(w, err)
		return
	}

	rec := h.svc.Add(r.Context(), result.SecureURL, result.AssetID, req.FileName, result.CreatedAt)
	response.Created(w, uploadData{Image: rec, Upload: result})
}

// List godoc
//
//	@Summary		List the gallery
//	@Description	Returns all uploaded images, most-recent first.
//	@Tags			images
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=[]Record}
//	@Router			/images [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.svc.List())
}

// DeliveryURL godoc
//
//	@Summary		Build a transformation URL
//	@Description	Returns the delivery URL for a gallery image with optional width, height, quality, format, and crop transformations.
//	@Tags			images
//	@Produce		json
//	@Param			id		path	string	true	"image ID"
//	@Param			width	query	int		false	"target width"
//	@Param			height	query	int		false	"target height"
//	@Param			quality	query	string	false	"quality ('auto' or a number)"
//	@Param			format	query	string	false	"format ('auto' or a specific format)"
//	@Param			crop	query	string	false	"crop mode (default 'fill' when a dimension is set)"
//	@Success		200	{object}	response.Envelope{data=urlData}
//	@Failure		404	{object}	response.Envelope
//	@Router			/images/{id}/url [get]
func (h *Handler) DeliveryURL(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		response.NotFound(w, "image not found")
		return
	}

	q := r.URL.Query()
	opts := storage.TransformOptions{
		Quality: q.Get("quality"),
		Format:  q.Get("format"),
		Crop:    q.Get("crop"),
	}
	// Malformed dimensions are ignored rather than rejected.
	if n, err := strconv.Atoi(q.Get("width")); err == nil {
		opts.Width = n
	}
	if n, err := strconv.Atoi(q.Get("height")); err == nil {
		opts.Height = n
	}

	// The record carries the backend's asset ID verbatim (Cloudinary public
	// ID or bucket object key); records persisted before the column existed
	// fall back to extraction from the stored URL.
	assetID := rec.AssetID
	if assetID == "" {
		assetID = storage.AssetIDFromURL(rec.URL)
	}
	if assetID == "" {
		// Unrecognized URL shape: serve the stored URL untransformed.
		response.OK(w, urlData{URL: rec.URL})
		return
	}

	response.OK(w, urlData{URL: h.store.URLFor(assetID, opts)})
}

// Delete godoc
//
//	@Summary		Delete a gallery image
//	@Description	Removes the record from the gallery. The stored object itself is left untouched.
//	@Tags			images
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"image ID"
//	@Success		200	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Router			/images/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Remove(r.Context(), id); err != nil {
		response.NotFound(w, "image not found")
		return
	}
	response.OK(w, map[string]string{"deleted": id})
}

// writeUploadError maps the storage error kinds onto HTTP statuses. Callers
// switch on the kind, never on message text.
func (h *Handler) writeUploadError(w http.ResponseWriter, err error) {
	kind := storage.KindOf(err)
	h.log.Error("upload failed", zap.String("kind", kind.String()), zap.Error(err))

	switch kind {
	case storage.KindNetwork, storage.KindResponse, storage.KindParse:
		response.Error(w, http.StatusBadGateway, err.Error())
	default:
		response.InternalError(w)
	}
}

// progressSink logs fractional upload progress. Only the bucket backend
// reports progress; the Cloudinary path never calls it.
func (h *Handler) progressSink(fileName string) func(float64) {
	return func(pct float64) {
		h.log.Debug("upload progress",
			zap.String("file", fileName),
			zap.Float64("percent", pct))
	}
}
