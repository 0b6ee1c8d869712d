package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Ekansh2006/image-upload-portal/internal/response"
)

// Handler holds HTTP handlers for auth endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new auth Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type tokenRequest struct {
	AdminKey string `json:"adminKey" example:"s3cret"`
}

type tokenData struct {
	Token string `json:"token" example:"eyJhbGci..."`
}

// IssueToken godoc
//
//	@Summary		Issue an API token
//	@Description	Exchanges the configured admin key for a short-lived Bearer token used on destructive endpoints.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body	tokenRequest	true	"admin key"
//	@Success		200	{object}	response.Envelope{data=tokenData}
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		503	{object}	response.Envelope
//	@Router			/auth/token [post]
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	token, err := h.svc.IssueToken(req.AdminKey)
	if err != nil {
		if errors.Is(err, ErrDisabled) {
			response.Error(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		response.Unauthorized(w, "invalid admin key")
		return
	}

	response.OK(w, tokenData{Token: token})
}
