package upload

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/photoalbum/service/internal/middleware"
	"github.com/photoalbum/service/internal/response"
)

const formField = "image"

// URLer resolves an object key to a browser-accessible URL.
type URLer interface {
	PublicURL(key string) string
}

// Handler holds HTTP handlers for photo uploads.
type Handler struct {
	flow     *Flow
	urls     URLer
	maxBytes int64
}

// NewHandler creates a new upload Handler accepting images up to maxBytes.
func NewHandler(flow *Flow, urls URLer, maxBytes int64) *Handler {
	return &Handler{flow: flow, urls: urls, maxBytes: maxBytes}
}

type uploadData struct {
	ID        string `json:"id"        example:"e7eedc79-0707-4fe4-8734-526b7ef13a7b"`
	ImageKey  string `json:"imageKey"  example:"0B9F2C1E-6D4A-4C39-9A57-1F0E8D3B2A10.jpg"`
	URL       string `json:"url"       example:"http://localhost:9000/photos/0B9F2C1E-6D4A-4C39-9A57-1F0E8D3B2A10.jpg"`
	CreatedAt string `json:"createdAt" example:"2026-02-27T14:48:34Z"`
}

// Upload godoc
//
//	@Summary		Upload photo
//	@Description	Compress the image to JPEG, store it under a fresh key and record a post referencing it.
//	@Tags			photos
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			image	formData	file	true	"Image file (JPEG, PNG or GIF)"
//	@Success		201		{object}	response.Envelope{data=uploadData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		502		{object}	response.Envelope
//	@Router			/photos [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	file, _, err := r.FormFile(formField)
	if err != nil {
		if isTooLarge(err) {
			response.BadRequest(w, "image is too large")
			return
		}
		response.BadRequest(w, "multipart field \"image\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		if isTooLarge(err) {
			response.BadRequest(w, "image is too large")
			return
		}
		response.BadRequest(w, "could not read image")
		return
	}
	if int64(len(data)) > h.maxBytes {
		response.BadRequest(w, "image is too large")
		return
	}

	p, err := h.flow.Upload(r.Context(), data)
	if err != nil {
		response.FromError(w, err)
		return
	}
	uploader, ok := middleware.Subject(r.Context())
	if !ok {
		uploader = "anonymous"
	}
	slog.Info("upload: photo added", "id", p.ID, "key", p.ImageKey, "uploader", uploader)

	response.Created(w, uploadData{
		ID:        p.ID,
		ImageKey:  p.ImageKey,
		URL:       h.urls.PublicURL(p.ImageKey),
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}
