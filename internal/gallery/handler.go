package gallery

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/photoalbum/service/internal/response"
)

// URLer resolves an object key to a browser-accessible URL.
type URLer interface {
	PublicURL(key string) string
}

// Handler holds HTTP handlers for browsing and deleting photos.
type Handler struct {
	gallery *Gallery
	urls    URLer
	feed    Subscriber
}

// NewHandler creates a new gallery Handler.
func NewHandler(g *Gallery, urls URLer, feed Subscriber) *Handler {
	return &Handler{gallery: g, urls: urls, feed: feed}
}

type photoData struct {
	Key    string `json:"key"    example:"0B9F2C1E-6D4A-4C39-9A57-1F0E8D3B2A10.jpg"`
	URL    string `json:"url"    example:"http://localhost:9000/photos/0B9F2C1E-6D4A-4C39-9A57-1F0E8D3B2A10.jpg"`
	Format string `json:"format" example:"jpeg"`
	Width  int    `json:"width"  example:"1024"`
	Height int    `json:"height" example:"768"`
}

type galleryData struct {
	State  string      `json:"state"  example:"populated"`
	Photos []photoData `json:"photos"`
}

func (h *Handler) render(s Snapshot) galleryData {
	out := galleryData{State: s.State.String(), Photos: make([]photoData, 0, len(s.Items))}
	for _, img := range s.Items {
		out.Photos = append(out.Photos, photoData{
			Key:    img.Key,
			URL:    h.urls.PublicURL(img.Key),
			Format: img.Format,
			Width:  img.Width,
			Height: img.Height,
		})
	}
	return out
}

// List godoc
//
//	@Summary		List photos
//	@Description	Returns the cached gallery in grid order together with its loading state.
//	@Tags			photos
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=galleryData}
//	@Failure		500	{object}	response.Envelope
//	@Router			/photos [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	s, err := h.gallery.Snapshot(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, h.render(s))
}

// Image godoc
//
//	@Summary		Get photo
//	@Description	Returns the cached image bytes for a key.
//	@Tags			photos
//	@Produce		image/jpeg
//	@Param			key	path		string	true	"Image key"
//	@Success		200	{file}		binary
//	@Failure		404	{object}	response.Envelope
//	@Router			/photos/{key} [get]
func (h *Handler) Image(w http.ResponseWriter, r *http.Request) {
	img, ok, err := h.gallery.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		response.InternalError(w)
		return
	}
	if !ok {
		response.NotFound(w, "photo not found")
		return
	}
	w.Header().Set("Content-Type", "image/"+img.Format)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// Refresh godoc
//
//	@Summary		Refresh gallery
//	@Description	Re-queries every post and downloads its image. Photos that could be fetched are kept even when others fail.
//	@Tags			photos
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=galleryData}
//	@Failure		401	{object}	response.Envelope
//	@Failure		502	{object}	response.Envelope
//	@Router			/photos/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.gallery.Refresh(r.Context()); err != nil {
		response.FromError(w, err)
		return
	}
	h.List(w, r)
}

// Delete godoc
//
//	@Summary		Delete photo
//	@Description	Deletes the post for a key, drops it from the gallery and removes the stored object.
//	@Tags			photos
//	@Produce		json
//	@Security		BearerAuth
//	@Param			key	path		string	true	"Image key"
//	@Success		200	{object}	response.Envelope{data=map[string]string}
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		502	{object}	response.Envelope
//	@Router			/photos/{key} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.gallery.Delete(r.Context(), key); err != nil {
		if errors.Is(err, ErrNotUnique) {
			response.NotFound(w, "photo not found")
			return
		}
		response.FromError(w, err)
		return
	}
	response.OK(w, map[string]string{"key": key})
}
