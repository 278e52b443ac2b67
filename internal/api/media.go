package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"example.com/cesizen/internal/media"
)

const uploadField = "media"

func (h *Handler) registerMedia(r *mux.Router) {
	r.Handle("/media/upload", h.admin(h.upload)).Methods(http.MethodPost)
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if h.media == nil {
		writeError(w, http.StatusServiceUnavailable, "media_disabled", "media storage is not configured")
		return
	}
	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.media.MaxBytes()+1<<16)
	file, _, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "file exceeds upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "multipart field \"media\" is required")
		return
	}
	defer file.Close()

	stored, err := h.media.Save(r.Context(), file)
	switch {
	case errors.Is(err, media.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", err.Error())
		return
	case errors.Is(err, media.ErrUnsupportedType):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", err.Error())
		return
	case err != nil:
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"media": stored})
}
