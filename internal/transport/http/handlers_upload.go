package httptransport

import (
	"net/http"

	"votedeck/internal/upload"
	dErrors "votedeck/pkg/domain-errors"
	"votedeck/pkg/platform/httputil"
)

// handleUpload accepts a multipart image and returns its public URL for use
// as a card image.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(upload.MaxSize); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request must be multipart form data"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "a file field named 'file' is required"))
		return
	}
	defer file.Close()

	url, err := h.uploads.Save(header.Filename, file)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"url": url})
}
