package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"deedblock/internal/registration/models"
	"deedblock/internal/transport/http/shared"
	dErrors "deedblock/pkg/domain-errors"
)

// maxUploadBytes bounds a single multipart upload. Scanned deeds and site
// photos from registrar offices stay well under this.
const maxUploadBytes = 20 << 20

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	key := models.DocumentKey(chi.URLParam(r, "key"))

	name, contentType, data, err := readUpload(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	draft, err := h.drafts.UploadDocument(ctx, ownerID, key, name, contentType, data)
	if err != nil {
		h.logWriteFailure(ctx, "document upload failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, draftResponse{Draft: draft})
}

func (h *Handler) handleRemoveDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	key := models.DocumentKey(chi.URLParam(r, "key"))

	draft, err := h.drafts.RemoveDocument(ctx, ownerID, key)
	if err != nil {
		h.logWriteFailure(ctx, "document removal failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, draftResponse{Draft: draft})
}

func (h *Handler) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	name, contentType, data, err := readUpload(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	draft, err := h.drafts.UploadPhoto(ctx, ownerID, name, contentType, data)
	if err != nil {
		h.logWriteFailure(ctx, "photo upload failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, draftResponse{Draft: draft})
}

func (h *Handler) handleRemovePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "photo index must be a number"))
		return
	}

	draft, err := h.drafts.RemovePhoto(ctx, ownerID, index)
	if err != nil {
		h.logWriteFailure(ctx, "photo removal failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, draftResponse{Draft: draft})
}

// readUpload extracts the "file" part from a multipart request.
func readUpload(r *http.Request) (name, contentType string, data []byte, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", "", nil, dErrors.New(dErrors.CodeBadRequest, "expected a multipart upload")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, dErrors.New(dErrors.CodeBadRequest, "missing file part")
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		return "", "", nil, dErrors.New(dErrors.CodeBadRequest, "reading upload failed")
	}
	contentType = header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return header.Filename, contentType, data, nil
}
