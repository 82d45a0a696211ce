package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ecosync/backend/internal/models"
	"github.com/ecosync/backend/internal/services"
)

// imageTypes are the accepted upload content types.
var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type ImageHandler struct {
	images   *services.ImageService
	maxBytes int64
}

func NewImageHandler(images *services.ImageService, maxSizeMB int64) *ImageHandler {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &ImageHandler{images: images, maxBytes: maxSizeMB << 20}
}

// Upload accepts a multipart form with the file in field "image".
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("File too large or invalid form data"))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("No image file provided"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !imageTypes[contentType] {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid image type. Allowed: JPEG, PNG, GIF, WebP"))
		return
	}

	uploaded, err := h.images.Upload(r.Context(), userID, header.Filename, contentType, file)
	switch {
	case errors.Is(err, services.ErrInvalidImage):
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Image file is empty"))
		return
	case err != nil:
		writeServiceError(w, "UploadImage", err, "Failed to upload image")
		return
	}

	logrus.WithFields(logrus.Fields{"handler": "UploadImage", "image": uploaded.ID, "user": userID}).Info("image uploaded")
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(uploaded))
}

func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.images.Delete(r.Context(), userID, chi.URLParam(r, "imageId")); err != nil {
		writeServiceError(w, "DeleteImage", err, "Failed to delete image")
		return
	}

	writeJSON(w, http.StatusOK, models.NewMessageResponse("Image deleted successfully"))
}
