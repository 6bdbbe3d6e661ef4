package routes

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/render"

	"github.com/mbolis/quick-forms/app"
	"github.com/mbolis/quick-forms/httpx"
	"github.com/mbolis/quick-forms/log"
	"github.com/mbolis/quick-forms/storage"
)

const (
	uploadField       = "image"
	multipartOverhead = 1 << 20
)

// uploadImage reads the "image" part of a multipart request and stores
// it under prefix.
func uploadImage(app app.App, w http.ResponseWriter, r *http.Request, prefix string) {
	maxSize := app.Uploads.MaxSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	file, _, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.LogStatus(w, http.StatusRequestEntityTooLarge, log.DebugLevel, "upload.too_large")
			return
		}
		httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "upload.form_file", "missing %q file", uploadField)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		httpx.LogInternalError(w, "upload.read", err)
		return
	}

	url, err := app.Uploads.Upload(r.Context(), prefix, data)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		httpx.LogStatusMsg(w, http.StatusRequestEntityTooLarge, log.DebugLevel, "upload.too_large", "%s", err)
	case errors.Is(err, storage.ErrInvalidType):
		httpx.LogStatusMsg(w, http.StatusUnsupportedMediaType, log.DebugLevel, "upload.invalid_type", "%s", err)
	case errors.Is(err, storage.ErrUploadFailed):
		log.Errorf("upload.store: %s", err)
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, map[string]any{
			"url":   url,
			"error": "image upload failed",
		})
	case err != nil:
		httpx.LogInternalError(w, "upload.store", err)
	default:
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"url": url,
		})
	}
}
