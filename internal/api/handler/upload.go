package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/eveview/internal/api/response"
	"github.com/kiranshivaraju/eveview/internal/backend"
	"github.com/kiranshivaraju/eveview/internal/credential"
	"github.com/kiranshivaraju/eveview/internal/results"
)

// maxUploadSize bounds the multipart body accepted from the browser.
const maxUploadSize = 20 << 20

const uploadFailedMessage = "Upload failed. Please try again."

// Uploader forwards an image to the results service.
type Uploader interface {
	Upload(ctx context.Context, req backend.UploadRequest) (*backend.UploadResponse, error)
}

// NewUploadHandler returns an http.HandlerFunc for POST /api/v1/uploads.
// session is notified when the results service rejects the credential.
func NewUploadHandler(up Uploader, session credential.SessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
					"The image exceeds the upload size limit", nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid multipart body", nil)
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "image is required", nil)
			return
		}
		defer file.Close()

		resp, err := up.Upload(r.Context(), backend.UploadRequest{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			FileName:    header.Filename,
			Image:       file,
		})
		if err != nil {
			writeUploadError(w, r, err, session)
			return
		}

		response.Created(w, resp)
	}
}

func writeUploadError(w http.ResponseWriter, r *http.Request, err error, session credential.SessionHandler) {
	ce := results.Classify(err)
	slog.Warn("upload failed", "kind", string(ce.Kind), "error", err)

	switch ce.Kind {
	case results.KindCancelled:
		response.Error(w, http.StatusServiceUnavailable, "REQUEST_CANCELLED", uploadFailedMessage, nil)
	case results.KindNetwork:
		response.Error(w, http.StatusBadGateway, "BACKEND_UNREACHABLE", ce.Message, nil)
	case results.KindUnauthorized:
		if session != nil {
			session.SessionExpired(context.WithoutCancel(r.Context()))
		}
		response.Error(w, http.StatusUnauthorized, "SESSION_EXPIRED", ce.Message, nil)
	case results.KindValidation:
		response.Error(w, http.StatusBadRequest, "UPLOAD_REJECTED", ce.Message, nil)
	case results.KindServerError:
		response.Error(w, http.StatusBadGateway, "BACKEND_ERROR", ce.Message, nil)
	default:
		response.Error(w, http.StatusBadGateway, "UPLOAD_FAILED", uploadFailedMessage, nil)
	}
}
