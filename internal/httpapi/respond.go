package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/p-n-ai/pai-kiu/internal/platform/apperror"
)

// maxBodyBytes bounds request bodies; learning texts can be long.
const maxBodyBytes = 2 << 20

var (
	ErrBadJSON        = apperror.Validation("Request body must be valid JSON")
	ErrBudgetExceeded = apperror.Validation("Daily generation limit reached. Please try again tomorrow.")
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func detailOf(err error) errorDetail {
	return errorDetail{
		Kind:    apperror.KindOf(err).String(),
		Message: apperror.Message(err, "Internal server error"),
	}
}

// statusFor maps the failure taxonomy to HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, ErrBudgetExceeded) {
		return http.StatusTooManyRequests
	}
	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindExternalService:
		return http.StatusBadGateway
	case apperror.KindNoContent:
		return http.StatusNotFound
	case apperror.KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		slog.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: detailOf(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

// writeFile sends data as a download.
func writeFile(w http.ResponseWriter, status int, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("write file failed", "filename", filename, "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperror.Wrap(ErrBadJSON, err)
	}
	return nil
}
