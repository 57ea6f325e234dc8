package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/creasty/defaults"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"

	"github.com/melibackend/retail-dashboard/internal/client"
	"github.com/melibackend/retail-dashboard/internal/models"
)

const maxUploadSize = 10 << 20

var (
	queryDecoder = newDecoder("schema")
	// formDecoder reads multipart fields named after the JSON payload keys
	formDecoder = newDecoder("json")
)

func newDecoder(tag string) *schema.Decoder {
	d := schema.NewDecoder()
	d.SetAliasTag(tag)
	d.IgnoreUnknownKeys(true)
	return d
}

// writeJSONResponse is a helper function to write JSON responses
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse is a helper function to write error responses
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string, fields map[string][]string) {
	writeJSONResponse(w, statusCode, models.ErrorResponse{
		Code:    code,
		Message: message,
		Fields:  fields,
	})
}

// writeClientError maps a backend client failure onto a dashboard response
func writeClientError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *client.ValidationError
	var httpErr *client.HTTPError

	switch {
	case errors.As(err, &validation):
		writeErrorResponse(w, http.StatusUnprocessableEntity, "validation_failed", validation.Message, validation.Fields)
	case errors.Is(err, client.ErrNotFound):
		errors.As(err, &httpErr)
		writeErrorResponse(w, http.StatusNotFound, "not_found", messageOr(httpErr.Message, "Resource not found"), nil)
	case errors.As(err, &httpErr):
		status := httpErr.Status
		if status < 400 {
			// a 2xx envelope that reported failure
			status = http.StatusBadGateway
		}
		writeErrorResponse(w, status, codeForStatus(status), messageOr(httpErr.Message, http.StatusText(status)), nil)
	default:
		slog.Error("Backend request failed",
			"error", err,
			"kind", client.KindOf(err),
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)
		writeErrorResponse(w, http.StatusBadGateway, "backend_unavailable", "Backend service is unavailable", nil)
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusConflict:
		return "conflict"
	case http.StatusTooManyRequests:
		return "rate_limit_exceeded"
	}
	if status >= 500 {
		return "backend_error"
	}
	return "bad_request"
}

func messageOr(message, fallback string) string {
	if strings.TrimSpace(message) == "" {
		return fallback
	}
	return message
}

// decodeFilters fills dst from its default tags and then the query string
func decodeFilters(r *http.Request, dst interface{}) error {
	if err := defaults.Set(dst); err != nil {
		return fmt.Errorf("applying filter defaults: %w", err)
	}
	if err := queryDecoder.Decode(dst, r.URL.Query()); err != nil {
		return err
	}
	return nil
}

// writeDecodeError reports query or form values that failed to decode
func writeDecodeError(w http.ResponseWriter, err error) {
	fields := make(map[string][]string)
	var multi schema.MultiError
	if errors.As(err, &multi) {
		for key, fieldErr := range multi {
			fields[key] = []string{fieldErr.Error()}
		}
	}
	writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid request parameters", fields)
}

// decodeJSON decodes the request body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid JSON", nil)
		return false
	}
	return true
}

// decodeBody accepts a JSON body or a multipart form whose optional file part
// is fileField. The file, if any, is returned alongside.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, fileField string) (*models.FileUpload, bool) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, decodeJSON(w, r, dst)
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid multipart form", nil)
		return nil, false
	}
	if err := formDecoder.Decode(dst, r.MultipartForm.Value); err != nil {
		writeDecodeError(w, err)
		return nil, false
	}

	file, header, err := r.FormFile(fileField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid file upload", nil)
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "Invalid file upload", nil)
		return nil, false
	}
	return &models.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, true
}

// pathID reads the {id} route variable
func pathID(w http.ResponseWriter, r *http.Request) (models.ID, bool) {
	id := models.ID(strings.TrimSpace(mux.Vars(r)["id"]))
	if id.IsZero() {
		writeErrorResponse(w, http.StatusBadRequest, "bad_request", "ID is required", map[string][]string{
			"id": {"cannot be empty"},
		})
		return "", false
	}
	return id, true
}
