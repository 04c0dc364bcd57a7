package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"jobmarket-engine/internal/board"
	"jobmarket-engine/internal/generate"
	"jobmarket-engine/internal/ingest"
	"jobmarket-engine/internal/model"
)

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

// WriteJSON encodes v before writing the status, so an encoding failure
// becomes a 500 instead of an empty response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Printf("level=error msg=\"encode response\" err=%v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"internal_error","message":"response could not be encoded"}}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var e APIError
	e.Error.Code = code
	e.Error.Message = message
	e.Error.RequestID = RequestIDFrom(r.Context())
	WriteJSON(w, status, e)
}

// errorStatus maps service errors to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, board.ErrUnknownBoard):
		return http.StatusNotFound, "unknown_board"
	case errors.Is(err, board.ErrNoModel):
		return http.StatusNotFound, "no_model"
	case errors.Is(err, board.ErrUnknownColumn):
		return http.StatusBadRequest, "unknown_column"
	case errors.Is(err, board.ErrBadInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, generate.ErrInvalidSize):
		return http.StatusBadRequest, "invalid_size"
	case errors.Is(err, model.ErrEmptyTraining):
		return http.StatusUnprocessableEntity, "empty_training"
	case errors.Is(err, model.ErrSingular):
		return http.StatusUnprocessableEntity, "singular_training"
	case ingest.IsFetchError(err):
		return http.StatusBadGateway, "source_unavailable"
	case errors.Is(err, ingest.ErrNoRows):
		return http.StatusBadGateway, "source_empty"
	case errors.Is(err, generate.ErrInvalidModel):
		return http.StatusInternalServerError, "invalid_model"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeServiceError writes err in the APIError envelope. Server-side
// failures are logged; their message still reaches the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status >= 500 {
		log.Printf("level=error msg=%q request_id=%s path=%s err=%v", code, RequestIDFrom(r.Context()), r.URL.Path, err)
	}
	WriteError(w, r, status, code, err.Error())
}
