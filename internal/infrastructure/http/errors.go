package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/0xcro3dile/netra-go/internal/domain/entities"
)

type errorBody struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

func statusForCode(code entities.ErrorCode) int {
	switch code {
	case entities.ErrInvalidInput:
		return http.StatusBadRequest
	case entities.ErrNotFound:
		return http.StatusNotFound
	case entities.ErrIngestFailed:
		return http.StatusUnprocessableEntity
	case entities.ErrGenerationFailed:
		return http.StatusBadGateway
	case entities.ErrStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error to a status and a client-safe body.
// Provider failures never expose backend text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *entities.Error
	if !errors.As(err, &de) {
		s.logger.Error("unhandled error",
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "internal server error"})
		return
	}

	status := statusForCode(de.Code)
	detail := de.Message
	if de.Code == entities.ErrGenerationFailed {
		detail = entities.GenericGenerationMessage
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("code", string(de.Code)),
			zap.Error(err),
		)
	} else {
		s.logger.Debug("request rejected",
			zap.String("path", r.URL.Path),
			zap.String("code", string(de.Code)),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorBody{Detail: detail, ErrorCode: string(de.Code)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
