package api

import (
	"encoding/json"
	"net/http"

	"github.com/rxtech-lab/trading-desk/pkg/errors"
	"go.uber.org/zap"
)

type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.IsValidationError(err):
		return http.StatusBadRequest
	case errors.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.IsNoPositionError(err):
		return http.StatusConflict
	case errors.IsFetchError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}

	body := errorBody{Error: err.Error()}
	if code := errors.GetCode(err); code != errors.ErrCodeUnknown {
		body.Code = int(code)
	}

	writeJSON(w, status, body)
}
