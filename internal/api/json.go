package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/saadjs/kcal-snap/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error    string `json:"error"`
	Field    string `json:"field,omitempty"`
	Provider string `json:"provider,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps service errors to status codes. op names the failed
// operation in the log.
func writeError(w http.ResponseWriter, op string, err error) {
	var ve *service.ValidationError
	var ae *service.AnalysisError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: ve.Message, Field: ve.Field})
	case errors.As(err, &ae):
		slog.Warn(op+" failed", slog.String("provider", ae.Provider), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, errResponse{Error: ae.Message, Provider: ae.Provider})
	case errors.Is(err, service.ErrDraftNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
