package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avelkers/medrecord/internal/common"
)

type errorBody struct {
	Code int    `json:"code"`
	Text string `json:"text"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, text string) {
	respondJSON(w, status, map[string]errorBody{"error": {Code: status, Text: text}})
}

// respondServiceError maps the shared sentinel errors onto HTTP statuses.
// This is the only place the mapping lives; nothing internal leaks to the
// client beyond the short message.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrorConflict):
		respondError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, common.ErrorStorage):
		respondError(w, http.StatusInternalServerError, "storage failure")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
