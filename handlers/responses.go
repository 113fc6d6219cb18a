package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"stayCleanAPI/internal/apperr"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps the typed service errors onto HTTP statuses.
// Anything unrecognized is a 500 with a generic body; the real cause stays
// in the server log, not the response.
func respondWithServiceError(w http.ResponseWriter, err error) {
	var validation *apperr.ValidationError
	var conflict *apperr.ConflictError
	var notFound *apperr.NotFoundError

	switch {
	case errors.As(err, &validation):
		respondWithError(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &conflict):
		respondWithError(w, http.StatusConflict, conflict.Message)
	case errors.As(err, &notFound):
		respondWithError(w, http.StatusNotFound, notFound.Message)
	default:
		log.Printf("Unhandled service error: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
