package handlers

import (
	"net/http"

	"github.com/goccy/go-json"
)

type errorBody struct {
	Errors any `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeInvalidArgument is the error shape for a malformed start date.
func writeInvalidArgument(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, errorBody{Errors: map[string]string{"base": "Invalid argument"}})
}

func writeFieldErrors(w http.ResponseWriter, errs map[string][]string) {
	writeJSON(w, http.StatusUnprocessableEntity, errorBody{Errors: errs})
}
