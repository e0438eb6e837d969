package server

import (
	"encoding/json"
	"net/http"
)

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

// writeJSON sends a JSON response.
func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// ok sends a 200 OK response with JSON body.
func ok(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, data)
}

// notFound sends a 404 Not Found error.
func notFound(w http.ResponseWriter, message string) {
	jsonError(w, http.StatusNotFound, message)
}

// internalError sends a 500 Internal Server Error.
func internalError(w http.ResponseWriter, message string) {
	jsonError(w, http.StatusInternalServerError, message)
}
