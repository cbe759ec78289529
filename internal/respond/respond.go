// Package respond writes JSON bodies and {"error","message"} errors.
package respond

import (
	"encoding/json"
	"net/http"
)

// JSON writes v with status code.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Error writes {"error": errCode, "message": msg}.
func Error(w http.ResponseWriter, code int, errCode, msg string) {
	JSON(w, code, map[string]string{"error": errCode, "message": msg})
}
