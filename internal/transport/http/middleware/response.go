package middleware

import (
	"encoding/json"
	"net/http"
)

// writeJSONError answers a middleware rejection with the same {"error": msg}
// envelope the handlers use, so station clients parse one error shape.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
