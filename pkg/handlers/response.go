package handlers

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// Success writes the `{success:true, ...}` shape shared by the protection
// endpoints. Extra fields merge into the top-level object.
func Success(w http.ResponseWriter, fields map[string]interface{}) error {
	body := map[string]interface{}{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	return WriteJSON(w, http.StatusOK, body)
}

// Fail writes the `{success:false, error}` shape. Extra fields merge into
// the top-level object.
func Fail(w http.ResponseWriter, statusCode int, message string, fields map[string]interface{}) error {
	body := map[string]interface{}{"success": false, "error": message}
	for k, v := range fields {
		body[k] = v
	}
	return WriteJSON(w, statusCode, body)
}
