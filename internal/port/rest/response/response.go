package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

func JSON(w http.ResponseWriter, statusCode int, message string, data any) {
	if data == nil {
		data = struct{}{}
	}
	write(w, Envelope{
		Success:    statusCode < http.StatusBadRequest,
		StatusCode: statusCode,
		Message:    message,
		Data:       data,
	})
}

func Error(w http.ResponseWriter, statusCode int, message string) {
	write(w, Envelope{
		Success:    false,
		StatusCode: statusCode,
		Message:    message,
		Data:       nil,
	})
}

func write(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(env.StatusCode)
	_ = json.NewEncoder(w).Encode(env)
}
