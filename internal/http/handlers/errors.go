package handlers

import (
	"encoding/json"
	"net/http"

	"oaigate/internal/openai"
)

// writeError writes an OpenAI-shaped error envelope. The three raw routes
// speak the OpenAI wire contract exactly, so they bypass huma's error
// model.
func writeError(w http.ResponseWriter, status int, message, errType string) {
	writeErrorWithTask(w, status, message, errType, "")
}

// writeErrorWithTask additionally sets error.task_id, used by the
// timeout-continuation response so clients can match the later callback.
func writeErrorWithTask(w http.ResponseWriter, status int, message, errType, taskID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(openai.ErrorResponse{
		Error: openai.ErrorDetail{
			Message: message,
			Type:    errType,
			TaskID:  taskID,
		},
	})
}
