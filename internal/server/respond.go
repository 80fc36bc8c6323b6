package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/automations/internal/common"
)

type messageBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status common.HTTPStatus picks and a {"message"} body.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := common.HTTPStatus(err)
	msg := err.Error()
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		logger.Error("server.request.failed", "status", status, "error", err)
		msg = "server error"
	}
	writeJSON(w, status, messageBody{Success: false, Message: msg})
}
