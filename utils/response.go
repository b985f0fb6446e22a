package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

var ErrInvalidID = errors.New("invalid id")

// RespondJSON writes payload wrapped in the {"success": true, ...} envelope.
func RespondJSON(w http.ResponseWriter, status int, payload map[string]interface{}) {
	body := map[string]interface{}{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// RespondError writes the failure envelope. The underlying error is only
// exposed to the client on 5xx responses.
func RespondError(w http.ResponseWriter, status int, err error, message string) {
	body := map[string]interface{}{
		"success": false,
		"message": message,
	}

	entry := logrus.WithField("status", status)
	if err != nil {
		entry = entry.WithError(err)
	}
	if status >= http.StatusInternalServerError {
		if err != nil {
			body["error"] = err.Error()
		}
		entry.Error(message)
	} else {
		entry.Debug(message)
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("failed to encode response")
	}
}

// ParseID reads a positive integer path variable.
func ParseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
