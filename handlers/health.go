package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/menu/database"
	"github.com/ray-remotestate/menu/utils"
)

// Health always answers 200; the database state is reported in the body.
func Health(w http.ResponseWriter, r *http.Request) {
	dbStatus := "up"
	if err := database.Ping(r.Context(), 2*time.Second); err != nil {
		logrus.WithError(err).Warn("health check: database unreachable")
		dbStatus = "down"
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "OK",
		"message":  "server is running",
		"database": dbStatus,
	})
}
