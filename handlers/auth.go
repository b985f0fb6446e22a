package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/menu/database/dbhelper"
	"github.com/ray-remotestate/menu/middlewares"
	"github.com/ray-remotestate/menu/models"
	"github.com/ray-remotestate/menu/utils"
)

type TokenIssuer interface {
	GenerateToken(identity models.Identity) (string, time.Time, error)
}

type AuthHandler struct {
	tokens TokenIssuer
}

func NewAuthHandler(tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

// Login answers unknown usernames and wrong passwords identically.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err, "invalid request")
		return
	}

	if req.Username == "" || req.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, nil, "username and password required")
		return
	}

	admin, err := dbhelper.GetAdminByUsername(r.Context(), req.Username)
	if err != nil && !errors.Is(err, dbhelper.ErrNotFound) {
		utils.RespondError(w, http.StatusInternalServerError, err, "server error")
		return
	}

	var hashedPassword string
	if admin != nil {
		hashedPassword = admin.PasswordHash
	}
	if !utils.CheckPassword(hashedPassword, req.Password) {
		logrus.WithField("username", req.Username).Warn("failed admin login")
		utils.RespondError(w, http.StatusUnauthorized, nil, "invalid username or password")
		return
	}

	identity := models.Identity{AdminID: admin.ID, Username: admin.Username}
	token, expiresAt, err := h.tokens.GenerateToken(identity)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err, "failed to generate token")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "successfully logged in",
		"token":      token,
		"expires_at": expiresAt.UTC(),
		"admin":      identity,
	})
}

// Verify only runs behind the auth middleware, so reaching it means the
// token is good.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, ok := middlewares.AdminFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, nil, "unauthorized")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"admin": identity,
	})
}
