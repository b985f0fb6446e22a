package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ray-remotestate/menu/database/dbhelper"
	"github.com/ray-remotestate/menu/models"
	"github.com/ray-remotestate/menu/utils"
)

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(dst)
}

// respondStoreError maps validation and store errors onto status codes.
// notFound is the message used for a missing row.
func respondStoreError(w http.ResponseWriter, err error, notFound string) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		utils.RespondError(w, http.StatusBadRequest, err, vErr.Message)
	case errors.Is(err, utils.ErrInvalidID):
		utils.RespondError(w, http.StatusBadRequest, err, "invalid id")
	case errors.Is(err, dbhelper.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, err, notFound)
	case errors.Is(err, dbhelper.ErrDuplicateName):
		utils.RespondError(w, http.StatusConflict, err, "a category with this name already exists")
	case errors.Is(err, dbhelper.ErrCategoryInUse):
		utils.RespondError(w, http.StatusConflict, err, "category still has meals, delete or move them first")
	case errors.Is(err, dbhelper.ErrUnknownCategory):
		utils.RespondError(w, http.StatusBadRequest, err, "category does not exist")
	case errors.Is(err, dbhelper.ErrOutOfRange):
		utils.RespondError(w, http.StatusBadRequest, err, "a numeric value is out of range")
	default:
		utils.RespondError(w, http.StatusInternalServerError, err, "server error")
	}
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	utils.RespondError(w, http.StatusNotFound, nil, "route not found")
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	utils.RespondError(w, http.StatusMethodNotAllowed, nil, "method not allowed")
}
