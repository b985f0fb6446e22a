package handlers

import (
	"net/http"

	"github.com/ray-remotestate/menu/database/dbhelper"
	"github.com/ray-remotestate/menu/models"
	"github.com/ray-remotestate/menu/utils"
)

const categoryNotFound = "category not found"

func ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := dbhelper.ListCategories(r.Context())
	if err != nil {
		respondStoreError(w, err, categoryNotFound)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
	})
}

func GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(r, "id")
	if err != nil {
		respondStoreError(w, err, categoryNotFound)
		return
	}

	category, err := dbhelper.GetCategory(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, categoryNotFound)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
	})
}

func CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input models.CategoryInput
	if err := decodeJSON(w, r, &input); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err, "invalid request")
		return
	}
	if err := input.Validate(); err != nil {
		respondStoreError(w, err, categoryNotFound)
		return
	}

	orderNumber := 0
	if input.OrderNumber != nil {
		orderNumber = *input.OrderNumber
	}

	category, err := dbhelper.CreateCategory(r.Context(), input.Name, orderNumber)
	if err != nil {
		respondStoreError(w, err, categoryNotFound)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "category created successfully",
		"category": category,
	})
}

func UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(r, "id")
	if err != nil {
		respondStoreError(w, err, categoryNotFound)
		return
	}

	var input models.CategoryInput
	if err := decodeJSON(w, r, &input); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err, "invalid request")
		return
	}
	if err := input.Validate(); err != nil {
		respondStoreError(w, err, categoryNotFound)
		return
	}

	category, err := dbhelper.UpdateCategory(r.Context(), id, input.Name, input.OrderNumber)
	if err != nil {
		respondStoreError(w, err, categoryNotFound)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "category updated successfully",
		"category": category,
	})
}

func DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(r, "id")
	if err != nil {
		respondStoreError(w, err, categoryNotFound)
		return
	}

	if err := dbhelper.DeleteCategory(r.Context(), id); err != nil {
		respondStoreError(w, err, categoryNotFound)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "category deleted successfully",
	})
}
