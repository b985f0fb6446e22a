package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/ray-remotestate/menu/database/dbhelper"
	"github.com/ray-remotestate/menu/models"
	"github.com/ray-remotestate/menu/storage"
	"github.com/ray-remotestate/menu/utils"
)

const mealNotFound = "meal not found"

type ImageStore interface {
	Save(r io.Reader) (string, error)
	Remove(publicPath string)
	MaxBytes() int64
}

type MealHandler struct {
	images ImageStore
}

func NewMealHandler(images ImageStore) *MealHandler {
	return &MealHandler{images: images}
}

// mealRequest is a parsed create/update body. image is set when the body
// was multipart and carried an "image" file.
type mealRequest struct {
	input models.MealInput
	image io.ReadCloser
}

func (req *mealRequest) close() {
	if req.image != nil {
		req.image.Close()
	}
}

func (h *MealHandler) ListMeals(w http.ResponseWriter, r *http.Request) {
	var categoryID *int64
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			utils.RespondError(w, http.StatusBadRequest, err, "invalid category_id")
			return
		}
		categoryID = &id
	}

	meals, err := dbhelper.ListMeals(r.Context(), categoryID)
	if err != nil {
		respondStoreError(w, err, mealNotFound)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"meals": meals,
	})
}

func (h *MealHandler) GetMeal(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(r, "id")
	if err != nil {
		respondStoreError(w, err, mealNotFound)
		return
	}

	meal, err := dbhelper.GetMeal(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, mealNotFound)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"meal": meal,
	})
}

func (h *MealHandler) CreateMeal(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readMeal(w, r)
	if !ok {
		return
	}
	defer req.close()

	rec, err := h.prepare(r.Context(), req)
	if err != nil {
		h.respondMealError(w, err)
		return
	}

	meal, err := dbhelper.CreateMeal(r.Context(), rec)
	if err != nil {
		h.discardUpload(req, rec)
		respondStoreError(w, err, mealNotFound)
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "meal created successfully",
		"meal":    meal,
	})
}

func (h *MealHandler) UpdateMeal(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(r, "id")
	if err != nil {
		respondStoreError(w, err, mealNotFound)
		return
	}

	req, ok := h.readMeal(w, r)
	if !ok {
		return
	}
	defer req.close()

	existing, err := dbhelper.GetMeal(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, mealNotFound)
		return
	}

	rec, err := h.prepare(r.Context(), req)
	if err != nil {
		h.respondMealError(w, err)
		return
	}

	meal, err := dbhelper.UpdateMeal(r.Context(), id, rec)
	if err != nil {
		h.discardUpload(req, rec)
		respondStoreError(w, err, mealNotFound)
		return
	}

	if existing.Image != nil && (meal.Image == nil || *meal.Image != *existing.Image) {
		h.images.Remove(*existing.Image)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "meal updated successfully",
		"meal":    meal,
	})
}

func (h *MealHandler) DeleteMeal(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(r, "id")
	if err != nil {
		respondStoreError(w, err, mealNotFound)
		return
	}

	image, err := dbhelper.DeleteMeal(r.Context(), id)
	if err != nil {
		respondStoreError(w, err, mealNotFound)
		return
	}
	if image != nil {
		h.images.Remove(*image)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "meal deleted successfully",
	})
}

// prepare validates the input, resolves its category and stores an
// uploaded image. The image is stored last so rejected requests leave no file.
func (h *MealHandler) prepare(ctx context.Context, req *mealRequest) (models.MealRecord, error) {
	in := &req.input
	if err := in.Validate(); err != nil {
		return models.MealRecord{}, err
	}

	categoryID, err := resolveCategory(ctx, in)
	if err != nil {
		return models.MealRecord{}, err
	}

	if req.image != nil {
		publicPath, err := h.images.Save(req.image)
		if err != nil {
			return models.MealRecord{}, err
		}
		in.Image = &publicPath
	}

	return in.Record(categoryID), nil
}

// resolveCategory prefers category_id and falls back to the legacy category name.
func resolveCategory(ctx context.Context, in *models.MealInput) (int64, error) {
	if in.CategoryID != nil {
		return *in.CategoryID, nil
	}

	category, err := dbhelper.GetCategoryByName(ctx, in.CategoryName)
	if errors.Is(err, dbhelper.ErrNotFound) {
		return 0, dbhelper.ErrUnknownCategory
	}
	if err != nil {
		return 0, err
	}
	return category.ID, nil
}

func (h *MealHandler) discardUpload(req *mealRequest, rec models.MealRecord) {
	if req.image != nil && rec.Image != nil {
		h.images.Remove(*rec.Image)
	}
}

func (h *MealHandler) respondMealError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		utils.RespondError(w, http.StatusRequestEntityTooLarge, err, "image is too large")
	case errors.Is(err, storage.ErrUnsupportedType):
		utils.RespondError(w, http.StatusBadRequest, err, "image must be a jpeg, png, gif or webp file")
	default:
		respondStoreError(w, err, mealNotFound)
	}
}

// readMeal decodes a JSON or multipart meal body. It writes the error
// response itself and reports false when the body cannot be used.
func (h *MealHandler) readMeal(w http.ResponseWriter, r *http.Request) (*mealRequest, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		req := &mealRequest{}
		if err := decodeJSON(w, r, &req.input); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err, "invalid request")
			return nil, false
		}
		return req, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.images.MaxBytes()+maxJSONBody)
	if err := r.ParseMultipartForm(h.images.MaxBytes()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(w, http.StatusRequestEntityTooLarge, err, "request body is too large")
			return nil, false
		}
		utils.RespondError(w, http.StatusBadRequest, err, "invalid multipart form")
		return nil, false
	}

	req, err := mealFromForm(r)
	if err != nil {
		respondStoreError(w, err, mealNotFound)
		return nil, false
	}
	return req, true
}

func mealFromForm(r *http.Request) (*mealRequest, error) {
	form := r.MultipartForm
	value := func(key string) string {
		if vs := form.Value[key]; len(vs) > 0 {
			return strings.TrimSpace(vs[0])
		}
		return ""
	}

	req := &mealRequest{
		input: models.MealInput{
			Name:         value("name"),
			Description:  value("description"),
			CategoryName: value("category"),
			Ingredients:  formIngredients(form.Value["ingredients"], form.Value["ingredients[]"]),
		},
	}

	var err error
	if req.input.Price, err = optionalInt64(value("price"), "price"); err != nil {
		return nil, err
	}
	if req.input.CategoryID, err = optionalInt64(value("category_id"), "category_id"); err != nil {
		return nil, err
	}
	orderNumber, err := optionalInt64(value("order_number"), "order_number")
	if err != nil {
		return nil, err
	}
	if orderNumber != nil {
		n := int(*orderNumber)
		req.input.OrderNumber = &n
	}
	if _, ok := form.Value["image"]; ok {
		image := value("image")
		req.input.Image = &image
	}

	file, _, err := r.FormFile("image")
	switch {
	case err == nil:
		req.image = file
	case errors.Is(err, http.ErrMissingFile):
	default:
		return nil, err
	}

	return req, nil
}

func optionalInt64(raw, field string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &models.ValidationError{Field: field, Message: field + " must be a whole number"}
	}
	return &v, nil
}

// formIngredients accepts repeated fields or a single JSON array field. Any
// other single value is one ingredient, commas included.
func formIngredients(values, bracketValues []string) []string {
	values = append(append([]string{}, values...), bracketValues...)
	if len(values) != 1 {
		return values
	}

	single := strings.TrimSpace(values[0])
	if strings.HasPrefix(single, "[") {
		var list []string
		if err := json.Unmarshal([]byte(single), &list); err == nil {
			return list
		}
	}
	return values
}
