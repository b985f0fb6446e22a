package handlers

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ray-remotestate/menu/database"
	"github.com/ray-remotestate/menu/models"
	"github.com/ray-remotestate/menu/storage"
	"github.com/ray-remotestate/menu/utils"
)

type fakeImages struct {
	saved   []string
	removed []string
	saveErr error
}

func (f *fakeImages) Save(r io.Reader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.saved = append(f.saved, string(data))
	return "/uploads/new.png", nil
}

func (f *fakeImages) Remove(publicPath string) { f.removed = append(f.removed, publicPath) }

func (f *fakeImages) MaxBytes() int64 { return 1 << 20 }

type fakeTokens struct{}

func (fakeTokens) GenerateToken(identity models.Identity) (string, time.Time, error) {
	return "token-for-" + identity.Username, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

func setupMock(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	prev := database.Restro
	database.Restro = db
	t.Cleanup(func() {
		database.Restro = prev
		db.Close()
	})
	return mock
}

func newRouter(images ImageStore) *mux.Router {
	auth := NewAuthHandler(fakeTokens{})
	meals := NewMealHandler(images)

	r := mux.NewRouter()
	r.HandleFunc("/auth/login", auth.Login).Methods(http.MethodPost)
	r.HandleFunc("/categories", ListCategories).Methods(http.MethodGet)
	r.HandleFunc("/categories", CreateCategory).Methods(http.MethodPost)
	r.HandleFunc("/categories/{id}", GetCategory).Methods(http.MethodGet)
	r.HandleFunc("/categories/{id}", UpdateCategory).Methods(http.MethodPut)
	r.HandleFunc("/categories/{id}", DeleteCategory).Methods(http.MethodDelete)
	r.HandleFunc("/meals", meals.ListMeals).Methods(http.MethodGet)
	r.HandleFunc("/meals", meals.CreateMeal).Methods(http.MethodPost)
	r.HandleFunc("/meals/{id}", meals.GetMeal).Methods(http.MethodGet)
	r.HandleFunc("/meals/{id}", meals.UpdateMeal).Methods(http.MethodPut)
	r.HandleFunc("/meals/{id}", meals.DeleteMeal).Methods(http.MethodDelete)
	return r
}

func serve(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

var (
	categoryCols = []string{"id", "name", "order_number", "created_at", "updated_at"}
	mealCols     = []string{"id", "name", "image", "description", "price", "category_id", "category",
		"ingredients", "order_number", "created_at", "updated_at"}
)

func mealRow(id int64, name string, image driver.Value, price int64) []driver.Value {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []driver.Value{id, name, image, "", price, int64(4), "Non mahsulotlari", "{}", 0, now, now}
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("ali_2001")
	require.NoError(t, err)
	adminCols := []string{"id", "username", "password_hash", "created_at"}

	t.Run("success", func(t *testing.T) {
		mock := setupMock(t)
		mock.ExpectQuery("FROM admins").WithArgs("alibek").
			WillReturnRows(sqlmock.NewRows(adminCols).AddRow(1, "alibek", hash, time.Now()))

		rec, body := serve(t, newRouter(&fakeImages{}),
			jsonRequest(http.MethodPost, "/auth/login", `{"username":"alibek","password":"ali_2001"}`))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "token-for-alibek", body["token"])
		assert.Equal(t, "alibek", body["admin"].(map[string]interface{})["username"])
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		mock := setupMock(t)
		mock.ExpectQuery("FROM admins").WithArgs("alibek").
			WillReturnRows(sqlmock.NewRows(adminCols).AddRow(1, "alibek", hash, time.Now()))
		mock.ExpectQuery("FROM admins").WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(adminCols))

		router := newRouter(&fakeImages{})
		wrongRec, wrongBody := serve(t, router,
			jsonRequest(http.MethodPost, "/auth/login", `{"username":"alibek","password":"nope"}`))
		ghostRec, ghostBody := serve(t, router,
			jsonRequest(http.MethodPost, "/auth/login", `{"username":"ghost","password":"nope"}`))

		assert.Equal(t, http.StatusUnauthorized, wrongRec.Code)
		assert.Equal(t, http.StatusUnauthorized, ghostRec.Code)
		assert.Equal(t, wrongBody, ghostBody)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing fields", func(t *testing.T) {
		setupMock(t)
		rec, body := serve(t, newRouter(&fakeImages{}),
			jsonRequest(http.MethodPost, "/auth/login", `{"username":"alibek"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "username and password required", body["message"])
	})
}

func TestCreateCategory(t *testing.T) {
	now := time.Now()

	t.Run("created", func(t *testing.T) {
		mock := setupMock(t)
		mock.ExpectQuery("INSERT INTO categories").WithArgs("Salatlar", 5).
			WillReturnRows(sqlmock.NewRows(categoryCols).AddRow(7, "Salatlar", 5, now, now))

		rec, body := serve(t, newRouter(&fakeImages{}),
			jsonRequest(http.MethodPost, "/categories", `{"name":"  Salatlar ","order_number":5}`))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Salatlar", body["category"].(map[string]interface{})["name"])
	})

	t.Run("duplicate", func(t *testing.T) {
		mock := setupMock(t)
		mock.ExpectQuery("INSERT INTO categories").WillReturnError(&pq.Error{Code: "23505"})

		rec, body := serve(t, newRouter(&fakeImages{}),
			jsonRequest(http.MethodPost, "/categories", `{"name":"Salatlar"}`))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, false, body["success"])
		assert.NotContains(t, body, "error")
	})

	t.Run("blank name", func(t *testing.T) {
		setupMock(t)
		rec, body := serve(t, newRouter(&fakeImages{}),
			jsonRequest(http.MethodPost, "/categories", `{"name":"   "}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "category name is required", body["message"])
	})
}

func TestCategoryByID(t *testing.T) {
	t.Run("invalid id", func(t *testing.T) {
		setupMock(t)
		rec, _ := serve(t, newRouter(&fakeImages{}), httptest.NewRequest(http.MethodGet, "/categories/abc", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		mock := setupMock(t)
		mock.ExpectQuery("FROM categories WHERE id").WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows(categoryCols))

		rec, body := serve(t, newRouter(&fakeImages{}), httptest.NewRequest(http.MethodGet, "/categories/9", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "category not found", body["message"])
	})

	t.Run("delete in use", func(t *testing.T) {
		mock := setupMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		rec, _ := serve(t, newRouter(&fakeImages{}), httptest.NewRequest(http.MethodDelete, "/categories/2", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListMealsRejectsBadFilter(t *testing.T) {
	setupMock(t)
	rec, body := serve(t, newRouter(&fakeImages{}), httptest.NewRequest(http.MethodGet, "/meals?category_id=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid category_id", body["message"])
}

func TestCreateMealJSON(t *testing.T) {
	t.Run("zero price is accepted", func(t *testing.T) {
		mock := setupMock(t)
		mock.ExpectQuery("INSERT INTO meals").
			WithArgs("Choy", nil, "", int64(0), int64(4), sqlmock.AnyArg(), 0).
			WillReturnRows(sqlmock.NewRows(mealCols).AddRow(mealRow(3, "Choy", nil, 0)...))

		rec, body := serve(t, newRouter(&fakeImages{}),
			jsonRequest(http.MethodPost, "/meals", `{"name":"Choy","price":0,"category_id":4}`))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.EqualValues(t, 0, body["meal"].(map[string]interface{})["price"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing price", func(t *testing.T) {
		setupMock(t)
		rec, body := serve(t, newRouter(&fakeImages{}),
			jsonRequest(http.MethodPost, "/meals", `{"name":"Choy","category_id":4}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "price is required", body["message"])
	})

	t.Run("price beyond int4 is a validation error", func(t *testing.T) {
		mock := setupMock(t)

		rec, body := serve(t, newRouter(&fakeImages{}),
			jsonRequest(http.MethodPost, "/meals", `{"name":"Non","price":3000000000,"category_id":4}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "price must be at most 2147483647", body["message"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database range error is a bad request", func(t *testing.T) {
		mock := setupMock(t)
		mock.ExpectQuery("INSERT INTO meals").WillReturnError(&pq.Error{Code: "22003", Message: "integer out of range"})

		rec, body := serve(t, newRouter(&fakeImages{}),
			jsonRequest(http.MethodPost, "/meals", `{"name":"Non","price":3000,"category_id":4}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "a numeric value is out of range", body["message"])
	})

	t.Run("category by legacy name", func(t *testing.T) {
		mock := setupMock(t)
		now := time.Now()
		mock.ExpectQuery("FROM categories WHERE name").WithArgs("Ichimliklar").
			WillReturnRows(sqlmock.NewRows(categoryCols).AddRow(4, "Ichimliklar", 0, now, now))
		mock.ExpectQuery("INSERT INTO meals").
			WithArgs("Choy", nil, "", int64(1000), int64(4), sqlmock.AnyArg(), 0).
			WillReturnRows(sqlmock.NewRows(mealCols).AddRow(mealRow(3, "Choy", nil, 1000)...))

		rec, _ := serve(t, newRouter(&fakeImages{}),
			jsonRequest(http.MethodPost, "/meals", `{"name":"Choy","price":1000,"category":"Ichimliklar"}`))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown category name", func(t *testing.T) {
		mock := setupMock(t)
		mock.ExpectQuery("FROM categories WHERE name").WillReturnRows(sqlmock.NewRows(categoryCols))

		rec, body := serve(t, newRouter(&fakeImages{}),
			jsonRequest(http.MethodPost, "/meals", `{"name":"Choy","price":1000,"category":"Nope"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "category does not exist", body["message"])
	})
}

func multipartMeal(t *testing.T, method, target string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "meal.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateMealMultipart(t *testing.T) {
	fields := map[string]string{"name": "Non", "price": "3000", "category_id": "4", "ingredients": `["Un","Suv"]`}

	t.Run("stores the upload", func(t *testing.T) {
		mock := setupMock(t)
		images := &fakeImages{}
		mock.ExpectQuery("INSERT INTO meals").
			WithArgs("Non", "/uploads/new.png", "", int64(3000), int64(4), sqlmock.AnyArg(), 0).
			WillReturnRows(sqlmock.NewRows(mealCols).AddRow(mealRow(8, "Non", "/uploads/new.png", 3000)...))

		rec, body := serve(t, newRouter(images), multipartMeal(t, http.MethodPost, "/meals", fields, []byte("png")))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, []string{"png"}, images.saved)
		assert.Equal(t, "/uploads/new.png", body["meal"].(map[string]interface{})["image"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unsupported image", func(t *testing.T) {
		setupMock(t)
		images := &fakeImages{saveErr: storage.ErrUnsupportedType}

		rec, _ := serve(t, newRouter(images), multipartMeal(t, http.MethodPost, "/meals", fields, []byte("text")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("image too large", func(t *testing.T) {
		setupMock(t)
		images := &fakeImages{saveErr: storage.ErrTooLarge}

		rec, _ := serve(t, newRouter(images), multipartMeal(t, http.MethodPost, "/meals", fields, []byte("png")))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("insert fails removes the upload", func(t *testing.T) {
		mock := setupMock(t)
		images := &fakeImages{}
		mock.ExpectQuery("INSERT INTO meals").WillReturnError(&pq.Error{Code: "23503"})

		rec, _ := serve(t, newRouter(images), multipartMeal(t, http.MethodPost, "/meals", fields, []byte("png")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []string{"/uploads/new.png"}, images.removed)
	})

	t.Run("bad price", func(t *testing.T) {
		setupMock(t)
		bad := map[string]string{"name": "Non", "price": "cheap", "category_id": "4"}

		rec, body := serve(t, newRouter(&fakeImages{}), multipartMeal(t, http.MethodPost, "/meals", bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "price must be a whole number", body["message"])
	})
}

func TestUpdateMeal(t *testing.T) {
	t.Run("replacing the image removes the old file", func(t *testing.T) {
		mock := setupMock(t)
		images := &fakeImages{}
		mock.ExpectQuery("WHERE m.id").WithArgs(int64(8)).
			WillReturnRows(sqlmock.NewRows(mealCols).AddRow(mealRow(8, "Non", "/uploads/old.png", 3000)...))
		mock.ExpectQuery("UPDATE meals").
			WillReturnRows(sqlmock.NewRows(mealCols).AddRow(mealRow(8, "Non", "/uploads/new.png", 3500)...))

		fields := map[string]string{"name": "Non", "price": "3500", "category_id": "4"}
		rec, _ := serve(t, newRouter(images), multipartMeal(t, http.MethodPut, "/meals/8", fields, []byte("png")))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"/uploads/old.png"}, images.removed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing meal", func(t *testing.T) {
		mock := setupMock(t)
		mock.ExpectQuery("WHERE m.id").WillReturnRows(sqlmock.NewRows(mealCols))

		rec, body := serve(t, newRouter(&fakeImages{}),
			jsonRequest(http.MethodPut, "/meals/8", `{"name":"Non","price":1,"category_id":4}`))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "meal not found", body["message"])
	})
}

func TestDeleteMeal(t *testing.T) {
	mock := setupMock(t)
	images := &fakeImages{}
	mock.ExpectQuery("DELETE FROM meals").WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"image"}).AddRow("/uploads/old.png"))
	mock.ExpectQuery("DELETE FROM meals").WithArgs(int64(9)).
		WillReturnError(errors.New("connection reset"))

	router := newRouter(images)
	rec, _ := serve(t, router, httptest.NewRequest(http.MethodDelete, "/meals/8", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"/uploads/old.png"}, images.removed)

	rec, body := serve(t, router, httptest.NewRequest(http.MethodDelete, "/meals/9", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "connection reset", body["error"])
}

func TestFormIngredients(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, formIngredients([]string{"a", "b"}, nil))
	assert.Equal(t, []string{"a", "b"}, formIngredients(nil, []string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, formIngredients([]string{`["a","b"]`}, nil))
	assert.Equal(t, []string{"Tuz, murch"}, formIngredients([]string{"Tuz, murch"}, nil))
	assert.Equal(t, []string{"Tuz, murch", "Sabzi"}, formIngredients([]string{`["Tuz, murch","Sabzi"]`}, nil))
	assert.Empty(t, formIngredients(nil, nil))
}

func TestHealthReportsDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	prev := database.Restro
	database.Restro = db
	defer func() { database.Restro = prev; db.Close() }()

	mock.ExpectPing()
	rec, body := serve(t, http.HandlerFunc(Health), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "up", body["database"])

	mock.ExpectPing().WillReturnError(errors.New("down"))
	rec, body = serve(t, http.HandlerFunc(Health), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "down", body["database"])
}
