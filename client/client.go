// Package client is a Go client for the menu REST API. It attaches the
// stored admin token to every request and turns error envelopes into
// *APIError values.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ray-remotestate/menu/models"
)

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("menu api: %d %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenStore
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTokenStore(s TokenStore) Option {
	return func(c *Client) { c.tokens = s }
}

// New returns a client for baseURL, e.g. "https://api.example.com/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     NewMemoryStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ImageUpload switches meal create/update to a multipart request.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Admin     models.Identity `json:"admin"`
}

type HealthStatus struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Database string `json:"database"`
}

// Login stores the returned token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var res LoginResult
	body := models.LoginRequest{Username: username, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return nil, err
	}
	if err := c.tokens.SetToken(res.Token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return &res, nil
}

// Logout forgets the token locally. Tokens are stateless, so the server is not called.
func (c *Client) Logout() error {
	return c.tokens.Clear()
}

func (c *Client) Verify(ctx context.Context) (*models.Identity, error) {
	var res struct {
		Admin models.Identity `json:"admin"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/auth/verify", nil, &res); err != nil {
		return nil, err
	}
	return &res.Admin, nil
}

func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var res HealthStatus
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var res struct {
		Categories []models.Category `json:"categories"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/categories", nil, &res); err != nil {
		return nil, err
	}
	return res.Categories, nil
}

func (c *Client) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	return c.categoryCall(ctx, http.MethodGet, categoryPath(id), nil)
}

func (c *Client) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	return c.categoryCall(ctx, http.MethodPost, "/categories", in)
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, in models.CategoryInput) (*models.Category, error) {
	return c.categoryCall(ctx, http.MethodPut, categoryPath(id), in)
}

func (c *Client) DeleteCategory(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, categoryPath(id), nil, nil)
}

// ListMeals returns meals newest first; a categoryID of 0 lists every category.
func (c *Client) ListMeals(ctx context.Context, categoryID int64) ([]models.Meal, error) {
	path := "/meals"
	if categoryID > 0 {
		path += "?" + url.Values{"category_id": {strconv.FormatInt(categoryID, 10)}}.Encode()
	}

	var res struct {
		Meals []models.Meal `json:"meals"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res.Meals, nil
}

func (c *Client) GetMeal(ctx context.Context, id int64) (*models.Meal, error) {
	return c.mealCall(ctx, http.MethodGet, mealPath(id), nil, nil)
}

func (c *Client) CreateMeal(ctx context.Context, in models.MealInput, image *ImageUpload) (*models.Meal, error) {
	return c.mealCall(ctx, http.MethodPost, "/meals", &in, image)
}

func (c *Client) UpdateMeal(ctx context.Context, id int64, in models.MealInput, image *ImageUpload) (*models.Meal, error) {
	return c.mealCall(ctx, http.MethodPut, mealPath(id), &in, image)
}

func (c *Client) DeleteMeal(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, mealPath(id), nil, nil)
}

func categoryPath(id int64) string { return "/categories/" + strconv.FormatInt(id, 10) }

func mealPath(id int64) string { return "/meals/" + strconv.FormatInt(id, 10) }

func (c *Client) categoryCall(ctx context.Context, method, path string, in interface{}) (*models.Category, error) {
	var res struct {
		Category models.Category `json:"category"`
	}
	if err := c.doJSON(ctx, method, path, in, &res); err != nil {
		return nil, err
	}
	return &res.Category, nil
}

func (c *Client) mealCall(ctx context.Context, method, path string, in *models.MealInput, image *ImageUpload) (*models.Meal, error) {
	var res struct {
		Meal models.Meal `json:"meal"`
	}

	var err error
	if image != nil {
		body, contentType, buildErr := mealMultipart(in, image)
		if buildErr != nil {
			return nil, buildErr
		}
		err = c.do(ctx, method, path, body, contentType, &res)
	} else if in != nil {
		err = c.doJSON(ctx, method, path, in, &res)
	} else {
		err = c.doJSON(ctx, method, path, nil, &res)
	}
	if err != nil {
		return nil, err
	}
	return &res.Meal, nil
}

// mealMultipart encodes the meal as form fields plus an "image" file part.
// The content type carries the boundary and replaces the JSON one.
func mealMultipart(in *models.MealInput, image *ImageUpload) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	fields := map[string]string{
		"name":        in.Name,
		"description": in.Description,
		"category":    in.CategoryName,
	}
	if in.Price != nil {
		fields["price"] = strconv.FormatInt(*in.Price, 10)
	}
	if in.CategoryID != nil {
		fields["category_id"] = strconv.FormatInt(*in.CategoryID, 10)
	}
	if in.OrderNumber != nil {
		fields["order_number"] = strconv.Itoa(*in.OrderNumber)
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := mw.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}
	if len(in.Ingredients) > 0 {
		// one JSON array field keeps commas inside an ingredient intact
		ingredients, err := json.Marshal(in.Ingredients)
		if err != nil {
			return nil, "", err
		}
		if err := mw.WriteField("ingredients", string(ingredients)); err != nil {
			return nil, "", err
		}
	}

	filename := image.Filename
	if filename == "" {
		filename = "image"
	}
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, image.Content); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return buf, mw.FormDataContentType(), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	if in == nil {
		return c.do(ctx, method, path, nil, "", out)
	}
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, bytes.NewReader(data), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
