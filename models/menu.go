package models

import (
	"time"
)

type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	OrderNumber int       `db:"order_number" json:"order_number"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Meal.Category is resolved from CategoryID on every read; the stored
// meals.category column only exists for older clients.
type Meal struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Image       *string   `db:"image" json:"image"`
	Description string    `db:"description" json:"description"`
	Price       int64     `db:"price" json:"price"`
	CategoryID  int64     `db:"category_id" json:"category_id"`
	Category    string    `db:"category" json:"category"`
	Ingredients []string  `db:"ingredients" json:"ingredients"`
	OrderNumber int       `db:"order_number" json:"order_number"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	OrderNumber *int   `json:"order_number" validate:"omitempty,gte=0,lte=2147483647"`
}

// MealInput is the decoded create/update payload. Pointer fields tell
// "absent" apart from the zero value, which matters for a free meal.
type MealInput struct {
	Name         string   `json:"name" validate:"required,max=255"`
	Image        *string  `json:"image" validate:"omitempty,max=500"`
	Description  string   `json:"description"`
	Price        *int64   `json:"price" validate:"required,gte=0,lte=2147483647"`
	CategoryID   *int64   `json:"category_id" validate:"omitempty,gt=0"`
	CategoryName string   `json:"category" validate:"required_without=CategoryID,max=100"`
	Ingredients  []string `json:"ingredients" validate:"dive,max=255"`
	OrderNumber  *int     `json:"order_number" validate:"omitempty,gte=0,lte=2147483647"`
}

// MealRecord is a validated MealInput with the category resolved to an id.
type MealRecord struct {
	Name        string
	Image       *string
	Description string
	Price       int64
	CategoryID  int64
	Ingredients []string
	OrderNumber int
}
