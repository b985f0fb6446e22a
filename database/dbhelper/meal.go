package dbhelper

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/ray-remotestate/menu/database"
	"github.com/ray-remotestate/menu/models"
)

// Meals are always read joined to their category so the name in responses
// follows renames.
const mealColumns = `m.id, m.name, m.image, m.description, m.price, m.category_id, c.name,
	m.ingredients, m.order_number, m.created_at, m.updated_at`

func scanMeal(row rowScanner) (*models.Meal, error) {
	var (
		m     models.Meal
		image sql.NullString
	)
	err := row.Scan(&m.ID, &m.Name, &image, &m.Description, &m.Price, &m.CategoryID, &m.Category,
		pq.Array(&m.Ingredients), &m.OrderNumber, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if image.Valid {
		m.Image = &image.String
	}
	if m.Ingredients == nil {
		m.Ingredients = []string{}
	}
	return &m, nil
}

// ListMeals returns meals newest first. A non-nil categoryID restricts the
// result to that category.
func ListMeals(ctx context.Context, categoryID *int64) ([]models.Meal, error) {
	rows, err := database.Restro.QueryContext(ctx, `
		SELECT `+mealColumns+`
		FROM meals m
		JOIN categories c ON c.id = m.category_id
		WHERE $1::BIGINT IS NULL OR m.category_id = $1
		ORDER BY m.created_at DESC, m.id DESC`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meals := make([]models.Meal, 0)
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, err
		}
		meals = append(meals, *m)
	}
	return meals, rows.Err()
}

func GetMeal(ctx context.Context, id int64) (*models.Meal, error) {
	m, err := scanMeal(database.Restro.QueryRowContext(ctx, `
		SELECT `+mealColumns+`
		FROM meals m
		JOIN categories c ON c.id = m.category_id
		WHERE m.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

func CreateMeal(ctx context.Context, rec models.MealRecord) (*models.Meal, error) {
	m, err := scanMeal(database.Restro.QueryRowContext(ctx, `
		WITH m AS (
			INSERT INTO meals (name, image, description, price, category_id, category, ingredients, order_number)
			VALUES ($1, NULLIF($2, ''), $3, $4, $5, (SELECT name FROM categories WHERE id = $5), $6, $7)
			RETURNING *
		)
		SELECT `+mealColumns+`
		FROM m
		JOIN categories c ON c.id = m.category_id`,
		rec.Name, rec.Image, rec.Description, rec.Price, rec.CategoryID, pq.Array(rec.Ingredients), rec.OrderNumber))
	if isPQError(err, pqForeignKeyViolation) {
		return nil, ErrUnknownCategory
	}
	if isPQError(err, pqNumericOutOfRange) {
		return nil, ErrOutOfRange
	}
	return m, err
}

// UpdateMeal replaces every field of the meal. A nil rec.Image keeps the
// stored image and an empty one clears it.
func UpdateMeal(ctx context.Context, id int64, rec models.MealRecord) (*models.Meal, error) {
	m, err := scanMeal(database.Restro.QueryRowContext(ctx, `
		WITH m AS (
			UPDATE meals
			SET name = $1,
				image = NULLIF(COALESCE($2, image), ''),
				description = $3,
				price = $4,
				category_id = $5,
				category = (SELECT name FROM categories WHERE id = $5),
				ingredients = $6,
				order_number = $7,
				updated_at = now()
			WHERE id = $8
			RETURNING *
		)
		SELECT `+mealColumns+`
		FROM m
		JOIN categories c ON c.id = m.category_id`,
		rec.Name, rec.Image, rec.Description, rec.Price, rec.CategoryID, pq.Array(rec.Ingredients), rec.OrderNumber, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if isPQError(err, pqForeignKeyViolation) {
		return nil, ErrUnknownCategory
	}
	if isPQError(err, pqNumericOutOfRange) {
		return nil, ErrOutOfRange
	}
	return m, err
}

// DeleteMeal removes the meal and returns the image it referenced, if any.
func DeleteMeal(ctx context.Context, id int64) (*string, error) {
	var image sql.NullString
	err := database.Restro.QueryRowContext(ctx, `DELETE FROM meals WHERE id = $1 RETURNING image`, id).Scan(&image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !image.Valid {
		return nil, nil
	}
	return &image.String, nil
}
