package dbhelper

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ray-remotestate/menu/database"
	"github.com/ray-remotestate/menu/models"
)

const categoryColumns = `id, name, order_number, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCategory(row rowScanner) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.OrderNumber, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCategories returns categories in display order: order_number, then name.
func ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := database.Restro.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		ORDER BY order_number ASC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c, err := scanCategory(database.Restro.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// GetCategoryByName backs the legacy "category" name field on meal payloads.
func GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	c, err := scanCategory(database.Restro.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM categories WHERE name = $1`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func CreateCategory(ctx context.Context, name string, orderNumber int) (*models.Category, error) {
	c, err := scanCategory(database.Restro.QueryRowContext(ctx, `
		INSERT INTO categories (name, order_number) VALUES ($1, $2)
		RETURNING `+categoryColumns, name, orderNumber))
	if isPQError(err, pqUniqueViolation) {
		return nil, ErrDuplicateName
	}
	if isPQError(err, pqNumericOutOfRange) {
		return nil, ErrOutOfRange
	}
	return c, err
}

// UpdateCategory also rewrites the denormalised name on the category's meals.
// A nil orderNumber keeps the stored value.
func UpdateCategory(ctx context.Context, id int64, name string, orderNumber *int) (*models.Category, error) {
	var updated *models.Category
	err := database.Tx(ctx, func(tx *sql.Tx) error {
		c, err := scanCategory(tx.QueryRowContext(ctx, `
			UPDATE categories
			SET name = $1, order_number = COALESCE($2, order_number), updated_at = now()
			WHERE id = $3
			RETURNING `+categoryColumns, name, orderNumber, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE meals SET category = $1
			WHERE category_id = $2 AND category IS DISTINCT FROM $1`, c.Name, id); err != nil {
			return err
		}

		updated = c
		return nil
	})
	if isPQError(err, pqUniqueViolation) {
		return nil, ErrDuplicateName
	}
	if isPQError(err, pqNumericOutOfRange) {
		return nil, ErrOutOfRange
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func CountMealsInCategory(ctx context.Context, exec rowQuerier, id int64) (int, error) {
	var count int
	err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM meals WHERE category_id = $1`, id).Scan(&count)
	return count, err
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DeleteCategory refuses to delete a category that meals still point at.
// The meal count is checked explicitly before deleting.
func DeleteCategory(ctx context.Context, id int64) error {
	err := database.Tx(ctx, func(tx *sql.Tx) error {
		count, err := CountMealsInCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrCategoryInUse
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if isPQError(err, pqForeignKeyViolation) {
		return ErrCategoryInUse
	}
	return err
}
