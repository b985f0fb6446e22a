package dbhelper

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/menu/database"
	"github.com/ray-remotestate/menu/models"
)

type sampleMeal struct {
	models.MealRecord
	category string
}

func strPtr(s string) *string { return &s }

var sampleCategories = []string{
	"Milliy taomlar",
	"Go'sht taomlar",
	"Sho'rvalar",
	"Non mahsulotlari",
	"Salatlar",
	"Ichimliklar",
}

var sampleMeals = []sampleMeal{
	{
		category: "Milliy taomlar",
		MealRecord: models.MealRecord{
			Name:        "O'sh (Palov)",
			Image:       strPtr("https://images.unsplash.com/photo-1589302168068-964664d93dc0?w=800&q=80"),
			Description: "Rice pilaf cooked with lamb, carrots and chickpeas.",
			Price:       25000,
			Ingredients: []string{"Guruch", "Qo'y go'shti", "Sabzi", "Piyoz", "Noxat", "Zira", "Yog'"},
		},
	},
	{
		category: "Go'sht taomlar",
		MealRecord: models.MealRecord{
			Name:        "Shashlik",
			Image:       strPtr("https://images.unsplash.com/photo-1555939594-58d7cb561ad1?w=800&q=80"),
			Description: "Charcoal grilled lamb skewers served with onion and bread.",
			Price:       30000,
			Ingredients: []string{"Qo'y go'shti", "Piyoz", "Ziravorlar", "Sirka", "Tuz"},
		},
	},
	{
		category: "Sho'rvalar",
		MealRecord: models.MealRecord{
			Name:        "Lag'mon",
			Image:       strPtr("https://images.unsplash.com/photo-1569718212165-3a8278d5f624?w=800&q=80"),
			Description: "Hand pulled noodles in a meat and vegetable broth.",
			Price:       22000,
			Ingredients: []string{"Qo'l lag'mon", "Go'sht", "Sabzavotlar", "Kartoshka", "Bulg'or qalampiri", "Sarimsoq"},
		},
	},
}

// SeedSampleMenu inserts the sample categories and, when the meals table is
// empty, the sample meals. Running it twice changes nothing.
func SeedSampleMenu(ctx context.Context) error {
	return database.Tx(ctx, func(tx *sql.Tx) error {
		for i, name := range sampleCategories {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO categories (name, order_number) VALUES ($1, $2)
				ON CONFLICT (name) DO NOTHING`, name, i+1); err != nil {
				return err
			}
		}

		var mealCount int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM meals`).Scan(&mealCount); err != nil {
			return err
		}
		if mealCount > 0 {
			logrus.Debug("meals already present, skipping sample meals")
			return nil
		}

		for _, meal := range sampleMeals {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO meals (name, image, description, price, category_id, category, ingredients)
				SELECT $1, $2, $3, $4, c.id, c.name, $5
				FROM categories c WHERE c.name = $6`,
				meal.Name, meal.Image, meal.Description, meal.Price, pq.Array(meal.Ingredients), meal.category); err != nil {
				return err
			}
		}
		logrus.Infof("seeded %d sample meals", len(sampleMeals))
		return nil
	})
}
