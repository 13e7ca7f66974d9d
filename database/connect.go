package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"svend-go-be/models"
)

// Connect opens the Postgres connection and runs migrations.
func Connect(dsn string) (*gorm.DB, error) {
	if !strings.Contains(dsn, "sslmode") {
		dsn += "?sslmode=require" // Fixes Supabase connection refusal
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	log.Println("Connected to database successfully")

	log.Println("Running migrations...")
	err = db.AutoMigrate(
		&models.Item{},
		&models.Account{},
		&models.Budget{},
		&models.BudgetFinAccount{},
		&models.CategoryGroup{},
		&models.Category{},
		&models.Transaction{},
		&models.Goal{},
		&models.SpendingPlanEntry{},
		&models.GoalTracking{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	log.Println("Database migrated successfully")

	return db, nil
}

// builtinTaxonomy is the seeded category set: group name -> category name ->
// discretionary flag. Budgets can add their own groups/categories on top;
// these rows are never mutated by the application.
var builtinTaxonomy = map[string]map[string]bool{
	"Income": {
		"Salary":       false,
		"Other Income": false,
	},
	"Essentials": {
		"Rent & Mortgage": false,
		"Utilities":       false,
		"Groceries":       false,
		"Insurance":       false,
		"Medical":         false,
		"Transportation":  false,
		"Loan Payments":   false,
	},
	"Lifestyle": {
		"Restaurants":   true,
		"Entertainment": true,
		"Shopping":      true,
		"Travel":        true,
		"Subscriptions": true,
		"Personal Care": true,
	},
	"Financial": {
		"Savings Transfer": false,
		"Investments":      false,
		"Charity":          true,
		"Fees & Charges":   true,
	},
}

// Seed inserts the built-in category taxonomy if missing. Safe to run on
// every start.
func Seed(db *gorm.DB) error {
	for groupName, cats := range builtinTaxonomy {
		var group models.CategoryGroup
		err := db.Where("name = ? AND budget_id IS NULL", groupName).
			FirstOrCreate(&group, models.CategoryGroup{Name: groupName}).Error
		if err != nil {
			return fmt.Errorf("seed group %q: %w", groupName, err)
		}
		for catName, discretionary := range cats {
			var cat models.Category
			err := db.Where("name = ? AND group_id = ?", catName, group.ID).
				FirstOrCreate(&cat, models.Category{
					GroupID:       group.ID,
					Name:          catName,
					Discretionary: discretionary,
					Weight:        1,
				}).Error
			if err != nil {
				return fmt.Errorf("seed category %q: %w", catName, err)
			}
		}
	}
	log.Println("Category taxonomy seeded")
	return nil
}
