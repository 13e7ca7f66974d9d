package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"svend-go-be/categories"
	"svend-go-be/csvimport"
)

// ImportCSV ingests a transaction CSV for a budget (multipart field "file").
// Invalid rows are skipped individually and reported back; only a missing
// file or a bad header aborts the import.
func (h *Handler) ImportCSV(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}
	budgetID, err := uuid.Parse(c.FormValue("budget_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "budget_id is required"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "CSV file is required in field 'file'"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		log.Printf("open upload %s: %v", fileHeader.Filename, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read upload"})
	}
	defer file.Close()

	ctx := c.Context()
	budget, err := h.Store.BudgetByID(ctx, budgetID)
	if err != nil {
		if notFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Budget not found"})
		}
		log.Printf("load budget %s: %v", budgetID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load budget"})
	}
	cats, err := h.Store.CategoriesForBudget(ctx, budgetID)
	if err != nil {
		log.Printf("load categories for budget %s: %v", budgetID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load categories"})
	}

	importer := csvimport.New(h.Store, h.Store, categories.NewMapper(cats))
	report, err := importer.Import(ctx, file, *budget, uid)
	if errors.Is(err, csvimport.ErrPersist) {
		log.Printf("import csv %s: %v", fileHeader.Filename, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save transactions; safe to retry"})
	}
	if err != nil {
		log.Printf("import csv %s: %v", fileHeader.Filename, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(report)
}
