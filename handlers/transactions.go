package handlers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"svend-go-be/models"
	"svend-go-be/normalize"
)

// ManualTransactionRequest is a user-entered transaction.
type ManualTransactionRequest struct {
	BudgetID   uuid.UUID  `json:"budget_id"`
	AccountID  uuid.UUID  `json:"account_id"`
	UserTxID   string     `json:"user_tx_id,omitempty"`
	Date       time.Time  `json:"date"`
	Amount     float64    `json:"amount"`
	Currency   string     `json:"currency,omitempty"`
	Merchant   string     `json:"merchant"`
	Status     string     `json:"status,omitempty"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
}

// CreateManualTransaction normalizes and persists one manual entry through
// the same dedup path every source uses: a colliding user transaction id is
// reported as a duplicate, never overwritten.
func (h *Handler) CreateManualTransaction(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var req ManualTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Date.IsZero() || req.AccountID == uuid.Nil || req.BudgetID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "budget_id, account_id and date are required"})
	}

	ctx := c.Context()
	budget, err := h.Store.BudgetByID(ctx, req.BudgetID)
	if err != nil {
		if notFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Budget not found"})
		}
		log.Printf("load budget %s: %v", req.BudgetID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load budget"})
	}
	account, err := h.Store.AccountByID(ctx, req.AccountID, uid)
	if err != nil {
		if notFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
		}
		log.Printf("load account %s: %v", req.AccountID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load account"})
	}

	tx := normalize.FromManual(normalize.ManualEntry{
		UserTxID:   req.UserTxID,
		Date:       req.Date,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Merchant:   req.Merchant,
		Status:     req.Status,
		CategoryID: req.CategoryID,
		Tags:       req.Tags,
	}, account, *budget)

	inserted, duplicates, err := h.Store.InsertTransactions(ctx, []models.Transaction{tx})
	if err != nil {
		log.Printf("insert manual transaction: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save transaction"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"inserted":   inserted,
		"duplicates": duplicates,
		"user_tx_id": tx.UserTxID,
	})
}

// RecategorizeRequest reassigns a transaction's category.
type RecategorizeRequest struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	CategoryID    uuid.UUID `json:"category_id"`
}

// Recategorize updates one transaction's category and marks it user-edited.
// User edits are what the dedup key's first-seen rule protects: a later
// arrival of the same transaction from any source is skipped, not merged.
func (h *Handler) Recategorize(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var req RecategorizeRequest
	if err := c.BodyParser(&req); err != nil || req.TransactionID == uuid.Nil || req.CategoryID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ctx := c.Context()
	tx, err := h.Store.TransactionByID(ctx, req.TransactionID, uid)
	if err != nil {
		if notFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Transaction not found"})
		}
		log.Printf("load transaction %s: %v", req.TransactionID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load transaction"})
	}

	categoryID := req.CategoryID
	tx.CategoryID = &categoryID
	tx.UserEdited = true

	if err := h.Store.SaveTransaction(ctx, tx); err != nil {
		log.Printf("save transaction %s: %v", tx.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update transaction"})
	}
	return c.JSON(fiber.Map{"message": "Transaction updated successfully"})
}
