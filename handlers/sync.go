package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"svend-go-be/categories"
	"svend-go-be/models"
	"svend-go-be/normalize"
	"svend-go-be/syncer"
)

// ExchangeRequest is the payload for completing the link flow.
type ExchangeRequest struct {
	PublicToken string     `json:"public_token"`
	BudgetID    *uuid.UUID `json:"budget_id,omitempty"`
}

// PlaidExchange trades a public token for durable credentials and persists
// the item with its accounts (and budget links) atomically.
func (h *Handler) PlaidExchange(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var req ExchangeRequest
	if err := c.BodyParser(&req); err != nil || req.PublicToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ctx := c.Context()
	exchange, err := h.Plaid.ExchangePublicToken(ctx, req.PublicToken)
	if err != nil {
		log.Printf("exchange public token: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to exchange token"})
	}

	rawAccounts, err := h.Plaid.GetAccounts(ctx, exchange.AccessToken)
	if err != nil {
		log.Printf("fetch accounts for item %s: %v", exchange.ItemID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to fetch accounts"})
	}

	institution := ""
	bankSymbol := ""
	if inst, err := h.Plaid.GetInstitution(ctx, exchange.AccessToken); err != nil {
		// Descriptive metadata only; linking proceeds without it.
		log.Printf("fetch institution for item %s: %v", exchange.ItemID, err)
	} else {
		institution = inst.Name
		bankSymbol = inst.Symbol
	}

	item := models.Item{
		UserID:      uid,
		PlaidItemID: exchange.ItemID,
		AccessToken: exchange.AccessToken,
		Cursor:      "",
		Institution: institution,
	}
	accounts := make([]models.Account, 0, len(rawAccounts))
	for _, ra := range rawAccounts {
		plaidAccID := ra.AccountID
		name := ra.Name
		if name == "" {
			name = ra.OfficialName
		}
		accounts = append(accounts, models.Account{
			PlaidAccountID:   &plaidAccID,
			Name:             name,
			Type:             normalize.AccountType(ra.Type),
			Mask:             ra.Mask,
			CurrentBalance:   ra.CurrentBalance,
			AvailableBalance: ra.AvailableBalance,
			Currency:         ra.ISOCurrencyCode,
			BankName:         institution,
			BankSymbol:       bankSymbol,
		})
	}

	if err := h.Store.CreateLinkedItem(ctx, &item, accounts, req.BudgetID); err != nil {
		log.Printf("persist item %s: %v", exchange.ItemID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save connection"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"item":     item,
		"accounts": accounts,
	})
}

// SyncRequest selects which budget's items to sync.
type SyncRequest struct {
	BudgetID uuid.UUID `json:"budget_id"`
}

// ItemSyncStatus is one item's outcome in the sync response.
type ItemSyncStatus struct {
	ItemID          uuid.UUID `json:"item_id"`
	PlaidItemID     string    `json:"plaid_item_id"`
	NewTransactions int       `json:"new_transactions"`
	Duplicates      int       `json:"duplicates"`
	Cursor          string    `json:"cursor"`
	Error           string    `json:"error,omitempty"`
}

// PlaidSync runs an incremental sync across all of a budget's items. Items
// are independent: results report each one's success or failure separately.
func (h *Handler) PlaidSync(c *fiber.Ctx) error {
	if _, err := userID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var req SyncRequest
	if err := c.BodyParser(&req); err != nil || req.BudgetID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ctx := c.Context()
	items, err := h.Store.ItemsForBudget(ctx, req.BudgetID)
	if err != nil {
		log.Printf("load items for budget %s: %v", req.BudgetID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load connections"})
	}
	cats, err := h.Store.CategoriesForBudget(ctx, req.BudgetID)
	if err != nil {
		log.Printf("load categories for budget %s: %v", req.BudgetID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load categories"})
	}

	engine := syncer.New(h.Plaid, h.Store, categories.NewMapper(cats))
	results := engine.SyncAll(ctx, items, &req.BudgetID)

	statuses := make([]ItemSyncStatus, len(results))
	failed := 0
	for i, r := range results {
		statuses[i] = ItemSyncStatus{
			ItemID:          r.ItemID,
			PlaidItemID:     r.PlaidItemID,
			NewTransactions: r.NewTransactions,
			Duplicates:      r.Duplicates,
			Cursor:          r.Cursor,
		}
		if r.Err != nil {
			log.Printf("sync: %v", r.Err)
			statuses[i].Error = "sync failed; safe to retry"
			failed++
		}
	}

	return c.JSON(fiber.Map{
		"items":  statuses,
		"failed": failed,
	})
}

// PlaidDisconnect removes an item; its accounts and transactions cascade.
func (h *Handler) PlaidDisconnect(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}
	itemID, err := parseParamID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid item id"})
	}

	if err := h.Store.DeleteItem(c.Context(), itemID, uid); err != nil {
		if notFound(err) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Connection not found"})
		}
		log.Printf("delete item %s: %v", itemID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to disconnect"})
	}
	return c.JSON(fiber.Map{"message": "Connection removed"})
}
