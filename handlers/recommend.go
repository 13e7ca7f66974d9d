package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"svend-go-be/models"
	"svend-go-be/onboarding"
)

// AnalyzeSpending runs the full spending-analysis pipeline for a budget:
// sync every linked item, recompute the three recommendation postures, and
// persist the snapshot. A budget already mid-analysis gets a conflict, not a
// second run.
func (h *Handler) AnalyzeSpending(c *fiber.Ctx) error {
	if _, err := userID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}
	budgetID, err := parseParamID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid budget id"})
	}

	analyzer := onboarding.NewAnalyzer(h.Store, h.Plaid)
	res, err := analyzer.Run(c.Context(), budgetID)
	if errors.Is(err, onboarding.ErrInProgress) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Analysis already running"})
	}
	if err != nil {
		// Full detail goes to the log; the caller gets a retryable summary.
		log.Printf("analyze spending for budget %s: %v", budgetID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Analysis failed; safe to retry"})
	}

	statuses := make([]ItemSyncStatus, len(res.SyncResults))
	for i, r := range res.SyncResults {
		statuses[i] = ItemSyncStatus{
			ItemID:          r.ItemID,
			PlaidItemID:     r.PlaidItemID,
			NewTransactions: r.NewTransactions,
			Duplicates:      r.Duplicates,
			Cursor:          r.Cursor,
		}
	}

	return c.JSON(fiber.Map{
		"sync":           statuses,
		"recommendation": res.Recommendation,
	})
}

// GetRecommendations reads back the persisted snapshot, grouped by posture.
func (h *Handler) GetRecommendations(c *fiber.Ctx) error {
	if _, err := userID(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}
	budgetID, err := parseParamID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid budget id"})
	}

	entries, trackings, err := h.Store.SpendingPlanForBudget(c.Context(), budgetID)
	if err != nil {
		log.Printf("load spending plan for budget %s: %v", budgetID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load recommendations"})
	}

	spending := make(map[string][]models.SpendingPlanEntry)
	for _, e := range entries {
		spending[e.Posture] = append(spending[e.Posture], e)
	}
	goalTrackings := make(map[string][]models.GoalTracking)
	for _, tr := range trackings {
		goalTrackings[tr.Posture] = append(goalTrackings[tr.Posture], tr)
	}

	return c.JSON(fiber.Map{
		"spending":       spending,
		"goal_trackings": goalTrackings,
	})
}
