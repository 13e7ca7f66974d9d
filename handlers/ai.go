package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"google.golang.org/genai"
)

// AISuggestion represents the structure we expect from Gemini.
type AISuggestion struct {
	TransactionID string `json:"transaction_id"`
	Category      string `json:"category"`
	Merchant      string `json:"merchant"`
}

// AnalyzeUncategorized asks Gemini to propose internal categories for
// transactions the mapper could not resolve. Suggestions are returned to the
// caller for review; nothing is written until the user accepts one through
// the recategorize endpoint.
func (h *Handler) AnalyzeUncategorized(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}
	budgetID, err := uuid.Parse(c.Query("budget_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "budget_id query parameter required"})
	}

	log.Printf("Starting AI analysis for user: %s", uid)

	ctx := c.Context()
	// Limit to 50 to avoid token limits and ensure speed
	txns, err := h.Store.UncategorizedForUser(ctx, uid, 50)
	if err != nil {
		log.Printf("Error fetching transactions: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch transactions"})
	}
	if len(txns) == 0 {
		return c.JSON(fiber.Map{
			"message":     "No uncategorized transactions found",
			"suggestions": []AISuggestion{},
		})
	}

	cats, err := h.Store.CategoriesForBudget(ctx, budgetID)
	if err != nil {
		log.Printf("Error fetching categories: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch categories"})
	}
	names := make([]string, 0, len(cats))
	for _, cat := range cats {
		if !cat.Composite {
			names = append(names, cat.Name)
		}
	}

	log.Printf("Found %d uncategorized transactions", len(txns))

	// Construct the prompt
	var promptBuilder strings.Builder
	promptBuilder.WriteString("You are a financial analyst. Analyze these bank transactions. \n")
	promptBuilder.WriteString("Return a RAW JSON ARRAY of objects. Do NOT use markdown formatting. \n")
	promptBuilder.WriteString("Each object must have: 'transaction_id', 'category' (one of: ")
	promptBuilder.WriteString(strings.Join(names, ", "))
	promptBuilder.WriteString("), and 'merchant' (clean name).\n\n")

	for _, t := range txns {
		label := ""
		if t.PlaidCategory != nil {
			label = *t.PlaidCategory
		}
		promptBuilder.WriteString(fmt.Sprintf(`{"transaction_id": "%s", "merchant": "%s", "provider_label": "%s", "amount": %.2f}`+"\n",
			t.ID, t.Merchant, label, t.Amount))
	}

	if h.Gemini.APIKey == "" {
		log.Println("Error: Gemini API key not set")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Gemini API key not set"})
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: h.Gemini.APIKey})
	if err != nil {
		log.Printf("Error initializing AI client: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to init AI client"})
	}

	log.Println("Sending request to Gemini...")
	resp, err := client.Models.GenerateContent(ctx, h.Gemini.Model, genai.Text(promptBuilder.String()), nil)
	if err != nil {
		log.Printf("Error during AI generation: %v", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "AI generation failed"})
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		log.Println("Error: Empty response from AI")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Empty response from AI"})
	}

	rawText := ""
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			rawText += part.Text
		}
	}

	// Clean Markdown if present (Gemini loves adding ```json ... ```)
	rawText = strings.TrimSpace(rawText)
	rawText = strings.TrimPrefix(rawText, "```json")
	rawText = strings.TrimPrefix(rawText, "```")
	rawText = strings.TrimSuffix(rawText, "```")

	var suggestions []AISuggestion
	if err := json.Unmarshal([]byte(rawText), &suggestions); err != nil {
		log.Printf("Error parsing AI response: %v. Raw text: %s", err, rawText)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to parse AI response"})
	}

	log.Printf("Successfully parsed %d suggestions", len(suggestions))

	return c.JSON(fiber.Map{
		"count":       len(suggestions),
		"suggestions": suggestions,
	})
}
