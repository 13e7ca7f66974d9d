package normalize

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"svend-go-be/models"
	"svend-go-be/plaid"
)

func linkedAccount() *models.Account {
	itemID := uuid.New()
	plaidID := "acc-1"
	return &models.Account{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		ItemID:         &itemID,
		PlaidAccountID: &plaidID,
		Currency:       "USD",
	}
}

func manualAccount() *models.Account {
	return &models.Account{ID: uuid.New(), UserID: uuid.New(), Currency: "USD"}
}

func TestAccountType(t *testing.T) {
	cases := []struct{ in, want string }{
		{"depository", models.AccountTypeDepository},
		{"Checking", models.AccountTypeDepository},
		{"CREDIT", models.AccountTypeCredit},
		{"loan", models.AccountTypeLoan},
		{"brokerage", models.AccountTypeInvestment},
		{"crypto wallet", models.AccountTypeOther},
		{"", models.AccountTypeOther},
	}
	for _, c := range cases {
		if got := AccountType(c.in); got != c.want {
			t.Errorf("AccountType(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFromPlaid(t *testing.T) {
	acc := linkedAccount()
	raw := plaid.RawTransaction{
		TransactionID: "ptx-1",
		AccountID:     "acc-1",
		Date:          "2026-03-14",
		Amount:        42.50,
		Name:          "COFFEE SHOP 0042",
		Pending:       true,
		Category:      "Food and Drink",
	}
	tx, err := FromPlaid(raw, acc, nil)
	if err != nil {
		t.Fatalf("FromPlaid: %v", err)
	}
	if tx.UserTxID != "ptx-1" {
		t.Errorf("UserTxID = %q, want ptx-1", tx.UserTxID)
	}
	if tx.PlaidTxID == nil || *tx.PlaidTxID != "ptx-1" {
		t.Error("PlaidTxID not carried through")
	}
	if tx.Status != models.StatusPending {
		t.Errorf("Status = %q, want pending", tx.Status)
	}
	if tx.Currency != "USD" {
		t.Errorf("Currency = %q, want account fallback USD", tx.Currency)
	}
	if tx.Merchant != "COFFEE SHOP 0042" {
		t.Errorf("Merchant = %q, want name fallback", tx.Merchant)
	}
	if tx.PlaidCategory == nil || *tx.PlaidCategory != "Food and Drink" {
		t.Error("external category label must be carried verbatim")
	}
	if tx.CategoryID != nil {
		t.Error("CategoryID must stay nil until the mapper pass")
	}
	if tx.AccountID == nil || *tx.AccountID != acc.ID {
		t.Error("linked account lineage not set")
	}
	if tx.ManualAccountID != nil {
		t.Error("manual lineage must stay nil for linked accounts")
	}
	if tx.Raw == "" {
		t.Error("raw payload must be retained")
	}
	if !tx.Date.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", tx.Date)
	}
}

func TestFromPlaidBadDate(t *testing.T) {
	_, err := FromPlaid(plaid.RawTransaction{TransactionID: "x", Date: "14/03/2026"}, linkedAccount(), nil)
	if err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestFromManualDefaults(t *testing.T) {
	acc := manualAccount()
	budget := models.Budget{ID: uuid.New(), Currency: "EUR"}
	tx := FromManual(ManualEntry{
		Date:     time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		Amount:   -1200,
		Merchant: "Employer",
	}, acc, budget)

	if tx.UserTxID == "" {
		t.Error("UserTxID must be generated when absent")
	}
	if tx.Currency != "EUR" {
		t.Errorf("Currency = %q, want budget base EUR", tx.Currency)
	}
	if tx.Status != models.StatusPosted {
		t.Errorf("Status = %q, want posted default", tx.Status)
	}
	if tx.ManualAccountID == nil || *tx.ManualAccountID != acc.ID {
		t.Error("manual account lineage not set")
	}
	if tx.AccountID != nil {
		t.Error("linked lineage must stay nil for manual accounts")
	}
	if tx.BudgetID == nil || *tx.BudgetID != budget.ID {
		t.Error("budget provenance not set")
	}
}

func TestFromCSV(t *testing.T) {
	acc := manualAccount()
	budget := models.Budget{ID: uuid.New(), Currency: "USD"}
	catID := uuid.New()
	tx := FromCSV(CSVEntry{
		UserTxID:   "ABC123",
		Date:       time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Amount:     19.99,
		Merchant:   "Bookstore",
		CategoryID: catID,
	}, acc, budget)

	if tx.UserTxID != "ABC123" {
		t.Errorf("UserTxID = %q", tx.UserTxID)
	}
	if tx.Status != models.StatusPosted {
		t.Errorf("Status = %q, want posted default", tx.Status)
	}
	if tx.CategoryID == nil || *tx.CategoryID != catID {
		t.Error("resolved category not set")
	}
	if tx.Currency != "USD" {
		t.Errorf("Currency = %q, want budget base", tx.Currency)
	}
}
