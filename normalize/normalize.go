// Package normalize converts raw records from the three ingestion sources
// (aggregator sync, manual entry, CSV import) into the canonical transaction
// shape. Every canonical field comes out populated or explicitly nil so the
// persistence layer sees one uniform write shape.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"svend-go-be/models"
	"svend-go-be/plaid"
)

const plaidDateFormat = "2006-01-02"

// AccountType maps a provider account type onto the closed internal enum.
// Unrecognized values become "other".
func AccountType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case models.AccountTypeDepository, "checking", "savings":
		return models.AccountTypeDepository
	case models.AccountTypeCredit, "credit card":
		return models.AccountTypeCredit
	case models.AccountTypeLoan:
		return models.AccountTypeLoan
	case models.AccountTypeInvestment, "brokerage":
		return models.AccountTypeInvestment
	default:
		return models.AccountTypeOther
	}
}

// linkAccount fills the mutually exclusive account lineage fields.
func linkAccount(tx *models.Transaction, account *models.Account) {
	id := account.ID
	if account.Manual() {
		tx.ManualAccountID = &id
	} else {
		tx.AccountID = &id
	}
}

// FromPlaid converts one aggregator transaction. The external category label
// is carried through verbatim; resolving it against the internal taxonomy is
// a separate pass so this stays a pure conversion.
func FromPlaid(raw plaid.RawTransaction, account *models.Account, budgetID *uuid.UUID) (models.Transaction, error) {
	date, err := time.Parse(plaidDateFormat, raw.Date)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %s: parse date %q: %w", raw.TransactionID, raw.Date, err)
	}

	status := models.StatusPosted
	if raw.Pending {
		status = models.StatusPending
	}

	currency := raw.ISOCurrencyCode
	if currency == "" {
		currency = account.Currency
	}

	merchant := raw.MerchantName
	if merchant == "" {
		merchant = raw.Name
	}

	plaidTxID := raw.TransactionID
	payload, _ := json.Marshal(raw)

	tx := models.Transaction{
		UserID:             account.UserID,
		UserTxID:           raw.TransactionID,
		PlaidTxID:          &plaidTxID,
		BudgetID:           budgetID,
		Date:               date,
		Amount:             raw.Amount,
		Currency:           currency,
		Merchant:           merchant,
		Status:             status,
		CategoryID:         nil,
		CategoryConfidence: raw.CategoryConfidence,
		Raw:                string(payload),
	}
	if raw.Category != "" {
		label := raw.Category
		tx.PlaidCategory = &label
	}
	linkAccount(&tx, account)
	return tx, nil
}

// ManualEntry is a user-authored transaction before normalization.
type ManualEntry struct {
	UserTxID   string
	Date       time.Time
	Amount     float64
	Currency   string
	Merchant   string
	Status     string
	CategoryID *uuid.UUID
	Tags       []string
}

// FromManual converts a manual entry. Currency falls back to the budget's
// base currency, status to posted, and a missing user transaction id gets a
// fresh UUID so the dedup key is always present.
func FromManual(e ManualEntry, account *models.Account, budget models.Budget) models.Transaction {
	if e.UserTxID == "" {
		e.UserTxID = uuid.NewString()
	}
	if e.Currency == "" {
		e.Currency = budget.Currency
	}
	if e.Status == "" {
		e.Status = models.StatusPosted
	}

	budgetID := budget.ID
	tx := models.Transaction{
		UserID:     account.UserID,
		UserTxID:   e.UserTxID,
		BudgetID:   &budgetID,
		Date:       e.Date,
		Amount:     e.Amount,
		Currency:   e.Currency,
		Merchant:   e.Merchant,
		Status:     e.Status,
		CategoryID: e.CategoryID,
		Tags:       strings.Join(e.Tags, ","),
	}
	linkAccount(&tx, account)
	return tx
}

// CSVEntry is one parsed import row, account and category already resolved.
type CSVEntry struct {
	UserTxID   string
	Date       time.Time
	Amount     float64
	Merchant   string
	Status     string
	CategoryID uuid.UUID
}

// FromCSV converts a CSV import row. Defaults mirror FromManual: budget base
// currency, posted status.
func FromCSV(e CSVEntry, account *models.Account, budget models.Budget) models.Transaction {
	status := e.Status
	if status == "" {
		status = models.StatusPosted
	}

	budgetID := budget.ID
	categoryID := e.CategoryID
	tx := models.Transaction{
		UserID:     account.UserID,
		UserTxID:   e.UserTxID,
		BudgetID:   &budgetID,
		Date:       e.Date,
		Amount:     e.Amount,
		Currency:   budget.Currency,
		Merchant:   e.Merchant,
		Status:     status,
		CategoryID: &categoryID,
	}
	linkAccount(&tx, account)
	return tx
}
