package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction statuses.
const (
	StatusPending = "pending"
	StatusPosted  = "posted"
)

// Account types. Unrecognized provider types normalize to AccountTypeOther.
const (
	AccountTypeDepository = "depository"
	AccountTypeCredit     = "credit"
	AccountTypeLoan       = "loan"
	AccountTypeInvestment = "investment"
	AccountTypeOther      = "other"
)

// Item represents one linked institution login at the aggregator. It owns the
// sync cursor; the cursor is only ever advanced by the sync engine after the
// corresponding page of transactions has been persisted.
type Item struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	PlaidItemID string    `gorm:"uniqueIndex;not null" json:"plaid_item_id"`
	AccessToken string    `gorm:"not null" json:"-"`
	Cursor      string    `gorm:"default:''" json:"cursor"` // empty = never synced
	Institution string    `json:"institution"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Account is one bank account, either under an Item (bank-linked) or created
// by hand (ItemID nil). The two lineages are mutually exclusive.
type Account struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ItemID           *uuid.UUID `gorm:"type:uuid;index" json:"item_id,omitempty"`
	Item             *Item      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	PlaidAccountID   *string    `gorm:"index" json:"plaid_account_id,omitempty"`
	Name             string     `gorm:"not null" json:"name"`
	Type             string     `gorm:"not null;default:'other'" json:"type"`
	Mask             string     `json:"mask"`
	CurrentBalance   float64    `json:"current_balance"`
	AvailableBalance float64    `json:"available_balance"`
	Currency         string     `gorm:"default:'USD'" json:"currency"`
	BankName         string     `json:"bank_name"`
	BankSymbol       string     `json:"bank_symbol"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Manual reports whether the account was entered by hand rather than linked
// through the aggregator.
func (a *Account) Manual() bool {
	return a.ItemID == nil
}

// CategoryGroup groups categories. BudgetID nil marks a built-in group.
type CategoryGroup struct {
	ID       uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BudgetID *uuid.UUID `gorm:"type:uuid;index" json:"budget_id,omitempty"`
	Name     string     `gorm:"not null" json:"name"`
}

// Category is one bucket of the internal taxonomy. Discretionary categories
// are the ones the recommendation postures scale; composite categories are
// reporting roll-ups over other categories with a weight.
type Category struct {
	ID            uuid.UUID     `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	GroupID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"group_id"`
	Group         CategoryGroup `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Name          string        `gorm:"not null" json:"name"`
	Discretionary bool          `gorm:"default:false" json:"discretionary"`
	Composite     bool          `gorm:"default:false" json:"composite"`
	Weight        float64       `gorm:"default:1" json:"weight"`
}

// Transaction is the canonical record every ingestion source (aggregator sync,
// manual entry, CSV import) normalizes into. UserTxID is the dedup key: it is
// unique across all sources, and an insert that collides on it is skipped, not
// overwritten, so the first-seen row and any user edits to it survive.
type Transaction struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID             uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	UserTxID           string     `gorm:"uniqueIndex;not null" json:"user_tx_id"`
	PlaidTxID          *string    `gorm:"index" json:"plaid_tx_id,omitempty"`
	AccountID          *uuid.UUID `gorm:"type:uuid;index" json:"account_id,omitempty"`
	Account            *Account   `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
	ManualAccountID    *uuid.UUID `gorm:"type:uuid;index" json:"manual_account_id,omitempty"`
	ManualAccount      *Account   `gorm:"foreignKey:ManualAccountID;constraint:OnDelete:CASCADE" json:"-"`
	BudgetID           *uuid.UUID `gorm:"type:uuid;index" json:"budget_id,omitempty"` // provenance: created for this budget
	Date               time.Time  `gorm:"not null;index" json:"date"`
	Amount             float64    `json:"amount"` // signed, positive = money out
	Currency           string     `gorm:"default:'USD'" json:"currency"`
	Merchant           string     `json:"merchant"`
	Status             string     `gorm:"default:'posted'" json:"status"`
	CategoryID         *uuid.UUID `gorm:"type:uuid;index" json:"category_id,omitempty"`
	PlaidCategory      *string    `json:"plaid_category,omitempty"` // raw provider label, kept for audit
	CategoryConfidence *float64   `json:"category_confidence,omitempty"`
	UserEdited         bool       `gorm:"default:false" json:"user_edited"`
	Raw                string     `json:"-"` // raw provider payload, JSON text
	Tags               string     `json:"tags"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
