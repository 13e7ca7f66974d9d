package models

import (
	"time"

	"github.com/google/uuid"
)

// Budget onboarding context keys. The spending-analysis orchestration moves a
// budget analyze_spending -> analyze_spending_in_progress -> budget_setup; the
// in-progress key doubles as the concurrency guard.
const (
	OnboardingAnalyzeSpending           = "analyze_spending"
	OnboardingAnalyzeSpendingInProgress = "analyze_spending_in_progress"
	OnboardingBudgetSetup               = "budget_setup"
)

// Goal kinds and shared subtypes.
const (
	GoalKindSavings    = "savings"
	GoalKindDebt       = "debt"
	GoalKindInvestment = "investment"
	GoalKindCharity    = "charity"
)

// Debt payment components.
const (
	PaymentPrincipal = "principal"
	PaymentInterest  = "interest"
	PaymentBoth      = "both"
)

// Recommendation postures. PostureActive mirrors the balanced posture; it is
// the allocation the budget actually displays and spends against.
const (
	PostureConservative = "conservative"
	PostureBalanced     = "balanced"
	PostureRelaxed      = "relaxed"
	PostureActive       = "active"
)

// Budget represents one budget a user is onboarding/managing.
type Budget struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Name            string    `gorm:"not null" json:"name"`
	Currency        string    `gorm:"default:'USD'" json:"currency"` // base currency for manual/CSV entries
	OnboardingState string    `gorm:"default:'analyze_spending'" json:"onboarding_state"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BudgetFinAccount links an account into a budget. An account may be linked
// into any number of budgets.
type BudgetFinAccount struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BudgetID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_budget_account" json:"budget_id"`
	Budget    Budget    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_budget_account" json:"account_id"`
	Account   Account   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Goal is one savings/debt/investment/charity target. It always references
// exactly one account, whose balance is the progress measure.
type Goal struct {
	ID                 uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BudgetID           uuid.UUID `gorm:"type:uuid;not null;index" json:"budget_id"`
	Budget             Budget    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	AccountID          uuid.UUID `gorm:"type:uuid;not null" json:"account_id"`
	Kind               string    `gorm:"not null" json:"kind"`
	Subtype            string    `json:"subtype"` // e.g. emergency_fund, house, loan, credit_card
	Name               string    `gorm:"not null" json:"name"`
	TargetAmount       float64   `gorm:"not null" json:"target_amount"`
	BalanceAtTargetSet float64   `json:"balance_at_target_set"`
	TargetDate         time.Time `gorm:"not null" json:"target_date"`
	Description        string    `json:"description"`

	// Debt-only fields.
	InterestRate     float64 `json:"interest_rate,omitempty"`
	PaymentComponent string  `json:"payment_component,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SpendingPlanEntry is one category allocation of one posture. The engine
// regenerates a budget's whole plan wholesale; rows are never patched.
type SpendingPlanEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BudgetID   uuid.UUID `gorm:"type:uuid;not null;index" json:"budget_id"`
	Posture    string    `gorm:"not null" json:"posture"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null" json:"category_id"`
	Month      time.Time `gorm:"not null" json:"month"`
	Amount     float64   `gorm:"not null" json:"amount"`
}

// GoalTracking is one posture's projection for one goal.
type GoalTracking struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BudgetID         uuid.UUID `gorm:"type:uuid;not null;index" json:"budget_id"`
	GoalID           uuid.UUID `gorm:"type:uuid;not null" json:"goal_id"`
	Posture          string    `gorm:"not null" json:"posture"`
	RequiredMonthly  float64   `json:"required_monthly"`
	ProjectedMonthly float64   `json:"projected_monthly"`
	MonthsRemaining  int       `json:"months_remaining"`
	OnTrack          bool      `json:"on_track"`
}
