// Package onboarding owns the budget onboarding workflow state. It is the
// single writer of the onboarding context key; everything else treats that
// key as read-only input.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"svend-go-be/models"
	"svend-go-be/store"
)

// ErrInProgress reports that a spending analysis is already running for the
// budget. Callers surface it as a conflict, not a failure.
var ErrInProgress = errors.New("spending analysis already in progress")

// StateStore is the slice of the persistence layer the guard needs: a read
// and a compare-and-swap of the onboarding context key.
type StateStore interface {
	BudgetState(ctx context.Context, budgetID uuid.UUID) (string, error)
	SetBudgetState(ctx context.Context, budgetID uuid.UUID, from, to string) error
}

// Guard serializes spending analysis per budget: one in-progress flag,
// flipped by conditional writes. Runs that race past it stay harmless
// because inserts dedup on the row key.
type Guard struct {
	store StateStore
}

// NewGuard builds a guard.
func NewGuard(s StateStore) *Guard {
	return &Guard{store: s}
}

// Begin moves the budget into the in-progress state, returning the previous
// state for rollback. A budget already in progress, or one that loses the
// compare-and-swap race, gets ErrInProgress.
func (g *Guard) Begin(ctx context.Context, budgetID uuid.UUID) (string, error) {
	state, err := g.store.BudgetState(ctx, budgetID)
	if err != nil {
		return "", fmt.Errorf("begin analysis for budget %s: %w", budgetID, err)
	}
	if state == models.OnboardingAnalyzeSpendingInProgress {
		return "", ErrInProgress
	}

	err = g.store.SetBudgetState(ctx, budgetID, state, models.OnboardingAnalyzeSpendingInProgress)
	if errors.Is(err, store.ErrStateChanged) {
		return "", ErrInProgress
	}
	if err != nil {
		return "", fmt.Errorf("begin analysis for budget %s: %w", budgetID, err)
	}
	return state, nil
}

// Complete advances an in-progress budget to budget_setup.
func (g *Guard) Complete(ctx context.Context, budgetID uuid.UUID) error {
	err := g.store.SetBudgetState(ctx, budgetID, models.OnboardingAnalyzeSpendingInProgress, models.OnboardingBudgetSetup)
	if err != nil {
		return fmt.Errorf("complete analysis for budget %s: %w", budgetID, err)
	}
	return nil
}

// Rollback restores the pre-analysis state so the operation is retryable.
// Best effort: a rollback that loses its own race just means someone else
// already moved the state on.
func (g *Guard) Rollback(ctx context.Context, budgetID uuid.UUID, prev string) {
	err := g.store.SetBudgetState(ctx, budgetID, models.OnboardingAnalyzeSpendingInProgress, prev)
	if err != nil {
		log.Printf("rollback analysis state for budget %s: %v", budgetID, err)
	}
}
