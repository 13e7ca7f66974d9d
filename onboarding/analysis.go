package onboarding

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"svend-go-be/categories"
	"svend-go-be/recommend"
	"svend-go-be/syncer"

	"svend-go-be/models"
)

// Store is everything the analysis run reads and writes.
type Store interface {
	StateStore
	syncer.Store
	ItemsForBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Item, error)
	CategoriesForBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Category, error)
	AccountsForBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Account, error)
	GoalsForBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Goal, error)
	TransactionsForBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Transaction, error)
	ReplaceSpendingPlan(ctx context.Context, budgetID uuid.UUID, entries []models.SpendingPlanEntry, trackings []models.GoalTracking) error
}

// Result is one analysis run's outcome.
type Result struct {
	SyncResults    []syncer.Result          `json:"sync_results"`
	Recommendation recommend.Recommendation `json:"recommendation"`
}

// Analyzer sequences one budget's spending analysis: guard, sync fan-out,
// recommendation, snapshot write, state advance. Now is injectable for
// deterministic projections in tests; it defaults to time.Now.
type Analyzer struct {
	store Store
	agg   syncer.Aggregator
	guard *Guard
	Now   func() time.Time
}

// NewAnalyzer builds an analyzer.
func NewAnalyzer(s Store, agg syncer.Aggregator) *Analyzer {
	return &Analyzer{store: s, agg: agg, guard: NewGuard(s), Now: time.Now}
}

// Run executes the full pipeline for one budget. Any failure after the guard
// engages rolls the onboarding state back so the run is retryable; a rerun is
// safe because persisted pages dedup on the user transaction id and the
// cursor only ever names fully persisted pages.
func (a *Analyzer) Run(ctx context.Context, budgetID uuid.UUID) (*Result, error) {
	prev, err := a.guard.Begin(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	res, err := a.run(ctx, budgetID)
	if err != nil {
		a.guard.Rollback(ctx, budgetID, prev)
		return res, err
	}

	if err := a.guard.Complete(ctx, budgetID); err != nil {
		// The plan is already durable, so re-running is harmless; roll the
		// state back rather than stranding the budget in progress.
		a.guard.Rollback(ctx, budgetID, prev)
		return res, err
	}
	return res, nil
}

func (a *Analyzer) run(ctx context.Context, budgetID uuid.UUID) (*Result, error) {
	items, err := a.store.ItemsForBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	cats, err := a.store.CategoriesForBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	engine := syncer.New(a.agg, a.store, categories.NewMapper(cats))
	syncResults := engine.SyncAll(ctx, items, &budgetID)
	res := &Result{SyncResults: syncResults}

	for _, sr := range syncResults {
		if sr.Err != nil {
			// Other items completed and keep their progress; the run as a
			// whole still fails so the caller retries from a clean state.
			return res, fmt.Errorf("analysis for budget %s: %w", budgetID, sr.Err)
		}
	}

	txs, err := a.store.TransactionsForBudget(ctx, budgetID)
	if err != nil {
		return res, err
	}
	accounts, err := a.store.AccountsForBudget(ctx, budgetID)
	if err != nil {
		return res, err
	}
	goals, err := a.store.GoalsForBudget(ctx, budgetID)
	if err != nil {
		return res, err
	}

	in := recommend.Input{
		BudgetID:     budgetID,
		Transactions: txs,
		Categories:   cats,
		Accounts:     accounts,
		Goals:        goals,
		Today:        a.Now().UTC(),
	}
	res.Recommendation = recommend.Recommend(in)

	entries, trackings := recommend.PlanRows(in, res.Recommendation)
	if err := a.store.ReplaceSpendingPlan(ctx, budgetID, entries, trackings); err != nil {
		return res, err
	}
	return res, nil
}
