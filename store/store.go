// Package store is the persistence layer. All core components receive it (or
// a narrow interface over it) explicitly; nothing reaches for a global DB
// handle.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"svend-go-be/models"
)

// ErrStateChanged is returned by conditional writes when the guarded value no
// longer matches, i.e. someone else got there first.
var ErrStateChanged = errors.New("state changed concurrently")

// ErrNotFound wraps gorm's record-not-found for callers that should not
// import gorm.
var ErrNotFound = errors.New("not found")

// Store wraps the GORM handle with the operations the core needs.
type Store struct {
	db         *gorm.DB
	batchSize  int
	batchDelay time.Duration
}

// New builds a Store. batchSize caps bulk-insert chunks; batchDelay, when
// nonzero, spaces chunks out so a first-time full-history import does not
// hammer the hosted database.
func New(db *gorm.DB, batchSize int, batchDelay time.Duration) *Store {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Store{db: db, batchSize: batchSize, batchDelay: batchDelay}
}

// DB exposes the underlying handle for boundary code (handlers) that needs
// simple row reads not worth a dedicated method.
func (s *Store) DB() *gorm.DB { return s.db }

// InsertTransactions bulk-inserts the given normalized transactions. Rows
// colliding on user_tx_id are skipped individually (insert-or-skip, never
// all-or-nothing), so re-running a sync or re-importing a CSV is a no-op for
// rows already present. Returns how many rows were newly inserted and how
// many were skipped as duplicates.
func (s *Store) InsertTransactions(ctx context.Context, txs []models.Transaction) (int, int, error) {
	if len(txs) == 0 {
		return 0, 0, nil
	}

	inserted := 0
	for start := 0; start < len(txs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(txs) {
			end = len(txs)
		}
		batch := txs[start:end]

		res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_tx_id"}},
			DoNothing: true,
		}).Create(&batch)
		if res.Error != nil {
			return inserted, 0, fmt.Errorf("insert transactions batch %d-%d: %w", start, end, res.Error)
		}
		inserted += int(res.RowsAffected)

		if s.batchDelay > 0 && end < len(txs) {
			time.Sleep(s.batchDelay)
		}
	}
	return inserted, len(txs) - inserted, nil
}

// UpdateItemCursor advances an item's sync cursor, but only if the stored
// cursor still equals from. The sync engine calls this after a page's
// transactions are durably persisted, never before.
func (s *Store) UpdateItemCursor(ctx context.Context, itemID uuid.UUID, from, to string) error {
	res := s.db.WithContext(ctx).Model(&models.Item{}).
		Where("id = ? AND cursor = ?", itemID, from).
		Update("cursor", to)
	if res.Error != nil {
		return fmt.Errorf("update cursor for item %s: %w", itemID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update cursor for item %s: %w", itemID, ErrStateChanged)
	}
	return nil
}

// AccountsByItem returns the accounts linked under one item.
func (s *Store) AccountsByItem(ctx context.Context, itemID uuid.UUID) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).Where("item_id = ?", itemID).Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("accounts for item %s: %w", itemID, err)
	}
	return accounts, nil
}

// ItemsForBudget returns the distinct items behind a budget's linked accounts.
func (s *Store) ItemsForBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Item, error) {
	var items []models.Item
	err := s.db.WithContext(ctx).
		Distinct("items.*").
		Table("items").
		Joins("JOIN accounts ON accounts.item_id = items.id").
		Joins("JOIN budget_fin_accounts ON budget_fin_accounts.account_id = accounts.id").
		Where("budget_fin_accounts.budget_id = ?", budgetID).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("items for budget %s: %w", budgetID, err)
	}
	return items, nil
}

// BudgetByID loads one budget.
func (s *Store) BudgetByID(ctx context.Context, id uuid.UUID) (*models.Budget, error) {
	var budget models.Budget
	err := s.db.WithContext(ctx).First(&budget, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("budget %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("budget %s: %w", id, err)
	}
	return &budget, nil
}

// AccountByID loads one account owned by the given user.
func (s *Store) AccountByID(ctx context.Context, id, userID uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).First(&account, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", id, err)
	}
	return &account, nil
}

// AccountsForBudget returns the accounts linked into a budget.
func (s *Store) AccountsForBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.WithContext(ctx).
		Table("accounts").
		Joins("JOIN budget_fin_accounts ON budget_fin_accounts.account_id = accounts.id").
		Where("budget_fin_accounts.budget_id = ?", budgetID).
		Find(&accounts).Error
	if err != nil {
		return nil, fmt.Errorf("accounts for budget %s: %w", budgetID, err)
	}
	return accounts, nil
}

// CategoriesForBudget returns the built-in taxonomy plus the budget's custom
// categories.
func (s *Store) CategoriesForBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Category, error) {
	var cats []models.Category
	err := s.db.WithContext(ctx).
		Table("categories").
		Joins("JOIN category_groups ON category_groups.id = categories.group_id").
		Where("category_groups.budget_id IS NULL OR category_groups.budget_id = ?", budgetID).
		Order("categories.name").
		Find(&cats).Error
	if err != nil {
		return nil, fmt.Errorf("categories for budget %s: %w", budgetID, err)
	}
	return cats, nil
}

// GoalsForBudget returns the budget's goals.
func (s *Store) GoalsForBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Goal, error) {
	var goals []models.Goal
	err := s.db.WithContext(ctx).Where("budget_id = ?", budgetID).Order("created_at").Find(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("goals for budget %s: %w", budgetID, err)
	}
	return goals, nil
}

// TransactionsForBudget returns every transaction visible to a budget:
// rows on its linked accounts plus rows created for it directly, sorted by
// date ascending, the order the recommendation engine requires.
func (s *Store) TransactionsForBudget(ctx context.Context, budgetID uuid.UUID) ([]models.Transaction, error) {
	linked := s.db.Table("budget_fin_accounts").
		Select("account_id").
		Where("budget_id = ?", budgetID)

	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Where("budget_id = ? OR account_id IN (?) OR manual_account_id IN (?)", budgetID, linked, linked).
		Order("date ASC, user_tx_id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("transactions for budget %s: %w", budgetID, err)
	}
	return txs, nil
}

// ReplaceSpendingPlan swaps a budget's recommendation snapshot wholesale:
// old plan entries and goal trackings are deleted and the new set inserted in
// one database transaction, so readers never see a half-regenerated plan.
func (s *Store) ReplaceSpendingPlan(ctx context.Context, budgetID uuid.UUID, entries []models.SpendingPlanEntry, trackings []models.GoalTracking) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("budget_id = ?", budgetID).Delete(&models.SpendingPlanEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("budget_id = ?", budgetID).Delete(&models.GoalTracking{}).Error; err != nil {
			return err
		}
		if len(entries) > 0 {
			if err := tx.CreateInBatches(entries, s.batchSize).Error; err != nil {
				return err
			}
		}
		if len(trackings) > 0 {
			if err := tx.CreateInBatches(trackings, s.batchSize).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace spending plan for budget %s: %w", budgetID, err)
	}
	return nil
}

// SpendingPlanForBudget reads back the current snapshot.
func (s *Store) SpendingPlanForBudget(ctx context.Context, budgetID uuid.UUID) ([]models.SpendingPlanEntry, []models.GoalTracking, error) {
	var entries []models.SpendingPlanEntry
	err := s.db.WithContext(ctx).Where("budget_id = ?", budgetID).
		Order("posture, category_id").Find(&entries).Error
	if err != nil {
		return nil, nil, fmt.Errorf("spending plan for budget %s: %w", budgetID, err)
	}
	var trackings []models.GoalTracking
	err = s.db.WithContext(ctx).Where("budget_id = ?", budgetID).
		Order("posture, goal_id").Find(&trackings).Error
	if err != nil {
		return nil, nil, fmt.Errorf("goal trackings for budget %s: %w", budgetID, err)
	}
	return entries, trackings, nil
}

// BudgetState reads the onboarding context key.
func (s *Store) BudgetState(ctx context.Context, budgetID uuid.UUID) (string, error) {
	budget, err := s.BudgetByID(ctx, budgetID)
	if err != nil {
		return "", err
	}
	return budget.OnboardingState, nil
}

// SetBudgetState is a compare-and-swap on the onboarding context key: the
// write only lands if the stored value still equals from.
func (s *Store) SetBudgetState(ctx context.Context, budgetID uuid.UUID, from, to string) error {
	res := s.db.WithContext(ctx).Model(&models.Budget{}).
		Where("id = ? AND onboarding_state = ?", budgetID, from).
		Update("onboarding_state", to)
	if res.Error != nil {
		return fmt.Errorf("set state for budget %s: %w", budgetID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("set state for budget %s: %w", budgetID, ErrStateChanged)
	}
	return nil
}

// CreateLinkedItem persists a freshly exchanged item with its accounts and,
// when budgetID is set, the budget links, all in one transaction so a crash
// cannot leave accounts without their item or links without their accounts.
func (s *Store) CreateLinkedItem(ctx context.Context, item *models.Item, accounts []models.Account, budgetID *uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		for i := range accounts {
			accounts[i].ItemID = &item.ID
			accounts[i].UserID = item.UserID
		}
		if len(accounts) > 0 {
			if err := tx.Create(&accounts).Error; err != nil {
				return err
			}
		}
		if budgetID != nil {
			for i := range accounts {
				link := models.BudgetFinAccount{BudgetID: *budgetID, AccountID: accounts[i].ID}
				if err := tx.Create(&link).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create item %s: %w", item.PlaidItemID, err)
	}
	return nil
}

// DeleteItem disconnects an item. Accounts and transactions go with it via
// the cascading foreign keys.
func (s *Store) DeleteItem(ctx context.Context, itemID, userID uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", itemID, userID).Delete(&models.Item{})
	if res.Error != nil {
		return fmt.Errorf("delete item %s: %w", itemID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete item %s: %w", itemID, ErrNotFound)
	}
	return nil
}

// ResolveAccount finds the user's account matching a CSV row's bank/account
// columns. Matching is by bank symbol + account name, with the mask as a
// tiebreaker when present.
func (s *Store) ResolveAccount(ctx context.Context, userID uuid.UUID, bankSymbol, accountName, mask string) (*models.Account, error) {
	q := s.db.WithContext(ctx).
		Where("user_id = ? AND LOWER(bank_symbol) = LOWER(?) AND LOWER(name) = LOWER(?)", userID, bankSymbol, accountName)
	if mask != "" {
		q = q.Where("mask = ?", mask)
	}
	var account models.Account
	err := q.First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve account %s/%s: %w", bankSymbol, accountName, err)
	}
	return &account, nil
}

// TransactionByID loads one transaction owned by the given user.
func (s *Store) TransactionByID(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.WithContext(ctx).First(&tx, "id = ? AND user_id = ?", id, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", id, err)
	}
	return &tx, nil
}

// SaveTransaction writes back an edited transaction.
func (s *Store) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := s.db.WithContext(ctx).Save(tx).Error; err != nil {
		return fmt.Errorf("save transaction %s: %w", tx.ID, err)
	}
	return nil
}

// UncategorizedForUser returns transactions with no resolved category, capped
// so AI analysis prompts stay within token limits.
func (s *Store) UncategorizedForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND category_id IS NULL", userID).
		Order("date DESC").Limit(limit).Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("uncategorized for user %s: %w", userID, err)
	}
	return txs, nil
}
