// Package syncer drives incremental transaction synchronization against the
// aggregator, one cursor-paged loop per linked item.
package syncer

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"svend-go-be/categories"
	"svend-go-be/models"
	"svend-go-be/normalize"
	"svend-go-be/plaid"
)

// Aggregator is the slice of the aggregator client the engine needs.
type Aggregator interface {
	SyncTransactions(ctx context.Context, accessToken, cursor string) (*plaid.SyncResult, error)
}

// Store is the slice of the persistence layer the engine needs.
type Store interface {
	AccountsByItem(ctx context.Context, itemID uuid.UUID) ([]models.Account, error)
	InsertTransactions(ctx context.Context, txs []models.Transaction) (inserted, skipped int, err error)
	UpdateItemCursor(ctx context.Context, itemID uuid.UUID, from, to string) error
}

// Result reports one item's sync outcome. Cursor is the last cursor that was
// durably persisted; on failure it names the resume point, not the failed
// page.
type Result struct {
	ItemID          uuid.UUID `json:"item_id"`
	PlaidItemID     string    `json:"plaid_item_id"`
	NewTransactions int       `json:"new_transactions"`
	Duplicates      int       `json:"duplicates"`
	Pages           int       `json:"pages"`
	Cursor          string    `json:"cursor"`
	Err             error     `json:"-"`
}

// Engine syncs items. Construct once per request; the mapper it holds is
// read-only, so one engine may sync many items concurrently.
type Engine struct {
	agg    Aggregator
	store  Store
	mapper *categories.Mapper
}

// New builds an engine.
func New(agg Aggregator, store Store, mapper *categories.Mapper) *Engine {
	return &Engine{agg: agg, store: store, mapper: mapper}
}

// SyncItem pages through the aggregator's incremental feed for one item:
// fetch page, normalize, resolve categories for the page in one batch, persist,
// and only then adopt the page's next cursor. A fetch or persist failure
// aborts the loop with the cursor still naming the last persisted page, so a
// retry re-fetches from there and the dedup key makes re-inserts no-ops.
func (e *Engine) SyncItem(ctx context.Context, item models.Item, budgetID *uuid.UUID) Result {
	res := Result{ItemID: item.ID, PlaidItemID: item.PlaidItemID, Cursor: item.Cursor}

	accounts, err := e.store.AccountsByItem(ctx, item.ID)
	if err != nil {
		res.Err = fmt.Errorf("sync item %s: %w", item.PlaidItemID, err)
		return res
	}
	byPlaidID := make(map[string]*models.Account, len(accounts))
	for i := range accounts {
		if accounts[i].PlaidAccountID != nil {
			byPlaidID[*accounts[i].PlaidAccountID] = &accounts[i]
		}
	}

	cursor := item.Cursor
	for {
		page, err := e.agg.SyncTransactions(ctx, item.AccessToken, cursor)
		if err != nil {
			res.Err = fmt.Errorf("sync item %s page %d: fetch: %w", item.PlaidItemID, res.Pages+1, err)
			return res
		}

		txs, labels := e.normalizePage(item, page.Added, byPlaidID, budgetID)
		e.assignCategories(txs, labels)

		inserted, skipped, err := e.store.InsertTransactions(ctx, txs)
		if err != nil {
			res.Err = fmt.Errorf("sync item %s page %d: persist: %w", item.PlaidItemID, res.Pages+1, err)
			return res
		}

		// The page is durable; only now may the cursor move.
		if err := e.store.UpdateItemCursor(ctx, item.ID, cursor, page.NextCursor); err != nil {
			res.Err = fmt.Errorf("sync item %s page %d: %w", item.PlaidItemID, res.Pages+1, err)
			return res
		}
		cursor = page.NextCursor
		res.Cursor = cursor
		res.NewTransactions += inserted
		res.Duplicates += skipped
		res.Pages++

		if !page.HasMore {
			return res
		}
	}
}

// normalizePage converts a page of raw transactions, collecting the distinct
// external category labels for one batched mapper call.
func (e *Engine) normalizePage(item models.Item, raw []plaid.RawTransaction, byPlaidID map[string]*models.Account, budgetID *uuid.UUID) ([]models.Transaction, []string) {
	txs := make([]models.Transaction, 0, len(raw))
	seen := make(map[string]bool)
	var labels []string

	for _, rt := range raw {
		account, ok := byPlaidID[rt.AccountID]
		if !ok {
			log.Printf("sync item %s: transaction %s references unknown account %s, skipping", item.PlaidItemID, rt.TransactionID, rt.AccountID)
			continue
		}
		tx, err := normalize.FromPlaid(rt, account, budgetID)
		if err != nil {
			log.Printf("sync item %s: %v, skipping", item.PlaidItemID, err)
			continue
		}
		txs = append(txs, tx)
		if rt.Category != "" && !seen[rt.Category] {
			seen[rt.Category] = true
			labels = append(labels, rt.Category)
		}
	}
	return txs, labels
}

// assignCategories resolves the page's labels in one batch and stamps the
// matches on. Unresolved labels leave CategoryID nil; the raw label stays on
// the row for later suggestion/audit.
func (e *Engine) assignCategories(txs []models.Transaction, labels []string) {
	if len(labels) == 0 {
		return
	}
	matches := e.mapper.MapLabels(labels)
	for i := range txs {
		if txs[i].PlaidCategory == nil {
			continue
		}
		if match, ok := matches[*txs[i].PlaidCategory]; ok {
			id := match.CategoryID
			txs[i].CategoryID = &id
		}
	}
}

// SyncAll fans out over independent items concurrently. One item's failure
// never stops the others; each Result carries its own error.
func (e *Engine) SyncAll(ctx context.Context, items []models.Item, budgetID *uuid.UUID) []Result {
	results := make([]Result, len(items))
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.SyncItem(ctx, items[i], budgetID)
		}(i)
	}
	wg.Wait()
	return results
}
