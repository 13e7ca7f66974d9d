// Package csvimport reads transaction CSV exports into the canonical
// transaction shape. Bad rows are skipped individually with a recorded
// reason; only a malformed file (unreadable, missing required columns) aborts
// the import.
package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"svend-go-be/categories"
	"svend-go-be/models"
	"svend-go-be/normalize"
	"svend-go-be/store"
)

// Required columns, matched case-insensitively against the header row.
var requiredColumns = []string{
	"TransactionId",
	"TransactionStatus",
	"TransactionDate",
	"TransactionAmount",
	"TransactionMerchantName",
	"TransactionCategory",
	"BankName",
	"BankSymbol",
	"AccountName",
	"AccountType",
	"AccountMask",
}

// Accepted date layouts, tried in order.
var dateLayouts = []string{"2006-01-02", "1/2/2006", "01/02/2006"}

// ErrPersist marks a failure writing converted rows to the store, as opposed
// to a malformed file. Persist failures are transient; the import can be
// retried as-is and already-written rows dedup away.
var ErrPersist = errors.New("persist csv rows")

// AccountResolver finds the account a row's bank/account columns point at.
type AccountResolver interface {
	ResolveAccount(ctx context.Context, userID uuid.UUID, bankSymbol, accountName, mask string) (*models.Account, error)
}

// Sink persists the normalized rows with per-row duplicate skip.
type Sink interface {
	InsertTransactions(ctx context.Context, txs []models.Transaction) (inserted, skipped int, err error)
}

// SkippedRow records why one row was left out.
type SkippedRow struct {
	Row    int    `json:"row"` // 1-based, counting the header as row 1
	Reason string `json:"reason"`
}

// Report is the import outcome the caller shows the user.
type Report struct {
	Inserted   int          `json:"inserted"`
	Duplicates int          `json:"duplicates"`
	Skipped    []SkippedRow `json:"skipped"`
}

// Importer converts and persists CSV files for one budget.
type Importer struct {
	resolver AccountResolver
	sink     Sink
	mapper   *categories.Mapper
}

// New builds an importer. The mapper should cover the budget's full category
// set, built-ins included.
func New(resolver AccountResolver, sink Sink, mapper *categories.Mapper) *Importer {
	return &Importer{resolver: resolver, sink: sink, mapper: mapper}
}

// Import reads the file, validates the header, converts each row, and
// persists the survivors in one batch pass. Rows with an unmapped category or
// an unresolvable account are skipped with a reason; duplicate transaction
// ids are counted, not reported as errors.
func (imp *Importer) Import(ctx context.Context, r io.Reader, budget models.Budget, userID uuid.UUID) (*Report, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var txs []models.Transaction
	row := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedRow{Row: row, Reason: fmt.Sprintf("unreadable row: %v", err)})
			continue
		}

		tx, reason := imp.convertRow(ctx, rec, cols, budget, userID)
		if reason != "" {
			report.Skipped = append(report.Skipped, SkippedRow{Row: row, Reason: reason})
			continue
		}
		txs = append(txs, tx)
	}

	inserted, duplicates, err := imp.sink.InsertTransactions(ctx, txs)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	report.Inserted = inserted
	report.Duplicates = duplicates
	return report, nil
}

// indexColumns maps the required column names to their positions, reporting
// every missing column at once.
func indexColumns(header []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, name := range header {
		byName[strings.ToLower(strings.TrimSpace(name))] = i
	}

	cols := make(map[string]int, len(requiredColumns))
	var missing []string
	for _, name := range requiredColumns {
		idx, ok := byName[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("csv missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// convertRow turns one record into a canonical transaction, or a skip reason.
func (imp *Importer) convertRow(ctx context.Context, rec []string, cols map[string]int, budget models.Budget, userID uuid.UUID) (models.Transaction, string) {
	field := func(name string) string {
		idx := cols[name]
		if idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}

	txID := field("TransactionId")
	if txID == "" {
		return models.Transaction{}, "missing transaction id"
	}

	date, err := parseDate(field("TransactionDate"))
	if err != nil {
		return models.Transaction{}, fmt.Sprintf("bad date %q", field("TransactionDate"))
	}
	amount, err := parseAmount(field("TransactionAmount"))
	if err != nil {
		return models.Transaction{}, fmt.Sprintf("bad amount %q", field("TransactionAmount"))
	}

	status := strings.ToLower(field("TransactionStatus"))
	switch status {
	case "", models.StatusPosted:
		status = models.StatusPosted
	case models.StatusPending:
	default:
		return models.Transaction{}, fmt.Sprintf("unknown status %q", field("TransactionStatus"))
	}

	label := field("TransactionCategory")
	match, ok := imp.mapper.Resolve(label)
	if !ok {
		return models.Transaction{}, fmt.Sprintf("unknown category %q", label)
	}

	account, err := imp.resolver.ResolveAccount(ctx, userID, field("BankSymbol"), field("AccountName"), field("AccountMask"))
	if errors.Is(err, store.ErrNotFound) {
		return models.Transaction{}, fmt.Sprintf("unknown account %s/%s", field("BankSymbol"), field("AccountName"))
	}
	if err != nil {
		return models.Transaction{}, fmt.Sprintf("resolve account: %v", err)
	}

	return normalize.FromCSV(normalize.CSVEntry{
		UserTxID:   txID,
		Date:       date,
		Amount:     amount,
		Merchant:   field("TransactionMerchantName"),
		Status:     status,
		CategoryID: match.CategoryID,
	}, account, budget), ""
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

// parseAmount converts a string like "1,234.56", "$42.10" or "-$5.00" to
// float64. The currency symbol may appear before or after the sign.
func parseAmount(raw string) (float64, error) {
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.ReplaceAll(raw, "$", "")
	return strconv.ParseFloat(raw, 64)
}
