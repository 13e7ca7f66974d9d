package csvimport

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"svend-go-be/categories"
	"svend-go-be/models"
	"svend-go-be/store"
)

const csvHeader = "TransactionId,TransactionStatus,TransactionDate,TransactionAmount,TransactionMerchantName,TransactionCategory,BankName,BankSymbol,AccountName,AccountType,AccountMask"

type fakeResolver struct {
	accounts map[string]*models.Account // key: symbol|name
}

func (f *fakeResolver) ResolveAccount(_ context.Context, _ uuid.UUID, bankSymbol, accountName, _ string) (*models.Account, error) {
	acc, ok := f.accounts[strings.ToLower(bankSymbol+"|"+accountName)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return acc, nil
}

type fakeSink struct {
	rows map[string]models.Transaction
}

func (f *fakeSink) InsertTransactions(_ context.Context, txs []models.Transaction) (int, int, error) {
	inserted, skipped := 0, 0
	for _, tx := range txs {
		if _, dup := f.rows[tx.UserTxID]; dup {
			skipped++
			continue
		}
		f.rows[tx.UserTxID] = tx
		inserted++
	}
	return inserted, skipped, nil
}

func importerSetup() (*Importer, *fakeSink, models.Budget) {
	cats := []models.Category{
		{ID: uuid.New(), Name: "Groceries"},
		{ID: uuid.New(), Name: "Restaurants", Discretionary: true},
	}
	resolver := &fakeResolver{accounts: map[string]*models.Account{
		"chase|everyday checking": {ID: uuid.New(), UserID: uuid.New(), Currency: "USD"},
	}}
	sink := &fakeSink{rows: make(map[string]models.Transaction)}
	budget := models.Budget{ID: uuid.New(), Currency: "USD"}
	return New(resolver, sink, categories.NewMapper(cats)), sink, budget
}

func TestImportValidRows(t *testing.T) {
	imp, sink, budget := importerSetup()
	file := csvHeader + "\n" +
		"ABC123,posted,2026-01-05,42.10,Safeway,Groceries,Chase Bank,CHASE,Everyday Checking,depository,1234\n" +
		"ABC124,pending,1/6/2026,18.75,Thai Place,Restaurants,Chase Bank,CHASE,Everyday Checking,depository,1234\n"

	report, err := imp.Import(context.Background(), strings.NewReader(file), budget, uuid.New())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", report.Inserted)
	}
	if len(report.Skipped) != 0 {
		t.Errorf("Skipped = %+v, want none", report.Skipped)
	}
	row := sink.rows["ABC124"]
	if row.Status != models.StatusPending {
		t.Errorf("status = %q, want pending", row.Status)
	}
	if row.CategoryID == nil {
		t.Error("category must be resolved")
	}
}

func TestImportMissingColumns(t *testing.T) {
	imp, _, budget := importerSetup()
	file := "TransactionId,TransactionDate\nABC,2026-01-01\n"

	_, err := imp.Import(context.Background(), strings.NewReader(file), budget, uuid.New())
	if err == nil {
		t.Fatal("expected missing-column error")
	}
	if !strings.Contains(err.Error(), "TransactionAmount") {
		t.Errorf("error should name missing columns, got: %v", err)
	}
}

func TestImportSkipsUnknownCategory(t *testing.T) {
	imp, sink, budget := importerSetup()
	file := csvHeader + "\n" +
		"ABC125,posted,2026-01-05,10.00,Shop,Some Unknown Category,Chase Bank,CHASE,Everyday Checking,depository,1234\n" +
		"ABC126,posted,2026-01-06,12.00,Safeway,Groceries,Chase Bank,CHASE,Everyday Checking,depository,1234\n"

	report, err := imp.Import(context.Background(), strings.NewReader(file), budget, uuid.New())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1 (valid sibling must still insert)", report.Inserted)
	}
	if len(report.Skipped) != 1 {
		t.Fatalf("Skipped = %+v, want exactly one", report.Skipped)
	}
	if report.Skipped[0].Row != 2 || !strings.Contains(report.Skipped[0].Reason, "Some Unknown Category") {
		t.Errorf("skip record = %+v", report.Skipped[0])
	}
	if _, ok := sink.rows["ABC125"]; ok {
		t.Error("skipped row must not be persisted")
	}
}

func TestImportSkipsUnknownAccount(t *testing.T) {
	imp, _, budget := importerSetup()
	file := csvHeader + "\n" +
		"ABC127,posted,2026-01-05,10.00,Shop,Groceries,Other Bank,OTHER,Savings,depository,9999\n"

	report, err := imp.Import(context.Background(), strings.NewReader(file), budget, uuid.New())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Inserted != 0 || len(report.Skipped) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if !strings.Contains(report.Skipped[0].Reason, "unknown account") {
		t.Errorf("reason = %q", report.Skipped[0].Reason)
	}
}

func TestImportDeduplicatesAgainstOtherSources(t *testing.T) {
	imp, sink, budget := importerSetup()
	// "ABC123" already arrived through another ingestion source.
	sink.rows["ABC123"] = models.Transaction{UserTxID: "ABC123"}

	file := csvHeader + "\n" +
		"ABC123,posted,2026-01-05,42.10,Safeway,Groceries,Chase Bank,CHASE,Everyday Checking,depository,1234\n"

	report, err := imp.Import(context.Background(), strings.NewReader(file), budget, uuid.New())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Inserted != 0 || report.Duplicates != 1 {
		t.Errorf("report = %+v, want 0 inserted / 1 duplicate", report)
	}
}

type failingSink struct{}

func (failingSink) InsertTransactions(_ context.Context, _ []models.Transaction) (int, int, error) {
	return 0, 0, errors.New("store unavailable")
}

func TestImportPersistFailureIsMarkedRetryable(t *testing.T) {
	imp, _, budget := importerSetup()
	imp.sink = failingSink{}
	file := csvHeader + "\n" +
		"ABC132,posted,2026-01-05,42.10,Safeway,Groceries,Chase Bank,CHASE,Everyday Checking,depository,1234\n"

	_, err := imp.Import(context.Background(), strings.NewReader(file), budget, uuid.New())
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("err = %v, want ErrPersist so callers can report it as transient", err)
	}
}

func TestImportSignedCurrencyAmounts(t *testing.T) {
	imp, sink, budget := importerSetup()
	file := csvHeader + "\n" +
		"ABC133,posted,2026-01-05,-$5.00,Refund,Groceries,Chase Bank,CHASE,Everyday Checking,depository,1234\n" +
		"ABC134,posted,2026-01-05,$42.10,Safeway,Groceries,Chase Bank,CHASE,Everyday Checking,depository,1234\n"

	report, err := imp.Import(context.Background(), strings.NewReader(file), budget, uuid.New())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Inserted != 2 || len(report.Skipped) != 0 {
		t.Fatalf("report = %+v, want both rows inserted", report)
	}
	if got := sink.rows["ABC133"].Amount; got != -5 {
		t.Errorf("amount = %v, want -5", got)
	}
	if got := sink.rows["ABC134"].Amount; got != 42.10 {
		t.Errorf("amount = %v, want 42.10", got)
	}
}

func TestImportBadFieldsSkippedIndividually(t *testing.T) {
	imp, _, budget := importerSetup()
	file := csvHeader + "\n" +
		"ABC128,posted,not-a-date,10.00,Shop,Groceries,Chase Bank,CHASE,Everyday Checking,depository,1234\n" +
		"ABC129,posted,2026-01-05,ten,Shop,Groceries,Chase Bank,CHASE,Everyday Checking,depository,1234\n" +
		",posted,2026-01-05,10.00,Shop,Groceries,Chase Bank,CHASE,Everyday Checking,depository,1234\n" +
		"ABC130,settled,2026-01-05,10.00,Shop,Groceries,Chase Bank,CHASE,Everyday Checking,depository,1234\n" +
		"ABC131,posted,2026-01-05,\"1,234.56\",Shop,Groceries,Chase Bank,CHASE,Everyday Checking,depository,1234\n"

	report, err := imp.Import(context.Background(), strings.NewReader(file), budget, uuid.New())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", report.Inserted)
	}
	if len(report.Skipped) != 4 {
		t.Errorf("Skipped = %d rows, want 4: %+v", len(report.Skipped), report.Skipped)
	}
}
