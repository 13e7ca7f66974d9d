package recommend

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"svend-go-be/models"
)

var today = time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

func tx(date time.Time, amount float64, catID *uuid.UUID) models.Transaction {
	return models.Transaction{
		UserTxID:   uuid.NewString(),
		Date:       date,
		Amount:     amount,
		CategoryID: catID,
	}
}

// fixtureInput: one discretionary category with $1000 spent, one
// non-discretionary with $500 spent, one month of history.
func fixtureInput() (Input, uuid.UUID, uuid.UUID) {
	disc := models.Category{ID: uuid.New(), Name: "Entertainment", Discretionary: true}
	fixed := models.Category{ID: uuid.New(), Name: "Rent & Mortgage"}
	discID, fixedID := disc.ID, fixed.ID

	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	in := Input{
		BudgetID: uuid.New(),
		Transactions: []models.Transaction{
			tx(jan, 1000, &discID),
			tx(jan.AddDate(0, 0, 5), 500, &fixedID),
			tx(jan.AddDate(0, 0, 1), -3000, nil), // salary
		},
		Categories: []models.Category{disc, fixed},
		Today:      today,
	}
	return in, discID, fixedID
}

func TestPostureOrderingOnDiscretionary(t *testing.T) {
	in, discID, fixedID := fixtureInput()
	rec := Recommend(in)

	c := rec.Conservative.Spending[discID]
	b := rec.Balanced.Spending[discID]
	r := rec.Relaxed.Spending[discID]
	if !(c < r) {
		t.Errorf("conservative discretionary %v must be strictly below relaxed %v", c, r)
	}
	if c > b || b > r {
		t.Errorf("ordering violated: conservative %v, balanced %v, relaxed %v", c, b, r)
	}

	if rec.Conservative.Spending[fixedID] != rec.Balanced.Spending[fixedID] ||
		rec.Balanced.Spending[fixedID] != rec.Relaxed.Spending[fixedID] {
		t.Error("non-discretionary allocation must be identical across postures")
	}
	if rec.Balanced.Spending[fixedID] != 500 {
		t.Errorf("fixed allocation = %v, want 500", rec.Balanced.Spending[fixedID])
	}
}

func TestRecommendDeterministic(t *testing.T) {
	in, _, _ := fixtureInput()
	first := Recommend(in)
	second := Recommend(in)
	if !reflect.DeepEqual(first, second) {
		t.Error("recommend must be deterministic for a fixed input and today")
	}

	e1, t1 := PlanRows(in, first)
	e2, t2 := PlanRows(in, second)
	if !reflect.DeepEqual(e1, e2) || !reflect.DeepEqual(t1, t2) {
		t.Error("plan rows must come out in a stable order")
	}
}

func TestUncategorizedExcludedFromAllocations(t *testing.T) {
	in, discID, _ := fixtureInput()
	in.Transactions = append(in.Transactions, tx(time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC), 999, nil))
	rec := Recommend(in)

	total := 0.0
	for _, amount := range rec.Balanced.Spending {
		total += amount
	}
	if total != 1500 {
		t.Errorf("allocated total = %v, want 1500 (uncategorized spend must not inflate buckets)", total)
	}
	if rec.Balanced.Spending[discID] != 1000 {
		t.Errorf("discretionary balanced = %v, want 1000", rec.Balanced.Spending[discID])
	}
}

func TestMonthlyAveraging(t *testing.T) {
	in, discID, _ := fixtureInput()
	// add a second month with another $500 of discretionary spend
	in.Transactions = append(in.Transactions, tx(time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), 500, &discID))
	rec := Recommend(in)
	if got := rec.Balanced.Spending[discID]; got != 750 {
		t.Errorf("balanced discretionary = %v, want 750 (1500 over 2 months)", got)
	}
}

func TestGoalProjection(t *testing.T) {
	account := models.Account{ID: uuid.New(), CurrentBalance: 2000}
	goal := models.Goal{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Kind:         models.GoalKindSavings,
		TargetAmount: 12000,
		TargetDate:   today.AddDate(0, 10, 0),
	}
	in, _, _ := fixtureInput()
	in.Accounts = []models.Account{account}
	in.Goals = []models.Goal{goal}

	rec := Recommend(in)
	proj := rec.Balanced.GoalTrackings[goal.ID]
	if proj.MonthsRemaining != 10 {
		t.Errorf("MonthsRemaining = %d, want 10", proj.MonthsRemaining)
	}
	// (12000 - 2000) / 10
	if proj.RequiredMonthly != 1000 {
		t.Errorf("RequiredMonthly = %v, want 1000", proj.RequiredMonthly)
	}
	// fixture nets 3000 in, 1500 out per month: capacity 1500 >= 1000
	if !proj.OnTrack {
		t.Errorf("expected on track: projected %v vs required %v", proj.ProjectedMonthly, proj.RequiredMonthly)
	}

	// Conservative capacity must be >= relaxed capacity: tighter spending
	// frees more for goals.
	cons := rec.Conservative.GoalTrackings[goal.ID].ProjectedMonthly
	rel := rec.Relaxed.GoalTrackings[goal.ID].ProjectedMonthly
	if cons < rel {
		t.Errorf("conservative capacity %v must be >= relaxed %v", cons, rel)
	}
}

func TestDebtGoalProjection(t *testing.T) {
	account := models.Account{ID: uuid.New(), CurrentBalance: 4000} // owed now
	goal := models.Goal{
		ID:                 uuid.New(),
		AccountID:          account.ID,
		Kind:               models.GoalKindDebt,
		Subtype:            "credit_card",
		TargetAmount:       5000, // to pay off
		BalanceAtTargetSet: 5000, // owed then
		TargetDate:         today.AddDate(0, 8, 0),
	}
	in, _, _ := fixtureInput()
	in.Accounts = []models.Account{account}
	in.Goals = []models.Goal{goal}

	proj := Recommend(in).Balanced.GoalTrackings[goal.ID]
	// paid 1000 so far, 4000 remaining over 8 months
	if proj.RequiredMonthly != 500 {
		t.Errorf("RequiredMonthly = %v, want 500", proj.RequiredMonthly)
	}
}

func TestGoalPastTargetDateClampsToOneMonth(t *testing.T) {
	account := models.Account{ID: uuid.New(), CurrentBalance: 0}
	goal := models.Goal{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Kind:         models.GoalKindSavings,
		TargetAmount: 100,
		TargetDate:   today.AddDate(0, -1, 0),
	}
	in, _, _ := fixtureInput()
	in.Accounts = []models.Account{account}
	in.Goals = []models.Goal{goal}

	proj := Recommend(in).Balanced.GoalTrackings[goal.ID]
	if proj.MonthsRemaining != 1 {
		t.Errorf("MonthsRemaining = %d, want clamp to 1", proj.MonthsRemaining)
	}
	if proj.RequiredMonthly != 100 {
		t.Errorf("RequiredMonthly = %v, want 100", proj.RequiredMonthly)
	}
}

func TestPlanRowsPromoteBalancedToActive(t *testing.T) {
	in, discID, _ := fixtureInput()
	rec := Recommend(in)
	entries, _ := PlanRows(in, rec)

	active := map[uuid.UUID]float64{}
	balanced := map[uuid.UUID]float64{}
	for _, e := range entries {
		switch e.Posture {
		case models.PostureActive:
			active[e.CategoryID] = e.Amount
		case models.PostureBalanced:
			balanced[e.CategoryID] = e.Amount
		}
	}
	if !reflect.DeepEqual(active, balanced) {
		t.Error("active rows must mirror the balanced posture")
	}
	if active[discID] != 1000 {
		t.Errorf("active discretionary = %v, want 1000", active[discID])
	}
}
