// Package recommend computes budget allocation postures and goal projections
// from transaction history. It is a deterministic rules engine: same
// transactions, goals and "today" always produce the same output, so the
// persisted snapshot can be regenerated wholesale at any time.
package recommend

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"svend-go-be/models"
)

// Posture scaling factors for discretionary categories. Tunable; tests assert
// only the ordering (conservative <= balanced <= relaxed), not the values.
var (
	FactorConservative = 0.85
	FactorBalanced     = 1.00
	FactorRelaxed      = 1.15
)

// Input is everything the engine reads. Transactions must be sorted by date
// ascending. Today is injected so projections carry no wall-clock dependence.
type Input struct {
	BudgetID     uuid.UUID
	Transactions []models.Transaction
	Categories   []models.Category
	Accounts     []models.Account
	Goals        []models.Goal
	Today        time.Time
}

// GoalProjection is one posture's view of one goal.
type GoalProjection struct {
	RequiredMonthly  float64 `json:"required_monthly"`
	ProjectedMonthly float64 `json:"projected_monthly"`
	MonthsRemaining  int     `json:"months_remaining"`
	OnTrack          bool    `json:"on_track"`
}

// Posture is one named allocation profile.
type Posture struct {
	Spending      map[uuid.UUID]float64        `json:"spending"`
	GoalTrackings map[uuid.UUID]GoalProjection `json:"goal_trackings"`
}

// Recommendation holds the three postures.
type Recommendation struct {
	Conservative Posture `json:"conservative"`
	Balanced     Posture `json:"balanced"`
	Relaxed      Posture `json:"relaxed"`
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// monthKey buckets a date into its calendar month.
func monthKey(t time.Time) int {
	return t.Year()*12 + int(t.Month())
}

// monthsBetween counts whole months from a to b, rounding partial months up
// and never returning less than 1.
func monthsBetween(a, b time.Time) int {
	if !b.After(a) {
		return 1
	}
	months := monthKey(b) - monthKey(a)
	if b.Day() > a.Day() {
		months++
	}
	if months < 1 {
		months = 1
	}
	return months
}

// Recommend computes the three postures. Category totals are monthly averages
// over the observed history; discretionary categories are scaled per posture
// while non-discretionary ones are held identical across all three. Goal
// projections divide the remaining target over the months left and compare
// against the posture's monthly contribution capacity.
func Recommend(in Input) Recommendation {
	discretionary := make(map[uuid.UUID]bool, len(in.Categories))
	for _, c := range in.Categories {
		discretionary[c.ID] = c.Discretionary
	}
	balanceByAccount := make(map[uuid.UUID]float64, len(in.Accounts))
	for _, a := range in.Accounts {
		balanceByAccount[a.ID] = a.CurrentBalance
	}

	// Monthly averages per category. Only categorized outflows count toward
	// allocations; unmapped rows never inflate a bucket.
	months := make(map[int]bool)
	spendTotals := make(map[uuid.UUID]float64)
	totalIn, totalOut := 0.0, 0.0
	for _, tx := range in.Transactions {
		months[monthKey(tx.Date)] = true
		if tx.Amount > 0 {
			totalOut += tx.Amount
			if tx.CategoryID != nil {
				spendTotals[*tx.CategoryID] += tx.Amount
			}
		} else {
			totalIn += -tx.Amount
		}
	}
	span := len(months)
	if span < 1 {
		span = 1
	}

	monthlyAvg := make(map[uuid.UUID]float64, len(spendTotals))
	for id, total := range spendTotals {
		monthlyAvg[id] = round2(total / float64(span))
	}
	netMonthly := round2((totalIn - totalOut) / float64(span))

	build := func(factor float64) Posture {
		spending := make(map[uuid.UUID]float64, len(monthlyAvg))
		headroom := 0.0
		for id, avg := range monthlyAvg {
			if discretionary[id] {
				alloc := round2(avg * factor)
				spending[id] = alloc
				headroom += avg - alloc
			} else {
				spending[id] = avg
			}
		}
		capacity := round2(netMonthly + headroom)

		trackings := make(map[uuid.UUID]GoalProjection, len(in.Goals))
		for _, g := range in.Goals {
			trackings[g.ID] = projectGoal(g, balanceByAccount[g.AccountID], capacity, in.Today)
		}
		return Posture{Spending: spending, GoalTrackings: trackings}
	}

	return Recommendation{
		Conservative: build(FactorConservative),
		Balanced:     build(FactorBalanced),
		Relaxed:      build(FactorRelaxed),
	}
}

// projectGoal computes one goal's required monthly contribution and whether
// the given monthly capacity meets it. Debt goals measure progress as balance
// paid down since the target was set; the rest measure the account balance
// against the target directly.
func projectGoal(g models.Goal, balance, capacity float64, today time.Time) GoalProjection {
	var remaining float64
	if g.Kind == models.GoalKindDebt {
		paid := g.BalanceAtTargetSet - balance
		remaining = g.TargetAmount - paid
	} else {
		remaining = g.TargetAmount - balance
	}
	if remaining < 0 {
		remaining = 0
	}

	monthsLeft := monthsBetween(today, g.TargetDate)
	required := round2(remaining / float64(monthsLeft))
	return GoalProjection{
		RequiredMonthly:  required,
		ProjectedMonthly: capacity,
		MonthsRemaining:  monthsLeft,
		OnTrack:          capacity+0.005 >= required,
	}
}

// PlanRows flattens a recommendation into the persisted snapshot rows. The
// balanced posture is additionally written under the "active" posture, the
// allocation the budget actually displays. Rows come out in a stable order so
// regeneration is reproducible.
func PlanRows(in Input, rec Recommendation) ([]models.SpendingPlanEntry, []models.GoalTracking) {
	month := time.Date(in.Today.Year(), in.Today.Month(), 1, 0, 0, 0, 0, time.UTC)

	postures := []struct {
		name string
		p    Posture
	}{
		{models.PostureConservative, rec.Conservative},
		{models.PostureBalanced, rec.Balanced},
		{models.PostureRelaxed, rec.Relaxed},
		{models.PostureActive, rec.Balanced},
	}

	var entries []models.SpendingPlanEntry
	var trackings []models.GoalTracking
	for _, posture := range postures {
		catIDs := make([]uuid.UUID, 0, len(posture.p.Spending))
		for id := range posture.p.Spending {
			catIDs = append(catIDs, id)
		}
		sort.Slice(catIDs, func(i, j int) bool { return catIDs[i].String() < catIDs[j].String() })
		for _, id := range catIDs {
			entries = append(entries, models.SpendingPlanEntry{
				BudgetID:   in.BudgetID,
				Posture:    posture.name,
				CategoryID: id,
				Month:      month,
				Amount:     posture.p.Spending[id],
			})
		}

		goalIDs := make([]uuid.UUID, 0, len(posture.p.GoalTrackings))
		for id := range posture.p.GoalTrackings {
			goalIDs = append(goalIDs, id)
		}
		sort.Slice(goalIDs, func(i, j int) bool { return goalIDs[i].String() < goalIDs[j].String() })
		for _, id := range goalIDs {
			proj := posture.p.GoalTrackings[id]
			trackings = append(trackings, models.GoalTracking{
				BudgetID:         in.BudgetID,
				GoalID:           id,
				Posture:          posture.name,
				RequiredMonthly:  proj.RequiredMonthly,
				ProjectedMonthly: proj.ProjectedMonthly,
				MonthsRemaining:  proj.MonthsRemaining,
				OnTrack:          proj.OnTrack,
			})
		}
	}
	return entries, trackings
}
