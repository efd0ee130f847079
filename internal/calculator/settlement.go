package calculator

import (
	"math"

	"github.com/magpsaad/partner-calculator/internal/models"
)

// SettledEpsilon is the absolute tolerance under which two net flows count
// as equal. It absorbs float64 accumulation noise (e.g. a settlement whose
// amount was itself derived from summed halves), not a business rounding
// rule. Changing it changes which projects report as settled.
const SettledEpsilon = 0.01

// Settlement is the engine's recommendation for equalizing the partners'
// net flows. When IsSettled is true no payment is recommended and Payer and
// Receiver are empty.
type Settlement struct {
	IsSettled bool
	Amount    float64
	Payer     string
	Receiver  string

	PartnerANetFlow float64
	PartnerBNetFlow float64
}

// SettlementNeeded derives the settlement state live from net flow,
// including settlements already recorded (they have already moved cash).
//
// Let d = |netFlowA - netFlowB|. If d < SettledEpsilon the project is
// settled. Otherwise the higher-net-flow partner pays the lower d/2: the
// payment moves payer down and receiver up by the same amount, converging
// both on the midpoint. Exactly equal flows are settled; direction is
// otherwise strictly determined by the comparison.
func SettlementNeeded(txns []models.Transaction, settings models.Settings) Settlement {
	flows := NetFlow(txns, settings, true)
	d := math.Abs(flows.PartnerA - flows.PartnerB)

	s := Settlement{
		PartnerANetFlow: flows.PartnerA,
		PartnerBNetFlow: flows.PartnerB,
	}
	if d < SettledEpsilon {
		s.IsSettled = true
		return s
	}

	s.Amount = d / 2
	if flows.PartnerA > flows.PartnerB {
		s.Payer = settings.PartnerAName
		s.Receiver = settings.PartnerBName
	} else {
		s.Payer = settings.PartnerBName
		s.Receiver = settings.PartnerAName
	}
	return s
}

// Totals is the all-projects summary.
type Totals struct {
	TotalExpenses float64
	TotalRevenue  float64
	NetProfit     float64
}

// AllProjectsTotals sums expense and revenue amounts across every project.
// Settlements are partner-to-partner transfers and are excluded; the report
// is independent of any project's settlement state.
func AllProjectsTotals(projects []*models.Project) Totals {
	var t Totals
	for _, p := range projects {
		for _, txn := range p.Transactions {
			switch txn.Type {
			case models.TypeExpense:
				t.TotalExpenses += txn.Amount
			case models.TypeRevenue:
				t.TotalRevenue += txn.Amount
			}
		}
	}
	t.NetProfit = t.TotalRevenue - t.TotalExpenses
	return t
}
