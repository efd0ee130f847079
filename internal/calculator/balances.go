// Package calculator computes partner balances and settlement
// recommendations from a transaction list. Every function is pure: given
// the same transactions and partner names it returns the same result and
// never mutates its inputs.
package calculator

import "github.com/magpsaad/partner-calculator/internal/models"

// NetFlows is the actual-cash-movement view per partner: what each partner
// is up or down in real money, ignoring any notion of shared obligation.
type NetFlows struct {
	PartnerA float64
	PartnerB float64
}

// PartnerBalance is one partner's side of the shared-cost view.
type PartnerBalance struct {
	ExpensesPaid       float64
	RevenueReceived    float64
	ExpensesOwed       float64 // half of what the other partner paid
	RevenueOwed        float64 // half of what the other partner received
	SettlementPaid     float64
	SettlementReceived float64

	// NetBalance is the equal-split position: (half of what I'm owed)
	// minus (half of what I owe), net of settlements already transferred.
	// Positive means the other partner owes this one.
	NetBalance float64
}

// Balances holds both partners' shared-cost positions. Before any
// settlement asymmetry the two NetBalance values sum to zero: each side's
// half-owed is the other's half-paid.
type Balances struct {
	PartnerA PartnerBalance
	PartnerB PartnerBalance
}

// NetFlow computes each partner's net cash movement:
//
//	revenue received + settlement received - expenses paid - settlement paid
//
// Settlement terms are included only when includeSettlements is true.
// Transactions naming a partner that is not one of the configured names
// (which cannot happen through the controller, but can appear in a foreign
// document) contribute nothing.
func NetFlow(txns []models.Transaction, settings models.Settings, includeSettlements bool) NetFlows {
	var a, b struct{ revenue, expenses, settlementIn, settlementOut float64 }

	for _, t := range txns {
		switch t.Type {
		case models.TypeExpense:
			switch t.PaidBy {
			case settings.PartnerAName:
				a.expenses += t.Amount
			case settings.PartnerBName:
				b.expenses += t.Amount
			}
		case models.TypeRevenue:
			switch t.ReceivedBy {
			case settings.PartnerAName:
				a.revenue += t.Amount
			case settings.PartnerBName:
				b.revenue += t.Amount
			}
		case models.TypeSettlement:
			if !includeSettlements {
				continue
			}
			switch t.PaidBy {
			case settings.PartnerAName:
				a.settlementOut += t.Amount
			case settings.PartnerBName:
				b.settlementOut += t.Amount
			}
			switch t.ReceivedBy {
			case settings.PartnerAName:
				a.settlementIn += t.Amount
			case settings.PartnerBName:
				b.settlementIn += t.Amount
			}
		}
	}

	return NetFlows{
		PartnerA: a.revenue + a.settlementIn - a.expenses - a.settlementOut,
		PartnerB: b.revenue + b.settlementIn - b.expenses - b.settlementOut,
	}
}

// ComputeBalances computes the shared-cost view: every expense and revenue
// is split 50/50 regardless of who paid or received it, and settlements
// shift the resulting positions 1:1 as direct transfers.
func ComputeBalances(txns []models.Transaction, settings models.Settings) Balances {
	var a, b PartnerBalance

	for _, t := range txns {
		switch t.Type {
		case models.TypeExpense:
			switch t.PaidBy {
			case settings.PartnerAName:
				a.ExpensesPaid += t.Amount
				b.ExpensesOwed += t.Amount / 2
			case settings.PartnerBName:
				b.ExpensesPaid += t.Amount
				a.ExpensesOwed += t.Amount / 2
			}
		case models.TypeRevenue:
			switch t.ReceivedBy {
			case settings.PartnerAName:
				a.RevenueReceived += t.Amount
				b.RevenueOwed += t.Amount / 2
			case settings.PartnerBName:
				b.RevenueReceived += t.Amount
				a.RevenueOwed += t.Amount / 2
			}
		case models.TypeSettlement:
			switch t.PaidBy {
			case settings.PartnerAName:
				a.SettlementPaid += t.Amount
			case settings.PartnerBName:
				b.SettlementPaid += t.Amount
			}
			switch t.ReceivedBy {
			case settings.PartnerAName:
				a.SettlementReceived += t.Amount
			case settings.PartnerBName:
				b.SettlementReceived += t.Amount
			}
		}
	}

	// Owed to me: half of the expenses I covered plus half of the revenue
	// the other partner is holding. I owe: half of the expenses the other
	// partner covered plus half of the revenue I'm holding.
	owedToA := a.ExpensesPaid/2 + b.RevenueReceived/2
	aOwes := a.ExpensesOwed + a.RevenueReceived/2
	owedToB := b.ExpensesPaid/2 + a.RevenueReceived/2
	bOwes := b.ExpensesOwed + b.RevenueReceived/2

	a.NetBalance = owedToA - aOwes + a.SettlementReceived - a.SettlementPaid
	b.NetBalance = owedToB - bOwes + b.SettlementReceived - b.SettlementPaid

	return Balances{PartnerA: a, PartnerB: b}
}
