package workspace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/magpsaad/partner-calculator/internal/calculator"
	"github.com/magpsaad/partner-calculator/internal/models"
)

// ErrSettled is returned by SettleUp when the project's net flows are
// already within tolerance and there is nothing to settle.
var ErrSettled = errors.New("project is already settled")

// Draft is the user-supplied input for recording or editing a transaction.
// For settlements ReceivedBy is left empty; the controller derives it as
// the other partner from PaidBy.
type Draft struct {
	Type        models.TransactionType
	Amount      float64
	Date        string
	Description string
	PaidBy      string
	ReceivedBy  string
}

// validate checks a draft against the current settings and normalizes it
// into a transaction body (without an id).
func (d Draft) validate(settings models.Settings) (models.Transaction, error) {
	if !d.Type.Valid() {
		return models.Transaction{}, models.Validationf("type", "unknown transaction type %q", d.Type)
	}
	if math.IsNaN(d.Amount) || math.IsInf(d.Amount, 0) {
		return models.Transaction{}, models.Validationf("amount", "must be a finite number")
	}
	if d.Amount < 0 {
		return models.Transaction{}, models.Validationf("amount", "must not be negative")
	}
	if _, err := time.Parse("2006-01-02", d.Date); err != nil {
		return models.Transaction{}, models.Validationf("date", "must be a calendar date in YYYY-MM-DD form")
	}

	txn := models.Transaction{
		Type:        d.Type,
		Amount:      d.Amount,
		Date:        d.Date,
		Description: d.Description,
	}

	switch d.Type {
	case models.TypeExpense:
		if d.Description == "" {
			return models.Transaction{}, models.Validationf("description", "required for expenses")
		}
		if !settings.Has(d.PaidBy) {
			return models.Transaction{}, models.Validationf("paidBy", "%q is not a configured partner", d.PaidBy)
		}
		txn.PaidBy = d.PaidBy
	case models.TypeRevenue:
		if d.Description == "" {
			return models.Transaction{}, models.Validationf("description", "required for revenue")
		}
		if !settings.Has(d.ReceivedBy) {
			return models.Transaction{}, models.Validationf("receivedBy", "%q is not a configured partner", d.ReceivedBy)
		}
		txn.ReceivedBy = d.ReceivedBy
	case models.TypeSettlement:
		if !settings.Has(d.PaidBy) {
			return models.Transaction{}, models.Validationf("paidBy", "%q is not a configured partner", d.PaidBy)
		}
		if d.ReceivedBy != "" {
			return models.Transaction{}, models.Validationf("receivedBy", "derived from paidBy, must not be supplied")
		}
		txn.PaidBy = d.PaidBy
		txn.ReceivedBy = settings.Other(d.PaidBy)
	}

	return txn, nil
}

// RecordTransaction validates the draft, appends it to the project's
// ledger, and saves. Nothing is persisted on a validation failure.
func (c *Controller) RecordTransaction(ctx context.Context, projectID int64, draft Draft) (models.Transaction, error) {
	c.mu.Lock()
	project := c.state.Project(projectID)
	if project == nil {
		c.mu.Unlock()
		return models.Transaction{}, models.ErrNotFound
	}
	txn, err := draft.validate(c.state.Settings)
	if err != nil {
		c.mu.Unlock()
		return models.Transaction{}, err
	}
	txn.ID = c.ids.Next()
	project.Transactions = append(project.Transactions, txn)
	c.mu.Unlock()

	c.logger.Info("Transaction recorded",
		"project_id", projectID,
		"transaction_id", txn.ID,
		"type", txn.Type,
		"amount", txn.Amount,
	)
	if err := c.save(ctx); err != nil {
		return txn, err
	}
	return txn, nil
}

// EditTransaction replaces a transaction in place, preserving its id and
// position. ErrNotFound if either the project or the transaction is absent.
func (c *Controller) EditTransaction(ctx context.Context, projectID, txnID int64, draft Draft) (models.Transaction, error) {
	c.mu.Lock()
	project := c.state.Project(projectID)
	if project == nil {
		c.mu.Unlock()
		return models.Transaction{}, models.ErrNotFound
	}
	idx := -1
	for i := range project.Transactions {
		if project.Transactions[i].ID == txnID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return models.Transaction{}, models.ErrNotFound
	}
	txn, err := draft.validate(c.state.Settings)
	if err != nil {
		c.mu.Unlock()
		return models.Transaction{}, err
	}
	txn.ID = txnID
	project.Transactions[idx] = txn
	c.mu.Unlock()

	c.logger.Info("Transaction edited", "project_id", projectID, "transaction_id", txnID)
	if err := c.save(ctx); err != nil {
		return txn, err
	}
	return txn, nil
}

// DeleteTransaction removes a transaction by id. ErrNotFound (and no save)
// if the project or transaction is absent.
func (c *Controller) DeleteTransaction(ctx context.Context, projectID, txnID int64) error {
	c.mu.Lock()
	project := c.state.Project(projectID)
	if project == nil {
		c.mu.Unlock()
		return models.ErrNotFound
	}
	idx := -1
	for i := range project.Transactions {
		if project.Transactions[i].ID == txnID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return models.ErrNotFound
	}
	project.Transactions = append(project.Transactions[:idx], project.Transactions[idx+1:]...)
	c.mu.Unlock()

	c.logger.Info("Transaction deleted", "project_id", projectID, "transaction_id", txnID)
	return c.save(ctx)
}

// ClearTransactions deletes every transaction in a project, keeping the
// project itself.
func (c *Controller) ClearTransactions(ctx context.Context, projectID int64) error {
	c.mu.Lock()
	project := c.state.Project(projectID)
	if project == nil {
		c.mu.Unlock()
		return models.ErrNotFound
	}
	project.Transactions = []models.Transaction{}
	c.mu.Unlock()

	c.logger.Info("Project transactions cleared", "project_id", projectID)
	return c.save(ctx)
}

// SettleUp records the engine's current recommendation as a settlement
// transaction on the given date, equalizing the partners' net flows.
// Returns ErrSettled when the project is already within tolerance.
// Settlement entries are otherwise user-entered; this is the only path
// where the engine generates one, and only on explicit request.
func (c *Controller) SettleUp(ctx context.Context, projectID int64, date string) (models.Transaction, error) {
	// Recommendation and append happen under one critical section: a push
	// snapshot applied in between would leave the amount stale relative
	// to the ledger it lands on.
	c.mu.Lock()
	project := c.state.Project(projectID)
	if project == nil {
		c.mu.Unlock()
		return models.Transaction{}, models.ErrNotFound
	}
	rec := calculator.SettlementNeeded(project.Transactions, c.state.Settings)
	if rec.IsSettled {
		c.mu.Unlock()
		return models.Transaction{}, ErrSettled
	}
	draft := Draft{
		Type:        models.TypeSettlement,
		Amount:      rec.Amount,
		Date:        date,
		Description: fmt.Sprintf("paid to %s", rec.Receiver),
		PaidBy:      rec.Payer,
	}
	txn, err := draft.validate(c.state.Settings)
	if err != nil {
		c.mu.Unlock()
		return models.Transaction{}, err
	}
	txn.ID = c.ids.Next()
	project.Transactions = append(project.Transactions, txn)
	c.mu.Unlock()

	c.logger.Info("Settlement recorded",
		"project_id", projectID,
		"transaction_id", txn.ID,
		"amount", txn.Amount,
	)
	if err := c.save(ctx); err != nil {
		return txn, err
	}
	return txn, nil
}
