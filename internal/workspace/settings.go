package workspace

import (
	"context"
	"strings"

	"github.com/magpsaad/partner-calculator/internal/models"
)

// UpdatePartnerNames renames the partners. This is a global migration:
// every transaction in every project whose PaidBy or ReceivedBy equals an
// old name is rewritten to the new one, across all transaction types, so
// balances computed before and after the rename are identical.
func (c *Controller) UpdatePartnerNames(ctx context.Context, partnerAName, partnerBName string) error {
	partnerAName = strings.TrimSpace(partnerAName)
	partnerBName = strings.TrimSpace(partnerBName)
	if partnerAName == "" || partnerBName == "" {
		return models.Validationf("settings", "both partner names must be set")
	}
	if partnerAName == partnerBName {
		return models.Validationf("settings", "partner names must differ")
	}

	c.mu.Lock()
	old := c.state.Settings
	rename := func(name string) string {
		switch name {
		case old.PartnerAName:
			return partnerAName
		case old.PartnerBName:
			return partnerBName
		}
		return name
	}
	for _, project := range c.state.Projects {
		for i := range project.Transactions {
			txn := &project.Transactions[i]
			txn.PaidBy = rename(txn.PaidBy)
			txn.ReceivedBy = rename(txn.ReceivedBy)
		}
	}
	c.state.Settings = models.Settings{
		PartnerAName: partnerAName,
		PartnerBName: partnerBName,
	}
	c.mu.Unlock()

	c.logger.Info("Partner names updated",
		"partner_a", partnerAName,
		"partner_b", partnerBName,
	)
	return c.save(ctx)
}
