package migrations

import (
	"fmt"

	"gorm.io/gorm"
)

// All lists the schema changes in the order they must be applied.
func All() []Step {
	return []Step{
		{Name: "20241017_deposit_claim_txs_current_unique", Fn: currentCursorUnique("deposit_claim_txs")},
		{Name: "20241017_withdrawal_requests_current_unique", Fn: currentCursorUnique("withdrawal_requests")},
	}
}

// currentCursorUnique allows at most one open (cursor_to IS NULL) version per identifier.
func currentCursorUnique(table string) func(*gorm.DB) error {
	return func(tx *gorm.DB) error {
		stmt := fmt.Sprintf(
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_%s_current_identifier ON %s (identifier) WHERE cursor_to IS NULL",
			table, table,
		)
		return tx.Exec(stmt).Error
	}
}
