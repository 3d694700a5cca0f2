package sqlite

import (
	"database/sql"
	"fmt"

	"copbot/internal/domain"
)

// SaveResult persists one dispatcher result, deduplicating on the source
// message id. Returns false when the message was already stored.
func SaveResult(db *sql.DB, res *domain.Result) (bool, error) {
	if res == nil {
		return false, nil
	}

	switch {
	case res.Failure != nil:
		return true, InsertFailure(db, res.Failure)

	case res.Summary != nil:
		exists, err := SummaryMessageExists(db, res.Summary.MessageID)
		if err != nil || exists {
			return false, err
		}
		return true, InsertSummary(db, res.Summary)

	case res.Alert != nil:
		exists, err := AlertMessageExists(db, res.Alert.MessageID)
		if err != nil || exists {
			return false, err
		}
		return true, InsertAlert(db, res.Alert)

	case res.Allocation != nil:
		exists, err := AllocationMessageExists(db, res.Allocation.MessageID)
		if err != nil || exists {
			return false, err
		}
		return true, InsertAllocation(db, res.Allocation)
	}
	return false, fmt.Errorf("result of kind %q carries no record", res.Kind)
}
