package sheets

import (
	"context"

	"spendsense/internal/core"
)

// LedgerExporter publishes a full ledger snapshot to an external tabular
// destination, replacing whatever a previous export wrote. It returns a
// reference to the written range.
type LedgerExporter interface {
	Export(ctx context.Context, records []core.Expense) (ref string, err error)
}
