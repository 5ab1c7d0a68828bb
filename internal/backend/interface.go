package backend

import (
	"context"

	"spendsense/internal/classifier"
	"spendsense/internal/services"
	"spendsense/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Components are the external collaborators the ledger service runs with.
// Publisher is nil when no broker is configured.
type Components struct {
	Model     classifier.Model
	Exporter  sheets.LedgerExporter
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// Factory creates components based on configuration
type Factory interface {
	Create(ctx context.Context, config Config) (*Components, error)
}
