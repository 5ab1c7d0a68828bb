package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"spendsense/internal/amqp"
	"spendsense/internal/cache"
	"spendsense/internal/classifier"
	"spendsense/internal/log"
	"spendsense/internal/sheets"
	gsheet "spendsense/internal/sheets/google"
	"spendsense/internal/sheets/memory"
	"spendsense/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	caches *cache.Manager
}

// NewFactory creates a factory. Prediction caches are registered with
// caches for periodic sweeping when it is not nil.
func NewFactory(logger *log.Logger, caches *cache.Manager) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		caches: caches,
	}
}

var _ Factory = (*DefaultFactory)(nil)

// Create loads the model and builds the exporter and optional publisher.
// A model that cannot be loaded is fatal and wraps
// classifier.ErrClassifierUnavailable. A broker that cannot be reached is
// not: events are skipped.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Components, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	model, err := f.loadModel(ctx, config)
	if err != nil {
		return nil, err
	}
	if config.CacheSize > 0 {
		lru := cache.NewLRUCache[string](config.CacheSize, config.CacheTTL)
		if f.caches != nil {
			f.caches.Register(lru)
		}
		model = classifier.NewCachingModel(model, lru)
	}

	exporter, err := f.CreateExporter(ctx, config)
	if err != nil {
		return nil, err
	}

	comps := &Components{Model: model, Exporter: exporter}

	if config.AMQPURL != "" {
		client, err := amqp.Dial(ctx, amqp.Config{
			URL:        config.AMQPURL,
			Exchange:   config.AMQPExchange,
			RoutingKey: config.AMQPRoutingKey,
		}, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without ledger events", log.FieldError, err)
		} else {
			comps.Publisher = client
			comps.Cleanup = client.Close
		}
	}

	f.logger.Info("Initialized backend",
		"model_source", string(config.ModelSource),
		"export", string(config.Export),
		"cache_size", config.CacheSize,
		"amqp_enabled", comps.Publisher != nil)
	return comps, nil
}

func (f *DefaultFactory) loadModel(ctx context.Context, config Config) (classifier.Model, error) {
	switch config.ModelSource {
	case FileModel:
		m, err := classifier.LoadBayesModelFile(config.ModelPath)
		if err != nil {
			return nil, err
		}
		f.logger.Info("Loaded classifier from file",
			log.FieldOperation, log.OpLoad,
			"path", config.ModelPath,
			"categories", len(m.Categories()))
		return m, nil

	case SQLiteModel:
		repo, err := storage.NewSQLiteRepository(config.ModelDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", classifier.ErrClassifierUnavailable, err)
		}
		defer repo.Close()

		rec, err := repo.LatestModel(ctx, config.ModelName)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", classifier.ErrClassifierUnavailable, err)
		}
		m, err := classifier.LoadBayesModel(bytes.NewReader(rec.Data))
		if err != nil {
			return nil, fmt.Errorf("model %s v%d: %w", rec.Name, rec.Version, err)
		}
		f.logger.Info("Loaded classifier from registry",
			log.FieldOperation, log.OpLoad,
			log.FieldModel, rec.Name,
			"version", rec.Version,
			"checksum", rec.Checksum)
		return m, nil
	}
	return nil, errors.New("unsupported model source")
}

// CreateExporter builds only the configured ledger exporter. The mirror
// worker needs nothing else.
func (f *DefaultFactory) CreateExporter(ctx context.Context, config Config) (sheets.LedgerExporter, error) {
	if config.Export != SheetsExport {
		return memory.New(), nil
	}
	creds, err := gsheet.LoadCredentials(config.GoogleServiceAccountJSON, config.GoogleServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("sheets credentials: %w", err)
	}
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: creds,
		Logger:          f.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	return cli, nil
}
