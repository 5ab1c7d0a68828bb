package backend

import (
	"errors"
	"fmt"
	"time"

	"spendsense/internal/config"
)

// ModelSource selects where the serialized classifier is read from.
type ModelSource string

const (
	FileModel   ModelSource = "file"
	SQLiteModel ModelSource = "sqlite"
)

// ExportTarget selects where sheet exports go.
type ExportTarget string

const (
	MemoryExport ExportTarget = "memory"
	SheetsExport ExportTarget = "sheets"
)

func (s ModelSource) IsValid() bool {
	return s == FileModel || s == SQLiteModel
}

func (t ExportTarget) IsValid() bool {
	return t == MemoryExport || t == SheetsExport
}

// Config holds configuration for component creation
type Config struct {
	ModelSource ModelSource
	ModelPath   string
	ModelDBPath string
	ModelName   string

	// CacheSize 0 disables prediction caching.
	CacheSize int
	CacheTTL  time.Duration

	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	Export                   ExportTarget
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	cfg := Config{
		ModelSource: ModelSource(appConfig.ModelBackend),
		ModelPath:   appConfig.ModelPath,
		ModelDBPath: appConfig.ModelDBPath,
		ModelName:   appConfig.ModelName,

		CacheSize: appConfig.ClassifyCacheSize,
		CacheTTL:  appConfig.ClassifyCacheTTL,

		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPRoutingKey: appConfig.AMQPRoutingKey,

		Export:                   ExportTarget(appConfig.ExportBackend),
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}
	return cfg, cfg.Validate()
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.ModelSource.IsValid() {
		return fmt.Errorf("invalid model source: %s", c.ModelSource)
	}
	if !c.Export.IsValid() {
		return fmt.Errorf("invalid export target: %s", c.Export)
	}
	switch c.ModelSource {
	case FileModel:
		if c.ModelPath == "" {
			return errors.New("model path is required for file model source")
		}
	case SQLiteModel:
		if c.ModelDBPath == "" || c.ModelName == "" {
			return errors.New("model database path and name are required for sqlite model source")
		}
	}
	if c.Export == SheetsExport && c.GoogleSpreadsheetID == "" {
		return errors.New("Google Spreadsheet ID is required for sheets export")
	}
	return nil
}
