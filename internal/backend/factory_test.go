package backend

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jbrukh/bayesian"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendsense/internal/cache"
	"spendsense/internal/classifier"
	"spendsense/internal/config"
	"spendsense/internal/sheets/memory"
	"spendsense/internal/storage"
)

func modelBlob(t *testing.T) []byte {
	t.Helper()
	cl := bayesian.NewClassifier("Food", "Transport")
	cl.Learn([]string{"pizza", "dinner", "groceries"}, "Food")
	cl.Learn([]string{"taxi", "metro", "bus"}, "Transport")
	var buf bytes.Buffer
	require.NoError(t, cl.WriteTo(&buf))
	return buf.Bytes()
}

func TestCreateFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, os.WriteFile(path, modelBlob(t), 0o600))

	caches := cache.NewManager(nil)
	comps, err := NewFactory(nil, caches).Create(context.Background(), Config{
		ModelSource: FileModel,
		ModelPath:   path,
		CacheSize:   10,
		CacheTTL:    time.Minute,
		Export:      MemoryExport,
	})
	require.NoError(t, err)

	_, cached := comps.Model.(*classifier.CachingModel)
	assert.True(t, cached)
	assert.IsType(t, &memory.Store{}, comps.Exporter)
	assert.Nil(t, comps.Publisher)
	assert.Nil(t, comps.Cleanup)

	label, err := comps.Model.Predict("taxi to the metro ₹120.0")
	require.NoError(t, err)
	assert.Equal(t, "Transport", label)
}

func TestCreateFromSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "models.db")
	repo, err := storage.NewSQLiteRepository(dbPath, nil)
	require.NoError(t, err)
	_, err = repo.SaveModel(context.Background(), "default", modelBlob(t))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	comps, err := NewFactory(nil, nil).Create(context.Background(), Config{
		ModelSource: SQLiteModel,
		ModelDBPath: dbPath,
		ModelName:   "default",
		Export:      MemoryExport,
	})
	require.NoError(t, err)
	assert.IsType(t, &classifier.BayesModel{}, comps.Model)

	label, err := comps.Model.Predict("pizza dinner ₹300.0")
	require.NoError(t, err)
	assert.Equal(t, "Food", label)
}

func TestCreateFailsWithoutModel(t *testing.T) {
	f := NewFactory(nil, nil)

	_, err := f.Create(context.Background(), Config{
		ModelSource: FileModel,
		ModelPath:   filepath.Join(t.TempDir(), "missing.gob"),
		Export:      MemoryExport,
	})
	assert.ErrorIs(t, err, classifier.ErrClassifierUnavailable)

	_, err = f.Create(context.Background(), Config{
		ModelSource: SQLiteModel,
		ModelDBPath: filepath.Join(t.TempDir(), "empty.db"),
		ModelName:   "default",
		Export:      MemoryExport,
	})
	assert.ErrorIs(t, err, classifier.ErrClassifierUnavailable)
	assert.ErrorIs(t, err, storage.ErrModelNotFound)

	corrupt := filepath.Join(t.TempDir(), "corrupt.gob")
	require.NoError(t, os.WriteFile(corrupt, []byte("not a model"), 0o600))
	_, err = f.Create(context.Background(), Config{ModelSource: FileModel, ModelPath: corrupt, Export: MemoryExport})
	assert.ErrorIs(t, err, classifier.ErrClassifierUnavailable)
}

func TestConfigValidate(t *testing.T) {
	assert.Error(t, Config{ModelSource: "s3", Export: MemoryExport}.Validate())
	assert.Error(t, Config{ModelSource: FileModel, Export: "ftp", ModelPath: "x"}.Validate())
	assert.Error(t, Config{ModelSource: FileModel, Export: MemoryExport}.Validate())
	assert.Error(t, Config{ModelSource: SQLiteModel, Export: MemoryExport, ModelDBPath: "x"}.Validate())
	assert.Error(t, Config{ModelSource: FileModel, ModelPath: "x", Export: SheetsExport}.Validate())
	assert.NoError(t, Config{ModelSource: FileModel, ModelPath: "x", Export: MemoryExport}.Validate())
}

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		ModelBackend:      "sqlite",
		ModelDBPath:       "./data/models.db",
		ModelName:         "default",
		ClassifyCacheSize: 5,
		ExportBackend:     "memory",
		AMQPExchange:      "spendsense",
	})
	require.NoError(t, err)
	assert.Equal(t, SQLiteModel, cfg.ModelSource)
	assert.Equal(t, 5, cfg.CacheSize)
	assert.Equal(t, MemoryExport, cfg.Export)
}

func TestCreateExporter(t *testing.T) {
	f := NewFactory(nil, nil)

	exp, err := f.CreateExporter(context.Background(), Config{Export: MemoryExport})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, exp)

	_, err = f.CreateExporter(context.Background(), Config{Export: SheetsExport, GoogleSpreadsheetID: "id"})
	assert.Error(t, err, "sheets export needs credentials")
}
