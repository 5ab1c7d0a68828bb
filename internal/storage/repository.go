// Package storage keeps serialized classifier models in SQLite.
package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"spendsense/internal/log"
)

var (
	ErrModelNotFound = errors.New("model not found")
	ErrEmptyModel    = errors.New("model data is empty")
)

// ModelRecord is one stored model version. Data is only populated by
// LatestModel.
type ModelRecord struct {
	ID        int64
	Name      string
	Version   int
	Checksum  string
	Size      int
	CreatedAt time.Time
	Data      []byte
}

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger = logger.WithComponent(log.ComponentStorage)
	logger.Debug("Model registry ready", "path", dbPath, "schema_version", version)
	return &SQLiteRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveModel stores data as the next version of name.
func (r *SQLiteRepository) SaveModel(ctx context.Context, name string, data []byte) (ModelRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ModelRecord{}, errors.New("model name is required")
	}
	if len(data) == 0 {
		return ModelRecord{}, ErrEmptyModel
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ModelRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(version) FROM models WHERE name = ?`, name).Scan(&current); err != nil {
		return ModelRecord{}, fmt.Errorf("read current version: %w", err)
	}

	sum := sha256.Sum256(data)
	rec := ModelRecord{
		Name:      name,
		Version:   int(current.Int64) + 1,
		Checksum:  hex.EncodeToString(sum[:]),
		Size:      len(data),
		CreatedAt: r.now().UTC().Truncate(time.Second),
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO models (name, version, checksum, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Name, rec.Version, rec.Checksum, data, rec.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return ModelRecord{}, fmt.Errorf("insert model: %w", err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return ModelRecord{}, fmt.Errorf("read model id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ModelRecord{}, fmt.Errorf("commit: %w", err)
	}

	r.logger.InfoContext(ctx, "Model saved",
		log.FieldModel, rec.Name,
		"version", rec.Version,
		"size", rec.Size)
	return rec, nil
}

// LatestModel returns the newest version of name, with its data.
func (r *SQLiteRepository) LatestModel(ctx context.Context, name string) (ModelRecord, error) {
	var (
		rec     ModelRecord
		created string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, version, checksum, data, created_at FROM models
		 WHERE name = ? ORDER BY version DESC LIMIT 1`, name).
		Scan(&rec.ID, &rec.Name, &rec.Version, &rec.Checksum, &rec.Data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return ModelRecord{}, fmt.Errorf("%s: %w", name, ErrModelNotFound)
	}
	if err != nil {
		return ModelRecord{}, fmt.Errorf("query latest model: %w", err)
	}
	rec.Size = len(rec.Data)
	if rec.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return ModelRecord{}, fmt.Errorf("parse created_at: %w", err)
	}
	return rec, nil
}

// ListModels returns every version of name, newest first, without data.
func (r *SQLiteRepository) ListModels(ctx context.Context, name string) ([]ModelRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, version, checksum, length(data), created_at FROM models
		 WHERE name = ? ORDER BY version DESC`, name)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []ModelRecord
	for rows.Next() {
		var (
			rec     ModelRecord
			created string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Version, &rec.Checksum, &rec.Size, &created); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
