// Command model-import stores a trained classifier blob as a new version in
// the SQLite model registry, or lists the stored versions.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"spendsense/internal/classifier"
	"spendsense/internal/cli"
	"spendsense/internal/config"
	"spendsense/internal/log"
)

func main() {
	cli.LoadEnvFile()
	defaults := config.Load()

	file := flag.String("file", "", "path to the gob-encoded classifier")
	name := flag.String("name", defaults.ModelName, "model name")
	dbPath := flag.String("db", defaults.ModelDBPath, "SQLite registry path")
	list := flag.Bool("list", false, "list stored versions instead of importing")
	flag.Parse()

	logger := cli.SetupLogger(log.ComponentStorage)
	repo := cli.InitModelRegistry(logger, *dbPath)
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if *list {
		records, err := repo.ListModels(ctx, *name)
		if err != nil {
			logger.Error("Failed to list models", log.FieldError, err, log.FieldModel, *name)
			os.Exit(1)
		}
		for _, r := range records {
			fmt.Printf("%s\tv%d\t%d bytes\t%s\t%s\n", r.Name, r.Version, r.Size, r.Checksum[:12], r.CreatedAt.Format(time.RFC3339))
		}
		return
	}

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: model-import -file model.gob [-name default] [-db ./data/models.db]")
		os.Exit(2)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Error("Failed to read model file", log.FieldError, err, "path", *file)
		os.Exit(1)
	}

	// Refuse blobs the server would not be able to load.
	model, err := classifier.LoadBayesModel(bytes.NewReader(data))
	if err != nil {
		logger.Error("Model file is not a valid classifier", log.FieldError, err, "path", *file)
		os.Exit(1)
	}

	rec, err := repo.SaveModel(ctx, *name, data)
	if err != nil {
		logger.Error("Failed to store model", log.FieldError, err, log.FieldModel, *name)
		os.Exit(1)
	}
	logger.Info("Model imported",
		log.FieldModel, rec.Name,
		"version", rec.Version,
		"checksum", rec.Checksum,
		"categories", model.Categories())
}
