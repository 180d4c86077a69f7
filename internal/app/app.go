package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"

	"github.com/franckalain/freshness/internal/catalog"
	"github.com/franckalain/freshness/internal/config"
	"github.com/franckalain/freshness/internal/database"
	"github.com/franckalain/freshness/internal/ml"
	"github.com/franckalain/freshness/internal/pipeline"
)

// App owns the long-lived collaborators shared by the server and the CLI
type App struct {
	Pipeline *pipeline.Pipeline

	model ml.Model
	db    database.DB
}

// New loads the catalog and the estimator described by cfg and builds the
// pipeline over them. Callers must Close the result.
func New(ctx context.Context, cfg *config.Config, opts ...pipeline.Option) (*App, error) {
	a := &App{}

	c, db, err := LoadCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.db = db

	model, err := ml.NewModel(cfg.ML.Type, ml.Options{
		ConfigPath: cfg.ML.ConfigPath,
		ModelPath:  cfg.ML.ModelPath,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create ML model: %w", err)
	}
	a.model = model
	if err := model.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load ML model: %w", err)
	}

	log.WithFields(log.Fields{
		"model_type": cfg.ML.Type,
		"items":      c.Len(),
	}).Info("app.ready")

	opts = append([]pipeline.Option{pipeline.WithMaxPixels(cfg.Image.MaxPixels)}, opts...)
	a.Pipeline = pipeline.New(c, model, opts...)
	return a, nil
}

// LoadCatalog returns the built-in catalog, or the SQLite catalog at
// cfg.Catalog.Path when one is configured. The returned DB is nil for the
// built-in catalog and must be closed otherwise.
func LoadCatalog(ctx context.Context, cfg *config.Config) (*catalog.Catalog, database.DB, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Default(), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Catalog.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create catalog dir: %w", err)
	}

	db, err := database.NewSQLiteDB(cfg.Catalog.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	c, err := database.LoadCatalog(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	log.WithField("path", cfg.Catalog.Path).Info("app.catalog.sqlite")
	return c, db, nil
}

// Close releases the model and the catalog database
func (a *App) Close() error {
	var errs []error
	if a.model != nil {
		errs = append(errs, a.model.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
