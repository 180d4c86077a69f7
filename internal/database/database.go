package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/apex/log"
	_ "modernc.org/sqlite"

	"github.com/franckalain/freshness/internal/catalog"
)

//go:embed schema.sql
var schemaFS embed.FS

// DB interface defines the methods our catalog store should implement
type DB interface {
	SaveProfile(ctx context.Context, p catalog.Profile) error
	LoadProfiles(ctx context.Context) ([]catalog.Profile, error)
	Seed(ctx context.Context, profiles []catalog.Profile) (int, error)
	Close() error
}

// SQLiteDB implements the DB interface
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling WAL mode: %w", err)
	}

	// Initialize database schema
	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

func initializeSchema(db *sql.DB) error {
	// Read schema file
	schemaBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}

	// Execute schema
	if _, err := db.Exec(string(schemaBytes)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}

	log.Debug("Database schema initialized successfully")
	return nil
}

// SaveProfile inserts or replaces one shelf-life profile
func (s *SQLiteDB) SaveProfile(ctx context.Context, p catalog.Profile) error {
	query := `
		INSERT INTO shelf_life (
			item_id, label, ideal_days, room_days, humid_days, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO UPDATE SET
			label = excluded.label,
			ideal_days = excluded.ideal_days,
			room_days = excluded.room_days,
			humid_days = excluded.humid_days,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		catalog.Normalize(p.ItemID), p.Label,
		p.IdealDays, p.RoomDays, p.HumidDays, time.Now().UTC(),
	)
	return err
}

// LoadProfiles reads every stored profile
func (s *SQLiteDB) LoadProfiles(ctx context.Context) ([]catalog.Profile, error) {
	query := `
		SELECT item_id, label, ideal_days, room_days, humid_days
		FROM shelf_life
		ORDER BY item_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []catalog.Profile
	for rows.Next() {
		var p catalog.Profile
		if err := rows.Scan(&p.ItemID, &p.Label, &p.IdealDays, &p.RoomDays, &p.HumidDays); err != nil {
			return nil, err
		}
		if p.IdealDays <= 0 || p.RoomDays <= 0 || p.HumidDays <= 0 {
			log.WithField("item", p.ItemID).Warn("database.shelf_life.non_positive_duration")
		}
		results = append(results, p)
	}
	return results, rows.Err()
}

// Seed stores profiles when the table is empty and reports how many rows
// were written
func (s *SQLiteDB) Seed(ctx context.Context, profiles []catalog.Profile) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM shelf_life").Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, p := range profiles {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO shelf_life (item_id, label, ideal_days, room_days, humid_days, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			catalog.Normalize(p.ItemID), p.Label, p.IdealDays, p.RoomDays, p.HumidDays, now,
		)
		if err != nil {
			return 0, fmt.Errorf("error seeding %s: %w", p.ItemID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(profiles), nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// LoadCatalog seeds db with the built-in profiles if it is empty and builds
// the catalog from its contents
func LoadCatalog(ctx context.Context, db DB) (*catalog.Catalog, error) {
	seeded, err := db.Seed(ctx, catalog.DefaultProfiles())
	if err != nil {
		return nil, fmt.Errorf("error seeding catalog: %w", err)
	}
	if seeded > 0 {
		log.WithField("rows", seeded).Info("database.shelf_life.seeded")
	}

	profiles, err := db.LoadProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("error loading catalog: %w", err)
	}
	return catalog.New(profiles)
}
