package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gfribergo93/nexxt-scraper/config"
	"github.com/gfribergo93/nexxt-scraper/models"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(cfg config.Config) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBSSLMode,
	)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer schemaCancel()
	if err := store.ensureSchema(schemaCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveRecords upserts the run's records keyed on listing URL.
func (s *PostgresStore) SaveRecords(ctx context.Context, runID string, records []models.ListingRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listings (
			run_id, ad_id, url, title, description, location, industry,
			employee_count, last_year_revenue, asking_price, listing_type,
			listing_date, reference, regional_partner, contact
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (url) DO UPDATE
		SET
			run_id = EXCLUDED.run_id,
			ad_id = EXCLUDED.ad_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			industry = EXCLUDED.industry,
			employee_count = EXCLUDED.employee_count,
			last_year_revenue = EXCLUDED.last_year_revenue,
			asking_price = EXCLUDED.asking_price,
			listing_type = EXCLUDED.listing_type,
			listing_date = EXCLUDED.listing_date,
			reference = EXCLUDED.reference,
			regional_partner = EXCLUDED.regional_partner,
			contact = EXCLUDED.contact,
			updated_at = NOW()`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert statement: %w", err)
	}
	defer stmt.Close()

	total := 0
	for _, rec := range records {
		if rec.URL == "" {
			continue
		}
		if _, err = stmt.ExecContext(
			ctx,
			runID,
			rec.ID,
			rec.URL,
			rec.Title,
			rec.Description,
			rec.Location,
			rec.Industry,
			rec.EmployeeCount,
			rec.LastYearRevenue,
			rec.AskingPrice,
			rec.ListingType,
			rec.Date,
			rec.Reference,
			rec.RegionalPartner,
			rec.Contact,
		); err != nil {
			return 0, fmt.Errorf("insert listing %q: %w", rec.URL, err)
		}
		total++
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return total, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			ad_id TEXT NOT NULL,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			industry TEXT NOT NULL DEFAULT '',
			employee_count TEXT NOT NULL DEFAULT '',
			last_year_revenue TEXT NOT NULL DEFAULT '',
			asking_price TEXT NOT NULL DEFAULT '',
			listing_type TEXT NOT NULL DEFAULT '',
			listing_date TEXT NOT NULL DEFAULT '',
			reference TEXT NOT NULL DEFAULT '',
			regional_partner TEXT NOT NULL DEFAULT '',
			contact TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_listings_ad_id ON listings(ad_id);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
