package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yangwenmai/careerpilot/internal/model"
)

// GetCompany returns durable facts for a company, matched case- and
// whitespace-insensitively.
func (s *Store) GetCompany(ctx context.Context, name string) (*model.Company, error) {
	var c model.Company
	var size sql.NullString
	var founded sql.NullInt64
	var leadership, products string
	err := s.db.QueryRowContext(ctx, `
		SELECT name, industry, size_bucket, location, founded_year, mission, culture, leadership, products, updated_at
		FROM companies WHERE name_key = ?`, model.CompanyKey(name),
	).Scan(&c.Name, &c.Industry, &size, &c.Location, &founded, &c.Mission, &c.Culture, &leadership, &products, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if size.Valid {
		c.SizeBucket = &size.String
	}
	c.FoundedYear = nullInt(founded)
	if err := json.Unmarshal([]byte(leadership), &c.Leadership); err != nil {
		return nil, fmt.Errorf("decode leadership: %w", err)
	}
	if err := json.Unmarshal([]byte(products), &c.Products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return &c, nil
}

// UpsertCompany inserts or replaces durable company facts. A size bucket
// outside the four known values is stored as null.
func (s *Store) UpsertCompany(ctx context.Context, c model.Company) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("company name: %w", model.ErrInvalidInput)
	}
	var size any
	if c.SizeBucket != nil {
		switch *c.SizeBucket {
		case model.SizeStartup, model.SizeSmall, model.SizeMedium, model.SizeLarge:
			size = *c.SizeBucket
		}
	}
	updated := c.UpdatedAt
	if updated == "" {
		updated = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (name_key, name, industry, size_bucket, location, founded_year, mission, culture, leadership, products, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name_key) DO UPDATE SET
			name = excluded.name,
			industry = excluded.industry,
			size_bucket = excluded.size_bucket,
			location = excluded.location,
			founded_year = excluded.founded_year,
			mission = excluded.mission,
			culture = excluded.culture,
			leadership = excluded.leadership,
			products = excluded.products,
			updated_at = excluded.updated_at`,
		model.CompanyKey(c.Name), c.Name, c.Industry, size, c.Location, c.FoundedYear, c.Mission, c.Culture,
		jsonList(c.Leadership), jsonList(c.Products), updated,
	)
	return err
}

// GetCompanyResearch returns the stored volatile research for a company,
// expired or not. Callers check Fresh.
func (s *Store) GetCompanyResearch(ctx context.Context, name string) (*model.CompanyResearch, error) {
	var r model.CompanyResearch
	var news, events, fetched, expires string
	err := s.db.QueryRowContext(ctx, `
		SELECT company_name, news, recent_events, fetched_at, expires_at
		FROM company_research WHERE name_key = ?`, model.CompanyKey(name),
	).Scan(&r.CompanyName, &news, &events, &fetched, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company research %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(news), &r.News); err != nil {
		return nil, fmt.Errorf("decode news: %w", err)
	}
	if err := json.Unmarshal([]byte(events), &r.RecentEvents); err != nil {
		return nil, fmt.Errorf("decode recent events: %w", err)
	}
	if r.FetchedAt, err = time.Parse(time.RFC3339Nano, fetched); err != nil {
		return nil, fmt.Errorf("parse fetched_at: %w", err)
	}
	if r.ExpiresAt, err = time.Parse(time.RFC3339Nano, expires); err != nil {
		return nil, fmt.Errorf("parse expires_at: %w", err)
	}
	return &r, nil
}

// SaveCompanyResearch replaces the volatile research for a company.
func (s *Store) SaveCompanyResearch(ctx context.Context, r model.CompanyResearch) error {
	if strings.TrimSpace(r.CompanyName) == "" {
		return fmt.Errorf("company name: %w", model.ErrInvalidInput)
	}
	if !r.ExpiresAt.After(r.FetchedAt) {
		return fmt.Errorf("research expiry must follow fetch time: %w", model.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO company_research (name_key, company_name, news, recent_events, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name_key) DO UPDATE SET
			company_name = excluded.company_name,
			news = excluded.news,
			recent_events = excluded.recent_events,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`,
		model.CompanyKey(r.CompanyName), r.CompanyName, jsonList(r.News), jsonList(r.RecentEvents),
		r.FetchedAt.UTC().Format(time.RFC3339Nano), r.ExpiresAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// PurgeExpiredResearch deletes research whose expiry is at or before now.
func (s *Store) PurgeExpiredResearch(ctx context.Context, now time.Time) (int64, error) {
	// Timestamps are stored as RFC3339 in UTC, so they compare lexically
	// only at equal precision. Compare parsed values instead.
	rows, err := s.db.QueryContext(ctx, `SELECT name_key, expires_at FROM company_research`)
	if err != nil {
		return 0, err
	}
	var expired []string
	for rows.Next() {
		var key, expires string
		if err := rows.Scan(&key, &expires); err != nil {
			rows.Close()
			return 0, err
		}
		t, err := time.Parse(time.RFC3339Nano, expires)
		if err != nil || !now.Before(t) {
			expired = append(expired, key)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var n int64
	for _, key := range expired {
		res, err := s.db.ExecContext(ctx, `DELETE FROM company_research WHERE name_key = ?`, key)
		if err != nil {
			return n, err
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	return n, nil
}
