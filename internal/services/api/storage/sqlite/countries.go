package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/api/country"
	"github.com/tariffdesk/tariffdesk/internal/services/api/storage"
)

// CreateCountry inserts a country, failing when the code exists.
func (s *Store) CreateCountry(ctx context.Context, c country.Country) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `INSERT INTO countries (code, name) VALUES (?, ?)`, c.Code, c.Name)
	if isUniqueViolation(err) {
		return apperrors.New(apperrors.CodeCountryExists, "country already exists: "+c.Code)
	}
	if err != nil {
		return fmt.Errorf("insert country: %w", err)
	}
	return nil
}

// PutCountry inserts or renames a country.
func (s *Store) PutCountry(ctx context.Context, c country.Country) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return putCountry(ctx, s.sqlDB, c)
}

func putCountry(ctx context.Context, q queryer, c country.Country) error {
	_, err := q.ExecContext(ctx, `
INSERT INTO countries (code, name) VALUES (?, ?)
ON CONFLICT (code) DO UPDATE SET name = excluded.name`, c.Code, c.Name)
	if err != nil {
		return fmt.Errorf("put country: %w", err)
	}
	return nil
}

// GetCountry loads a country by code.
func (s *Store) GetCountry(ctx context.Context, code string) (country.Country, error) {
	if err := s.ready(ctx); err != nil {
		return country.Country{}, err
	}
	return getCountry(ctx, s.sqlDB, code)
}

func getCountry(ctx context.Context, q queryer, code string) (country.Country, error) {
	var c country.Country
	err := q.QueryRowContext(ctx, `SELECT code, name FROM countries WHERE code = ?`, code).Scan(&c.Code, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return country.Country{}, storage.ErrNotFound
	}
	if err != nil {
		return country.Country{}, fmt.Errorf("get country: %w", err)
	}
	return c, nil
}

// ListCountries returns all countries ordered by name.
func (s *Store) ListCountries(ctx context.Context) ([]country.Country, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT code, name FROM countries ORDER BY name COLLATE NOCASE, code`)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	defer rows.Close()

	countries := []country.Country{}
	for rows.Next() {
		var c country.Country
		if err := rows.Scan(&c.Code, &c.Name); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

// UpdateCountry renames an existing country.
func (s *Store) UpdateCountry(ctx context.Context, c country.Country) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `UPDATE countries SET name = ? WHERE code = ?`, c.Name, c.Code)
	if err != nil {
		return fmt.Errorf("update country: %w", err)
	}
	return affectedOrNotFound(result)
}

// DeleteCountry removes a country no tariff references.
func (s *Store) DeleteCountry(ctx context.Context, code string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var refs int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tariffs WHERE origin_country = ? OR dest_country = ?`, code, code,
		).Scan(&refs); err != nil {
			return fmt.Errorf("count country references: %w", err)
		}
		if refs > 0 {
			return apperrors.New(apperrors.CodeCountryInUse,
				fmt.Sprintf("country %s is referenced by %d tariffs", code, refs))
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM countries WHERE code = ?`, code)
		if err != nil {
			return fmt.Errorf("delete country: %w", err)
		}
		return affectedOrNotFound(result)
	})
}
