package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/api/product"
	"github.com/tariffdesk/tariffdesk/internal/services/api/storage"
	"github.com/tariffdesk/tariffdesk/internal/services/api/tariff"
)

const tariffSelect = `
SELECT t.id, t.origin_country, t.dest_country, t.effective_date, t.expiry_date,
       t.ad_valorem_rate, t.specific_rate, t.enabled, t.min_quantity, t.max_quantity,
       t.user_defined, t.created_by, t.created_at, t.updated_at,
       p.hts_code, p.name, p.description, p.enabled
FROM tariffs t
LEFT JOIN tariff_products tp ON tp.tariff_id = t.id
LEFT JOIN products p ON p.hts_code = tp.hts_code`

const tariffOrder = ` ORDER BY t.origin_country, t.dest_country, t.effective_date, t.id, p.hts_code`

// loadTariffs runs a tariffSelect query and folds product rows into their
// tariffs, keeping first-seen order.
func loadTariffs(ctx context.Context, q queryer, query string, args ...any) ([]tariff.Tariff, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tariffs: %w", err)
	}
	defer rows.Close()

	tariffs := []tariff.Tariff{}
	index := map[string]int{}
	for rows.Next() {
		var (
			t                    tariff.Tariff
			effective            string
			expiry               sql.NullString
			specific             sql.NullFloat64
			enabled, userDefined int
			createdAt, updatedAt int64
			htsCode, name, desc  sql.NullString
			productEnabled       sql.NullInt64
		)
		if err := rows.Scan(
			&t.ID, &t.OriginCountry, &t.DestCountry, &effective, &expiry,
			&t.AdValoremRate, &specific, &enabled, &t.MinQuantity, &t.MaxQuantity,
			&userDefined, &t.CreatedBy, &createdAt, &updatedAt,
			&htsCode, &name, &desc, &productEnabled,
		); err != nil {
			return nil, fmt.Errorf("scan tariff: %w", err)
		}

		pos, seen := index[t.ID]
		if !seen {
			if t.EffectiveDate, err = tariff.ParseDate(effective); err != nil {
				return nil, fmt.Errorf("tariff %s effective date: %w", t.ID, err)
			}
			if expiry.Valid {
				day, err := tariff.ParseDate(expiry.String)
				if err != nil {
					return nil, fmt.Errorf("tariff %s expiry date: %w", t.ID, err)
				}
				t.ExpiryDate = &day
			}
			if specific.Valid {
				value := specific.Float64
				t.SpecificRate = &value
			}
			t.Enabled = enabled == 1
			t.UserDefined = userDefined == 1
			t.CreatedAt = fromMillis(createdAt)
			t.UpdatedAt = fromMillis(updatedAt)
			t.Products = []product.Product{}
			pos = len(tariffs)
			index[t.ID] = pos
			tariffs = append(tariffs, t)
		}
		if htsCode.Valid {
			tariffs[pos].Products = append(tariffs[pos].Products, product.Product{
				HTSCode:     htsCode.String,
				Name:        name.String,
				Description: desc.String,
				Enabled:     productEnabled.Int64 == 1,
			})
		}
	}
	return tariffs, rows.Err()
}

func getTariff(ctx context.Context, q queryer, id string) (tariff.Tariff, error) {
	tariffs, err := loadTariffs(ctx, q, tariffSelect+` WHERE t.id = ?`+tariffOrder, id)
	if err != nil {
		return tariff.Tariff{}, err
	}
	if len(tariffs) == 0 {
		return tariff.Tariff{}, storage.ErrNotFound
	}
	return tariffs[0], nil
}

func nullableDate(t tariff.Tariff) any {
	if t.ExpiryDate == nil {
		return nil
	}
	return tariff.FormatDate(*t.ExpiryDate)
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func requireCountry(ctx context.Context, q queryer, code, role string) error {
	_, err := getCountry(ctx, q, code)
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.New(apperrors.CodeUnknownCountry, role+" country code not found: "+code)
	}
	return err
}

// AddTariff inserts t and links its product, superseding the latest enabled
// tariff for the same lane and HTS code.
func (s *Store) AddTariff(ctx context.Context, t tariff.Tariff, meta product.Product) (tariff.Tariff, error) {
	if err := s.ready(ctx); err != nil {
		return tariff.Tariff{}, err
	}
	var created tariff.Tariff
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireCountry(ctx, tx, t.OriginCountry, "origin"); err != nil {
			return err
		}
		if err := requireCountry(ctx, tx, t.DestCountry, "destination"); err != nil {
			return err
		}

		current, err := loadTariffs(ctx, tx, tariffSelect+`
WHERE t.id = (
    SELECT t2.id FROM tariffs t2
    JOIN tariff_products tp2 ON tp2.tariff_id = t2.id
    WHERE t2.origin_country = ? AND t2.dest_country = ? AND t2.enabled = 1 AND tp2.hts_code = ?
    ORDER BY t2.effective_date DESC, t2.created_at DESC
    LIMIT 1
)`+tariffOrder, t.OriginCountry, t.DestCountry, meta.HTSCode)
		if err != nil {
			return err
		}
		if len(current) == 1 {
			expiry, err := tariff.Supersede(current[0], t.EffectiveDate)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE tariffs SET expiry_date = ?, updated_at = ? WHERE id = ?`,
				tariff.FormatDate(expiry), toMillis(t.CreatedAt), current[0].ID,
			); err != nil {
				return fmt.Errorf("supersede tariff %s: %w", current[0].ID, err)
			}
		}

		if _, err := getProduct(ctx, tx, meta.HTSCode); errors.Is(err, storage.ErrNotFound) {
			if err := insertProduct(ctx, tx, meta); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		if err := insertTariff(ctx, tx, t); err != nil {
			return err
		}
		if err := linkProduct(ctx, tx, t.ID, meta.HTSCode); err != nil {
			return err
		}
		created, err = getTariff(ctx, tx, t.ID)
		return err
	})
	if err != nil {
		return tariff.Tariff{}, err
	}
	return created, nil
}

func insertTariff(ctx context.Context, q queryer, t tariff.Tariff) error {
	_, err := q.ExecContext(ctx, `
INSERT INTO tariffs (
    id, origin_country, dest_country, effective_date, expiry_date,
    ad_valorem_rate, specific_rate, enabled, min_quantity, max_quantity,
    user_defined, created_by, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OriginCountry, t.DestCountry, tariff.FormatDate(t.EffectiveDate), nullableDate(t),
		t.AdValoremRate, nullableFloat(t.SpecificRate), boolToInt(t.Enabled), t.MinQuantity, t.MaxQuantity,
		boolToInt(t.UserDefined), t.CreatedBy, toMillis(t.CreatedAt), toMillis(t.UpdatedAt))
	if isForeignKeyViolation(err) {
		return apperrors.New(apperrors.CodeUnknownCountry, "tariff references an unknown country")
	}
	if err != nil {
		return fmt.Errorf("insert tariff: %w", err)
	}
	return nil
}

func linkProduct(ctx context.Context, q queryer, tariffID, htsCode string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO tariff_products (tariff_id, hts_code) VALUES (?, ?)`, tariffID, htsCode)
	if isUniqueViolation(err) {
		return apperrors.New(apperrors.CodeProductAlreadyLinked,
			"product "+htsCode+" is already linked to this tariff")
	}
	if isForeignKeyViolation(err) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("link product: %w", err)
	}
	return nil
}

// GetTariff loads a tariff and its products.
func (s *Store) GetTariff(ctx context.Context, id string) (tariff.Tariff, error) {
	if err := s.ready(ctx); err != nil {
		return tariff.Tariff{}, err
	}
	return getTariff(ctx, s.sqlDB, id)
}

// ListTariffs returns tariffs matching query with their products.
func (s *Store) ListTariffs(ctx context.Context, query storage.TariffQuery) ([]tariff.Tariff, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var (
		conditions []string
		args       []any
	)
	if !query.Filter.Empty() {
		conditions = append(conditions, "("+query.Filter.Clause+")")
		args = append(args, query.Filter.Params...)
	}
	if query.HTSCode != "" {
		conditions = append(conditions,
			`t.id IN (SELECT tp3.tariff_id FROM tariff_products tp3 WHERE tp3.hts_code = ?)`)
		args = append(args, query.HTSCode)
	}
	if query.EnabledOnly {
		conditions = append(conditions, `t.enabled = 1`)
	}
	sqlQuery := tariffSelect
	if len(conditions) > 0 {
		sqlQuery += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	return loadTariffs(ctx, s.sqlDB, sqlQuery+tariffOrder, args...)
}

// UpdateTariff rewrites a tariff's scalar fields.
func (s *Store) UpdateTariff(ctx context.Context, t tariff.Tariff) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE tariffs SET
    origin_country = ?, dest_country = ?, effective_date = ?, expiry_date = ?,
    ad_valorem_rate = ?, specific_rate = ?, enabled = ?, min_quantity = ?,
    max_quantity = ?, user_defined = ?, updated_at = ?
WHERE id = ?`,
		t.OriginCountry, t.DestCountry, tariff.FormatDate(t.EffectiveDate), nullableDate(t),
		t.AdValoremRate, nullableFloat(t.SpecificRate), boolToInt(t.Enabled), t.MinQuantity,
		t.MaxQuantity, boolToInt(t.UserDefined), toMillis(t.UpdatedAt), t.ID)
	if isForeignKeyViolation(err) {
		return apperrors.New(apperrors.CodeUnknownCountry, "tariff references an unknown country")
	}
	if err != nil {
		return fmt.Errorf("update tariff: %w", err)
	}
	return affectedOrNotFound(result)
}

// DeleteTariff removes a tariff and its product links.
func (s *Store) DeleteTariff(ctx context.Context, id string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM tariffs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete tariff: %w", err)
	}
	return affectedOrNotFound(result)
}

// LinkProduct attaches an existing product to a tariff.
func (s *Store) LinkProduct(ctx context.Context, tariffID, htsCode string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return linkProduct(ctx, s.sqlDB, tariffID, htsCode)
}

// UnlinkProduct detaches a product from a tariff.
func (s *Store) UnlinkProduct(ctx context.Context, tariffID, htsCode string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM tariff_products WHERE tariff_id = ? AND hts_code = ?`, tariffID, htsCode)
	if err != nil {
		return fmt.Errorf("unlink product: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperrors.New(apperrors.CodeProductNotLinked,
			"product "+htsCode+" is not linked to this tariff")
	}
	return nil
}

// ListLaneTariffs returns enabled tariffs for a lane linked to the enabled
// product named or coded productKey.
func (s *Store) ListLaneTariffs(ctx context.Context, productKey, origin, dest string) ([]tariff.Tariff, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return loadTariffs(ctx, s.sqlDB, tariffSelect+`
WHERE t.origin_country = ? AND t.dest_country = ? AND t.enabled = 1
  AND t.id IN (
    SELECT tp4.tariff_id FROM tariff_products tp4
    JOIN products p4 ON p4.hts_code = tp4.hts_code
    WHERE p4.enabled = 1 AND (p4.name = ? OR p4.hts_code = ?)
  )`+tariffOrder, origin, dest, productKey, productKey)
}
