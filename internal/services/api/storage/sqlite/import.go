package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tariffdesk/tariffdesk/internal/services/api/storage"
	"github.com/tariffdesk/tariffdesk/internal/services/api/tariff"
)

// ImportCreatedBy marks tariffs written by bulk imports.
const ImportCreatedBy = "scraper"

// ImportTariffs applies batch in one transaction. Tariffs matching an
// existing row on lane, dates and HTS code only have their rates refreshed.
func (s *Store) ImportTariffs(ctx context.Context, batch storage.ImportBatch) (storage.ImportResult, error) {
	if err := s.ready(ctx); err != nil {
		return storage.ImportResult{}, err
	}
	var result storage.ImportResult
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range batch.Countries {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO countries (code, name) VALUES (?, ?)`, c.Code, c.Name,
			); err != nil {
				return fmt.Errorf("import country %s: %w", c.Code, err)
			}
		}
		for _, p := range batch.Products {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO products (hts_code, name, description, enabled) VALUES (?, ?, ?, 1)`,
				p.HTSCode, p.Name, p.Description,
			); err != nil {
				return fmt.Errorf("import product %s: %w", p.HTSCode, err)
			}
		}

		now := s.now()
		for _, item := range batch.Tariffs {
			var expiry any
			if item.ExpiryDate != nil {
				expiry = tariff.FormatDate(*item.ExpiryDate)
			}
			var (
				existingID string
				rate       float64
				specific   sql.NullFloat64
			)
			err := tx.QueryRowContext(ctx, `
SELECT t.id, t.ad_valorem_rate, t.specific_rate FROM tariffs t
JOIN tariff_products tp ON tp.tariff_id = t.id
WHERE t.origin_country = ? AND t.dest_country = ? AND t.effective_date = ?
  AND t.expiry_date IS ? AND tp.hts_code = ?
LIMIT 1`,
				item.OriginCountry, item.DestCountry, tariff.FormatDate(item.EffectiveDate), expiry, item.HTSCode,
			).Scan(&existingID, &rate, &specific)

			switch {
			case err == nil:
				if rate == item.AdValoremRate && sameRate(specific, item.SpecificRate) {
					continue
				}
				if _, err := tx.ExecContext(ctx,
					`UPDATE tariffs SET ad_valorem_rate = ?, specific_rate = ?, updated_at = ? WHERE id = ?`,
					item.AdValoremRate, nullableFloat(item.SpecificRate), toMillis(now), existingID,
				); err != nil {
					return fmt.Errorf("update imported tariff %s: %w", existingID, err)
				}
				result.Updated++
			case errors.Is(err, sql.ErrNoRows):
				tariffID, err := s.newID()
				if err != nil {
					return fmt.Errorf("generate tariff id: %w", err)
				}
				t := tariff.Tariff{
					ID:            tariffID,
					OriginCountry: item.OriginCountry,
					DestCountry:   item.DestCountry,
					EffectiveDate: item.EffectiveDate,
					ExpiryDate:    item.ExpiryDate,
					AdValoremRate: item.AdValoremRate,
					SpecificRate:  item.SpecificRate,
					Enabled:       true,
					CreatedBy:     ImportCreatedBy,
					CreatedAt:     now,
					UpdatedAt:     now,
				}
				if err := insertTariff(ctx, tx, t); err != nil {
					return err
				}
				if err := linkProduct(ctx, tx, t.ID, item.HTSCode); err != nil {
					return fmt.Errorf("link imported tariff %s to %s: %w", t.ID, item.HTSCode, err)
				}
				result.Inserted++
			default:
				return fmt.Errorf("match imported tariff: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return storage.ImportResult{}, err
	}
	return result, nil
}

func sameRate(stored sql.NullFloat64, incoming *float64) bool {
	if !stored.Valid || incoming == nil {
		return !stored.Valid && incoming == nil
	}
	return stored.Float64 == *incoming
}
