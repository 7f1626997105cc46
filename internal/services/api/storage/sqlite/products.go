package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/api/product"
	"github.com/tariffdesk/tariffdesk/internal/services/api/storage"
)

const productColumns = `hts_code, name, description, enabled`

func scanProduct(scan func(dest ...any) error) (product.Product, error) {
	var p product.Product
	var enabled int
	if err := scan(&p.HTSCode, &p.Name, &p.Description, &enabled); err != nil {
		return product.Product{}, err
	}
	p.Enabled = enabled == 1
	return p, nil
}

func productConflict(p product.Product) error {
	return apperrors.New(apperrors.CodeProductExists,
		fmt.Sprintf("a product with HTS code %s or name %q already exists", p.HTSCode, p.Name))
}

// CreateProduct inserts a product, failing on a duplicate HTS code or a
// duplicate enabled name.
func (s *Store) CreateProduct(ctx context.Context, p product.Product) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return insertProduct(ctx, s.sqlDB, p)
}

func insertProduct(ctx context.Context, q queryer, p product.Product) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?)`,
		p.HTSCode, p.Name, p.Description, boolToInt(p.Enabled))
	if isUniqueViolation(err) {
		return productConflict(p)
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// PutProduct inserts or updates a product by HTS code.
func (s *Store) PutProduct(ctx context.Context, p product.Product) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?)
ON CONFLICT (hts_code) DO UPDATE SET
    name = excluded.name,
    description = excluded.description,
    enabled = excluded.enabled`,
		p.HTSCode, p.Name, p.Description, boolToInt(p.Enabled))
	if isUniqueViolation(err) {
		return productConflict(p)
	}
	if err != nil {
		return fmt.Errorf("put product: %w", err)
	}
	return nil
}

// GetProduct loads a product by HTS code.
func (s *Store) GetProduct(ctx context.Context, htsCode string) (product.Product, error) {
	if err := s.ready(ctx); err != nil {
		return product.Product{}, err
	}
	return getProduct(ctx, s.sqlDB, htsCode)
}

func getProduct(ctx context.Context, q queryer, htsCode string) (product.Product, error) {
	row := q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE hts_code = ?`, htsCode)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return product.Product{}, storage.ErrNotFound
	}
	if err != nil {
		return product.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// FindEnabledProductByName loads the enabled product with name.
func (s *Store) FindEnabledProductByName(ctx context.Context, name string) (product.Product, error) {
	if err := s.ready(ctx); err != nil {
		return product.Product{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE name = ? AND enabled = 1`, name)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return product.Product{}, storage.ErrNotFound
	}
	if err != nil {
		return product.Product{}, fmt.Errorf("find product by name: %w", err)
	}
	return p, nil
}

// ListProducts returns products ordered by HTS code.
func (s *Store) ListProducts(ctx context.Context, includeDisabled bool) ([]product.Product, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + productColumns + ` FROM products`
	if !includeDisabled {
		query += ` WHERE enabled = 1`
	}
	query += ` ORDER BY hts_code`
	rows, err := s.sqlDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []product.Product{}
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpdateProduct rewrites an existing product's metadata.
func (s *Store) UpdateProduct(ctx context.Context, p product.Product) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, enabled = ? WHERE hts_code = ?`,
		p.Name, p.Description, boolToInt(p.Enabled), p.HTSCode)
	if isUniqueViolation(err) {
		return productConflict(p)
	}
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return affectedOrNotFound(result)
}

// DeleteProduct disables or removes a product.
func (s *Store) DeleteProduct(ctx context.Context, htsCode string, soft bool) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	query := `DELETE FROM products WHERE hts_code = ?`
	if soft {
		query = `UPDATE products SET enabled = 0 WHERE hts_code = ?`
	}
	result, err := s.sqlDB.ExecContext(ctx, query, htsCode)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return affectedOrNotFound(result)
}
