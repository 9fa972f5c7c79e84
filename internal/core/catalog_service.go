package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CatalogService manages categories and products. Prices and descriptive
// fields are writable here; stock is not — it only moves through document
// completion and cancellation.
type CatalogService interface {
	CreateCategory(ctx context.Context, name, description string) (*Category, error)
	UpdateCategory(ctx context.Context, categoryID int, name, description string, isActive bool) (*Category, error)
	GetCategory(ctx context.Context, categoryID int) (*Category, error)
	GetCategories(ctx context.Context, activeOnly bool) ([]Category, error)

	CreateProduct(ctx context.Context, input ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, productID int, input ProductInput) (*Product, error)
	DeactivateProduct(ctx context.Context, productID int) error
	GetProduct(ctx context.Context, productID int) (*Product, error)
	GetProductByCode(ctx context.Context, code string) (*Product, error)
	GetProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	// GetLowStockProducts lists active products at or below their minimum stock.
	GetLowStockProducts(ctx context.Context) ([]Product, error)
}

// ProductInput carries the writable fields of a product. Stock is absent on
// purpose.
type ProductInput struct {
	Name          string
	Description   string
	CategoryID    int
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
	MinStock      int
	Unit          string
}

// ProductFilter narrows GetProducts results. Nil/false fields are ignored.
type ProductFilter struct {
	CategoryID *int
	ActiveOnly bool
	Search     string // matches code or name, case-insensitive
}

type catalogService struct {
	pool *pgxpool.Pool
}

func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

// ── Categories ───────────────────────────────────────────────────────────────

func (s *catalogService) CreateCategory(ctx context.Context, name, description string) (*Category, error) {
	if name == "" {
		return nil, fmt.Errorf("category name is required")
	}

	var c Category
	err := s.pool.QueryRow(ctx, `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id, name, COALESCE(description, ''), is_active, created_at
	`, name, description).Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category %q already exists", name)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return &c, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, categoryID int, name, description string, isActive bool) (*Category, error) {
	if name == "" {
		return nil, fmt.Errorf("category name is required")
	}

	var c Category
	err := s.pool.QueryRow(ctx, `
		UPDATE categories
		SET name = $1, description = $2, is_active = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING id, name, COALESCE(description, ''), is_active, created_at
	`, name, description, isActive, categoryID).Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "category", ID: categoryID}
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category %q already exists", name)
		}
		return nil, fmt.Errorf("failed to update category %d: %w", categoryID, err)
	}
	return &c, nil
}

func (s *catalogService) GetCategory(ctx context.Context, categoryID int) (*Category, error) {
	var c Category
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''), is_active, created_at
		FROM categories WHERE id = $1
	`, categoryID).Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "category", ID: categoryID}
		}
		return nil, fmt.Errorf("failed to fetch category %d: %w", categoryID, err)
	}
	return &c, nil
}

func (s *catalogService) GetCategories(ctx context.Context, activeOnly bool) ([]Category, error) {
	query := "SELECT id, name, COALESCE(description, ''), is_active, created_at FROM categories"
	if activeOnly {
		query += " WHERE is_active = true"
	}
	query += " ORDER BY name"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, nil
}

// ── Products ─────────────────────────────────────────────────────────────────

func validateProductInput(input ProductInput) error {
	if input.Name == "" {
		return fmt.Errorf("product name is required")
	}
	if input.PurchasePrice.IsNegative() || input.SalePrice.IsNegative() {
		return fmt.Errorf("prices cannot be negative")
	}
	if input.MinStock < 0 {
		return fmt.Errorf("minimum stock cannot be negative")
	}
	return nil
}

const productSelect = `
	SELECT pr.id, pr.code, pr.name, COALESCE(pr.description, ''), pr.category_id, c.name,
	       pr.purchase_price, pr.sale_price, pr.stock, pr.min_stock, pr.unit, pr.is_active, pr.created_at
	FROM products pr
	JOIN categories c ON c.id = pr.category_id
`

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Description, &p.CategoryID, &p.CategoryName,
		&p.PurchasePrice, &p.SalePrice, &p.Stock, &p.MinStock, &p.Unit, &p.IsActive, &p.CreatedAt,
	)
}

func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var categoryActive bool
	err = tx.QueryRow(ctx, "SELECT is_active FROM categories WHERE id = $1", input.CategoryID).Scan(&categoryActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "category", ID: input.CategoryID}
		}
		return nil, fmt.Errorf("failed to resolve category %d: %w", input.CategoryID, err)
	}
	if !categoryActive {
		return nil, fmt.Errorf("category %d is inactive", input.CategoryID)
	}

	code, err := nextCodeTx(ctx, tx, productCodePrefix)
	if err != nil {
		return nil, err
	}

	unit := input.Unit
	if unit == "" {
		unit = "UND"
	}

	var productID int
	err = tx.QueryRow(ctx, `
		INSERT INTO products (code, name, description, category_id, purchase_price, sale_price, min_stock, unit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, code, input.Name, input.Description, input.CategoryID,
		input.PurchasePrice, input.SalePrice, input.MinStock, unit).Scan(&productID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert product %s: %w", code, ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("failed to insert product: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit product creation: %w", err)
	}
	return s.GetProduct(ctx, productID)
}

func (s *catalogService) UpdateProduct(ctx context.Context, productID int, input ProductInput) (*Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	unit := input.Unit
	if unit == "" {
		unit = "UND"
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE products
		SET name = $1, description = $2, category_id = $3, purchase_price = $4,
		    sale_price = $5, min_stock = $6, unit = $7, updated_at = NOW()
		WHERE id = $8
	`, input.Name, input.Description, input.CategoryID,
		input.PurchasePrice, input.SalePrice, input.MinStock, unit, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, &NotFoundError{Entity: "product", ID: productID}
	}
	return s.GetProduct(ctx, productID)
}

// DeactivateProduct hides the product from new documents. Historical lines
// keep referencing it, so products are never hard-deleted.
func (s *catalogService) DeactivateProduct(ctx context.Context, productID int) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE products SET is_active = false, updated_at = NOW() WHERE id = $1",
		productID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "product", ID: productID}
	}
	return nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID int) (*Product, error) {
	var p Product
	err := scanProduct(s.pool.QueryRow(ctx, productSelect+" WHERE pr.id = $1", productID), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "product", ID: productID}
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	return &p, nil
}

func (s *catalogService) GetProductByCode(ctx context.Context, code string) (*Product, error) {
	var p Product
	err := scanProduct(s.pool.QueryRow(ctx, productSelect+" WHERE pr.code = $1", code), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "product", Ref: code}
		}
		return nil, fmt.Errorf("failed to fetch product %s: %w", code, err)
	}
	return &p, nil
}

func (s *catalogService) GetProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	query := productSelect + " WHERE 1=1"
	var args []any

	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		query += fmt.Sprintf(" AND pr.category_id = $%d", len(args))
	}
	if filter.ActiveOnly {
		query += " AND pr.is_active = true"
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		query += fmt.Sprintf(" AND (pr.code ILIKE $%d OR pr.name ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY pr.code"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *catalogService) GetLowStockProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.pool.Query(ctx, productSelect+`
		WHERE pr.is_active = true AND pr.stock <= pr.min_stock
		ORDER BY pr.stock - pr.min_stock, pr.code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query low-stock products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, nil
}
