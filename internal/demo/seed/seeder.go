// Package seed loads a small supplier and product catalogue into MariaDB and
// exposes it through the view that the query pipeline reads.
package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/querydesk/querydesk/internal/config"
)

var tableStatements = []string{
	`CREATE TABLE IF NOT EXISTS suppliers (
	supplier_id INT NOT NULL PRIMARY KEY,
	company_name VARCHAR(64) NOT NULL,
	contact_name VARCHAR(48) NOT NULL,
	city VARCHAR(32) NOT NULL,
	country VARCHAR(32) NOT NULL,
	phone VARCHAR(24) NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS products (
	product_id INT NOT NULL PRIMARY KEY,
	supplier_id INT NOT NULL,
	product_name VARCHAR(64) NOT NULL,
	category VARCHAR(32) NOT NULL,
	unit_price DECIMAL(10,2) NOT NULL,
	units_in_stock INT NOT NULL,
	discontinued BOOLEAN NOT NULL DEFAULT FALSE,
	CONSTRAINT fk_products_supplier FOREIGN KEY (supplier_id) REFERENCES suppliers (supplier_id)
)`,
}

const (
	insertSuppliers = `INSERT INTO suppliers (supplier_id, company_name, contact_name, city, country, phone)
VALUES (:supplier_id, :company_name, :contact_name, :city, :country, :phone)`
	insertProducts = `INSERT INTO products (product_id, supplier_id, product_name, category, unit_price, units_in_stock, discontinued)
VALUES (:product_id, :supplier_id, :product_name, :category, :unit_price, :units_in_stock, :discontinued)`
)

// Summary reports what a Run changed.
type Summary struct {
	Suppliers int
	Products  int
	Skipped   bool
}

type Seeder struct {
	db        *sqlx.DB
	view      string
	reset     bool
	log       *slog.Logger
	generator *Generator
}

func NewSeeder(db *sqlx.DB, cfg Config, logger *slog.Logger) (*Seeder, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if !config.ValidIdentifier(cfg.View) {
		return nil, fmt.Errorf("invalid view name %q", cfg.View)
	}
	if cfg.ProductsPerSupplier <= 0 {
		return nil, fmt.Errorf("products per supplier must be > 0")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Seeder{
		db:        db,
		view:      cfg.View,
		reset:     cfg.Reset,
		log:       logger,
		generator: NewGenerator(cfg.Seed, cfg.ProductsPerSupplier),
	}, nil
}

// Run creates the tables, loads the catalogue when the tables are empty (or
// always when reset is set) and finally (re)creates the view.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	for _, statement := range tableStatements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return Summary{}, fmt.Errorf("create demo tables: %w", err)
		}
	}

	var existing int
	if err := s.db.GetContext(ctx, &existing, "SELECT COUNT(*) FROM suppliers"); err != nil {
		return Summary{}, fmt.Errorf("count suppliers: %w", err)
	}

	var summary Summary
	if existing > 0 && !s.reset {
		s.log.Info("demo catalogue already present", slog.Int("suppliers", existing))
		summary.Skipped = true
	} else {
		catalog := s.generator.Catalog()
		if err := s.load(ctx, catalog); err != nil {
			return Summary{}, err
		}
		summary.Suppliers = len(catalog.Suppliers)
		summary.Products = len(catalog.Products)
		s.log.Info("demo catalogue loaded",
			slog.Int("suppliers", summary.Suppliers),
			slog.Int("products", summary.Products),
			slog.Bool("reset", s.reset),
		)
	}

	if _, err := s.db.ExecContext(ctx, viewStatement(s.view)); err != nil {
		return Summary{}, fmt.Errorf("create view %s: %w", s.view, err)
	}
	s.log.Info("demo view ready", slog.String("view", s.view))
	return summary, nil
}

func (s *Seeder) load(ctx context.Context, catalog Catalog) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if s.reset {
		if _, err = tx.ExecContext(ctx, "DELETE FROM products"); err != nil {
			return fmt.Errorf("clear products: %w", err)
		}
		if _, err = tx.ExecContext(ctx, "DELETE FROM suppliers"); err != nil {
			return fmt.Errorf("clear suppliers: %w", err)
		}
	}
	if _, err = tx.NamedExecContext(ctx, insertSuppliers, catalog.Suppliers); err != nil {
		return fmt.Errorf("insert suppliers: %w", err)
	}
	if len(catalog.Products) > 0 {
		if _, err = tx.NamedExecContext(ctx, insertProducts, catalog.Products); err != nil {
			return fmt.Errorf("insert products: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}
	return nil
}

func viewStatement(view string) string {
	var b strings.Builder
	b.WriteString("CREATE OR REPLACE VIEW `")
	b.WriteString(view)
	b.WriteString("` AS SELECT\n")
	b.WriteString(`	s.supplier_id AS SupplierID,
	s.company_name AS CompanyName,
	s.contact_name AS ContactName,
	s.city AS City,
	s.country AS Country,
	s.phone AS Phone,
	p.product_id AS ProductID,
	p.product_name AS ProductName,
	p.category AS Category,
	p.unit_price AS UnitPrice,
	p.units_in_stock AS UnitsInStock,
	p.discontinued AS Discontinued
FROM suppliers s
LEFT JOIN products p ON p.supplier_id = s.supplier_id`)
	return b.String()
}
