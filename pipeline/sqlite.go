package pipeline

import (
	"database/sql"
	"fmt"

	"github.com/aluiziolira/go-scrape-exito/models"
	_ "modernc.org/sqlite"
)

const createProductsTable = `
CREATE TABLE IF NOT EXISTS products (
	"id" INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
	"global_index" INTEGER NOT NULL,
	"page_index" INTEGER NOT NULL,
	"title" TEXT,
	"brand" TEXT,
	"price_text" TEXT,
	"price_value" INTEGER,
	"currency" TEXT,
	"size" TEXT,
	"rating" TEXT,
	"review_count" INTEGER,
	"description" TEXT,
	"source" TEXT,
	"category" TEXT,
	"image_url" TEXT,
	"url" TEXT,
	"page" INTEGER,
	"extracted_at" TEXT,
	"status" TEXT,
	"tier" TEXT
);`

const insertProduct = `
INSERT INTO products (
	global_index, page_index, title, brand, price_text, price_value, currency,
	size, rating, review_count, description, source, category, image_url, url,
	page, extracted_at, status, tier
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

// SQLiteRepository appends records to a products table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at path.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := db.Exec(createProductsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create products table: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Persist inserts the batch in a single transaction.
func (sr *SQLiteRepository) Persist(products []*models.Product) (err error) {
	tx, err := sr.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(insertProduct)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		var price sql.NullInt64
		if p.PriceValue != nil {
			price = sql.NullInt64{Int64: *p.PriceValue, Valid: true}
		}
		if _, err = stmt.Exec(
			p.GlobalIndex, p.PageIndex, p.Title, p.Brand, p.PriceText, price, p.Currency,
			p.Size, p.Rating, p.ReviewCount, p.Description, p.Source, p.Category, p.ImageURL, p.URL,
			p.Page, p.ExtractedAt, string(p.Status), string(p.Tier),
		); err != nil {
			return fmt.Errorf("insert product %d: %w", p.GlobalIndex, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (sr *SQLiteRepository) Count() (int, error) {
	var n int
	if err := sr.db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// Close closes the database handle.
func (sr *SQLiteRepository) Close() error {
	return sr.db.Close()
}
