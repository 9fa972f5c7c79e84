// seed is a one-shot tool that loads a small demo dataset: two categories, a
// handful of products, and one client and supplier. Safe to re-run; every
// statement upserts on the natural key.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"

	"sales-backend/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Seeding categories...")
	_, err = tx.Exec(ctx, `
		INSERT INTO categories (name, description)
		VALUES
		  ('Abarrotes', 'Dry goods and pantry staples'),
		  ('Bebidas',   'Bottled and canned drinks')
		ON CONFLICT (name) DO UPDATE
		  SET description = EXCLUDED.description;
	`)
	if err != nil {
		log.Fatalf("Failed to seed categories: %v", err)
	}

	log.Println("Seeding products...")
	_, err = tx.Exec(ctx, `
		INSERT INTO products (code, name, category_id, unit, purchase_price, sale_price, stock, min_stock)
		SELECT p.code, p.name, c.id, p.unit, p.purchase_price::numeric, p.sale_price::numeric, p.stock::int, p.min_stock::int
		FROM (VALUES
		    ('PRD000001', 'Arroz Extra 5kg',       'Abarrotes', 'BOL', '18.50', '24.90', '40', '10'),
		    ('PRD000002', 'Azucar Rubia 1kg',      'Abarrotes', 'KG',  '3.20',  '4.50',  '60', '15'),
		    ('PRD000003', 'Aceite Vegetal 900ml',  'Abarrotes', 'UND', '8.10',  '10.90', '25', '8'),
		    ('PRD000004', 'Gaseosa Cola 3L',       'Bebidas',   'UND', '7.00',  '9.50',  '30', '12'),
		    ('PRD000005', 'Agua Mineral 2.5L',     'Bebidas',   'UND', '2.10',  '3.00',  '48', '20')
		) AS p(code, name, category, unit, purchase_price, sale_price, stock, min_stock)
		JOIN categories c ON c.name = p.category
		ON CONFLICT (code) DO UPDATE
		  SET name = EXCLUDED.name,
		      purchase_price = EXCLUDED.purchase_price,
		      sale_price = EXCLUDED.sale_price,
		      min_stock = EXCLUDED.min_stock;
	`)
	if err != nil {
		log.Fatalf("Failed to seed products: %v", err)
	}

	log.Println("Seeding counterparties...")
	_, err = tx.Exec(ctx, `
		INSERT INTO people (document_type, document_number, first_name, last_name, phone, email)
		VALUES
		  ('DNI', '45678123', 'Maria', 'Quispe', '987654321', 'maria.quispe@example.com'),
		  ('RUC', '20456789012', 'Distribuidora Andina', 'SAC', '014567890', 'ventas@andina.example.com')
		ON CONFLICT (document_number) DO UPDATE
		  SET phone = EXCLUDED.phone,
		      email = EXCLUDED.email;
	`)
	if err != nil {
		log.Fatalf("Failed to seed people: %v", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO clients (code, person_id, credit_limit, credit_term_days)
		SELECT 'CLI000001', id, 500.00, 30 FROM people WHERE document_number = '45678123'
		ON CONFLICT (code) DO UPDATE
		  SET credit_limit = EXCLUDED.credit_limit,
		      credit_term_days = EXCLUDED.credit_term_days;
	`)
	if err != nil {
		log.Fatalf("Failed to seed client: %v", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO suppliers (code, person_id, credit_limit, credit_term_days)
		SELECT 'PROV000001', id, 5000.00, 45 FROM people WHERE document_number = '20456789012'
		ON CONFLICT (code) DO UPDATE
		  SET credit_limit = EXCLUDED.credit_limit,
		      credit_term_days = EXCLUDED.credit_term_days;
	`)
	if err != nil {
		log.Fatalf("Failed to seed supplier: %v", err)
	}

	// Advance code sequences past the seeded codes so generated codes never
	// collide with them.
	log.Println("Advancing code sequences...")
	_, err = tx.Exec(ctx, `
		INSERT INTO code_sequences (prefix, last_number)
		VALUES ('PRD', 5), ('CLI', 1), ('PROV', 1)
		ON CONFLICT (prefix) DO UPDATE
		  SET last_number = GREATEST(code_sequences.last_number, EXCLUDED.last_number);
	`)
	if err != nil {
		log.Fatalf("Failed to advance code sequences: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed data loaded successfully.")
}
