package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PartyService manages the counterparties of the document flows: clients we
// sell to and suppliers we buy from. Both share a person row holding identity
// and contact data, keyed by document number, so the same person can act as
// client and supplier without duplication.
type PartyService interface {
	CreateClient(ctx context.Context, input CounterpartyInput) (*Client, error)
	UpdateClient(ctx context.Context, clientID int, input CounterpartyInput) (*Client, error)
	DeactivateClient(ctx context.Context, clientID int) error
	GetClient(ctx context.Context, clientID int) (*Client, error)
	GetClients(ctx context.Context, activeOnly bool) ([]Client, error)

	CreateSupplier(ctx context.Context, input CounterpartyInput) (*Supplier, error)
	UpdateSupplier(ctx context.Context, supplierID int, input CounterpartyInput) (*Supplier, error)
	DeactivateSupplier(ctx context.Context, supplierID int) error
	GetSupplier(ctx context.Context, supplierID int) (*Supplier, error)
	GetSuppliers(ctx context.Context, activeOnly bool) ([]Supplier, error)

	GetPersonByDocument(ctx context.Context, documentNumber string) (*Person, error)
	// DeactivatePerson disables the person and every client/supplier role
	// attached to it, blocking new documents against any of them.
	DeactivatePerson(ctx context.Context, personID int) error
}

// PersonInput carries the identity and contact fields of a person.
type PersonInput struct {
	DocumentType   string
	DocumentNumber string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	Address        string
}

// CounterpartyInput carries the person plus the credit profile of a client or
// supplier role.
type CounterpartyInput struct {
	Person         PersonInput
	CreditLimit    decimal.Decimal
	CreditTermDays int
	Notes          string
}

type partyService struct {
	pool *pgxpool.Pool
}

func NewPartyService(pool *pgxpool.Pool) PartyService {
	return &partyService{pool: pool}
}

func validateCounterpartyInput(input CounterpartyInput) error {
	if input.Person.DocumentNumber == "" {
		return fmt.Errorf("document number is required")
	}
	if input.Person.FirstName == "" {
		return fmt.Errorf("first name is required")
	}
	if input.CreditLimit.IsNegative() {
		return fmt.Errorf("credit limit cannot be negative")
	}
	if input.CreditTermDays < 0 {
		return fmt.Errorf("credit term days cannot be negative")
	}
	return nil
}

// upsertPersonTx creates or refreshes the person row for a document number and
// returns its ID. Contact fields always take the latest submitted values.
func upsertPersonTx(ctx context.Context, tx pgx.Tx, input PersonInput) (int, error) {
	documentType := input.DocumentType
	if documentType == "" {
		documentType = "DNI"
	}

	var personID int
	err := tx.QueryRow(ctx, `
		INSERT INTO people (document_type, document_number, first_name, last_name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (document_number)
		DO UPDATE SET document_type = EXCLUDED.document_type, first_name = EXCLUDED.first_name,
		              last_name = EXCLUDED.last_name, email = EXCLUDED.email,
		              phone = EXCLUDED.phone, address = EXCLUDED.address, updated_at = NOW()
		RETURNING id
	`, documentType, input.DocumentNumber, input.FirstName, input.LastName,
		nullable(input.Email), nullable(input.Phone), nullable(input.Address)).Scan(&personID)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert person %s: %w", input.DocumentNumber, err)
	}
	return personID, nil
}

// ── Clients ──────────────────────────────────────────────────────────────────

const clientSelect = `
	SELECT cl.id, cl.person_id, cl.code, TRIM(p.first_name || ' ' || p.last_name),
	       cl.credit_limit, cl.credit_used, cl.credit_term_days, cl.last_sale_date::text,
	       cl.total_sales, COALESCE(cl.notes, ''), cl.is_active, cl.created_at
	FROM clients cl
	JOIN people p ON p.id = cl.person_id
`

func scanClient(row pgx.Row, c *Client) error {
	return row.Scan(
		&c.ID, &c.PersonID, &c.Code, &c.Name,
		&c.CreditLimit, &c.CreditUsed, &c.CreditTermDays, &c.LastSaleDate,
		&c.TotalSales, &c.Notes, &c.IsActive, &c.CreatedAt,
	)
}

func (s *partyService) CreateClient(ctx context.Context, input CounterpartyInput) (*Client, error) {
	if err := validateCounterpartyInput(input); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	personID, err := upsertPersonTx(ctx, tx, input.Person)
	if err != nil {
		return nil, err
	}

	var existingID int
	err = tx.QueryRow(ctx, "SELECT id FROM clients WHERE person_id = $1", personID).Scan(&existingID)
	if err == nil {
		return nil, fmt.Errorf("person %s is already client %d", input.Person.DocumentNumber, existingID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing client: %w", err)
	}

	code, err := nextCodeTx(ctx, tx, clientCodePrefix)
	if err != nil {
		return nil, err
	}

	var clientID int
	err = tx.QueryRow(ctx, `
		INSERT INTO clients (person_id, code, credit_limit, credit_term_days, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, personID, code, input.CreditLimit, input.CreditTermDays, nullable(input.Notes)).Scan(&clientID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert client %s: %w", code, ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("failed to insert client: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit client creation: %w", err)
	}
	return s.GetClient(ctx, clientID)
}

func (s *partyService) UpdateClient(ctx context.Context, clientID int, input CounterpartyInput) (*Client, error) {
	if err := validateCounterpartyInput(input); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var personID int
	err = tx.QueryRow(ctx, "SELECT person_id FROM clients WHERE id = $1 FOR UPDATE", clientID).Scan(&personID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "client", ID: clientID}
		}
		return nil, fmt.Errorf("failed to fetch client %d: %w", clientID, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE people
		SET document_type = $1, document_number = $2, first_name = $3, last_name = $4,
		    email = $5, phone = $6, address = $7, updated_at = NOW()
		WHERE id = $8
	`, input.Person.DocumentType, input.Person.DocumentNumber, input.Person.FirstName, input.Person.LastName,
		nullable(input.Person.Email), nullable(input.Person.Phone), nullable(input.Person.Address), personID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("document number %s already belongs to another person", input.Person.DocumentNumber)
		}
		return nil, fmt.Errorf("failed to update person %d: %w", personID, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE clients
		SET credit_limit = $1, credit_term_days = $2, notes = $3, updated_at = NOW()
		WHERE id = $4
	`, input.CreditLimit, input.CreditTermDays, nullable(input.Notes), clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to update client %d: %w", clientID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit client update: %w", err)
	}
	return s.GetClient(ctx, clientID)
}

func (s *partyService) DeactivateClient(ctx context.Context, clientID int) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE clients SET is_active = false, updated_at = NOW() WHERE id = $1",
		clientID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate client %d: %w", clientID, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "client", ID: clientID}
	}
	return nil
}

func (s *partyService) GetClient(ctx context.Context, clientID int) (*Client, error) {
	var c Client
	err := scanClient(s.pool.QueryRow(ctx, clientSelect+" WHERE cl.id = $1", clientID), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "client", ID: clientID}
		}
		return nil, fmt.Errorf("failed to fetch client %d: %w", clientID, err)
	}
	return &c, nil
}

func (s *partyService) GetClients(ctx context.Context, activeOnly bool) ([]Client, error) {
	query := clientSelect
	if activeOnly {
		query += " WHERE cl.is_active = true"
	}
	query += " ORDER BY cl.code"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		if err := scanClient(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, nil
}

// ── Suppliers ────────────────────────────────────────────────────────────────

const supplierSelect = `
	SELECT su.id, su.person_id, su.code, TRIM(p.first_name || ' ' || p.last_name),
	       su.credit_limit, su.credit_used, su.credit_term_days, su.last_purchase_date::text,
	       su.total_purchases, COALESCE(su.notes, ''), su.is_active, su.created_at
	FROM suppliers su
	JOIN people p ON p.id = su.person_id
`

func scanSupplier(row pgx.Row, su *Supplier) error {
	return row.Scan(
		&su.ID, &su.PersonID, &su.Code, &su.Name,
		&su.CreditLimit, &su.CreditUsed, &su.CreditTermDays, &su.LastPurchaseDate,
		&su.TotalPurchases, &su.Notes, &su.IsActive, &su.CreatedAt,
	)
}

func (s *partyService) CreateSupplier(ctx context.Context, input CounterpartyInput) (*Supplier, error) {
	if err := validateCounterpartyInput(input); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	personID, err := upsertPersonTx(ctx, tx, input.Person)
	if err != nil {
		return nil, err
	}

	var existingID int
	err = tx.QueryRow(ctx, "SELECT id FROM suppliers WHERE person_id = $1", personID).Scan(&existingID)
	if err == nil {
		return nil, fmt.Errorf("person %s is already supplier %d", input.Person.DocumentNumber, existingID)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing supplier: %w", err)
	}

	code, err := nextCodeTx(ctx, tx, supplierCodePrefix)
	if err != nil {
		return nil, err
	}

	var supplierID int
	err = tx.QueryRow(ctx, `
		INSERT INTO suppliers (person_id, code, credit_limit, credit_term_days, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, personID, code, input.CreditLimit, input.CreditTermDays, nullable(input.Notes)).Scan(&supplierID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("insert supplier %s: %w", code, ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("failed to insert supplier: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit supplier creation: %w", err)
	}
	return s.GetSupplier(ctx, supplierID)
}

func (s *partyService) UpdateSupplier(ctx context.Context, supplierID int, input CounterpartyInput) (*Supplier, error) {
	if err := validateCounterpartyInput(input); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var personID int
	err = tx.QueryRow(ctx, "SELECT person_id FROM suppliers WHERE id = $1 FOR UPDATE", supplierID).Scan(&personID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "supplier", ID: supplierID}
		}
		return nil, fmt.Errorf("failed to fetch supplier %d: %w", supplierID, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE people
		SET document_type = $1, document_number = $2, first_name = $3, last_name = $4,
		    email = $5, phone = $6, address = $7, updated_at = NOW()
		WHERE id = $8
	`, input.Person.DocumentType, input.Person.DocumentNumber, input.Person.FirstName, input.Person.LastName,
		nullable(input.Person.Email), nullable(input.Person.Phone), nullable(input.Person.Address), personID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("document number %s already belongs to another person", input.Person.DocumentNumber)
		}
		return nil, fmt.Errorf("failed to update person %d: %w", personID, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE suppliers
		SET credit_limit = $1, credit_term_days = $2, notes = $3, updated_at = NOW()
		WHERE id = $4
	`, input.CreditLimit, input.CreditTermDays, nullable(input.Notes), supplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to update supplier %d: %w", supplierID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit supplier update: %w", err)
	}
	return s.GetSupplier(ctx, supplierID)
}

func (s *partyService) DeactivateSupplier(ctx context.Context, supplierID int) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE suppliers SET is_active = false, updated_at = NOW() WHERE id = $1",
		supplierID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate supplier %d: %w", supplierID, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "supplier", ID: supplierID}
	}
	return nil
}

func (s *partyService) GetSupplier(ctx context.Context, supplierID int) (*Supplier, error) {
	var su Supplier
	err := scanSupplier(s.pool.QueryRow(ctx, supplierSelect+" WHERE su.id = $1", supplierID), &su)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "supplier", ID: supplierID}
		}
		return nil, fmt.Errorf("failed to fetch supplier %d: %w", supplierID, err)
	}
	return &su, nil
}

func (s *partyService) GetSuppliers(ctx context.Context, activeOnly bool) ([]Supplier, error) {
	query := supplierSelect
	if activeOnly {
		query += " WHERE su.is_active = true"
	}
	query += " ORDER BY su.code"

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var su Supplier
		if err := scanSupplier(rows, &su); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, su)
	}
	return suppliers, nil
}

// ── People ───────────────────────────────────────────────────────────────────

func (s *partyService) GetPersonByDocument(ctx context.Context, documentNumber string) (*Person, error) {
	var p Person
	err := s.pool.QueryRow(ctx, `
		SELECT id, document_type, document_number, first_name, last_name,
		       COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), is_active, created_at
		FROM people WHERE document_number = $1
	`, documentNumber).Scan(
		&p.ID, &p.DocumentType, &p.DocumentNumber, &p.FirstName, &p.LastName,
		&p.Email, &p.Phone, &p.Address, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "person", Ref: documentNumber}
		}
		return nil, fmt.Errorf("failed to fetch person %s: %w", documentNumber, err)
	}
	return &p, nil
}

func (s *partyService) DeactivatePerson(ctx context.Context, personID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		"UPDATE people SET is_active = false, updated_at = NOW() WHERE id = $1",
		personID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate person %d: %w", personID, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "person", ID: personID}
	}

	if _, err := tx.Exec(ctx,
		"UPDATE clients SET is_active = false, updated_at = NOW() WHERE person_id = $1",
		personID,
	); err != nil {
		return fmt.Errorf("failed to deactivate client roles of person %d: %w", personID, err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE suppliers SET is_active = false, updated_at = NOW() WHERE person_id = $1",
		personID,
	); err != nil {
		return fmt.Errorf("failed to deactivate supplier roles of person %d: %w", personID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit person deactivation: %w", err)
	}
	return nil
}
