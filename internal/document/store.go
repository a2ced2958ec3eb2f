package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-billing/internal/numbering"
)

// ErrNotFound indicates the requested document could not be located for the owner.
var ErrNotFound = errors.New("document not found")

// Store abstracts persistence so services and handlers can be exercised
// against fakes. Only raw inputs cross this boundary: derived totals and
// display numbers are never written.
type Store interface {
	Create(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, ownerID, id string) (Document, error)
	List(ctx context.Context, ownerID string, kind Kind, limit, offset int32) ([]Document, error)
	Count(ctx context.Context, ownerID string, kind Kind) (int64, error)
	ListRefs(ctx context.Context, ownerID string, kind Kind) ([]numbering.Ref, error)
	Replace(ctx context.Context, doc Document) (Document, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// PGStore is the pgx-backed Store implementation.
type PGStore struct {
	Pool *pgxpool.Pool
}

// NewStore constructs a PGStore over the shared pool.
func NewStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{Pool: pool}
}

const docColumns = `id::text, owner_id::text, kind, customer_name, notes,
	discount_mode, global_discount_type, global_discount_value, vat_enabled,
	created_at, updated_at`

// Create persists a document and its items in one transaction. A zero
// CreatedAt defers to the database clock; a provided one is kept verbatim so
// imported historical documents number correctly.
func (s *PGStore) Create(ctx context.Context, doc Document) (Document, error) {
	if s == nil || s.Pool == nil {
		return Document{}, errors.New("document store not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Document{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var createdAt *time.Time
	if !doc.CreatedAt.IsZero() {
		createdAt = &doc.CreatedAt
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO documents (owner_id, kind, customer_name, notes,
			discount_mode, global_discount_type, global_discount_value, vat_enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))
		RETURNING `+docColumns,
		doc.OwnerID, string(doc.Kind), doc.CustomerName, doc.Notes,
		string(doc.DiscountMode), string(doc.GlobalDiscountType), doc.GlobalDiscountValue,
		doc.VATEnabled, createdAt,
	)
	stored, err := scanDocument(row)
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}

	stored.Items, err = insertItems(ctx, tx, stored.ID, doc.Items)
	if err != nil {
		return Document{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Document{}, err
	}
	return stored, nil
}

// Get loads one document with its items, scoped to the owner.
func (s *PGStore) Get(ctx context.Context, ownerID, id string) (Document, error) {
	if s == nil || s.Pool == nil {
		return Document{}, errors.New("document store not configured")
	}
	row := s.Pool.QueryRow(ctx, `
		SELECT `+docColumns+`
		FROM documents
		WHERE id = $1 AND owner_id = $2`, id, ownerID)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	items, err := s.loadItems(ctx, []string{doc.ID})
	if err != nil {
		return Document{}, err
	}
	doc.Items = items[doc.ID]
	return doc, nil
}

// List returns a page of an owner's documents of one kind, items included,
// newest first.
func (s *PGStore) List(ctx context.Context, ownerID string, kind Kind, limit, offset int32) ([]Document, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("document store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT `+docColumns+`
		FROM documents
		WHERE owner_id = $1 AND kind = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`, ownerID, string(kind), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]Document, 0, limit)
	ids := make([]string, 0, limit)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
		ids = append(ids, doc.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	items, err := s.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].Items = items[docs[i].ID]
	}
	return docs, nil
}

// Count reports the collection size for pagination.
func (s *PGStore) Count(ctx context.Context, ownerID string, kind Kind) (int64, error) {
	if s == nil || s.Pool == nil {
		return 0, errors.New("document store not configured")
	}
	var total int64
	err := s.Pool.QueryRow(ctx, `
		SELECT count(*) FROM documents WHERE owner_id = $1 AND kind = $2`,
		ownerID, string(kind)).Scan(&total)
	return total, err
}

// ListRefs returns the full sibling collection the numberer ranks over.
func (s *PGStore) ListRefs(ctx context.Context, ownerID string, kind Kind) ([]numbering.Ref, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("document store not configured")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id::text, created_at
		FROM documents
		WHERE owner_id = $1 AND kind = $2`, ownerID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []numbering.Ref
	for rows.Next() {
		var ref numbering.Ref
		if err := rows.Scan(&ref.ID, &ref.CreatedAt); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// Replace updates a document's configuration and swaps its items. The
// creation timestamp is immutable: numbering depends on it.
func (s *PGStore) Replace(ctx context.Context, doc Document) (Document, error) {
	if s == nil || s.Pool == nil {
		return Document{}, errors.New("document store not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Document{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx, `
		UPDATE documents
		SET customer_name = $3, notes = $4, discount_mode = $5,
			global_discount_type = $6, global_discount_value = $7,
			vat_enabled = $8, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+docColumns,
		doc.ID, doc.OwnerID, doc.CustomerName, doc.Notes,
		string(doc.DiscountMode), string(doc.GlobalDiscountType), doc.GlobalDiscountValue,
		doc.VATEnabled,
	)
	stored, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("update document: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM document_items WHERE document_id = $1`, stored.ID); err != nil {
		return Document{}, err
	}
	stored.Items, err = insertItems(ctx, tx, stored.ID, doc.Items)
	if err != nil {
		return Document{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Document{}, err
	}
	return stored, nil
}

// Delete removes a document; its items cascade.
func (s *PGStore) Delete(ctx context.Context, ownerID, id string) error {
	if s == nil || s.Pool == nil {
		return errors.New("document store not configured")
	}
	tag, err := s.Pool.Exec(ctx, `
		DELETE FROM documents WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) loadItems(ctx context.Context, docIDs []string) (map[string][]Item, error) {
	out := make(map[string][]Item, len(docIDs))
	if len(docIDs) == 0 {
		return out, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id::text, document_id::text, position, description, qty,
			unit_price, discount_type, discount_value
		FROM document_items
		WHERE document_id = ANY($1::uuid[])
		ORDER BY document_id, position`, docIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item  Item
			docID string
			dtype string
		)
		if err := rows.Scan(&item.ID, &docID, &item.Position, &item.Description,
			&item.Qty, &item.UnitPrice, &dtype, &item.DiscountValue); err != nil {
			return nil, err
		}
		item.DiscountType = discountTypeFrom(dtype)
		out[docID] = append(out[docID], item)
	}
	return out, rows.Err()
}

func insertItems(ctx context.Context, tx pgx.Tx, docID string, items []Item) ([]Item, error) {
	stored := make([]Item, 0, len(items))
	for i, item := range items {
		var id string
		err := tx.QueryRow(ctx, `
			INSERT INTO document_items (document_id, position, description, qty,
				unit_price, discount_type, discount_value)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id::text`,
			docID, i, item.Description, item.Qty, item.UnitPrice,
			string(item.DiscountType), item.DiscountValue,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert item %d: %w", i, err)
		}
		item.ID = id
		item.Position = i
		stored = append(stored, item)
	}
	return stored, nil
}

func scanDocument(row pgx.Row) (Document, error) {
	var (
		doc   Document
		kind  string
		mode  string
		dtype string
	)
	err := row.Scan(&doc.ID, &doc.OwnerID, &kind, &doc.CustomerName, &doc.Notes,
		&mode, &dtype, &doc.GlobalDiscountValue, &doc.VATEnabled,
		&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	doc.Kind = Kind(kind)
	doc.DiscountMode = parseModeFrom(mode)
	doc.GlobalDiscountType = discountTypeFrom(dtype)
	return doc, nil
}
