package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// CategoryRepo provides CRUD operations for categories.
type CategoryRepo struct {
	db *sql.DB
}

// NewCategoryRepo returns a CategoryRepo bound to db.
func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

const categorySelect = `SELECT c.id, c.name, c.description, c.image_url, c.is_active, c.created_at,
	(SELECT COUNT(*) FROM events e WHERE e.category_id = c.id) FROM categories c`

func scanCategory(s rowScanner) (model.Category, error) {
	var (
		c     model.Category
		desc  sql.NullString
		image sql.NullString
	)
	if err := s.Scan(&c.ID, &c.Name, &desc, &image, &c.IsActive, &c.CreatedAt, &c.EventCount); err != nil {
		return c, err
	}
	c.Description = stringPtr(desc)
	c.ImageURL = stringPtr(image)
	return c, nil
}

func (r *CategoryRepo) list(ctx context.Context, where string) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, categorySelect+where)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListActive returns the categories shown to the public, by name.
func (r *CategoryRepo) ListActive(ctx context.Context) ([]model.Category, error) {
	return r.list(ctx, ` WHERE c.is_active = TRUE ORDER BY c.name`)
}

// ListAll returns every category, newest first.
func (r *CategoryRepo) ListAll(ctx context.Context) ([]model.Category, error) {
	return r.list(ctx, ` ORDER BY c.created_at DESC, c.id DESC`)
}

// GetByID returns one category.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (*model.Category, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, categorySelect+` WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts c and returns the stored row.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) (*model.Category, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, description, image_url) VALUES (?, ?, ?)`,
		strings.TrimSpace(c.Name), nullString(c.Description), nullString(c.ImageURL))
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrNameExists
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update replaces the editable fields of a category.
func (r *CategoryRepo) Update(ctx context.Context, id uint64, c *model.Category) (*model.Category, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, image_url = ? WHERE id = ?`,
		strings.TrimSpace(c.Name), nullString(c.Description), nullString(c.ImageURL), id)
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrNameExists
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes a category; its events keep existing uncategorized.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrCategoryNotFound
	}
	return nil
}

// ToggleActive flips is_active and returns the new value.
func (r *CategoryRepo) ToggleActive(ctx context.Context, id uint64) (bool, error) {
	var active bool
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT is_active FROM categories WHERE id = ?`, id).Scan(&active); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.ErrCategoryNotFound
			}
			return err
		}
		active = !active
		_, err := tx.ExecContext(ctx, `UPDATE categories SET is_active = ? WHERE id = ?`, active, id)
		return err
	})
	return active, err
}
