package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"example.com/cesizen/internal/domain"
	"example.com/cesizen/internal/platform/events"
)

const categoryColumns = `id, name, description, created_at, updated_at`

func scanCategory(row pgx.CollectableRow) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// ListCategories implements domain.CategoryRepository.
func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return list(ctx, r.pool, scanCategory, `SELECT `+categoryColumns+` FROM categories ORDER BY id`)
}

// GetCategory implements domain.CategoryRepository.
func (r *Repository) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return getOne(ctx, r.pool, scanCategory, `SELECT `+categoryColumns+` FROM categories WHERE id=$1`, id)
}

// CreateCategory implements domain.CategoryRepository.
func (r *Repository) CreateCategory(ctx context.Context, category domain.Category) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO categories (`+categoryColumns+`) VALUES ($1,$2,$3,$4,$5)`,
			category.ID, category.Name, category.Description, category.CreatedAt, category.UpdatedAt,
		); err != nil {
			return translate(err)
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityCategory, category.ID, events.ActionCreated, category.UpdatedAt))
	})
}

// UpdateCategory implements domain.CategoryRepository.
func (r *Repository) UpdateCategory(ctx context.Context, category domain.Category) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := execAffecting(ctx, tx, "category", category.ID,
			`UPDATE categories SET name=$2, description=$3, updated_at=$4 WHERE id=$1`,
			category.ID, category.Name, category.Description, category.UpdatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityCategory, category.ID, events.ActionUpdated, category.UpdatedAt))
	})
}

// DeleteCategory implements domain.CategoryRepository.
func (r *Repository) DeleteCategory(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := execAffecting(ctx, tx, "category", id, `DELETE FROM categories WHERE id=$1`, id); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityCategory, id, events.ActionDeleted, r.now()))
	})
}

// CountResourcesInCategory implements domain.CategoryRepository. Info resources count too.
func (r *Repository) CountResourcesInCategory(ctx context.Context, id string) (int, error) {
	return count(ctx, r.pool,
		`SELECT (SELECT COUNT(*) FROM resources WHERE category_id=$1) + (SELECT COUNT(*) FROM info_resources WHERE category_id=$1)`, id)
}

const resourceColumns = `id, title, description, content, type, url, COALESCE(category_id, ''), status, author_id, created_at, updated_at`

func scanResource(row pgx.CollectableRow) (domain.Resource, error) {
	var res domain.Resource
	err := row.Scan(&res.ID, &res.Title, &res.Description, &res.Content, &res.Type, &res.URL, &res.CategoryID, &res.Status, &res.AuthorID, &res.CreatedAt, &res.UpdatedAt)
	return res, err
}

// ListResources implements domain.ResourceRepository.
func (r *Repository) ListResources(ctx context.Context) ([]domain.Resource, error) {
	return list(ctx, r.pool, scanResource, `SELECT `+resourceColumns+` FROM resources ORDER BY id`)
}

// GetResource implements domain.ResourceRepository.
func (r *Repository) GetResource(ctx context.Context, id string) (*domain.Resource, error) {
	return getOne(ctx, r.pool, scanResource, `SELECT `+resourceColumns+` FROM resources WHERE id=$1`, id)
}

// CreateResource implements domain.ResourceRepository.
func (r *Repository) CreateResource(ctx context.Context, res domain.Resource) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const stmt = `INSERT INTO resources (id, title, description, content, type, url, category_id, status, author_id, created_at, updated_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
		if _, err := tx.Exec(ctx, stmt,
			res.ID, res.Title, res.Description, res.Content, res.Type, res.URL,
			nullIfEmpty(res.CategoryID), res.Status, res.AuthorID, res.CreatedAt, res.UpdatedAt,
		); err != nil {
			return translate(err)
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityResource, res.ID, events.ActionCreated, res.UpdatedAt))
	})
}

// UpdateResource implements domain.ResourceRepository.
func (r *Repository) UpdateResource(ctx context.Context, res domain.Resource) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const stmt = `UPDATE resources SET title=$2, description=$3, content=$4, type=$5, url=$6, category_id=$7, status=$8, updated_at=$9
            WHERE id=$1`
		if err := execAffecting(ctx, tx, "resource", res.ID, stmt,
			res.ID, res.Title, res.Description, res.Content, res.Type, res.URL,
			nullIfEmpty(res.CategoryID), res.Status, res.UpdatedAt,
		); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityResource, res.ID, events.ActionUpdated, res.UpdatedAt))
	})
}

// DeleteResource implements domain.ResourceRepository.
func (r *Repository) DeleteResource(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := execAffecting(ctx, tx, "resource", id, `DELETE FROM resources WHERE id=$1`, id); err != nil {
			return err
		}
		return insertOutbox(ctx, tx, contentChanged(events.EntityResource, id, events.ActionDeleted, r.now()))
	})
}
