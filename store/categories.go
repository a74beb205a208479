package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/mbolis/formify/model"
	"github.com/pkg/errors"
)

func InsertCategory(ctx context.Context, q Querier, c *model.Category) error {
	c.CreatedAt = time.Now().UTC()
	err := q.QueryRowContext(ctx, `
		INSERT INTO category (name, description, created_by, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		c.Name,
		c.Description,
		c.CreatedBy,
		c.CreatedAt,
	).Scan(&c.ID)
	if isUnique(err) {
		return model.Invalid("Category %q already exists.", c.Name)
	}
	return errors.Wrap(err, "db.insert_category")
}

func GetOwnedCategory(ctx context.Context, q Querier, id, owner int) (c model.Category, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT id, name, description, created_by, created_at
		FROM category
		WHERE id = ?
			AND created_by = ?`,
		id,
		owner,
	).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedBy, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = model.Missing("category", id)
		return
	}
	err = errors.Wrap(err, "db.get_category")
	return
}

func ListCategories(ctx context.Context, q Querier, owner int) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, description, created_by, created_at
		FROM category
		WHERE created_by = ?
		ORDER BY name`,
		owner,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_categories")
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedBy, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "db.list_categories.scan")
		}
		categories = append(categories, c)
	}
	return categories, errors.Wrap(rows.Err(), "db.list_categories.rows")
}

func UpdateCategory(ctx context.Context, q Querier, c *model.Category) error {
	res, err := q.ExecContext(ctx, `
		UPDATE category
		SET name = ?, description = ?
		WHERE id = ?
			AND created_by = ?`,
		c.Name,
		c.Description,
		c.ID,
		c.CreatedBy,
	)
	if isUnique(err) {
		return model.Invalid("Category %q already exists.", c.Name)
	}
	if err != nil {
		return errors.Wrap(err, "db.update_category")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.update_category.verify")
	}
	if n < 1 {
		return model.Missing("category", c.ID)
	}
	return nil
}

func DeleteCategory(ctx context.Context, q Querier, id, owner int) error {
	res, err := q.ExecContext(ctx, `
		DELETE FROM category WHERE id = ? AND created_by = ?`,
		id,
		owner,
	)
	if err != nil {
		return errors.Wrap(err, "db.delete_category")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.delete_category.verify")
	}
	if n < 1 {
		return model.Missing("category", id)
	}
	return nil
}

func LinkEntity(ctx context.Context, q Querier, link *model.EntityCategory) error {
	link.CreatedAt = time.Now().UTC()
	err := q.QueryRowContext(ctx, `
		INSERT INTO entity_category (entity_type, entity_id, category_id, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		link.Entity.Kind(),
		link.Entity.ID(),
		link.CategoryID,
		link.CreatedAt,
	).Scan(&link.ID)
	if isUnique(err) {
		return model.Invalid("%s is already in this category.", link.Entity)
	}
	return errors.Wrap(err, "db.link_entity")
}

func UnlinkEntity(ctx context.Context, q Querier, ref model.EntityRef, categoryID int) error {
	res, err := q.ExecContext(ctx, `
		DELETE FROM entity_category
		WHERE entity_type = ?
			AND entity_id = ?
			AND category_id = ?`,
		ref.Kind(),
		ref.ID(),
		categoryID,
	)
	if err != nil {
		return errors.Wrap(err, "db.unlink_entity")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "db.unlink_entity.verify")
	}
	if n < 1 {
		return model.Missing("category link", ref.String())
	}
	return nil
}

// ListCategoryEntities returns the entities linked to the category.
func ListCategoryEntities(ctx context.Context, q Querier, categoryID int) ([]model.EntityCategory, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, category_id, created_at
		FROM entity_category
		WHERE category_id = ?
		ORDER BY created_at, id`,
		categoryID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_category_entities")
	}
	defer rows.Close()

	links := []model.EntityCategory{}
	for rows.Next() {
		var (
			link     model.EntityCategory
			kind, id   string
		)
		if err := rows.Scan(&link.ID, &kind, &id, &link.CategoryID, &link.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "db.list_category_entities.scan")
		}
		if link.Entity, err = model.ParseEntityRef(kind, id); err != nil {
			return nil, errors.Wrap(err, "db.list_category_entities.ref")
		}
		links = append(links, link)
	}
	return links, errors.Wrap(rows.Err(), "db.list_category_entities.rows")
}
