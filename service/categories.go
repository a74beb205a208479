package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/mbolis/formify/model"
	"github.com/mbolis/formify/store"
)

type Categories struct {
	db *sql.DB
}

func (s *Categories) Create(ctx context.Context, c *model.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return model.Invalid("Name is required.")
	}
	return store.InsertCategory(ctx, s.db, c)
}

func (s *Categories) Update(ctx context.Context, c *model.Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return model.Invalid("Name is required.")
	}
	return store.UpdateCategory(ctx, s.db, c)
}

func (s *Categories) Get(ctx context.Context, id, owner int) (model.Category, error) {
	return store.GetOwnedCategory(ctx, s.db, id, owner)
}

func (s *Categories) List(ctx context.Context, owner int) ([]model.Category, error) {
	return store.ListCategories(ctx, s.db, owner)
}

func (s *Categories) Delete(ctx context.Context, id, owner int) error {
	return store.DeleteCategory(ctx, s.db, id, owner)
}

// Link puts a form or process of the owner into one of the owner's
// categories.
func (s *Categories) Link(ctx context.Context, owner int, link *model.EntityCategory) error {
	if _, err := store.GetOwnedCategory(ctx, s.db, link.CategoryID, owner); err != nil {
		return err
	}
	if err := s.checkEntity(ctx, owner, link.Entity); err != nil {
		return err
	}
	return store.LinkEntity(ctx, s.db, link)
}

func (s *Categories) Unlink(ctx context.Context, owner int, ref model.EntityRef, categoryID int) error {
	if _, err := store.GetOwnedCategory(ctx, s.db, categoryID, owner); err != nil {
		return err
	}
	return store.UnlinkEntity(ctx, s.db, ref, categoryID)
}

func (s *Categories) Entities(ctx context.Context, owner, categoryID int) ([]model.EntityCategory, error) {
	if _, err := store.GetOwnedCategory(ctx, s.db, categoryID, owner); err != nil {
		return nil, err
	}
	return store.ListCategoryEntities(ctx, s.db, categoryID)
}

func (s *Categories) checkEntity(ctx context.Context, owner int, ref model.EntityRef) error {
	return ref.Match(
		func(id uuid.UUID) error {
			_, err := store.GetOwnedForm(ctx, s.db, id, owner)
			return err
		},
		func(id uuid.UUID) error {
			_, err := store.GetOwnedProcess(ctx, s.db, id, owner)
			return err
		},
	)
}
