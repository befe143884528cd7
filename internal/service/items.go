package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// Rating bounds, inclusive.
const (
	MinRating = 0
	MaxRating = 5
)

// GetAllItems returns every item, or an empty slice if the store fails.
func (m *DataManager) GetAllItems(ctx context.Context) []model.Item {
	items, err := m.store.ListItems(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "listing items", "error", err)
		return []model.Item{}
	}
	return items
}

// GetItem returns the item with the given id, or nil.
func (m *DataManager) GetItem(ctx context.Context, id int64) *model.Item {
	if id <= 0 {
		return nil
	}
	item, err := lookup(m.store.GetItemByID(ctx, id))
	if err != nil {
		m.logger.ErrorContext(ctx, "getting item", "item_id", id, "error", err)
		return nil
	}
	return item
}

// GetItemByName returns the first item named exactly name, or nil.
func (m *DataManager) GetItemByName(ctx context.Context, name string) *model.Item {
	item, err := lookup(m.store.GetItemByName(ctx, name))
	if err != nil {
		m.logger.ErrorContext(ctx, "getting item by name", "name", name, "error", err)
		return nil
	}
	return item
}

// AddItem validates in and inserts a new item. The (name, description) pair
// must be new.
func (m *DataManager) AddItem(ctx context.Context, in model.ItemInput) (*model.Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if in.Name == "" || in.Price == nil {
		return nil, apperror.ValidationFailed("", "Item name and price are required.")
	}
	if err := validateNumbers(in); err != nil {
		return nil, err
	}

	item := &model.Item{
		Name:        in.Name,
		Description: in.Description,
		Price:       *in.Price,
		Rating:      in.Rating,
		Image:       in.Image,
	}
	if item.Image == "" {
		item.Image = model.DefaultItemImage
	}

	err := m.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := ensurePairFree(ctx, tx, item.Name, item.Description, 0); err != nil {
			return err
		}
		return tx.CreateItem(ctx, item)
	})
	if err != nil {
		return nil, m.fault(ctx, "add item", err, "Error while adding the item, please try again!")
	}

	m.logger.InfoContext(ctx, "item added", "item_id", item.ID, "name", item.Name)
	return item, nil
}

// UpdateItem changes only the supplied fields of item id. Likes are never
// touched here.
func (m *DataManager) UpdateItem(ctx context.Context, id int64, in model.ItemInput) (*model.Item, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if err := validateNumbers(in); err != nil {
		return nil, err
	}

	var item *model.Item
	err := m.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		item, err = tx.GetItemByID(ctx, id)
		if err != nil {
			return err
		}

		if in.Name != "" {
			item.Name = in.Name
		}
		if in.Description != "" {
			item.Description = in.Description
		}
		if in.Price != nil {
			item.Price = *in.Price
		}
		if in.Rating != nil {
			item.Rating = in.Rating
		}
		if in.Image != "" {
			item.Image = in.Image
		}

		if err := ensurePairFree(ctx, tx, item.Name, item.Description, id); err != nil {
			return err
		}
		return tx.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, m.fault(ctx, "update item", err, "Error updating item, try that again!")
	}

	m.logger.InfoContext(ctx, "item updated", "item_id", item.ID, "name", item.Name)
	return item, nil
}

// DeleteItem removes item id and returns the removed record.
func (m *DataManager) DeleteItem(ctx context.Context, id int64) (*model.Item, error) {
	var item *model.Item
	err := m.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		item, err = tx.GetItemByID(ctx, id)
		if err != nil {
			return err
		}
		return tx.DeleteItem(ctx, id)
	})
	if err != nil {
		return nil, m.fault(ctx, "delete item", err, "Error deleting item, try that again!")
	}

	m.logger.InfoContext(ctx, "item deleted", "item_id", item.ID, "name", item.Name)
	return item, nil
}

// LikeItem adds exactly one like to item id and returns the updated item.
func (m *DataManager) LikeItem(ctx context.Context, id int64) (*model.Item, error) {
	var item *model.Item
	err := m.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.IncrementLikes(ctx, id); err != nil {
			return err
		}
		var err error
		item, err = tx.GetItemByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, m.fault(ctx, "like item", err, "Error liking item, try that again!")
	}

	m.logger.InfoContext(ctx, "item liked", "item_id", item.ID, "likes", item.Likes)
	return item, nil
}

// validateNumbers checks whichever of price and rating were supplied.
func validateNumbers(in model.ItemInput) error {
	if in.Price != nil && (*in.Price <= 0 || math.IsNaN(*in.Price) || math.IsInf(*in.Price, 0)) {
		return apperror.ValidationFailed("price", "Price must be greater than zero.")
	}
	if in.Rating != nil && !(*in.Rating >= MinRating && *in.Rating <= MaxRating) {
		return apperror.ValidationFailed("rating",
			fmt.Sprintf("Rating must be between %d and %d.", MinRating, MaxRating))
	}
	return nil
}

func ensurePairFree(ctx context.Context, tx repository.Store, name, description string, self int64) error {
	existing, err := lookup(tx.FindItem(ctx, name, description))
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return apperror.Conflict("name", fmt.Sprintf("Item %s already exists!", name))
	}
	return nil
}
