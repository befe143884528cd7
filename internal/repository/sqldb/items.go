package sqldb

import (
	"context"
	"fmt"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
)

const itemColumns = `id, name, description, price, rating, image, likes`

// Both engines name the violated (name, description) index in their message
// with "name" in it: "items.name, items.description" or
// "idx_items_name_description".
var itemConflicts = map[string]string{
	"name": "An item with this name and description already exists.",
}

func (q *queries) ListItems(ctx context.Context) ([]model.Item, error) {
	items := []model.Item{}
	if err := q.selectAll(ctx, &items,
		`SELECT `+itemColumns+` FROM items ORDER BY id`,
	); err != nil {
		return nil, fmt.Errorf("sqldb: listing items: %w", err)
	}
	return items, nil
}

func (q *queries) GetItemByID(ctx context.Context, id int64) (*model.Item, error) {
	var item model.Item
	err := q.get(ctx, &item, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	if err != nil {
		return nil, lookupErr(err, apperror.NotFound("Item", id), "getting item by id")
	}
	return &item, nil
}

// GetItemByName returns the oldest item carrying name. Names are only unique
// together with the description, so several rows may match.
func (q *queries) GetItemByName(ctx context.Context, name string) (*model.Item, error) {
	var item model.Item
	err := q.get(ctx, &item,
		`SELECT `+itemColumns+` FROM items WHERE name = ? ORDER BY id LIMIT 1`, name)
	if err != nil {
		return nil, lookupErr(err, notFound("Item", name), "getting item by name")
	}
	return &item, nil
}

func (q *queries) FindItem(ctx context.Context, name, description string) (*model.Item, error) {
	var item model.Item
	err := q.get(ctx, &item,
		`SELECT `+itemColumns+` FROM items
		 WHERE name = ? AND description = ?
		 ORDER BY id LIMIT 1`,
		name, description)
	if err != nil {
		return nil, lookupErr(err, notFound("Item", name), "finding item")
	}
	return &item, nil
}

func (q *queries) CreateItem(ctx context.Context, item *model.Item) error {
	if item.Image == "" {
		item.Image = model.DefaultItemImage
	}

	err := q.queryRow(ctx,
		`INSERT INTO items (name, description, price, rating, image, likes)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		item.Name, item.Description, item.Price, item.Rating, item.Image, item.Likes,
	).Scan(&item.ID)

	return writeErr(err, "creating item", itemConflicts)
}

// UpdateItem overwrites the editable columns. likes is left alone so a
// concurrent IncrementLikes is never lost.
func (q *queries) UpdateItem(ctx context.Context, item *model.Item) error {
	err := q.execOne(ctx, apperror.NotFound("Item", item.ID),
		`UPDATE items
		 SET name = ?, description = ?, price = ?, rating = ?, image = ?
		 WHERE id = ?`,
		item.Name, item.Description, item.Price, item.Rating, item.Image, item.ID,
	)
	return writeErr(err, "updating item", itemConflicts)
}

func (q *queries) DeleteItem(ctx context.Context, id int64) error {
	err := q.execOne(ctx, apperror.NotFound("Item", id), `DELETE FROM items WHERE id = ?`, id)
	return writeErr(err, "deleting item", nil)
}

// IncrementLikes does the read-modify-write inside one UPDATE statement, so
// two simultaneous likes both count.
func (q *queries) IncrementLikes(ctx context.Context, id int64) error {
	err := q.execOne(ctx, apperror.NotFound("Item", id),
		`UPDATE items SET likes = likes + 1 WHERE id = ?`, id)
	return writeErr(err, "incrementing likes", nil)
}
