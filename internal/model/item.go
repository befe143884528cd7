package model

import "fmt"

// DefaultItemImage is the sentinel image for items added without one.
const DefaultItemImage = "default_item.png"

// Item is a catalog entry. Items are shared: any logged-in user may like or
// edit them.
//
// Description is empty when absent so the (name, description) uniqueness rule
// compares plain strings. Rating is nullable.
type Item struct {
	ID          int64    `json:"id"          db:"id"`
	Name        string   `json:"name"        db:"name"`
	Description string   `json:"description" db:"description"`
	Price       float64  `json:"price"       db:"price"`
	Rating      *float64 `json:"rating"      db:"rating"`
	Image       string   `json:"image"       db:"image"`
	Likes       int64    `json:"likes"       db:"likes"`
}

func (i Item) String() string {
	return fmt.Sprintf("Item(id = %d, name = %s, price = %.2f)", i.ID, i.Name, i.Price)
}

// ItemInput carries raw item fields from a form. Nil pointers and empty strings
// mean "not supplied".
type ItemInput struct {
	Name        string
	Description string
	Price       *float64
	Rating      *float64
	Image       string
}
