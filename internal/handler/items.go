package handler

import (
	"cmp"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/flash"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/view"
)

// homeHighlights is how many of the most-liked items the home page shows.
const homeHighlights = 4

// HandleHome renders the landing page with the most-liked items.
//
// HTTP: GET /
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	items := h.data.GetAllItems(r.Context())
	slices.SortStableFunc(items, func(a, b model.Item) int {
		return cmp.Compare(b.Likes, a.Likes)
	})
	if len(items) > homeHighlights {
		items = items[:homeHighlights]
	}
	h.views.Render(w, r, http.StatusOK, view.Home, view.Data{Title: "Home", Items: items})
}

// HandleListItems renders the whole catalog.
//
// HTTP: GET /items
func (h *Handler) HandleListItems(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, view.Items, view.Data{
		Title: "Items",
		Items: h.data.GetAllItems(r.Context()),
	})
}

// HandleShowItem renders one item.
//
// HTTP: GET /items/{item_id}
func (h *Handler) HandleShowItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFromPath(w, r)
	if !ok {
		return
	}
	h.views.Render(w, r, http.StatusOK, view.Item, view.Data{Title: item.Name, Item: item})
}

// HandleAddItemForm shows an empty item form.
//
// HTTP: GET /items/add
func (h *Handler) HandleAddItemForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, view.ItemForm, view.Data{Title: "Add item"})
}

// HandleAddItem creates an item.
//
// HTTP: POST /items/add
func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		h.redirect(w, r, "/items/add", flash.Error, "Could not read the form, the image may be too large.")
		return
	}

	rerender := func(err error) {
		h.flashError(w, r, err)
		h.views.Render(w, r, http.StatusOK, view.ItemForm, view.Data{Title: "Add item", Form: r.PostForm})
	}

	in, err := itemInput(r)
	if err != nil {
		rerender(err)
		return
	}
	// Check the required fields before storing an image for nothing.
	if strings.TrimSpace(in.Name) == "" || in.Price == nil {
		rerender(apperror.ValidationFailed("", "Item name and price are required."))
		return
	}
	if in.Image, err = h.formImage(r, "image"); err != nil {
		rerender(err)
		return
	}

	item, err := h.data.AddItem(r.Context(), in)
	if err != nil {
		h.discardImage(r, in.Image)
		rerender(err)
		return
	}

	h.redirect(w, r, fmt.Sprintf("/items/%d", item.ID), flash.Success,
		fmt.Sprintf("Item %s added successfully!", item.Name))
}

// HandleUpdateItemForm shows the edit form for an item.
//
// HTTP: GET /items/{item_id}/update
func (h *Handler) HandleUpdateItemForm(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFromPath(w, r)
	if !ok {
		return
	}
	h.views.Render(w, r, http.StatusOK, view.ItemForm, view.Data{Title: "Edit " + item.Name, Item: item})
}

// HandleUpdateItem changes the fields that were filled in.
//
// HTTP: POST /items/{item_id}/update
func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFromPath(w, r)
	if !ok {
		return
	}
	if err := parseForm(w, r); err != nil {
		h.redirect(w, r, fmt.Sprintf("/items/%d/update", item.ID), flash.Error,
			"Could not read the form, the image may be too large.")
		return
	}

	rerender := func(err error) {
		h.flashError(w, r, err)
		h.views.Render(w, r, http.StatusOK, view.ItemForm, view.Data{
			Title: "Edit " + item.Name,
			Item:  item,
			Form:  r.PostForm,
		})
	}

	in, err := itemInput(r)
	if err != nil {
		rerender(err)
		return
	}
	if in.Image, err = h.formImage(r, "image"); err != nil {
		rerender(err)
		return
	}

	updated, err := h.data.UpdateItem(r.Context(), item.ID, in)
	if err != nil {
		h.discardImage(r, in.Image)
		if apperror.Is(err, apperror.ErrNotFound) {
			h.notFound(w, r, err.Error())
			return
		}
		rerender(err)
		return
	}

	h.redirect(w, r, fmt.Sprintf("/items/%d", updated.ID), flash.Success,
		fmt.Sprintf("Item %s updated successfully!", updated.Name))
}

// HandleDeleteItem removes an item.
//
// HTTP: POST /items/{item_id}/delete
func (h *Handler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "item_id")
	if !ok {
		h.notFound(w, r, "")
		return
	}

	item, err := h.data.DeleteItem(r.Context(), id)
	if err != nil {
		h.flashError(w, r, err)
		http.Redirect(w, r, "/items", http.StatusSeeOther)
		return
	}

	h.redirect(w, r, "/items", flash.Success, fmt.Sprintf("Item %s deleted successfully!", item.Name))
}

// HandleLikeItem adds one like.
//
// HTTP: POST /items/{item_id}/like
func (h *Handler) HandleLikeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "item_id")
	if !ok {
		h.notFound(w, r, "")
		return
	}

	item, err := h.data.LikeItem(r.Context(), id)
	if err != nil {
		h.flashError(w, r, err)
		http.Redirect(w, r, "/items", http.StatusSeeOther)
		return
	}

	h.redirect(w, r, fmt.Sprintf("/items/%d", item.ID), flash.Success,
		fmt.Sprintf("Item %s liked successfully!", item.Name))
}

// itemFromPath loads the item named by {item_id}, answering 404 itself when
// the id is malformed or unknown.
func (h *Handler) itemFromPath(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, ok := pathID(r, "item_id")
	if !ok {
		h.notFound(w, r, "")
		return nil, false
	}
	item := h.data.GetItem(r.Context(), id)
	if item == nil {
		h.notFound(w, r, apperror.NotFound("Item", id).Error())
		return nil, false
	}
	return item, true
}

// itemInput reads the text fields of an item form. Empty number fields are
// left nil ("not supplied").
func itemInput(r *http.Request) (model.ItemInput, error) {
	in := model.ItemInput{
		Name:        r.PostForm.Get("name"),
		Description: r.PostForm.Get("description"),
	}

	var err error
	if in.Price, err = optionalNumber(r.PostForm.Get("price"), "price", "Price must be a number."); err != nil {
		return in, err
	}
	if in.Rating, err = optionalNumber(r.PostForm.Get("rating"), "rating", "Rating must be a number."); err != nil {
		return in, err
	}
	return in, nil
}

func optionalNumber(raw, field, message string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, apperror.ValidationFailed(field, message)
	}
	return &f, nil
}
