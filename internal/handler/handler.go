// Package handler contains the HTTP request handlers for the storefront.
//
// HANDLER RESPONSIBILITIES:
// Every handler here is glue, nothing more:
//  1. Read the session user and the path / form values
//  2. Call ONE Data Manager operation
//  3. Set a flash message, then redirect or render a page
//
// Business rules (uniqueness, required fields, transactions) live in the
// service package. Handlers only translate its typed errors into pages.
package handler

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/upload"
	"github.com/sakif/storefront/internal/view"
)

// DataManager is the set of operations the handlers call. *service.DataManager
// implements it.
type DataManager interface {
	GetUser(ctx context.Context, id int64) *model.User
	Register(ctx context.Context, username, password, email string) (*model.User, error)
	AuthenticateUser(ctx context.Context, username, password string) *model.User
	UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) (*model.User, error)

	GetAllItems(ctx context.Context) []model.Item
	GetItem(ctx context.Context, id int64) *model.Item
	AddItem(ctx context.Context, in model.ItemInput) (*model.Item, error)
	UpdateItem(ctx context.Context, id int64, in model.ItemInput) (*model.Item, error)
	DeleteItem(ctx context.Context, id int64) (*model.Item, error)
	LikeItem(ctx context.Context, id int64) (*model.Item, error)
}

// Handler serves every page of the storefront.
type Handler struct {
	data     DataManager
	sessions *auth.Sessions
	views    *view.Renderer
	images   upload.ImageStore
	logger   *slog.Logger
}

// New creates a Handler. All dependencies are injected here; the handler has
// no knowledge of how they're constructed.
func New(
	data DataManager,
	sessions *auth.Sessions,
	views *view.Renderer,
	images upload.ImageStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		data:     data,
		sessions: sessions,
		views:    views,
		images:   images,
		logger:   logger,
	}
}

// Routes registers every page on r. Session loading (auth.Sessions.LoadUser)
// and flash.Middleware must already be installed on r.
//
// ROUTE ORDER:
// chi matches static segments before parameters, so "/items/add" never
// reaches the "/items/{item_id}" handler.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.HandleHome)

	r.Get("/register", h.HandleRegisterForm)
	r.Post("/register", h.HandleRegister)
	r.Get("/login", h.HandleLoginForm)
	r.Post("/login", h.HandleLogin)

	r.Get("/items", h.HandleListItems)
	r.Get("/items/{item_id}", h.HandleShowItem)

	// Everything below needs a logged-in user.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireLogin)

		r.Get("/logout", h.HandleLogoutConfirm)
		r.Post("/logout", h.HandleLogout)

		r.Route("/{user_id}/profile", func(r chi.Router) {
			r.Get("/", h.HandleProfile)
			r.Get("/update_user", h.HandleUpdateUserForm)
			r.Post("/update_user", h.HandleUpdateUser)
			r.Get("/delete_user", h.HandleDeleteUserConfirm)
			r.Post("/delete_user", h.HandleDeleteUser)
		})

		r.Get("/items/add", h.HandleAddItemForm)
		r.Post("/items/add", h.HandleAddItem)
		r.Get("/items/{item_id}/update", h.HandleUpdateItemForm)
		r.Post("/items/{item_id}/update", h.HandleUpdateItem)
		r.Post("/items/{item_id}/delete", h.HandleDeleteItem)
		r.Post("/items/{item_id}/like", h.HandleLikeItem)
	})

	r.NotFound(h.HandleNotFound)
}
