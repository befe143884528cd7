// Package view renders the HTML pages.
//
// TEMPLATE COMPOSITION:
// Every page is parsed together with base.html and partials.html:
//   - base.html defines the layout and calls {{template "content" .}}
//   - each page file defines its own "content" block
//
// Because every page defines "content", each page gets its OWN template set.
// Parsing them into one set would let the last file's "content" win.
//
// Templates and static assets are compiled into the binary with go:embed, so
// the server runs from any working directory.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/flash"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/upload"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names.
const (
	Home       = "home"
	Register   = "register"
	Login      = "login"
	Logout     = "logout"
	Profile    = "profile"
	UpdateUser = "update_user"
	DeleteUser = "delete_user"
	Items      = "items"
	Item       = "item"
	ItemForm   = "item_form"
	NotFound   = "not_found"
)

var pageNames = []string{
	Home, Register, Login, Logout,
	Profile, UpdateUser, DeleteUser,
	Items, Item, ItemForm, NotFound,
}

// Data is what every page template receives. Render fills CurrentUser and
// Flashes; handlers set the rest.
type Data struct {
	Title       string
	CurrentUser *model.User
	Flashes     []flash.Message

	// Form echoes submitted values back into a re-rendered form.
	Form url.Values
	// Next is the post-login redirect target.
	Next    string
	Message string

	User  *model.User
	Item  *model.Item
	Items []model.Item
}

// Renderer holds the parsed page templates.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// New parses every page. images resolves stored image names to URLs.
func New(images upload.ImageStore, logger *slog.Logger) (*Renderer, error) {
	funcs := template.FuncMap{
		"image": func(name string) string { return upload.PublicURL(images, name) },
		"price": func(p float64) string { return "$" + strconv.FormatFloat(p, 'f', 2, 64) },
		"rating": func(r *float64) string {
			if r == nil {
				return "not rated"
			}
			return strconv.FormatFloat(*r, 'f', 1, 64) + " / 5"
		},
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/base.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("view: parsing %s: %w", name, err)
		}
		pages[name] = t
	}

	return &Renderer{pages: pages, logger: logger}, nil
}

// Render writes page with the given status. Pending flash messages are
// consumed, so they show exactly once.
//
// The page is rendered into a buffer first: if the template fails halfway,
// the client gets a clean 500 instead of a truncated page with a 200.
func (v *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, data Data) {
	t, ok := v.pages[page]
	if !ok {
		v.logger.ErrorContext(r.Context(), "unknown page", "page", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if user, ok := auth.CurrentUser(r.Context()); ok {
		data.CurrentUser = user
	}
	data.Flashes = flash.Pop(w, r)

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		v.logger.ErrorContext(r.Context(), "failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// StaticFS holds css and the sentinel images, rooted so that
// "img/default.png" is served at /static/img/default.png.
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // embedded path is fixed at compile time
	}
	return sub
}
