package handler

// RESPONSE HELPERS:
// Pages end in one of three ways, and these helpers keep them consistent:
//
//	h.views.Render(...)          → show a page (form re-render on errors)
//	h.redirect(w, r, to, ...)    → flash a message and 303 to another page
//	h.notFound(w, r, msg)        → the 404 page
//
// ERROR MAPPING:
// The Data Manager returns *apperror.AppError values. Their Message is
// written for end users, so handlers flash it as-is. Anything else (which
// should not happen) is logged and replaced by a generic message.

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/flash"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/upload"
	"github.com/sakif/storefront/internal/view"
)

const genericError = "Something went wrong, please try again!"

// maxFormBytes bounds a request body: one image plus the text fields.
const maxFormBytes = upload.MaxImageBytes + 1<<20

// redirect flashes text (if any) and sends a 303, so a browser reload after
// a POST does not resubmit the form.
func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, to, category, text string) {
	if text != "" {
		flash.Add(w, r, category, text)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// flashError flashes the user-facing message carried by err.
func (h *Handler) flashError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		h.logger.ErrorContext(r.Context(), "untyped error reached handler", slog.String("error", err.Error()))
	}
	flash.Add(w, r, flash.Error, apperror.Message(err, genericError))
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, message string) {
	h.views.Render(w, r, http.StatusNotFound, view.NotFound, view.Data{
		Title:   "Not found",
		Message: message,
	})
}

// HandleNotFound is the router-wide 404 page.
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.notFound(w, r, "")
}

// pathID parses a positive integer path parameter. Anything else ("abc",
// "0", "-3", "1e3") is reported as false and callers answer with a 404.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// parseForm accepts both multipart (file upload) and urlencoded bodies.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	err := r.ParseMultipartForm(maxFormBytes)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// formImage stores the file in field, if one was sent, and returns its
// sanitised name. ("", nil) means no file was chosen.
func (h *Handler) formImage(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil
	}
	if err != nil {
		return "", apperror.ValidationFailed(field, "Could not read the uploaded file.")
	}
	defer file.Close()

	if header.Filename == "" {
		return "", nil
	}
	return upload.Accept(r.Context(), h.images, header.Filename, file)
}

// discardImage removes an image stored by formImage whose record was then
// rejected. Sentinel defaults and "" are left alone.
func (h *Handler) discardImage(r *http.Request, name string) {
	if name == "" || name == model.DefaultProfilePicture || name == model.DefaultItemImage {
		return
	}
	if err := h.images.Remove(r.Context(), name); err != nil {
		h.logger.WarnContext(r.Context(), "orphaned upload not removed",
			slog.String("image", name), slog.String("error", err.Error()))
	}
}
