package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/flash"
	"github.com/sakif/storefront/internal/view"
)

// HandleRegisterForm shows the registration form.
//
// HTTP: GET /register
func (h *Handler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.views.Render(w, r, http.StatusOK, view.Register, view.Data{Title: "Register"})
}

// HandleRegister creates an account and sends the new user to the login page.
//
// HTTP: POST /register
//
// On a validation error or a taken username/email the form is rendered again
// (with what was typed, minus the password) so nothing has to be re-entered.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := parseForm(w, r); err != nil {
		h.redirect(w, r, "/register", flash.Error, "Could not read the form, please try again!")
		return
	}

	username := r.PostForm.Get("username")
	user, err := h.data.Register(r.Context(), username, r.PostForm.Get("password"), r.PostForm.Get("email"))
	if err != nil {
		if apperror.Is(err, apperror.ErrConflict) {
			h.logger.WarnContext(r.Context(), "registration failed", slog.String("reason", err.Error()))
		}
		h.flashError(w, r, err)
		h.views.Render(w, r, http.StatusOK, view.Register, view.Data{
			Title: "Register",
			Form:  url.Values{"username": {username}, "email": {r.PostForm.Get("email")}},
		})
		return
	}

	h.redirect(w, r, "/login", flash.Success,
		fmt.Sprintf("Account for %s registered successfully!", user.Username))
}

// HandleLoginForm shows the login form.
//
// HTTP: GET /login?next=/somewhere
func (h *Handler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.views.Render(w, r, http.StatusOK, view.Login, view.Data{
		Title: "Log in",
		Next:  auth.SafeRedirect(r.URL.Query().Get("next"), ""),
	})
}

// HandleLogin checks the credentials and starts a session.
//
// HTTP: POST /login
//
// Unknown usernames and wrong passwords get the SAME message, so the form
// cannot be used to find out which usernames exist.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r.Context()); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := parseForm(w, r); err != nil {
		h.redirect(w, r, "/login", flash.Error, "Could not read the form, please try again!")
		return
	}

	username := r.PostForm.Get("username")
	next := auth.SafeRedirect(r.PostForm.Get("next"), "")

	user := h.data.AuthenticateUser(r.Context(), username, r.PostForm.Get("password"))
	if user == nil {
		h.logger.WarnContext(r.Context(), "login failed", slog.String("username", username))
		back := "/login"
		if next != "" {
			back += "?next=" + url.QueryEscape(next)
		}
		h.redirect(w, r, back, flash.Error, "Invalid username or password")
		return
	}

	if err := h.sessions.Login(w, user.ID); err != nil {
		h.logger.ErrorContext(r.Context(), "starting session", slog.String("error", err.Error()))
		h.redirect(w, r, "/login", flash.Error, genericError)
		return
	}

	h.logger.InfoContext(r.Context(), "user logged in", slog.Int64("user_id", user.ID))
	h.redirect(w, r, auth.SafeRedirect(next, "/"), flash.Success,
		fmt.Sprintf("Welcome back, %s!", user.Username))
}

// HandleLogoutConfirm asks before ending the session.
//
// HTTP: GET /logout
func (h *Handler) HandleLogoutConfirm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, view.Logout, view.Data{Title: "Log out"})
}

// HandleLogout revokes the session and clears the cookie.
//
// HTTP: POST /logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r.Context())

	if err := h.sessions.Logout(w, r); err != nil {
		// The cookie is gone either way; the token just stays valid until
		// it expires.
		h.logger.ErrorContext(r.Context(), "revoking session", slog.String("error", err.Error()))
	}

	h.logger.InfoContext(r.Context(), "user logged out", slog.Int64("user_id", user.ID))
	h.redirect(w, r, "/login", flash.Success, "You have been logged out.")
}
