package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/flash"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/view"
)

// profileOwner enforces self-only access for the /{user_id}/profile pages.
//
// It returns the profile's user when the path id is a number equal to the
// logged-in user's id. Otherwise it has already answered the request:
//   - non-numeric id      → 404 page
//   - somebody else's id  → flash deny and redirect home
//   - user gone meanwhile → 404 page
func (h *Handler) profileOwner(w http.ResponseWriter, r *http.Request, deny string) (*model.User, bool) {
	id, ok := pathID(r, "user_id")
	if !ok {
		h.notFound(w, r, "")
		return nil, false
	}

	current, _ := auth.CurrentUser(r.Context())
	if current.ID != id {
		h.logger.WarnContext(r.Context(), "profile access denied",
			slog.Int64("user_id", current.ID), slog.Int64("target_id", id))
		h.redirect(w, r, "/", flash.Error, deny)
		return nil, false
	}

	user := h.data.GetUser(r.Context(), id)
	if user == nil {
		h.notFound(w, r, "User not found")
		return nil, false
	}
	return user, true
}

// HandleProfile shows the logged-in user's own profile.
//
// HTTP: GET /{user_id}/profile
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.profileOwner(w, r, "You can only view your own profile!")
	if !ok {
		return
	}
	h.views.Render(w, r, http.StatusOK, view.Profile, view.Data{Title: user.Username, User: user})
}

// HandleUpdateUserForm shows the profile edit form.
//
// HTTP: GET /{user_id}/profile/update_user
func (h *Handler) HandleUpdateUserForm(w http.ResponseWriter, r *http.Request) {
	user, ok := h.profileOwner(w, r, "You can only update your own profile!")
	if !ok {
		return
	}
	h.views.Render(w, r, http.StatusOK, view.UpdateUser, view.Data{Title: "Edit profile", User: user})
}

// HandleUpdateUser saves profile changes, including the picture.
//
// HTTP: POST /{user_id}/profile/update_user (multipart/form-data)
//
// FIELDS (all optional, empty means "keep"):
//   - username, email, password
//   - profile_picture: an image file
//   - remove_profile_picture: any value resets the picture to the default
//
// The picture is checked against the extension allow-list BEFORE anything is
// written; a rejected file leaves both the upload directory and the user
// untouched.
func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.profileOwner(w, r, "You can only update your own profile!")
	if !ok {
		return
	}
	editURL := fmt.Sprintf("/%d/profile/update_user", user.ID)

	if err := parseForm(w, r); err != nil {
		h.redirect(w, r, editURL, flash.Error, "Could not read the form, the picture may be too large.")
		return
	}

	upd := model.UserUpdate{
		Username: r.PostForm.Get("username"),
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}

	if r.PostForm.Get("remove_profile_picture") != "" {
		upd.ProfilePicture = model.DefaultProfilePicture
	} else {
		name, err := h.formImage(r, "profile_picture")
		if err != nil {
			h.flashError(w, r, err)
			http.Redirect(w, r, editURL, http.StatusSeeOther)
			return
		}
		upd.ProfilePicture = name
	}

	updated, err := h.data.UpdateUser(r.Context(), user.ID, upd)
	if err != nil {
		h.discardImage(r, upd.ProfilePicture)
		if apperror.Is(err, apperror.ErrNotFound) {
			h.notFound(w, r, err.Error())
			return
		}
		h.flashError(w, r, err)
		http.Redirect(w, r, editURL, http.StatusSeeOther)
		return
	}

	h.redirect(w, r, fmt.Sprintf("/%d/profile", updated.ID), flash.Success,
		fmt.Sprintf("User %s updated successfully!", updated.Username))
}

// HandleDeleteUserConfirm asks before deleting the account.
//
// HTTP: GET /{user_id}/profile/delete_user
func (h *Handler) HandleDeleteUserConfirm(w http.ResponseWriter, r *http.Request) {
	user, ok := h.profileOwner(w, r, "You can only delete your own profile!")
	if !ok {
		return
	}
	h.views.Render(w, r, http.StatusOK, view.DeleteUser, view.Data{Title: "Delete account", User: user})
}

// HandleDeleteUser deletes the account and ends its session.
//
// HTTP: POST /{user_id}/profile/delete_user
func (h *Handler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.profileOwner(w, r, "You can only delete your own profile!")
	if !ok {
		return
	}

	deleted, err := h.data.DeleteUser(r.Context(), user.ID)
	if err != nil {
		if apperror.Is(err, apperror.ErrNotFound) {
			h.redirect(w, r, "/", flash.Error,
				fmt.Sprintf("User with ID %d couldn't be found.", user.ID))
			return
		}
		h.flashError(w, r, err)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := h.sessions.Logout(w, r); err != nil {
		h.logger.ErrorContext(r.Context(), "revoking session of deleted user", slog.String("error", err.Error()))
	}

	h.redirect(w, r, "/login", flash.Success,
		fmt.Sprintf("User %s deleted successfully!", deleted.Username))
}
