package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// GetAllUsers returns every user, or an empty slice if the store fails.
func (m *DataManager) GetAllUsers(ctx context.Context) []model.User {
	users, err := m.store.ListUsers(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "listing users", "error", err)
		return []model.User{}
	}
	return users
}

// GetUser returns the user with the given id. It returns nil when the id is
// not positive, no such user exists, or the store fails.
//
// GetUser also satisfies auth.UserLoader.
func (m *DataManager) GetUser(ctx context.Context, id int64) *model.User {
	if id <= 0 {
		return nil
	}
	user, err := lookup(m.store.GetUserByID(ctx, id))
	if err != nil {
		m.logger.ErrorContext(ctx, "getting user", "user_id", id, "error", err)
		return nil
	}
	return user
}

// GetUserByUsername returns the user with exactly this username, or nil.
func (m *DataManager) GetUserByUsername(ctx context.Context, username string) *model.User {
	user, err := lookup(m.store.GetUserByUsername(ctx, username))
	if err != nil {
		m.logger.ErrorContext(ctx, "getting user by username", "username", username, "error", err)
		return nil
	}
	return user
}

// Register creates an account. All three fields are required; the username
// and email must not belong to anyone yet.
func (m *DataManager) Register(ctx context.Context, username, password, email string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || password == "" || email == "" {
		return nil, apperror.ValidationFailed("", "All fields are required!")
	}

	user := &model.User{
		Username:       username,
		Email:          email,
		ProfilePicture: model.DefaultProfilePicture,
	}
	// bcrypt is slow on purpose; hash before opening the transaction so the
	// (single) SQLite connection is not held for it.
	if err := user.SetPassword(m.hasher, password); err != nil {
		return nil, apperror.ValidationFailed("password", "Password must be between 1 and 72 bytes.")
	}

	err := m.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := ensureUsernameFree(ctx, tx, username, 0); err != nil {
			return err
		}
		if err := ensureEmailFree(ctx, tx, email, 0); err != nil {
			return err
		}
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, m.fault(ctx, "register", err, "Error while adding the user, please try again!")
	}

	m.logger.InfoContext(ctx, "user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// AuthenticateUser returns the user iff username exists and password matches
// its hash. Any other outcome, including a store failure, is nil.
func (m *DataManager) AuthenticateUser(ctx context.Context, username, password string) *model.User {
	// Register stores usernames trimmed; look them up the same way.
	user := m.GetUserByUsername(ctx, strings.TrimSpace(username))
	if user == nil || !user.CheckPassword(m.hasher, password) {
		return nil
	}
	return user
}

// UpdateUser applies the supplied fields of upd to user id. Empty fields are
// left unchanged. A new username or email must not belong to another user.
func (m *DataManager) UpdateUser(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error) {
	upd.Username = strings.TrimSpace(upd.Username)
	upd.Email = strings.TrimSpace(upd.Email)

	var newHash string
	if upd.Password != "" {
		var scratch model.User
		if err := scratch.SetPassword(m.hasher, upd.Password); err != nil {
			return nil, apperror.ValidationFailed("password", "Password must be between 1 and 72 bytes.")
		}
		newHash = scratch.Password
	}

	var user *model.User
	err := m.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		user, err = tx.GetUserByID(ctx, id)
		if err != nil {
			return err
		}

		if upd.Username != "" && upd.Username != user.Username {
			if err := ensureUsernameFree(ctx, tx, upd.Username, id); err != nil {
				return err
			}
			user.Username = upd.Username
		}
		if upd.Email != "" && upd.Email != user.Email {
			if err := ensureEmailFree(ctx, tx, upd.Email, id); err != nil {
				return err
			}
			user.Email = upd.Email
		}
		if newHash != "" {
			user.Password = newHash
		}
		if upd.ProfilePicture != "" {
			user.ProfilePicture = upd.ProfilePicture
		}

		return tx.UpdateUser(ctx, user)
	})
	if err != nil {
		return nil, m.fault(ctx, "update user", err, "Error updating user, try that again!")
	}

	m.logger.InfoContext(ctx, "user updated", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// DeleteUser removes user id and returns the removed record.
func (m *DataManager) DeleteUser(ctx context.Context, id int64) (*model.User, error) {
	var user *model.User
	err := m.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		user, err = tx.GetUserByID(ctx, id)
		if err != nil {
			return err
		}
		return tx.DeleteUser(ctx, id)
	})
	if err != nil {
		return nil, m.fault(ctx, "delete user", err, "Error deleting user, try that again!")
	}

	m.logger.InfoContext(ctx, "user deleted", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// ensureUsernameFree fails with a conflict when username belongs to a user
// other than self (0 means nobody).
func ensureUsernameFree(ctx context.Context, tx repository.Store, username string, self int64) error {
	existing, err := lookup(tx.GetUserByUsername(ctx, username))
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return apperror.Conflict("username", fmt.Sprintf("User %s already exists!", username))
	}
	return nil
}

func ensureEmailFree(ctx context.Context, tx repository.Store, email string, self int64) error {
	existing, err := lookup(tx.GetUserByEmail(ctx, email))
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return apperror.Conflict("email", fmt.Sprintf("Email %s is already registered!", email))
	}
	return nil
}
