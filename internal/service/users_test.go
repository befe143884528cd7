package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
)

func TestRegister(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	alice := mustRegister(t, m, "alice", "pw123", "a@x.com")

	assert.NotZero(t, alice.ID)
	assert.Equal(t, "alice", alice.Username)
	assert.Equal(t, "a@x.com", alice.Email)
	assert.Equal(t, model.DefaultProfilePicture, alice.ProfilePicture)
	assert.NotEqual(t, "pw123", alice.Password, "password must be hashed")

	stored := m.GetUser(ctx, alice.ID)
	require.NotNil(t, stored)
	assert.NotEqual(t, "pw123", stored.Password)
	assert.True(t, stored.CheckPassword(m.hasher, "pw123"))
	assert.Len(t, m.GetAllUsers(ctx), 1)
}

func TestRegisterRejects(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	mustRegister(t, m, "alice", "pw123", "a@x.com")

	tests := []struct {
		name     string
		username string
		password string
		email    string
		wantKind error
		wantMsg  string
	}{
		{"duplicate username", "alice", "other", "b@x.com", apperror.ErrConflict, "User alice already exists!"},
		{"duplicate email", "bob", "other", "a@x.com", apperror.ErrConflict, "Email a@x.com is already registered!"},
		{"missing username", "  ", "pw", "c@x.com", apperror.ErrValidation, "All fields are required!"},
		{"missing password", "carol", "", "c@x.com", apperror.ErrValidation, "All fields are required!"},
		{"missing email", "carol", "pw", "", apperror.ErrValidation, "All fields are required!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := m.Register(ctx, tt.username, tt.password, tt.email)
			assert.Nil(t, user)
			isKind(t, err, tt.wantKind)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.Len(t, m.GetAllUsers(ctx), 1, "user count must not change")
		})
	}
}

func TestAuthenticateUser(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	alice := mustRegister(t, m, "alice", "pw123", "a@x.com")

	got := m.AuthenticateUser(ctx, "alice", "pw123")
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.ID)

	assert.Nil(t, m.AuthenticateUser(ctx, "alice", "wrong"))
	assert.Nil(t, m.AuthenticateUser(ctx, "nobody", "pw123"))
	assert.Nil(t, m.AuthenticateUser(ctx, "", ""))
}

func TestAuthenticateUserTrimsUsername(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	alice := mustRegister(t, m, " alice ", "pw123", "a@x.com")
	assert.Equal(t, "alice", alice.Username)

	got := m.AuthenticateUser(ctx, " alice ", "pw123")
	require.NotNil(t, got)
	assert.Equal(t, alice.ID, got.ID)
}

func TestGetUserInvalidIDs(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	assert.Nil(t, m.GetUser(ctx, 0))
	assert.Nil(t, m.GetUser(ctx, -1))
	assert.Nil(t, m.GetUser(ctx, 42))
	assert.Nil(t, m.GetUserByUsername(ctx, "ghost"))
}

func TestUpdateUser(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	alice := mustRegister(t, m, "alice", "pw123", "a@x.com")
	mustRegister(t, m, "bob", "pw", "b@x.com")

	t.Run("empty update changes nothing", func(t *testing.T) {
		got, err := m.UpdateUser(ctx, alice.ID, model.UserUpdate{})
		require.NoError(t, err)
		assert.Equal(t, alice.Username, got.Username)
		assert.Equal(t, alice.Password, got.Password)
		assert.Equal(t, alice.ProfilePicture, got.ProfilePicture)
	})

	t.Run("supplied fields change", func(t *testing.T) {
		got, err := m.UpdateUser(ctx, alice.ID, model.UserUpdate{
			Username:       "alicia",
			Password:       "newpw",
			Email:          "alicia@x.com",
			ProfilePicture: "me.png",
		})
		require.NoError(t, err)
		assert.Equal(t, "alicia", got.Username)
		assert.Equal(t, "alicia@x.com", got.Email)
		assert.Equal(t, "me.png", got.ProfilePicture)

		assert.NotNil(t, m.AuthenticateUser(ctx, "alicia", "newpw"))
		assert.Nil(t, m.AuthenticateUser(ctx, "alicia", "pw123"))
	})

	t.Run("keeping own username is not a conflict", func(t *testing.T) {
		_, err := m.UpdateUser(ctx, alice.ID, model.UserUpdate{Username: "alicia"})
		assert.NoError(t, err)
	})

	t.Run("taking another user's username conflicts", func(t *testing.T) {
		_, err := m.UpdateUser(ctx, alice.ID, model.UserUpdate{Username: "bob"})
		isKind(t, err, apperror.ErrConflict)
		assert.Equal(t, "alicia", m.GetUser(ctx, alice.ID).Username)
	})

	t.Run("taking another user's email conflicts", func(t *testing.T) {
		_, err := m.UpdateUser(ctx, alice.ID, model.UserUpdate{Email: "b@x.com"})
		isKind(t, err, apperror.ErrConflict)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := m.UpdateUser(ctx, 999, model.UserUpdate{Username: "x"})
		isKind(t, err, apperror.ErrNotFound)
		assert.Equal(t, "User with ID 999 doesn't exist.", err.Error())
	})
}

func TestDeleteUser(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	alice := mustRegister(t, m, "alice", "pw123", "a@x.com")
	bob := mustRegister(t, m, "bob", "pw", "b@x.com")

	deleted, err := m.DeleteUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", deleted.Username)

	assert.Nil(t, m.GetUser(ctx, alice.ID))
	assert.NotNil(t, m.GetUser(ctx, bob.ID), "other users are untouched")
	assert.Len(t, m.GetAllUsers(ctx), 1)

	_, err = m.DeleteUser(ctx, alice.ID)
	isKind(t, err, apperror.ErrNotFound)
	assert.False(t, errors.Is(err, apperror.ErrStorage))
}
