package sqldb

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// newTestDB opens a migrated in-memory SQLite database.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(context.Background(), Options{Dialect: SQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(f float64) *float64 { return &f }

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(context.Background(), Options{Dialect: "oracle", DSN: "x"})
	assert.Error(t, err)

	_, err = New(context.Background(), Options{Dialect: SQLite})
	assert.Error(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.migrate(context.Background()))
}

func TestUserCRUD(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	alice := &model.User{Username: "alice", Email: "alice@example.com", Password: "hash"}
	require.NoError(t, db.CreateUser(ctx, alice))
	assert.NotZero(t, alice.ID)
	assert.Equal(t, model.DefaultProfilePicture, alice.ProfilePicture)

	got, err := db.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	got, err = db.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	got, err = db.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	alice.ProfilePicture = "alice.png"
	require.NoError(t, db.UpdateUser(ctx, alice))
	got, err = db.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice.png", got.ProfilePicture)

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, db.DeleteUser(ctx, alice.ID))
	_, err = db.GetUserByID(ctx, alice.ID)
	assert.True(t, apperror.Is(err, apperror.ErrNotFound))
}

func TestListUsersEmptyIsNotNil(t *testing.T) {
	users, err := newTestDB(t).ListUsers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestUserNotFound(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	_, err := db.GetUserByUsername(ctx, "nobody")
	assert.True(t, apperror.Is(err, apperror.ErrNotFound))

	err = db.UpdateUser(ctx, &model.User{ID: 99, Username: "x", Email: "x@example.com", Password: "h"})
	assert.True(t, apperror.Is(err, apperror.ErrNotFound))

	err = db.DeleteUser(ctx, 99)
	assert.True(t, apperror.Is(err, apperror.ErrNotFound))
}

func TestUserUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	require.NoError(t, db.CreateUser(ctx, &model.User{Username: "alice", Email: "a@example.com", Password: "h"}))

	tests := []struct {
		name      string
		user      model.User
		wantField string
	}{
		{"duplicate username", model.User{Username: "alice", Email: "other@example.com", Password: "h"}, "username"},
		{"duplicate email", model.User{Username: "bob", Email: "a@example.com", Password: "h"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			err := db.CreateUser(ctx, &u)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.ErrConflict))

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestItemCRUD(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	mug := &model.Item{Name: "Mug", Description: "ceramic", Price: 9.5, Rating: ptr(4)}
	require.NoError(t, db.CreateItem(ctx, mug))
	assert.NotZero(t, mug.ID)
	assert.Equal(t, model.DefaultItemImage, mug.Image)

	got, err := db.GetItemByID(ctx, mug.ID)
	require.NoError(t, err)
	assert.Equal(t, mug, got)

	got, err = db.GetItemByName(ctx, "Mug")
	require.NoError(t, err)
	assert.Equal(t, mug.ID, got.ID)

	got, err = db.FindItem(ctx, "Mug", "ceramic")
	require.NoError(t, err)
	assert.Equal(t, mug.ID, got.ID)

	_, err = db.FindItem(ctx, "Mug", "glass")
	assert.True(t, apperror.Is(err, apperror.ErrNotFound))

	mug.Price = 12
	mug.Rating = nil
	require.NoError(t, db.UpdateItem(ctx, mug))
	got, err = db.GetItemByID(ctx, mug.ID)
	require.NoError(t, err)
	assert.Equal(t, 12.0, got.Price)
	assert.Nil(t, got.Rating)

	require.NoError(t, db.DeleteItem(ctx, mug.ID))
	_, err = db.GetItemByID(ctx, mug.ID)
	assert.True(t, apperror.Is(err, apperror.ErrNotFound))
}

func TestItemNameDescriptionUnique(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	require.NoError(t, db.CreateItem(ctx, &model.Item{Name: "Mug", Description: "ceramic", Price: 1}))
	// Same name, different description is allowed.
	require.NoError(t, db.CreateItem(ctx, &model.Item{Name: "Mug", Description: "glass", Price: 1}))

	err := db.CreateItem(ctx, &model.Item{Name: "Mug", Description: "ceramic", Price: 2})
	assert.True(t, apperror.Is(err, apperror.ErrConflict))
}

func TestIncrementLikes(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	item := &model.Item{Name: "Mug", Price: 1}
	require.NoError(t, db.CreateItem(ctx, item))

	for i := 0; i < 3; i++ {
		require.NoError(t, db.IncrementLikes(ctx, item.ID))
	}
	got, err := db.GetItemByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Likes)

	err = db.IncrementLikes(ctx, 404)
	assert.True(t, apperror.Is(err, apperror.ErrNotFound))
}

func TestWithinTxCommitsAndRollsBack(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	err := db.WithinTx(ctx, func(tx repository.Store) error {
		return tx.CreateUser(ctx, &model.User{Username: "kept", Email: "k@example.com", Password: "h"})
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.CreateUser(ctx, &model.User{Username: "dropped", Email: "d@example.com", Password: "h"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = db.GetUserByUsername(ctx, "kept")
	assert.NoError(t, err)
	_, err = db.GetUserByUsername(ctx, "dropped")
	assert.True(t, apperror.Is(err, apperror.ErrNotFound))
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	assert.Panics(t, func() {
		_ = db.WithinTx(ctx, func(tx repository.Store) error {
			_ = tx.CreateUser(ctx, &model.User{Username: "ghost", Email: "g@example.com", Password: "h"})
			panic("handler bug")
		})
	})

	_, err := db.GetUserByUsername(ctx, "ghost")
	assert.True(t, apperror.Is(err, apperror.ErrNotFound))
}

func TestWithinTxStorageFaultRollsBack(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	db := NewWithConn(conn, SQLite)
	diskFull := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).WillReturnError(diskFull)
	mock.ExpectRollback()

	err = db.WithinTx(context.Background(), func(tx repository.Store) error {
		return tx.CreateUser(context.Background(), &model.User{Username: "a", Email: "a@example.com", Password: "h"})
	})
	assert.ErrorIs(t, err, diskFull)
	assert.False(t, apperror.Is(err, apperror.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPlaceholdersAreRebound(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	db := NewWithConn(conn, Postgres)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE items SET likes = likes + 1 WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, db.IncrementLikes(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}
