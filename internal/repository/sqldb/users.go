package sqldb

import (
	"context"
	"fmt"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
)

const userColumns = `id, username, email, password, profile_picture`

var userConflicts = map[string]string{
	"username": "Username is already taken.",
	"email":    "Email is already registered.",
}

// ListUsers returns every user ordered by id.
//
// sqlx.SelectContext scans each row into a model.User by matching column
// names against the `db` struct tags, so there is no manual rows.Next()
// loop to get wrong (and no forgotten rows.Close()).
func (q *queries) ListUsers(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := q.selectAll(ctx, &users,
		`SELECT `+userColumns+` FROM users ORDER BY id`,
	); err != nil {
		return nil, fmt.Errorf("sqldb: listing users: %w", err)
	}
	return users, nil
}

func (q *queries) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := q.get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, lookupErr(err, apperror.NotFound("User", id), "getting user by id")
	}
	return &user, nil
}

func (q *queries) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := q.get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if err != nil {
		return nil, lookupErr(err, notFound("User", username), "getting user by username")
	}
	return &user, nil
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := q.get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, lookupErr(err, notFound("User with email", email), "getting user by email")
	}
	return &user, nil
}

// CreateUser inserts user and stores the generated id back on it.
//
// RETURNING id works on both SQLite (3.35+) and PostgreSQL. PostgreSQL has
// no LastInsertId, so this is the one form both engines share.
func (q *queries) CreateUser(ctx context.Context, user *model.User) error {
	if user.ProfilePicture == "" {
		user.ProfilePicture = model.DefaultProfilePicture
	}

	err := q.queryRow(ctx,
		`INSERT INTO users (username, email, password, profile_picture)
		 VALUES (?, ?, ?, ?)
		 RETURNING id`,
		user.Username, user.Email, user.Password, user.ProfilePicture,
	).Scan(&user.ID)

	return writeErr(err, "creating user", userConflicts)
}

func (q *queries) UpdateUser(ctx context.Context, user *model.User) error {
	err := q.execOne(ctx, apperror.NotFound("User", user.ID),
		`UPDATE users
		 SET username = ?, email = ?, password = ?, profile_picture = ?
		 WHERE id = ?`,
		user.Username, user.Email, user.Password, user.ProfilePicture, user.ID,
	)
	return writeErr(err, "updating user", userConflicts)
}

func (q *queries) DeleteUser(ctx context.Context, id int64) error {
	err := q.execOne(ctx, apperror.NotFound("User", id), `DELETE FROM users WHERE id = ?`, id)
	return writeErr(err, "deleting user", nil)
}
