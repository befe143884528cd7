// Package model defines the records persisted by the storefront and the input
// shapes the data manager accepts from request handlers.
package model

import (
	"errors"
	"fmt"
)

// DefaultProfilePicture is the sentinel image shown until a user uploads one.
const DefaultProfilePicture = "default.png"

// PasswordHasher is the hashing capability a User needs. auth.PasswordService
// satisfies it; the model package stays free of any crypto import.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) error
}

// User is a registered account.
//
// Password only ever holds a salted bcrypt hash. It is tagged json:"-" so a User
// can be handed to a template or encoder without leaking the hash.
type User struct {
	ID             int64  `json:"id"             db:"id"`
	Username       string `json:"username"       db:"username"`
	Email          string `json:"email"          db:"email"`
	Password       string `json:"-"              db:"password"`
	ProfilePicture string `json:"profilePicture" db:"profile_picture"`
}

// SetPassword replaces the stored password with a hash of plaintext.
func (u *User) SetPassword(h PasswordHasher, plaintext string) error {
	if plaintext == "" {
		return errors.New("model: password must not be empty")
	}
	hashed, err := h.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("model: setting password for %q: %w", u.Username, err)
	}
	u.Password = hashed
	return nil
}

// CheckPassword reports whether plaintext matches the stored hash. A user
// without a password never matches.
func (u *User) CheckPassword(h PasswordHasher, plaintext string) bool {
	if u.Password == "" {
		return false
	}
	return h.Verify(u.Password, plaintext) == nil
}

func (u User) String() string {
	return fmt.Sprintf("User(id = %d, name = %s)", u.ID, u.Username)
}

// UserUpdate carries the optional replacements for a profile edit. Empty
// strings mean "keep the current value".
type UserUpdate struct {
	Username       string
	Password       string
	Email          string
	ProfilePicture string
}
