// Package upload accepts user-supplied images and stores them.
//
// Three checks run before anything is written:
//
//  1. AllowedFile: the extension must be png, jpg, jpeg or gif.
//  2. SecureFilename: the client's filename is reduced to a safe ASCII
//     basename, so "../../etc/passwd.png" becomes "etc_passwd.png".
//  3. The body must fit in MaxImageBytes.
//
// Stored names carry a unique xid prefix ("<xid>_etc_passwd.png"), so two
// uploads with the same client name never overwrite each other.
//
// Where the bytes end up is an ImageStore: a local directory in development,
// an S3 bucket when one is configured.
package upload

import (
	"bytes"
	"context"
	"io"
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/rs/xid"
	"golang.org/x/text/unicode/norm"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
)

// MaxImageBytes caps a single upload.
const MaxImageBytes = 5 << 20

// allowedExtensions is the image allow-list, lower case without the dot.
var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

// DisallowedMessage is shown when an upload fails the allow-list.
const DisallowedMessage = "Only png, jpg, jpeg and gif images are allowed."

// TooLargeMessage is shown when an upload exceeds MaxImageBytes.
const TooLargeMessage = "Picture must be 5 MB or smaller."

// ImageStore persists uploaded images and says where browsers can fetch them.
// Remove of a name that was never stored is not an error.
type ImageStore interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Remove(ctx context.Context, name string) error
	URL(name string) string
}

// AllowedFile reports whether filename has an allow-listed extension.
func AllowedFile(filename string) bool {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return false
	}
	return allowedExtensions[strings.ToLower(filename[i+1:])]
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename returns a version of filename that is safe to store on a
// file system. The result may be empty, which callers must reject.
func SecureFilename(filename string) string {
	// NFKD splits "é" into "e" + combining accent; the accent is then
	// dropped with the rest of the non-ASCII runes.
	decomposed := norm.NFKD.String(filename)
	var b strings.Builder
	for _, r := range decomposed {
		if r > unicode.MaxASCII {
			continue
		}
		if r == '/' || r == '\\' {
			r = ' '
		}
		b.WriteRune(r)
	}

	joined := strings.Join(strings.Fields(b.String()), "_")
	return strings.Trim(unsafeChars.ReplaceAllString(joined, ""), "._")
}

// Accept validates filename and the size of r, stores r under a unique
// sanitised name and returns that name. Nothing is stored when validation
// fails.
func Accept(ctx context.Context, store ImageStore, filename string, r io.Reader) (string, error) {
	if !AllowedFile(filename) {
		return "", apperror.ValidationFailed("picture", DisallowedMessage)
	}
	name := SecureFilename(filename)
	if name == "" || !AllowedFile(name) {
		return "", apperror.ValidationFailed("picture", DisallowedMessage)
	}

	// One byte past the cap tells an oversized file from one that fits exactly.
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", apperror.ValidationFailed("picture", "Could not read the uploaded file.")
	}
	if len(data) > MaxImageBytes {
		return "", apperror.ValidationFailed("picture", TooLargeMessage)
	}

	stored := xid.New().String() + "_" + name
	if err := store.Save(ctx, stored, bytes.NewReader(data)); err != nil {
		return "", apperror.Storage("Could not save the picture, please try again!", err)
	}
	return stored, nil
}

// PublicURL resolves a stored image reference to a URL. The sentinel
// defaults ship with the static assets; everything else lives in store.
func PublicURL(store ImageStore, name string) string {
	switch name {
	case "":
		return ""
	case model.DefaultProfilePicture, model.DefaultItemImage:
		return path.Join("/static/img", name)
	}
	return store.URL(name)
}
