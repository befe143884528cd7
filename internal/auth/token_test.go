package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-16-chars!!"

func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestNewTokenService_Validation(t *testing.T) {
	if _, err := NewTokenService("short", time.Hour); err == nil {
		t.Error("NewTokenService() should reject secrets shorter than 16 chars")
	}
	if _, err := NewTokenService(testSecret, 0); err == nil {
		t.Error("NewTokenService() should reject a zero lifetime")
	}
}

func TestIssueParse_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	sess, token, err := ts.Issue(42)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token is not a JWT: %q", token)
	}

	got, err := ts.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got.UserID != 42 {
		t.Errorf("UserID = %d, want 42", got.UserID)
	}
	if got.ID != sess.ID || got.ID == "" {
		t.Errorf("session ID = %q, want %q", got.ID, sess.ID)
	}
}

func TestIssue_UniqueSessionIDs(t *testing.T) {
	ts := newTestTokenService(t)

	a, _, _ := ts.Issue(1)
	b, _, _ := ts.Issue(1)
	if a.ID == b.ID {
		t.Error("two logins of the same user share a session ID")
	}
}

func TestParse_Expired(t *testing.T) {
	ts := newTestTokenService(t)
	ts.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	_, token, err := ts.Issue(1)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	ts.now = time.Now

	_, err = ts.Parse(token)
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("Parse() error = %v, want ErrSessionExpired", err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	_, token, _ := newTestTokenService(t).Issue(1)

	other, _ := NewTokenService("a-completely-different-secret", time.Hour)
	if _, err := other.Parse(token); err == nil {
		t.Error("Parse() accepted a token signed with another secret")
	}
}

func TestParse_Tampered(t *testing.T) {
	ts := newTestTokenService(t)
	_, token, _ := ts.Issue(1)

	if _, err := ts.Parse(token + "x"); err == nil {
		t.Error("Parse() accepted a tampered token")
	}
	if _, err := ts.Parse("garbage"); err == nil {
		t.Error("Parse() accepted garbage")
	}
}

func TestParse_RejectsNonNumericSubject(t *testing.T) {
	ts := newTestTokenService(t)
	c := claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        "abc",
		Subject:   "not-a-number",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := ts.Parse(token); err == nil {
		t.Error("Parse() accepted a non-numeric subject")
	}
}

func TestParse_RejectsNoneAlgorithm(t *testing.T) {
	ts := newTestTokenService(t)
	c := claims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        "abc",
		Subject:   "1",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := ts.Parse(token); err == nil {
		t.Error("Parse() accepted an unsigned token")
	}
}
