// Package flash carries one-shot status messages across a redirect.
//
// Messages live in a short-lived cookie: a handler calls Add before
// redirecting, the next rendered page calls Pop, which returns the messages and
// deletes the cookie. Middleware keeps a per-request copy so a handler that
// adds a message and renders in the same request still shows it.
//
// The cookie holds base64url-encoded JSON. html/template escapes the text when
// it is rendered, so a tampered cookie can only change what its owner sees.
package flash

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const cookieName = "flash"

// maxMessages bounds the cookie size when a client never renders a page.
const maxMessages = 10

// Message categories understood by the templates.
const (
	Success = "success"
	Error   = "error"
)

// Message is a single flash entry.
type Message struct {
	Category string `json:"c"`
	Text     string `json:"t"`
}

type contextKey struct{}

type bag struct {
	msgs []Message
}

// Middleware decodes the incoming flash cookie once per request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b := &bag{msgs: fromCookie(r)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, b)))
	})
}

// Add queues a message for the next rendered page.
func Add(w http.ResponseWriter, r *http.Request, category, text string) {
	b := requestBag(r)
	b.msgs = append(b.msgs, Message{Category: category, Text: text})
	if len(b.msgs) > maxMessages {
		b.msgs = b.msgs[len(b.msgs)-maxMessages:]
	}
	setCookie(w, b.msgs)
}

// Pop returns the queued messages and clears the cookie.
func Pop(w http.ResponseWriter, r *http.Request) []Message {
	b := requestBag(r)
	msgs := b.msgs
	b.msgs = nil
	if len(msgs) == 0 {
		return nil
	}
	setCookie(w, nil)
	return msgs
}

func requestBag(r *http.Request) *bag {
	if b, ok := r.Context().Value(contextKey{}).(*bag); ok {
		return b
	}
	return &bag{msgs: fromCookie(r)}
}

func setCookie(w http.ResponseWriter, msgs []Message) {
	c := &http.Cookie{
		Name:     cookieName,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if len(msgs) == 0 {
		c.MaxAge = -1
	} else {
		raw, err := json.Marshal(msgs)
		if err != nil {
			return
		}
		c.Value = base64.RawURLEncoding.EncodeToString(raw)
	}
	http.SetCookie(w, c)
}

func fromCookie(r *http.Request) []Message {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	return msgs
}
