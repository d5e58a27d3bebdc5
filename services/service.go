// Package services holds the blog's business rules on top of gorm and the media store.
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cppla/photoblog/forms"
)

var (
	// ErrNotFound is returned when the requested post or user does not exist or is not visible.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated is returned when an operation needs a logged-in requester.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidCredentials is returned by Authenticate for a bad username or password.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError carries per-field messages that should be reported back to the client.
type ValidationError struct {
	Fields forms.Errors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msgs := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(msgs, " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Requester identifies who is making a request. The zero value is anonymous.
type Requester struct {
	UserID   uint
	Username string
}

// Authenticated reports whether the requester is logged in.
func (r Requester) Authenticated() bool {
	return r.UserID != 0
}

// Clock returns the current instant.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}
