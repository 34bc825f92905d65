package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// KindStorefront is the only session kind this service issues.
	KindStorefront = "storefront"

	// GuestSubjectPrefix marks subjects that belong to anonymous guests.
	GuestSubjectPrefix = "guest_"

	RegisteredTTL = time.Hour
	GuestTTL      = 24 * time.Hour
)

// SessionClaims is the typed payload of a storefront session token.
type SessionClaims struct {
	Shop      string  `json:"shop"`
	SubjectID *string `json:"subjectId,omitempty"`
	Kind      string  `json:"kind"`
	jwt.RegisteredClaims
}

// Subject returns the subject id or "" when absent.
func (c *SessionClaims) Subject() string {
	if c == nil || c.SubjectID == nil {
		return ""
	}
	return *c.SubjectID
}

// IsGuest reports whether the claims belong to a guest (or anonymous) caller.
func (c *SessionClaims) IsGuest() bool {
	return IsGuestSubject(c.Subject())
}

// IsGuestSubject reports whether subject is empty or carries the guest prefix.
func IsGuestSubject(subject string) bool {
	return subject == "" || strings.HasPrefix(subject, GuestSubjectPrefix)
}

// TTLFor returns the session lifetime for a subject: a day for guests, an
// hour for registered customers.
func TTLFor(subjectID *string) time.Duration {
	if subjectID == nil || IsGuestSubject(*subjectID) {
		return GuestTTL
	}
	return RegisteredTTL
}
