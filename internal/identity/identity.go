// Package identity classifies storefront callers from the session subject.
package identity

import (
	"strings"

	"github.com/angelmondragon/storefront-wishlist/pkg/auth"
)

// Kind distinguishes guests from registered customers.
type Kind string

const (
	KindGuest      Kind = "guest"
	KindRegistered Kind = "registered"
)

// Identity is either a guest (possibly anonymous, with an empty key) or a
// registered customer identified by the upstream customer id.
type Identity struct {
	kind  Kind
	value string
}

// Guest builds a guest identity. An empty key is an anonymous guest.
func Guest(key string) Identity {
	return Identity{kind: KindGuest, value: key}
}

// Registered builds a registered identity for externalID.
func Registered(externalID string) Identity {
	return Identity{kind: KindRegistered, value: externalID}
}

// Resolve classifies a subject string. It never fails: "guest_<k>" is a guest
// with key k, empty is an anonymous guest and anything else is registered.
func Resolve(subject string) Identity {
	subject = strings.TrimSpace(subject)
	switch {
	case subject == "":
		return Guest("")
	case strings.HasPrefix(subject, auth.GuestSubjectPrefix):
		return Guest(strings.TrimPrefix(subject, auth.GuestSubjectPrefix))
	default:
		return Registered(subject)
	}
}

// FromClaims resolves the identity carried by verified session claims.
func FromClaims(claims *auth.SessionClaims) Identity {
	return Resolve(claims.Subject())
}

func (i Identity) Kind() Kind {
	if i.kind == "" {
		return KindGuest
	}
	return i.kind
}

func (i Identity) IsGuest() bool { return i.Kind() == KindGuest }

func (i Identity) IsRegistered() bool { return i.kind == KindRegistered }

// IsAnonymous reports a guest without a key yet.
func (i Identity) IsAnonymous() bool { return i.IsGuest() && i.value == "" }

// Key is the guest key, or "" for registered identities.
func (i Identity) Key() string {
	if i.IsGuest() {
		return i.value
	}
	return ""
}

// ExternalID is the customer id, or "" for guests.
func (i Identity) ExternalID() string {
	if i.IsRegistered() {
		return i.value
	}
	return ""
}

// Subject re-encodes the identity as a token subject. Anonymous guests have none.
func (i Identity) Subject() *string {
	var s string
	switch {
	case i.IsRegistered():
		s = i.value
	case i.value != "":
		s = auth.GuestSubjectPrefix + i.value
	default:
		return nil
	}
	return &s
}

// SubjectString is Subject flattened for logs.
func (i Identity) SubjectString() string {
	if s := i.Subject(); s != nil {
		return *s
	}
	return ""
}
