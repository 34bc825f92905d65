package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-wishlist/pkg/auth"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		name       string
		subject    string
		kind       Kind
		key        string
		externalID string
		anonymous  bool
	}{
		{name: "guest", subject: "guest_abc", kind: KindGuest, key: "abc"},
		{name: "empty", subject: "", kind: KindGuest, anonymous: true},
		{name: "whitespace", subject: "   ", kind: KindGuest, anonymous: true},
		{name: "registered", subject: "123", kind: KindRegistered, externalID: "123"},
		{name: "prefix only", subject: "guest_", kind: KindGuest, anonymous: true},
		{name: "case sensitive prefix", subject: "Guest_abc", kind: KindRegistered, externalID: "Guest_abc"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := Resolve(tc.subject)
			assert.Equal(t, tc.kind, id.Kind())
			assert.Equal(t, tc.key, id.Key())
			assert.Equal(t, tc.externalID, id.ExternalID())
			assert.Equal(t, tc.anonymous, id.IsAnonymous())
		})
	}
}

func TestSubjectRoundTrip(t *testing.T) {
	for _, subject := range []string{"guest_g1", "c1"} {
		sub := Resolve(subject).Subject()
		require.NotNil(t, sub)
		assert.Equal(t, subject, *sub)
	}
	assert.Nil(t, Resolve("").Subject())
	assert.Equal(t, "", Guest("").SubjectString())
}

func TestFromClaims(t *testing.T) {
	sub := "guest_g1"
	id := FromClaims(&auth.SessionClaims{SubjectID: &sub})
	assert.True(t, id.IsGuest())
	assert.Equal(t, "g1", id.Key())

	id = FromClaims(&auth.SessionClaims{})
	assert.True(t, id.IsAnonymous())
}

func TestZeroValueIsAnonymousGuest(t *testing.T) {
	var id Identity
	assert.True(t, id.IsGuest())
	assert.True(t, id.IsAnonymous())
	assert.False(t, id.IsRegistered())
}
