package users

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectAccess(t *testing.T) {
	assert := assert.New(t)

	cases := []struct {
		subject Email
		target  Email
		access  Access
	}{
		{"a@x.com", "a@x.com", AccessAllowed},
		{"a@x.com", "b@x.com", AccessForbidden},
		{"a@x.com", "A@x.com", AccessForbidden},
		{"", "a@x.com", AccessUndefined},
		{"  ", "  ", AccessUndefined},
	}
	for _, tc := range cases {
		assert.Equal(tc.access, SubjectAccess(tc.subject, tc.target), tc)
	}
}

func TestNewProfileDefaultsNickname(t *testing.T) {
	assert := assert.New(t)

	p := NewProfile(" a@x.com ", "  ")
	assert.Equal(Email("a@x.com"), p.Email)
	assert.Equal("a@x.com", p.Nickname)
	assert.Equal(PresenceUnknown, p.LastAccessTime)

	p = NewProfile("a@x.com", "ace")
	assert.Equal("ace", p.Nickname)
}

func TestDependencyKeepsDomainErrors(t *testing.T) {
	assert := assert.New(t)

	assert.Nil(Dependency("op", nil))
	assert.Equal(ErrProfileNotFound, Dependency("get", ErrProfileNotFound))

	storeErr := errors.New("connection reset")
	err := Dependency("get", storeErr)
	assert.ErrorIs(err, ErrDependency)
	assert.ErrorIs(err, storeErr)
	assert.NotErrorIs(err, ErrProfileNotFound)
}
