package users

import (
	"context"
	"strings"
	"time"
)

// Email is the primary identity of a profile.
type Email string

// PresenceUnknown is the lowest possible access time. Profiles carrying it
// are offline (or were never seen).
var PresenceUnknown = time.Time{}

type Profile struct {
	Email              Email
	Nickname           string
	AvatarKey          string
	AvatarOriginalName string
	LastAccessTime     time.Time
}

// NormalizeEmail strips surrounding whitespace. Stores key profiles by the
// normalized email.
func NormalizeEmail(email Email) Email {
	return Email(strings.TrimSpace(string(email)))
}

// NewProfile is the only constructor of profiles. Blank nickname defaults to the email.
func NewProfile(email Email, nickname string) Profile {
	email = NormalizeEmail(email)
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = string(email)
	}
	return Profile{
		Email:          email,
		Nickname:       nickname,
		LastAccessTime: PresenceUnknown,
	}
}

// Active reports whether the profile was seen at or after since.
func (p Profile) Active(since time.Time) bool {
	return !p.LastAccessTime.Before(since)
}

type ProfileView struct {
	Email              Email
	Nickname           string
	AvatarOriginalName string
	AvatarUrl          string
}

type UserSummary struct {
	Email    Email
	Nickname string
}

type ProfileStore interface {
	// Insert profile. Fails with ErrProfileExists when email is already stored
	// and with ErrNicknameTaken when nickname is held by another email.
	ConditionalCreate(ctx context.Context, profile Profile) error

	// Returns ErrProfileNotFound when absent.
	Get(ctx context.Context, email Email) (Profile, error)

	// Returns ErrProfileNotFound when nobody holds the nickname.
	GetByNickname(ctx context.Context, nickname string) (Profile, error)

	// Upsert by email. Fails with ErrNicknameTaken when nickname is held by another email.
	Update(ctx context.Context, profile Profile) error

	// Idempotent.
	Delete(ctx context.Context, email Email) error

	// Profiles with LastAccessTime >= since, store-defined order.
	QuerySince(ctx context.Context, since time.Time) ([]Profile, error)
}
