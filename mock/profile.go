package mock

import (
	"context"
	"time"

	"github.com/spacegame/users"
)

type ProfileStore struct {
	ConditionalCreateFn func(ctx context.Context, profile users.Profile) error

	GetFn func(ctx context.Context, email users.Email) (users.Profile, error)

	GetByNicknameFn func(ctx context.Context, nickname string) (users.Profile, error)

	UpdateFn func(ctx context.Context, profile users.Profile) error

	DeleteFn func(ctx context.Context, email users.Email) error

	QuerySinceFn func(ctx context.Context, since time.Time) ([]users.Profile, error)
}

var _ users.ProfileStore = ProfileStore{}

func (s ProfileStore) ConditionalCreate(ctx context.Context, profile users.Profile) error {
	return s.ConditionalCreateFn(ctx, profile)
}

func (s ProfileStore) Get(ctx context.Context, email users.Email) (users.Profile, error) {
	return s.GetFn(ctx, email)
}

func (s ProfileStore) GetByNickname(ctx context.Context, nickname string) (users.Profile, error) {
	return s.GetByNicknameFn(ctx, nickname)
}

func (s ProfileStore) Update(ctx context.Context, profile users.Profile) error {
	return s.UpdateFn(ctx, profile)
}

func (s ProfileStore) Delete(ctx context.Context, email users.Email) error {
	return s.DeleteFn(ctx, email)
}

func (s ProfileStore) QuerySince(ctx context.Context, since time.Time) ([]users.Profile, error) {
	return s.QuerySinceFn(ctx, since)
}

type AvatarRelay struct {
	UploadFn func(ctx context.Context, avatar users.Avatar) (string, error)

	ResolveUrlFn func(ctx context.Context, key string) (string, error)
}

var _ users.AvatarRelay = AvatarRelay{}

func (r AvatarRelay) Upload(ctx context.Context, avatar users.Avatar) (string, error) {
	return r.UploadFn(ctx, avatar)
}

func (r AvatarRelay) ResolveUrl(ctx context.Context, key string) (string, error) {
	return r.ResolveUrlFn(ctx, key)
}

type IdentityProvider struct {
	DeleteAccountFn func(ctx context.Context, email users.Email) error
}

var _ users.IdentityProvider = IdentityProvider{}

func (p IdentityProvider) DeleteAccount(ctx context.Context, email users.Email) error {
	return p.DeleteAccountFn(ctx, email)
}
