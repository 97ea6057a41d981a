package mock

import (
	"context"

	"github.com/spacegame/users"
)

// ProfileService mirrors profile.Service for transport tests.
type ProfileService struct {
	RegisterFn func(ctx context.Context, email users.Email, nickname string) error

	UpdateProfileFn func(ctx context.Context, email users.Email, nickname string) error

	UpdateAvatarFn func(ctx context.Context, email users.Email, avatar users.Avatar) error

	GetProfileFn func(ctx context.Context, email users.Email) (users.ProfileView, error)

	ListUsersFn func(ctx context.Context, activeOnly bool) ([]users.UserSummary, error)

	SetPresenceFn func(ctx context.Context, email users.Email, online bool) error

	DeleteUserFn func(ctx context.Context, email users.Email) error
}

func (s ProfileService) Register(ctx context.Context, email users.Email, nickname string) error {
	return s.RegisterFn(ctx, email, nickname)
}

func (s ProfileService) UpdateProfile(ctx context.Context, email users.Email, nickname string) error {
	return s.UpdateProfileFn(ctx, email, nickname)
}

func (s ProfileService) UpdateAvatar(ctx context.Context, email users.Email, avatar users.Avatar) error {
	return s.UpdateAvatarFn(ctx, email, avatar)
}

func (s ProfileService) GetProfile(ctx context.Context, email users.Email) (users.ProfileView, error) {
	return s.GetProfileFn(ctx, email)
}

func (s ProfileService) ListUsers(ctx context.Context, activeOnly bool) ([]users.UserSummary, error) {
	return s.ListUsersFn(ctx, activeOnly)
}

func (s ProfileService) SetPresence(ctx context.Context, email users.Email, online bool) error {
	return s.SetPresenceFn(ctx, email, online)
}

func (s ProfileService) DeleteUser(ctx context.Context, email users.Email) error {
	return s.DeleteUserFn(ctx, email)
}

type IdentityReleaser struct {
	ReleaseFn func(ctx context.Context, email users.Email) error
}

func (r IdentityReleaser) Release(ctx context.Context, email users.Email) error {
	return r.ReleaseFn(ctx, email)
}
