// Package profile implements the profile rules: unique nicknames,
// presence windowing and avatar bookkeeping on top of a ProfileStore
// and an AvatarRelay.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spacegame/users"
)

const DefaultAccessWindow = 30 * time.Minute

type Service struct {
	Store users.ProfileStore
	Relay users.AvatarRelay

	// Profiles seen within AccessWindow are active.
	AccessWindow time.Duration

	// Clock, defaults to time.Now in UTC.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) accessWindow() time.Duration {
	if s.AccessWindow <= 0 {
		return DefaultAccessWindow
	}
	return s.AccessWindow
}

func (s *Service) Register(ctx context.Context, email users.Email, nickname string) error {
	profile := users.NewProfile(email, nickname)
	if profile.Email == "" {
		return users.Validation("empty email")
	}
	return s.create(ctx, profile)
}

func (s *Service) create(ctx context.Context, profile users.Profile) error {
	if err := s.checkNicknameAvailability(ctx, profile.Email, profile.Nickname); err != nil {
		return err
	}
	if err := s.Store.ConditionalCreate(ctx, profile); err != nil {
		return users.Dependency("create profile", err)
	}
	return nil
}

// UpdateProfile replaces the nickname. The availability check and the write
// are separate store calls, the store rejects the write if the nickname was
// claimed in between.
func (s *Service) UpdateProfile(ctx context.Context, email users.Email, nickname string) error {
	email = users.NormalizeEmail(email)
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return users.Validation("empty nickname")
	}
	if err := s.checkNicknameAvailability(ctx, email, nickname); err != nil {
		return err
	}
	profile, err := s.get(ctx, email)
	if err != nil {
		return err
	}
	profile.Nickname = nickname
	if err := s.Store.Update(ctx, profile); err != nil {
		return users.Dependency("update profile", err)
	}
	return nil
}

// UpdateAvatar uploads the image and stores its key. An uploaded blob is not
// removed when the following profile write fails.
func (s *Service) UpdateAvatar(ctx context.Context, email users.Email, avatar users.Avatar) error {
	email = users.NormalizeEmail(email)
	if len(avatar.Data) == 0 {
		return users.Validation("empty avatar")
	}
	if strings.TrimSpace(avatar.FileName) == "" {
		return users.Validation("empty avatar file name")
	}
	profile, err := s.get(ctx, email)
	if err != nil {
		return err
	}
	key, err := s.Relay.Upload(ctx, avatar)
	if err != nil {
		return &users.DependencyError{Op: "upload avatar", Err: err}
	}
	profile.AvatarKey = key
	profile.AvatarOriginalName = avatar.FileName
	if err := s.Store.Update(ctx, profile); err != nil {
		return users.Dependency("update profile avatar", err)
	}
	return nil
}

func (s *Service) GetProfile(ctx context.Context, email users.Email) (users.ProfileView, error) {
	profile, err := s.get(ctx, users.NormalizeEmail(email))
	if err != nil {
		return users.ProfileView{}, err
	}
	var url string
	if profile.AvatarKey != "" {
		url, err = s.Relay.ResolveUrl(ctx, profile.AvatarKey)
		if err != nil {
			return users.ProfileView{}, &users.DependencyError{Op: "resolve avatar url", Err: err}
		}
	}
	return users.ProfileView{
		Email:              profile.Email,
		Nickname:           profile.Nickname,
		AvatarOriginalName: profile.AvatarOriginalName,
		AvatarUrl:          url,
	}, nil
}

func (s *Service) ListUsers(ctx context.Context, activeOnly bool) ([]users.UserSummary, error) {
	since := users.PresenceUnknown
	if activeOnly {
		since = s.now().Add(-s.accessWindow())
	}
	profiles, err := s.Store.QuerySince(ctx, since)
	if err != nil {
		return nil, users.Dependency("query profiles", err)
	}
	summaries := make([]users.UserSummary, len(profiles))
	for i, p := range profiles {
		summaries[i] = users.UserSummary{Email: p.Email, Nickname: p.Nickname}
	}
	return summaries, nil
}

// SetPresence marks the profile online (now) or offline. Unknown emails get a
// profile bootstrapped the same way Register builds one.
func (s *Service) SetPresence(ctx context.Context, email users.Email, online bool) error {
	email = users.NormalizeEmail(email)
	if email == "" {
		return users.Validation("empty email")
	}
	accessTime := users.PresenceUnknown
	if online {
		accessTime = s.now()
	}

	profile, err := s.Store.Get(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, users.ErrProfileNotFound):
		stub := users.NewProfile(email, "")
		stub.LastAccessTime = accessTime
		err = s.create(ctx, stub)
		if !errors.Is(err, users.ErrProfileExists) {
			return err
		}
		// registered concurrently, update that record instead
		profile, err = s.get(ctx, email)
		if err != nil {
			return err
		}
	default:
		return users.Dependency("get profile", err)
	}

	profile.LastAccessTime = accessTime
	if err := s.Store.Update(ctx, profile); err != nil {
		return users.Dependency("update presence", err)
	}
	return nil
}

// DeleteUser removes the profile. Releasing the identity provider account is
// up to the caller.
func (s *Service) DeleteUser(ctx context.Context, email users.Email) error {
	profile, err := s.get(ctx, users.NormalizeEmail(email))
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, profile.Email); err != nil {
		return users.Dependency("delete profile", err)
	}
	return nil
}

func (s *Service) get(ctx context.Context, email users.Email) (users.Profile, error) {
	profile, err := s.Store.Get(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrProfileNotFound) {
			return users.Profile{}, fmt.Errorf("%w: %s", users.ErrProfileNotFound, email)
		}
		return users.Profile{}, users.Dependency("get profile", err)
	}
	return profile, nil
}

func (s *Service) checkNicknameAvailability(ctx context.Context, email users.Email, nickname string) error {
	holder, err := s.Store.GetByNickname(ctx, nickname)
	if err != nil {
		if errors.Is(err, users.ErrProfileNotFound) {
			return nil
		}
		return users.Dependency("get profile by nickname", err)
	}
	if holder.Email != email {
		return fmt.Errorf("%w: %s", users.ErrNicknameTaken, nickname)
	}
	return nil
}
