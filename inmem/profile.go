package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/spacegame/users"
)

type ProfileStore struct {
	profiles map[users.Email]users.Profile
	mutex    sync.RWMutex
}

var _ users.ProfileStore = (*ProfileStore)(nil)

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles: map[users.Email]users.Profile{},
	}
}

func (s *ProfileStore) ConditionalCreate(ctx context.Context, profile users.Profile) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.profiles[profile.Email]; ok {
		return users.ErrProfileExists
	}
	if s.nicknameHeldByOther(profile) {
		return users.ErrNicknameTaken
	}
	s.profiles[profile.Email] = profile
	return nil
}

func (s *ProfileStore) Get(ctx context.Context, email users.Email) (users.Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	p, ok := s.profiles[email]
	if !ok {
		return users.Profile{}, users.ErrProfileNotFound
	}
	return p, nil
}

func (s *ProfileStore) GetByNickname(ctx context.Context, nickname string) (users.Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, p := range s.profiles {
		if p.Nickname == nickname {
			return p, nil
		}
	}
	return users.Profile{}, users.ErrProfileNotFound
}

func (s *ProfileStore) Update(ctx context.Context, profile users.Profile) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.nicknameHeldByOther(profile) {
		return users.ErrNicknameTaken
	}
	s.profiles[profile.Email] = profile
	return nil
}

func (s *ProfileStore) Delete(ctx context.Context, email users.Email) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.profiles, email)
	return nil
}

func (s *ProfileStore) QuerySince(ctx context.Context, since time.Time) ([]users.Profile, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	found := make([]users.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		if p.Active(since) {
			found = append(found, p)
		}
	}
	return found, nil
}

// must be called with mutex held
func (s *ProfileStore) nicknameHeldByOther(profile users.Profile) bool {
	for email, p := range s.profiles {
		if email != profile.Email && p.Nickname == profile.Nickname {
			return true
		}
	}
	return false
}
