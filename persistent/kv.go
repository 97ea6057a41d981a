package persistent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spacegame/users"
	"github.com/tidwall/buntdb"
)

const (
	profileKeyPrefix = "profile:"

	profileNicknameIndex   = "profile_nickname"
	profileLastAccessIndex = "profile_last_access"
)

type kvProfile struct {
	Email              string `json:"email"`
	Nickname           string `json:"nickname"`
	AvatarKey          string `json:"avatarKey,omitempty"`
	AvatarOriginalName string `json:"avatarOriginalName,omitempty"`
	// unix millis, 0 while presence is unknown
	LastAccessTime int64 `json:"lastAccessTime"`
}

func kvProfileOf(p users.Profile) kvProfile {
	var accessTime int64
	if !p.LastAccessTime.IsZero() {
		accessTime = p.LastAccessTime.UnixMilli()
	}
	return kvProfile{
		Email:              string(p.Email),
		Nickname:           p.Nickname,
		AvatarKey:          p.AvatarKey,
		AvatarOriginalName: p.AvatarOriginalName,
		LastAccessTime:     accessTime,
	}
}

func (p kvProfile) ToDomain() users.Profile {
	accessTime := users.PresenceUnknown
	if p.LastAccessTime != 0 {
		accessTime = time.UnixMilli(p.LastAccessTime).UTC()
	}
	return users.Profile{
		Email:              users.Email(p.Email),
		Nickname:           p.Nickname,
		AvatarKey:          p.AvatarKey,
		AvatarOriginalName: p.AvatarOriginalName,
		LastAccessTime:     accessTime,
	}
}

// KvProfileStore keeps profiles as json documents in buntdb. Uniqueness checks
// and the write share one transaction.
type KvProfileStore struct {
	Buntdb *buntdb.DB
}

var _ users.ProfileStore = (*KvProfileStore)(nil)

func (s *KvProfileStore) CreateIndexes() error {
	err := s.Buntdb.CreateIndex(profileNicknameIndex, profileKeyPrefix+"*",
		buntdb.IndexJSONCaseSensitive("nickname"))
	if err != nil && !errors.Is(err, buntdb.ErrIndexExists) {
		return fmt.Errorf("create nickname index: %w", err)
	}
	err = s.Buntdb.CreateIndex(profileLastAccessIndex, profileKeyPrefix+"*",
		buntdb.IndexJSON("lastAccessTime"))
	if err != nil && !errors.Is(err, buntdb.ErrIndexExists) {
		return fmt.Errorf("create last access index: %w", err)
	}
	return nil
}

func (s *KvProfileStore) ConditionalCreate(ctx context.Context, profile users.Profile) error {
	return s.Buntdb.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Get(profileKeyPrefix + string(profile.Email))
		if err == nil {
			return users.ErrProfileExists
		}
		if !errors.Is(err, buntdb.ErrNotFound) {
			return fmt.Errorf("get profile: %w", err)
		}
		return setProfile(tx, profile)
	})
}

func (s *KvProfileStore) Get(ctx context.Context, email users.Email) (users.Profile, error) {
	var profile users.Profile
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(profileKeyPrefix + string(email))
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return users.ErrProfileNotFound
			}
			return fmt.Errorf("get profile: %w", err)
		}
		profile, err = decodeProfile(value)
		return err
	})
	return profile, err
}

func (s *KvProfileStore) GetByNickname(ctx context.Context, nickname string) (users.Profile, error) {
	var profile users.Profile
	err := s.Buntdb.View(func(tx *buntdb.Tx) error {
		var err error
		profile, err = profileByNickname(tx, nickname)
		return err
	})
	return profile, err
}

func (s *KvProfileStore) Update(ctx context.Context, profile users.Profile) error {
	return s.Buntdb.Update(func(tx *buntdb.Tx) error {
		return setProfile(tx, profile)
	})
}

func (s *KvProfileStore) Delete(ctx context.Context, email users.Email) error {
	return s.Buntdb.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(profileKeyPrefix + string(email))
		if err != nil && !errors.Is(err, buntdb.ErrNotFound) {
			return fmt.Errorf("delete profile: %w", err)
		}
		return nil
	})
}

// QuerySince compares at millisecond precision, a profile seen less than 1ms
// before since still matches.
func (s *KvProfileStore) QuerySince(ctx context.Context, since time.Time) ([]users.Profile, error) {
	pivot, err := json.Marshal(kvProfileOf(users.Profile{LastAccessTime: since}))
	if err != nil {
		return nil, fmt.Errorf("pivot serialize: %w", err)
	}

	found := make([]users.Profile, 0)
	err = s.Buntdb.View(func(tx *buntdb.Tx) error {
		var err, decodeErr error
		iterator := func(key, value string) bool {
			profile, err := decodeProfile(value)
			if err != nil {
				decodeErr = err
				return false
			}
			found = append(found, profile)
			return true
		}
		if since.IsZero() {
			err = tx.Ascend(profileLastAccessIndex, iterator)
		} else {
			err = tx.AscendGreaterOrEqual(profileLastAccessIndex, string(pivot), iterator)
		}
		if err != nil {
			return fmt.Errorf("iterate profiles: %w", err)
		}
		return decodeErr
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// setProfile writes profile unless its nickname belongs to another email.
func setProfile(tx *buntdb.Tx, profile users.Profile) error {
	holder, err := profileByNickname(tx, profile.Nickname)
	switch {
	case err == nil && holder.Email != profile.Email:
		return users.ErrNicknameTaken
	case err != nil && !errors.Is(err, users.ErrProfileNotFound):
		return err
	}

	serialized, err := json.Marshal(kvProfileOf(profile))
	if err != nil {
		return fmt.Errorf("profile serialize: %w", err)
	}
	_, _, err = tx.Set(profileKeyPrefix+string(profile.Email), string(serialized), nil)
	if err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	return nil
}

func profileByNickname(tx *buntdb.Tx, nickname string) (users.Profile, error) {
	pivot, err := json.Marshal(kvProfile{Nickname: nickname})
	if err != nil {
		return users.Profile{}, fmt.Errorf("pivot serialize: %w", err)
	}

	var value string
	err = tx.AscendEqual(profileNicknameIndex, string(pivot), func(key, v string) bool {
		value = v
		return false
	})
	if err != nil {
		return users.Profile{}, fmt.Errorf("lookup nickname: %w", err)
	}
	if value == "" {
		return users.Profile{}, users.ErrProfileNotFound
	}
	return decodeProfile(value)
}

func decodeProfile(value string) (users.Profile, error) {
	var p kvProfile
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		return users.Profile{}, fmt.Errorf("profile deserialize: %w", err)
	}
	return p.ToDomain(), nil
}
