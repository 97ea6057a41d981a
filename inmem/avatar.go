package inmem

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/google/uuid"
	"github.com/spacegame/users"
)

var ErrAvatarNotFound = errors.New("avatar not found")

// AvatarRelay keeps uploaded avatars in memory.
type AvatarRelay struct {
	avatars map[string]users.Avatar
	mutex   sync.RWMutex
}

var _ users.AvatarRelay = (*AvatarRelay)(nil)

func NewAvatarRelay() *AvatarRelay {
	return &AvatarRelay{avatars: map[string]users.Avatar{}}
}

func (r *AvatarRelay) Upload(ctx context.Context, avatar users.Avatar) (string, error) {
	key := uuid.NewString() + path.Ext(avatar.FileName)

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.avatars[key] = avatar
	return key, nil
}

func (r *AvatarRelay) ResolveUrl(ctx context.Context, key string) (string, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if _, ok := r.avatars[key]; !ok {
		return "", fmt.Errorf("resolve %s: %w", key, ErrAvatarNotFound)
	}
	return "memory://avatars/" + key, nil
}

func (r *AvatarRelay) ByKey(key string) (users.Avatar, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	avatar, ok := r.avatars[key]
	if !ok {
		return users.Avatar{}, ErrAvatarNotFound
	}
	return avatar, nil
}
