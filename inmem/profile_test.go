package inmem

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spacegame/users"
	"github.com/stretchr/testify/assert"
)

func TestProfileStore(t *testing.T) {
	ctx := context.Background()
	assert := assert.New(t)

	s := NewProfileStore()
	_, err := s.Get(ctx, "ghost@x.com")
	assert.Equal(users.ErrProfileNotFound, err)

	bob := users.NewProfile("bob@x.com", "bob")
	if !assert.NoError(s.ConditionalCreate(ctx, bob)) {
		return
	}
	assert.Equal(users.ErrProfileExists, s.ConditionalCreate(ctx, users.NewProfile("bob@x.com", "bobby")))
	assert.Equal(users.ErrNicknameTaken, s.ConditionalCreate(ctx, users.NewProfile("carl@x.com", "bob")))

	found, err := s.GetByNickname(ctx, "bob")
	if assert.NoError(err) {
		assert.Equal(bob, found)
	}
	_, err = s.GetByNickname(ctx, "Bob")
	assert.Equal(users.ErrProfileNotFound, err)

	carl := users.NewProfile("carl@x.com", "carl")
	assert.NoError(s.Update(ctx, carl))
	carl.Nickname = "bob"
	assert.Equal(users.ErrNicknameTaken, s.Update(ctx, carl))

	assert.NoError(s.Delete(ctx, "bob@x.com"))
	assert.NoError(s.Delete(ctx, "bob@x.com"))
	_, err = s.Get(ctx, "bob@x.com")
	assert.Equal(users.ErrProfileNotFound, err)
}

func TestProfileStoreQuerySince(t *testing.T) {
	ctx := context.Background()
	assert := assert.New(t)

	now := time.Date(2022, 1, 1, 15, 0, 0, 0, time.UTC)
	s := NewProfileStore()

	online := users.NewProfile("online@x.com", "")
	online.LastAccessTime = now
	stale := users.NewProfile("stale@x.com", "")
	stale.LastAccessTime = now.Add(-time.Hour)
	offline := users.NewProfile("offline@x.com", "")
	for _, p := range []users.Profile{online, stale, offline} {
		if !assert.NoError(s.ConditionalCreate(ctx, p)) {
			return
		}
	}

	found, err := s.QuerySince(ctx, now.Add(-time.Minute))
	if assert.NoError(err) {
		assert.Equal([]users.Profile{online}, found)
	}

	found, err = s.QuerySince(ctx, users.PresenceUnknown)
	if assert.NoError(err) {
		assert.ElementsMatch([]users.Profile{online, stale, offline}, found)
	}
}

func TestAvatarRelay(t *testing.T) {
	ctx := context.Background()
	assert := assert.New(t)

	r := NewAvatarRelay()
	key, err := r.Upload(ctx, users.Avatar{FileName: "me.png", Data: []byte{0x89, 'P', 'N', 'G'}})
	if !assert.NoError(err) {
		return
	}
	assert.Contains(key, ".png")

	url, err := r.ResolveUrl(ctx, key)
	if assert.NoError(err) {
		assert.Equal("memory://avatars/"+key, url)
	}

	_, err = r.ResolveUrl(ctx, "missing")
	assert.ErrorIs(err, ErrAvatarNotFound)
}

func TestProfileStoreConcurrentNickname(t *testing.T) {
	ctx := context.Background()
	s := NewProfileStore()

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.ConditionalCreate(ctx, users.NewProfile(users.Email(fmt.Sprintf("user%d@x.com", i)), "bob"))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.Equal(t, users.ErrNicknameTaken, err)
	}
	assert.Equal(t, 1, created)
}
