package persistent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/spacegame/users"
	"github.com/stretchr/testify/assert"
)

var contractNow = time.Date(2022, 1, 6, 18, 30, 0, 0, time.UTC)

func assertSameProfile(assert *assert.Assertions, expected users.Profile, actual users.Profile) {
	assert.Equal(expected.Email, actual.Email)
	assert.Equal(expected.Nickname, actual.Nickname)
	assert.Equal(expected.AvatarKey, actual.AvatarKey)
	assert.Equal(expected.AvatarOriginalName, actual.AvatarOriginalName)
	assert.WithinDuration(expected.LastAccessTime, actual.LastAccessTime, 0)
}

func testProfileStoreContract(t *testing.T, s users.ProfileStore) {
	ctx := context.Background()
	assert := assert.New(t)

	_, err := s.Get(ctx, "ghost@x.com")
	assert.ErrorIs(err, users.ErrProfileNotFound)
	_, err = s.GetByNickname(ctx, "ghost")
	assert.ErrorIs(err, users.ErrProfileNotFound)

	bob := users.NewProfile("bob@x.com", "bob")
	if !assert.NoError(s.ConditionalCreate(ctx, bob)) {
		return
	}
	assert.ErrorIs(s.ConditionalCreate(ctx, users.NewProfile("bob@x.com", "other")), users.ErrProfileExists)
	assert.ErrorIs(s.ConditionalCreate(ctx, users.NewProfile("carl@x.com", "bob")), users.ErrNicknameTaken)
	_, err = s.Get(ctx, "carl@x.com")
	assert.ErrorIs(err, users.ErrProfileNotFound)

	found, err := s.Get(ctx, "bob@x.com")
	if assert.NoError(err) {
		assertSameProfile(assert, bob, found)
		assert.Equal(users.PresenceUnknown, found.LastAccessTime)
	}
	found, err = s.GetByNickname(ctx, "bob")
	if assert.NoError(err) {
		assert.Equal(bob.Email, found.Email)
	}
	_, err = s.GetByNickname(ctx, "BOB")
	assert.ErrorIs(err, users.ErrProfileNotFound, "nickname lookup is exact match")

	bob.AvatarKey = "avatars/2022/1/6/a.png"
	bob.AvatarOriginalName = "a.png"
	bob.LastAccessTime = contractNow
	if assert.NoError(s.Update(ctx, bob)) {
		found, err = s.Get(ctx, "bob@x.com")
		if assert.NoError(err) {
			assertSameProfile(assert, bob, found)
		}
	}

	carl := users.NewProfile("carl@x.com", "carl")
	carl.LastAccessTime = contractNow.Add(-time.Hour)
	if !assert.NoError(s.ConditionalCreate(ctx, carl)) {
		return
	}
	carl.Nickname = "bob"
	assert.ErrorIs(s.Update(ctx, carl), users.ErrNicknameTaken)
	found, err = s.Get(ctx, "carl@x.com")
	if assert.NoError(err) {
		assert.Equal("carl", found.Nickname)
	}

	dana := users.NewProfile("dana@x.com", "")
	if !assert.NoError(s.ConditionalCreate(ctx, dana)) {
		return
	}

	active, err := s.QuerySince(ctx, contractNow.Add(-30*time.Minute))
	if assert.NoError(err) {
		assert.Equal([]users.Email{"bob@x.com"}, profileEmails(active))
	}
	active, err = s.QuerySince(ctx, contractNow)
	if assert.NoError(err) {
		assert.Equal([]users.Email{"bob@x.com"}, profileEmails(active), "window start is inclusive")
	}
	all, err := s.QuerySince(ctx, users.PresenceUnknown)
	if assert.NoError(err) {
		assert.Equal([]users.Email{"bob@x.com", "carl@x.com", "dana@x.com"}, profileEmails(all))
	}

	assert.NoError(s.Delete(ctx, "bob@x.com"))
	assert.NoError(s.Delete(ctx, "bob@x.com"), "deleting absent profile")
	_, err = s.Get(ctx, "bob@x.com")
	assert.ErrorIs(err, users.ErrProfileNotFound)
	assert.NoError(s.ConditionalCreate(ctx, users.NewProfile("erin@x.com", "bob")), "nickname released")
}

func profileEmails(profiles []users.Profile) []users.Email {
	emails := make([]users.Email, len(profiles))
	for i, p := range profiles {
		emails[i] = p.Email
	}
	sort.Slice(emails, func(i, j int) bool { return emails[i] < emails[j] })
	return emails
}

// testProfileStoreNicknameRace creates profiles of distinct emails under one
// nickname concurrently, exactly one create may win.
func testProfileStoreNicknameRace(t *testing.T, s users.ProfileStore) {
	ctx := context.Background()

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := users.Email(fmt.Sprintf("racer%d@x.com", i))
			errs[i] = s.ConditionalCreate(ctx, users.NewProfile(email, "racer"))
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, users.ErrNicknameTaken)
	}
	assert.Equal(t, 1, created)
}
