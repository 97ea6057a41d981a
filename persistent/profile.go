package persistent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/spacegame/users"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	profilePkeyConstraint     = "profile_pkey"
	profileNicknameConstraint = "profile_nickname_key"

	pgUniqueViolation = "23505"
)

type Profile struct {
	bun.BaseModel `bun:"table:profile"`

	Email              string    `bun:",pk"`
	Nickname           string    `bun:",notnull,unique"`
	AvatarKey          string    `bun:",nullzero"`
	AvatarOriginalName string    `bun:",nullzero"`
	LastAccessTime     time.Time `bun:",notnull"`
}

func profileModel(p users.Profile) *Profile {
	return &Profile{
		Email:              string(p.Email),
		Nickname:           p.Nickname,
		AvatarKey:          p.AvatarKey,
		AvatarOriginalName: p.AvatarOriginalName,
		LastAccessTime:     p.LastAccessTime.UTC(),
	}
}

func (p Profile) ToDomain() users.Profile {
	accessTime := users.PresenceUnknown
	if !p.LastAccessTime.IsZero() {
		accessTime = p.LastAccessTime.UTC()
	}
	return users.Profile{
		Email:              users.Email(p.Email),
		Nickname:           p.Nickname,
		AvatarKey:          p.AvatarKey,
		AvatarOriginalName: p.AvatarOriginalName,
		LastAccessTime:     accessTime,
	}
}

// PgProfileStore keeps profiles in postgres. Email and nickname uniqueness
// is enforced by table constraints.
type PgProfileStore struct {
	DB *bun.DB
}

var _ users.ProfileStore = (*PgProfileStore)(nil)

func (s *PgProfileStore) ConditionalCreate(ctx context.Context, profile users.Profile) error {
	_, err := s.DB.NewInsert().
		Model(profileModel(profile)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert profile: %w", constraintError(err))
	}
	return nil
}

func (s *PgProfileStore) Get(ctx context.Context, email users.Email) (users.Profile, error) {
	return s.selectOne(ctx, "email = ?", string(email))
}

func (s *PgProfileStore) GetByNickname(ctx context.Context, nickname string) (users.Profile, error) {
	return s.selectOne(ctx, "nickname = ?", nickname)
}

func (s *PgProfileStore) selectOne(ctx context.Context, query string, arg string) (users.Profile, error) {
	profile := new(Profile)
	err := s.DB.NewSelect().
		Model(profile).
		Where(query, arg).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.Profile{}, users.ErrProfileNotFound
		}
		return users.Profile{}, fmt.Errorf("select profile: %w", err)
	}
	return profile.ToDomain(), nil
}

func (s *PgProfileStore) Update(ctx context.Context, profile users.Profile) error {
	_, err := s.DB.NewInsert().
		Model(profileModel(profile)).
		On(`CONFLICT (email) DO UPDATE SET nickname=EXCLUDED.nickname, ` +
			`avatar_key=EXCLUDED.avatar_key, avatar_original_name=EXCLUDED.avatar_original_name, ` +
			`last_access_time=EXCLUDED.last_access_time`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", constraintError(err))
	}
	return nil
}

func (s *PgProfileStore) Delete(ctx context.Context, email users.Email) error {
	_, err := s.DB.NewDelete().
		Model((*Profile)(nil)).
		Where("email = ?", string(email)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (s *PgProfileStore) QuerySince(ctx context.Context, since time.Time) ([]users.Profile, error) {
	var models []Profile
	err := s.DB.NewSelect().
		Model(&models).
		Where("last_access_time >= ?", since.UTC()).
		Order("email ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select profiles since: %w", err)
	}
	found := make([]users.Profile, len(models))
	for i, m := range models {
		found[i] = m.ToDomain()
	}
	return found, nil
}

func constraintError(err error) error {
	var pgErr pgdriver.Error
	if !errors.As(err, &pgErr) || pgErr.Field('C') != pgUniqueViolation {
		return err
	}
	switch pgErr.Field('n') {
	case profilePkeyConstraint:
		return users.ErrProfileExists
	case profileNicknameConstraint:
		return users.ErrNicknameTaken
	default:
		return err
	}
}
