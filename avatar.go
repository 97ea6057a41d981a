package users

import "context"

// Avatar is an uploaded image payload.
type Avatar struct {
	FileName    string
	ContentType string
	Data        []byte
}

// AvatarRelay stores avatar images. The core keeps only the opaque key.
type AvatarRelay interface {
	Upload(ctx context.Context, avatar Avatar) (key string, err error)

	ResolveUrl(ctx context.Context, key string) (string, error)
}

// IdentityProvider owns credentials for an email. Deleting an account that
// does not exist is not an error.
type IdentityProvider interface {
	DeleteAccount(ctx context.Context, email Email) error
}
