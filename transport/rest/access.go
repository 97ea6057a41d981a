package rest

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/spacegame/users"
	"github.com/spacegame/users/identity"
)

const subjectLocalsKey = "subject"

type TokenVerifier interface {
	Email(token string) (users.Email, error)
}

// RequestAuthorizer stores the bearer token email under subjectLocalsKey.
func RequestAuthorizer(verifier TokenVerifier) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		auth := ctx.Get(fiber.HeaderAuthorization)
		if auth == "" {
			return fiber.ErrUnauthorized
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			return fiber.NewError(fiber.ErrBadRequest.Code, "invalid auth type")
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		email, err := verifier.Email(token)
		if err != nil {
			if errors.Is(err, identity.ErrTokenExpired) {
				return fiber.NewError(fiber.StatusUnauthorized, "token expired")
			}
			requestLog(ctx).WithError(err).Infoln("Rejected bearer token.")
			return fiber.ErrUnauthorized
		}

		ctx.Locals(subjectLocalsKey, email)
		requestLog(ctx).Debugln("Authorized access.")
		return nil
	}
}

// requireSubject allows only the owner of the :email profile.
func requireSubject(ctx *fiber.Ctx) error {
	subject, _ := ctx.Locals(subjectLocalsKey).(users.Email)
	target, err := emailParam(ctx)
	if err != nil {
		return err
	}

	switch users.SubjectAccess(subject, target) {
	case users.AccessAllowed:
		return nil
	case users.AccessUndefined:
		return fiber.ErrUnauthorized
	default:
		requestLog(ctx).WithField("target", target).Infoln("Forbidden profile mutation.")
		return fiber.ErrForbidden
	}
}

func emailParam(ctx *fiber.Ctx) (users.Email, error) {
	encoded := ctx.Params("email")
	if encoded == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "no email")
	}
	decoded, err := url.PathUnescape(encoded)
	if err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid email")
	}
	return users.Email(decoded), nil
}
