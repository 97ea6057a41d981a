// Package identity talks to the external identity provider that owns
// credentials for profile emails.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spacegame/users"
)

var ErrUnauthorized = errors.New("identity provider unauthorized")

const defaultRequestTimeout = 10 * time.Second

// RestProvider deletes accounts through the provider admin api
// DELETE <BaseUrl>/users/<email>.
type RestProvider struct {
	BaseUrl    string
	AdminToken string
	Timeout    time.Duration
}

var _ users.IdentityProvider = (*RestProvider)(nil)

func (p *RestProvider) DeleteAccount(ctx context.Context, email users.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	agent := fiber.AcquireAgent()
	defer fiber.ReleaseAgent(agent)

	req := agent.Request()
	req.Header.SetMethod(fiber.MethodDelete)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+p.AdminToken)
	req.SetRequestURI(fmt.Sprintf("%s/users/%s",
		strings.TrimSuffix(p.BaseUrl, "/"), url.PathEscape(string(email))))
	agent.Timeout(p.timeout(ctx))

	err := agent.Parse()
	if err != nil {
		return fmt.Errorf("agent parse: %w", err)
	}

	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("agent bytes: %w", errors.Join(errs...))
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == fiber.StatusNotFound:
		// already gone
		return nil
	case statusCode == fiber.StatusUnauthorized || statusCode == fiber.StatusForbidden:
		return ErrUnauthorized
	default:
		return fmt.Errorf("invalid status code %d: %s", statusCode, string(body))
	}
}

func (p *RestProvider) timeout(ctx context.Context) time.Duration {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			return left
		}
	}
	return timeout
}
