package rest

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spacegame/users"
	"github.com/spacegame/users/identity"
	"github.com/stretchr/testify/assert"
)

var testSecret = []byte("rest-test-secret-rest-test-secret")

func bearer(t *testing.T, email users.Email) string {
	token, err := identity.GenerateToken(email, testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + token
}

func TestRequestAuthorizer(t *testing.T) {
	assert := assert.New(t)

	authorizer := RequestAuthorizer(identity.TokenVerifier{SecretKey: testSecret})
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/whoami", combineHandlers(authorizer, func(ctx *fiber.Ctx) error {
		return ctx.SendString(string(ctx.Locals(subjectLocalsKey).(users.Email)))
	}))
	app.Put("/users/:email", combineHandlers(authorizer, requireSubject, func(ctx *fiber.Ctx) error {
		return ctx.SendString("mutated")
	}))

	expired, err := identity.GenerateToken("bob@x.com", testSecret, -time.Minute)
	if !assert.NoError(err) {
		return
	}

	cases := []struct {
		method string
		path   string
		auth   string
		status int
		body   string
	}{
		{"GET", "/whoami", "", fiber.StatusUnauthorized, JsonErrorMessageResponse("Unauthorized")},
		{"GET", "/whoami", "Basic Ym9iOmJvYg==", fiber.StatusBadRequest, JsonErrorMessageResponse("invalid auth type")},
		{"GET", "/whoami", "Bearer garbage", fiber.StatusUnauthorized, JsonErrorMessageResponse("Unauthorized")},
		{"GET", "/whoami", "Bearer " + expired, fiber.StatusUnauthorized, JsonErrorMessageResponse("token expired")},
		{"GET", "/whoami", bearer(t, "bob@x.com"), fiber.StatusOK, "bob@x.com"},
		{"PUT", "/users/bob@x.com", bearer(t, "bob@x.com"), fiber.StatusOK, "mutated"},
		{"PUT", "/users/bob%40x.com", bearer(t, "bob@x.com"), fiber.StatusOK, "mutated"},
		{"PUT", "/users/carl@x.com", bearer(t, "bob@x.com"), fiber.StatusForbidden, JsonErrorMessageResponse("Forbidden")},
		{"PUT", "/users/carl@x.com", "", fiber.StatusUnauthorized, JsonErrorMessageResponse("Unauthorized")},
	}

	for _, tc := range cases {
		msg := tc.method + " " + tc.path + " " + tc.auth
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.auth != "" {
			req.Header.Set(fiber.HeaderAuthorization, tc.auth)
		}
		resp, err := app.Test(req)
		if !assert.NoError(err, msg) {
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()

		assert.NoError(err, msg)
		assert.Equal(tc.status, resp.StatusCode, msg)
		assert.Equal(tc.body, string(body), msg)
	}
}
