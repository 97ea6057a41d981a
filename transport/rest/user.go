package rest

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spacegame/users"
)

type ProfileService interface {
	Register(ctx context.Context, email users.Email, nickname string) error

	UpdateProfile(ctx context.Context, email users.Email, nickname string) error

	UpdateAvatar(ctx context.Context, email users.Email, avatar users.Avatar) error

	GetProfile(ctx context.Context, email users.Email) (users.ProfileView, error)

	ListUsers(ctx context.Context, activeOnly bool) ([]users.UserSummary, error)

	SetPresence(ctx context.Context, email users.Email, online bool) error

	DeleteUser(ctx context.Context, email users.Email) error
}

type IdentityReleaser interface {
	Release(ctx context.Context, email users.Email) error
}

// DefaultReleaseTimeout bounds the inline identity release of a delete request.
const DefaultReleaseTimeout = 3 * time.Second

type UserController struct {
	Service  ProfileService
	Identity IdentityReleaser

	// Inline release budget, the releaser queues what does not fit.
	ReleaseTimeout time.Duration
}

func (c *UserController) releaseTimeout() time.Duration {
	if c.ReleaseTimeout <= 0 {
		return DefaultReleaseTimeout
	}
	return c.ReleaseTimeout
}

func (c *UserController) InstallTo(requestAuthorizer fiber.Handler, app *fiber.App) {
	app.Get("/users", combineHandlers(requestAuthorizer, c.serveUsers))
	app.Get("/users/:email", combineHandlers(requestAuthorizer, c.serveProfile))
	app.Post("/users/:email", combineHandlers(requestAuthorizer, requireSubject, c.serveRegister))
	app.Put("/users/:email", combineHandlers(requestAuthorizer, requireSubject, c.serveUpdateProfile))
	app.Post("/users/:email/avatar", combineHandlers(requestAuthorizer, requireSubject, c.serveUpdateAvatar))
	app.Put("/users/:email/presence", combineHandlers(requestAuthorizer, requireSubject, c.servePresence))
	app.Delete("/users/:email", combineHandlers(requestAuthorizer, requireSubject, c.serveDelete))
}

type userSummaryResponse struct {
	Email    users.Email `json:"email"`
	Nickname string      `json:"nickname"`
}

type profileResponse struct {
	Email              users.Email `json:"email"`
	Nickname           string      `json:"nickname"`
	AvatarOriginalName string      `json:"avatarOriginalName"`
	AvatarUrl          string      `json:"avatarUrl"`
}

type nicknameRequest struct {
	Nickname string `json:"nickname"`
}

func (c *UserController) serveUsers(ctx *fiber.Ctx) error {
	activeOnly, err := strconv.ParseBool(ctx.Query("active", "true"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid active flag")
	}

	summaries, err := c.Service.ListUsers(ctx.Context(), activeOnly)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	response := make([]userSummaryResponse, len(summaries))
	for i, s := range summaries {
		response[i] = userSummaryResponse{Email: s.Email, Nickname: s.Nickname}
	}
	return ctx.JSON(response)
}

func (c *UserController) serveProfile(ctx *fiber.Ctx) error {
	email, err := emailParam(ctx)
	if err != nil {
		return err
	}

	view, err := c.Service.GetProfile(ctx.Context(), email)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	return ctx.JSON(profileResponse{
		Email:              view.Email,
		Nickname:           view.Nickname,
		AvatarOriginalName: view.AvatarOriginalName,
		AvatarUrl:          view.AvatarUrl,
	})
}

func (c *UserController) serveRegister(ctx *fiber.Ctx) error {
	email, err := emailParam(ctx)
	if err != nil {
		return err
	}
	// body is optional, nickname defaults to the email
	body := nicknameRequest{}
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&body); err != nil {
			requestLog(ctx).WithError(err).Infoln("Invalid body.")
			return fiber.NewError(fiber.StatusBadRequest, "invalid body")
		}
	}

	if err := c.Service.Register(ctx.Context(), email, body.Nickname); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return ctx.SendStatus(fiber.StatusCreated)
}

func (c *UserController) serveUpdateProfile(ctx *fiber.Ctx) error {
	email, err := emailParam(ctx)
	if err != nil {
		return err
	}
	body := nicknameRequest{}
	if err := ctx.BodyParser(&body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	if err := c.Service.UpdateProfile(ctx.Context(), email, body.Nickname); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (c *UserController) serveUpdateAvatar(ctx *fiber.Ctx) error {
	email, err := emailParam(ctx)
	if err != nil {
		return err
	}
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing file")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("open uploaded file: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read uploaded file: %w", err)
	}

	avatar := users.Avatar{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}
	if err := c.Service.UpdateAvatar(ctx.Context(), email, avatar); err != nil {
		return fmt.Errorf("update avatar: %w", err)
	}
	return nil
}

func (c *UserController) servePresence(ctx *fiber.Ctx) error {
	email, err := emailParam(ctx)
	if err != nil {
		return err
	}
	body := struct {
		Online *bool `json:"online"`
	}{}
	if err := ctx.BodyParser(&body); err != nil || body.Online == nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	if err := c.Service.SetPresence(ctx.Context(), email, *body.Online); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	return nil
}

func (c *UserController) serveDelete(ctx *fiber.Ctx) error {
	email, err := emailParam(ctx)
	if err != nil {
		return err
	}

	if err := c.Service.DeleteUser(ctx.Context(), email); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if c.Identity != nil {
		// profile is gone already, the account is retried in background
		releaseCtx, cancel := context.WithTimeout(ctx.Context(), c.releaseTimeout())
		defer cancel()
		if err := c.Identity.Release(releaseCtx, email); err != nil {
			requestLog(ctx).WithError(err).Errorln("Could not release identity account.")
		}
	}
	return nil
}
