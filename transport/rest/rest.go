package rest

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/spacegame/users"
)

type ErrorResponse struct {
	ErrorMessage string `json:"error_message"`
}

// ErrorHandler maps domain errors to status codes. Anything unknown is
// logged and answered with a generic message.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return ctx.
			Status(fe.Code).
			JSON(&ErrorResponse{ErrorMessage: fe.Message})
	}

	var ve *users.ValidationError
	if errors.As(err, &ve) {
		return ctx.Status(fiber.StatusBadRequest).JSON(&ErrorResponse{ErrorMessage: ve.Error()})
	}

	switch {
	case errors.Is(err, users.ErrValidation):
		return ctx.Status(fiber.StatusBadRequest).JSON(&ErrorResponse{ErrorMessage: users.ErrValidation.Error()})
	case errors.Is(err, users.ErrProfileNotFound):
		return ctx.Status(fiber.StatusNotFound).JSON(&ErrorResponse{ErrorMessage: users.ErrProfileNotFound.Error()})
	case errors.Is(err, users.ErrProfileExists):
		return ctx.Status(fiber.StatusConflict).JSON(&ErrorResponse{ErrorMessage: users.ErrProfileExists.Error()})
	case errors.Is(err, users.ErrNicknameTaken):
		return ctx.Status(fiber.StatusConflict).JSON(&ErrorResponse{ErrorMessage: users.ErrNicknameTaken.Error()})
	}

	requestLog(ctx).WithError(err).Errorln("Internal server error.")
	// keep internal server errors private. reply with generic error message.
	return ctx.
		Status(fiber.ErrInternalServerError.Code).
		JSON(&ErrorResponse{ErrorMessage: fiber.ErrInternalServerError.Message})
}

func NotFoundHandler(c *fiber.Ctx) error {
	return fiber.NewError(fiber.StatusNotFound)
}

func combineHandlers(handlers ...fiber.Handler) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		for _, handler := range handlers {
			err := handler(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	}
}

func JsonErrorMessageResponse(message string) string {
	bytes, err := json.Marshal(ErrorResponse{ErrorMessage: message})
	if err != nil {
		panic(err)
	}
	return string(bytes)
}
