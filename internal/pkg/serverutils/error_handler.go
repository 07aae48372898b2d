package serverutils

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware recovers from handler panics and converts unhandled
// fiber errors into the standard error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic recovered: %v", r)
				_ = ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(500, "Internal server error"))
			}
		}()

		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := fiber.StatusInternalServerError
		if fiberErr, ok := err.(*fiber.Error); ok {
			code = fiberErr.Code
		}
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}
