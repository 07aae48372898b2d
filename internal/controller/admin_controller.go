package controller

import (
	"strconv"

	"ai-tripplanner-be/internal/pkg/serverutils"
	"ai-tripplanner-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	GetLogs(ctx *fiber.Ctx) error
	GetLogDetail(ctx *fiber.Ctx) error
}

type adminController struct {
	service service.IAdminService
}

func NewAdminController(service service.IAdminService) IAdminController {
	return &adminController{service: service}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin/v1")

	// Log inspection is operator-only
	h.Use(serverutils.JwtMiddleware)

	h.Get("/logs", c.GetLogs)
	h.Get("/logs/:id", c.GetLogDetail)
}

func (c *adminController) GetLogs(ctx *fiber.Ctx) error {
	page, _ := strconv.Atoi(ctx.Query("page", "1"))
	limit, _ := strconv.Atoi(ctx.Query("limit", "10"))
	level := ctx.Query("level", "")

	logs, err := c.service.GetSystemLogs(ctx.Context(), page, limit, level)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("System logs", logs))
}

func (c *adminController) GetLogDetail(ctx *fiber.Ctx) error {
	logId := ctx.Params("id") // Log ID is a string (MD5 hash), not UUID

	l, err := c.service.GetLogDetail(ctx.Context(), logId)
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Log not found"))
	}
	return ctx.JSON(serverutils.SuccessResponse("Log detail", l))
}
