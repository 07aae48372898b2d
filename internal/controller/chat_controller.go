package controller

import (
	"errors"

	"ai-tripplanner-be/internal/dto"
	"ai-tripplanner-be/internal/pkg/serverutils"
	"ai-tripplanner-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendChat(ctx *fiber.Ctx) error
	Refine(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	GetPlan(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IPlannerService
}

func NewChatController(service service.IPlannerService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Post("/", c.SendChat)
	h.Post("/refine", c.Refine)
	h.Get("/:id/history", c.GetHistory)
	h.Get("/:id/plan", c.GetPlan)
}

func (c *chatController) SendChat(ctx *fiber.Ctx) error {
	var req dto.SendChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.service.Chat(ctx.UserContext(), req)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Conversation not found"))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Reply generated", res))
}

func (c *chatController) Refine(ctx *fiber.Ctx) error {
	var req dto.RefineRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
	}

	res, err := c.service.Refine(ctx.UserContext(), req)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Conversation not found"))
		}
		if errors.Is(err, service.ErrUnknownAction) {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Refinement applied", res))
}

func (c *chatController) GetHistory(ctx *fiber.Ctx) error {
	conversationID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid conversation ID"))
	}

	res, err := c.service.History(ctx.UserContext(), conversationID)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Conversation not found"))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Chat history", res))
}

func (c *chatController) GetPlan(ctx *fiber.Ctx) error {
	conversationID, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid conversation ID"))
	}

	res, err := c.service.PlanState(ctx.UserContext(), conversationID)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(404, "Conversation not found"))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Current plan", res))
}
