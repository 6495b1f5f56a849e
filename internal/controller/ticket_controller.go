package controller

import (
	"callcenter-assistant-be/internal/dto"
	"callcenter-assistant-be/internal/pkg/serverutils"
	"callcenter-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ITicketController interface {
	RegisterRoutes(r fiber.Router)
	Sync(ctx *fiber.Ctx) error
}

type ticketController struct {
	ticketService service.ITicketService
}

func NewTicketController(ticketService service.ITicketService) ITicketController {
	return &ticketController{ticketService: ticketService}
}

func (c *ticketController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ticket/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("sync", c.Sync)
}

func (c *ticketController) Sync(ctx *fiber.Ctx) error {
	var req dto.TicketIngestRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.ticketService.SyncProject(ctx.Context(), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success sync project", res))
}
