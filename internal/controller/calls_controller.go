package controller

import (
	"strings"

	"callcenter-assistant-be/internal/pkg/serverutils"
	"callcenter-assistant-be/pkg/retriever"
	"callcenter-assistant-be/pkg/retriever/calls"

	"github.com/gofiber/fiber/v2"
)

type ICallsController interface {
	RegisterRoutes(r fiber.Router)
	Analytics(ctx *fiber.Ctx) error
}

type callsController struct {
	callsRetriever *calls.Retriever
}

func NewCallsController(callsRetriever *calls.Retriever) ICallsController {
	return &callsController{callsRetriever: callsRetriever}
}

func (c *callsController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/calls/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("analytics", c.Analytics)
}

// Analytics aggregates processed calls by classification, sentiment and
// severity. Filters come in as query params: ?tags=complaint,escalation
// &from=<<NOW-30D>>&to=<<NOW>>.
func (c *callsController) Analytics(ctx *fiber.Ctx) error {
	organizationId, _ := ctx.Locals("organization_id").(string)

	filters := calls.Filters{
		TimeRange: retriever.TimeRange{
			From: ctx.Query("from"),
			To:   ctx.Query("to"),
		},
	}
	if tags := ctx.Query("tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filters.Tags = append(filters.Tags, tag)
			}
		}
	}

	res, err := c.callsRetriever.Analytics(ctx.Context(), filters, organizationId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}
