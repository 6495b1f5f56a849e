package controller

import (
	"io"

	"callcenter-assistant-be/internal/dto"
	"callcenter-assistant-be/internal/pkg/serverutils"
	"callcenter-assistant-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IUploadController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	IngestPolicy(ctx *fiber.Ctx) error
}

type uploadController struct {
	uploadService service.IUploadService
	policyService service.IPolicyService
}

func NewUploadController(uploadService service.IUploadService, policyService service.IPolicyService) IUploadController {
	return &uploadController{
		uploadService: uploadService,
		policyService: policyService,
	}
}

func (c *uploadController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/file/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("upload", c.Upload)
	h.Post("policy", c.IngestPolicy)
	h.Get(":id", c.Show)
}

func (c *uploadController) Upload(ctx *fiber.Ctx) error {
	organizationId, _ := ctx.Locals("organization_id").(string)
	userId, _ := ctx.Locals("user_id").(string)

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	res, err := c.uploadService.Upload(ctx.Context(), service.UploadInput{
		OriginalName:   fileHeader.Filename,
		MimeType:       fileHeader.Header.Get("Content-Type"),
		Content:        content,
		UploadedBy:     userId,
		OrganizationId: organizationId,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success upload file", res))
}

func (c *uploadController) Show(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid file id")
	}

	res, err := c.uploadService.Get(ctx.Context(), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func (c *uploadController) IngestPolicy(ctx *fiber.Ctx) error {
	organizationId, _ := ctx.Locals("organization_id").(string)
	userId, _ := ctx.Locals("user_id").(string)

	var req dto.PolicyUploadRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	policyId, err := c.policyService.Ingest(ctx.Context(), organizationId, userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success ingest policy", fiber.Map{"policy_id": policyId}))
}
