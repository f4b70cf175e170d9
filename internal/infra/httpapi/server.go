package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"homework_portal/internal/app"
	"homework_portal/internal/infra/metrics"
)

// ten photos at the per-file limit plus form overhead
const bodyLimit = 110 << 20

// Dependencies are the services behind the HTTP API.
type Dependencies struct {
	Portal        *app.PortalService
	Admin         *app.AdminService
	Export        *app.ExportService
	AdminSecret   string
	SecureCookies bool
	Logger        *logrus.Entry
}

// NewServer builds the fiber app with every route registered.
func NewServer(deps Dependencies) *fiber.App {
	logger := deps.Logger.WithField("component", "http")

	server := fiber.New(fiber.Config{
		AppName:               "homework-portal",
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	server.Use(CorrelationID())
	server.Use(RequestLogger(logger))
	server.Use(recover.New())
	server.Use(StudentToken())

	NewHealthHandler().Register(server)
	server.Get("/metrics", metrics.Handler())

	api := server.Group("/api")
	NewStudentHandler(deps.Portal, deps.SecureCookies, deps.Logger).Register(api)
	NewAdminHandler(deps.Admin, deps.Export, deps.AdminSecret, deps.SecureCookies, deps.Logger).Register(api.Group("/admin"))

	return server
}

func errorHandler(logger *logrus.Entry) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			switch fiberErr.Code {
			case fiber.StatusNotFound:
				return sendError(c, fiber.StatusNotFound, "接口不存在")
			case fiber.StatusMethodNotAllowed:
				return sendError(c, fiber.StatusMethodNotAllowed, "方法不支持")
			case fiber.StatusRequestEntityTooLarge:
				return sendError(c, fiber.StatusRequestEntityTooLarge, "上传内容过大")
			}
			if fiberErr.Code < fiber.StatusInternalServerError {
				return sendError(c, fiberErr.Code, "请求无效")
			}
		}
		return handleError(c, logger, err)
	}
}
