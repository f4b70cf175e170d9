package httpapi

import (
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"homework_portal/internal/app"
)

// StudentHandler serves the student routes.
type StudentHandler struct {
	portal        *app.PortalService
	validator     *requestValidator
	secureCookies bool
	logger        *logrus.Entry
}

func NewStudentHandler(portal *app.PortalService, secureCookies bool, logger *logrus.Entry) *StudentHandler {
	return &StudentHandler{
		portal:        portal,
		validator:     newRequestValidator(),
		secureCookies: secureCookies,
		logger:        logger.WithField("component", "student_handler"),
	}
}

// Register wires student routes.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Post("/register", h.register)
	router.Get("/me", h.me)
	router.Post("/submit", h.submit)
	router.Post("/edit", h.edit)
	router.Get("/media", h.media)
}

func (h *StudentHandler) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := h.validator.bind(c, &req, fieldMessages{"name": "姓名不能为空且长度需小于 24"}); err != nil {
		// a still-bound browser may post an empty form
		if studentToken(c) == "" {
			return handleError(c, h.logger, err)
		}
	}

	result, err := h.portal.Register(c.UserContext(), studentToken(c), req.Name)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	if result.AlreadyBound {
		return sendOK(c, nil)
	}

	setTokenCookie(c, result.Token, h.secureCookies)
	fields := fiber.Map{"name": result.Name}
	if result.Rebound {
		fields["rebound"] = true
	}
	return sendOK(c, fields)
}

func (h *StudentHandler) me(c *fiber.Ctx) error {
	view, err := h.portal.Me(c.UserContext(), studentToken(c))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(view)
}

func (h *StudentHandler) submit(c *fiber.Ctx) error {
	if studentToken(c) == "" {
		return sendError(c, fiber.StatusUnauthorized, "未绑定姓名")
	}
	form, err := c.MultipartForm()
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, "请上传图片")
	}
	photos, err := readPhotos(form)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	sub, err := h.portal.Submit(c.UserContext(), studentToken(c), app.SubmitInput{
		Subject: formValue(form, "subject"),
		Note:    h.validator.sanitize(formValue(form, "note")),
		Photos:  photos,
	})
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return sendOK(c, fiber.Map{"id": sub.ID})
}

func (h *StudentHandler) edit(c *fiber.Ctx) error {
	if studentToken(c) == "" {
		return sendError(c, fiber.StatusUnauthorized, "未绑定姓名")
	}
	form, err := c.MultipartForm()
	if err != nil {
		return sendError(c, fiber.StatusBadRequest, "请上传图片")
	}
	submissionID := formValue(form, "submission_id")
	if submissionID == "" {
		return sendError(c, fiber.StatusBadRequest, "缺少提交记录")
	}
	photos, err := readPhotos(form)
	if err != nil {
		return handleError(c, h.logger, err)
	}

	if _, err := h.portal.Edit(c.UserContext(), studentToken(c), submissionID, photos); err != nil {
		return handleError(c, h.logger, err)
	}
	return sendOK(c, nil)
}

func (h *StudentHandler) media(c *fiber.Ctx) error {
	if studentToken(c) == "" {
		return sendError(c, fiber.StatusUnauthorized, "未授权")
	}
	body, err := h.portal.Media(c.UserContext(), studentToken(c), c.Query("submission_id"), c.Query("file_id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return sendMedia(c, h.logger, body)
}

// sendMedia streams a downloaded photo with a sniffed content type.
func sendMedia(c *fiber.Ctx, logger *logrus.Entry, body io.ReadCloser) error {
	defer body.Close()
	content, err := io.ReadAll(body)
	if err != nil {
		return handleError(c, logger, err)
	}
	contentType := "image/jpeg"
	if mime := mimetype.Detect(content); mime.String() != "application/octet-stream" {
		contentType = mime.String()
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	return c.Send(content)
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}
