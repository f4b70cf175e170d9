package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"homework_portal/internal/app"
	"homework_portal/internal/domain/homework"
)

// sendOK writes {"ok": true, ...fields}.
func sendOK(c *fiber.Ctx, fields fiber.Map) error {
	payload := fiber.Map{"ok": true}
	for k, v := range fields {
		payload[k] = v
	}
	return c.JSON(payload)
}

// sendError writes {"error": message} with status.
func sendError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// handleError maps service errors to responses. Only validation messages are
// passed through; everything else gets a fixed text.
func handleError(c *fiber.Ctx, logger *logrus.Entry, err error) error {
	if msg, ok := homework.IsValidation(err); ok {
		return sendError(c, fiber.StatusBadRequest, msg)
	}

	switch {
	case errors.Is(err, app.ErrUnregistered):
		return sendError(c, fiber.StatusUnauthorized, "未绑定姓名")
	case errors.Is(err, homework.ErrNotOwner), errors.Is(err, app.ErrFileNotAllowed):
		return sendError(c, fiber.StatusForbidden, "未授权")
	case errors.Is(err, homework.ErrEditWindowClosed):
		return sendError(c, fiber.StatusForbidden, "已超过修改期限")
	case errors.Is(err, homework.ErrStudentNotFound):
		return sendError(c, fiber.StatusNotFound, "学生不存在")
	case errors.Is(err, homework.ErrSubmissionNotFound):
		return sendError(c, fiber.StatusNotFound, "提交记录不存在")
	case errors.Is(err, homework.ErrAssignmentNotFound):
		return sendError(c, fiber.StatusNotFound, "作业不存在")
	case errors.Is(err, homework.ErrRevisionConflict):
		requestLogger(logger, c).Warn("Rejected write against a stale revision")
		return sendError(c, fiber.StatusConflict, "数据已被更新，请刷新后重试")
	case errors.Is(err, homework.ErrInvalidDataFile):
		requestLogger(logger, c).WithError(err).Error("Stored data file is unreadable")
		return sendError(c, fiber.StatusInternalServerError, "存储数据解析失败")
	case errors.Is(err, app.ErrUpstreamMalformed):
		requestLogger(logger, c).WithError(err).Error("Messaging API returned an unexpected result")
		return sendError(c, fiber.StatusInternalServerError, "Telegram 返回异常")
	default:
		requestLogger(logger, c).WithError(err).Error("Request failed")
		return sendError(c, fiber.StatusInternalServerError, "服务器错误")
	}
}
