package httpapi

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"homework_portal/internal/app"
	"homework_portal/internal/domain/homework"
)

// AdminHandler serves the admin panel API.
type AdminHandler struct {
	admin         *app.AdminService
	export        *app.ExportService
	secret        string
	secureCookies bool
	validator     *requestValidator
	logger        *logrus.Entry
}

func NewAdminHandler(admin *app.AdminService, export *app.ExportService, secret string, secureCookies bool, logger *logrus.Entry) *AdminHandler {
	return &AdminHandler{
		admin:         admin,
		export:        export,
		secret:        secret,
		secureCookies: secureCookies,
		validator:     newRequestValidator(),
		logger:        logger.WithField("component", "admin_handler"),
	}
}

// Register wires the admin routes. Login stays outside the secret check.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Post("/login", h.login)

	protected := router.Group("", AdminAuth(h.secret))
	protected.Get("/overview", h.overview)
	protected.Post("/assignment", h.createAssignment)
	protected.Patch("/assignment", h.patchAssignment)
	protected.Delete("/assignment", h.deleteAssignment)
	protected.Post("/review", h.review)
	protected.Post("/review/batch", h.batchReview)
	protected.Post("/completions", h.setCompletion)
	protected.Get("/students", h.listStudents)
	protected.Post("/students", h.addStudent)
	protected.Patch("/students", h.renameStudent)
	protected.Delete("/students", h.deleteStudent)
	protected.Post("/recover", h.recoverStudent)
	protected.Post("/reminders", h.updateReminders)
	protected.Get("/media", h.media)
	protected.Get("/export", h.exportData)
}

func (h *AdminHandler) login(c *fiber.Ctx) error {
	if h.secret == "" {
		return sendError(c, fiber.StatusNotFound, "未配置管理员")
	}
	var req loginRequest
	if err := h.validator.bind(c, &req, nil); err != nil || !secretMatches(req.Secret, h.secret) {
		requestLogger(h.logger, c).Warn("Rejected admin login")
		return sendError(c, fiber.StatusUnauthorized, "未授权")
	}
	setAdminCookie(c, h.secret, h.secureCookies)
	return sendOK(c, nil)
}

func (h *AdminHandler) overview(c *fiber.Ctx) error {
	overview, err := h.admin.Overview(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(overview)
}

func (h *AdminHandler) createAssignment(c *fiber.Ctx) error {
	var req assignmentCreateRequest
	if err := h.validator.bind(c, &req, fieldMessages{
		"subject":  "请填写科目与标题",
		"title":    "请填写科目与标题",
		"due_date": "日期格式无效",
	}); err != nil {
		return handleError(c, h.logger, err)
	}

	assignment, err := h.admin.CreateAssignment(c.UserContext(), homework.AssignmentInput{
		Subject:     req.Subject,
		Title:       req.Title,
		Description: h.validator.sanitize(req.Description),
		DueDate:     req.DueDate,
	})
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return sendOK(c, fiber.Map{"assignment": assignment})
}

func (h *AdminHandler) patchAssignment(c *fiber.Ctx) error {
	var req assignmentPatchRequest
	if err := h.validator.bind(c, &req, fieldMessages{"id": "缺少作业编号"}); err != nil {
		return handleError(c, h.logger, err)
	}
	if req.DueDate != nil {
		if err := h.validator.checkDate(*req.DueDate); err != nil {
			return handleError(c, h.logger, err)
		}
	}
	if req.Description != nil {
		description := h.validator.sanitize(*req.Description)
		req.Description = &description
	}

	assignment, err := h.admin.PatchAssignment(c.UserContext(), req.ID, homework.AssignmentPatch{
		Subject:     req.Subject,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Active:      req.Active,
	})
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return sendOK(c, fiber.Map{"assignment": assignment})
}

func (h *AdminHandler) deleteAssignment(c *fiber.Ctx) error {
	var req assignmentDeleteRequest
	if err := h.validator.bind(c, &req, fieldMessages{"id": "缺少作业编号"}); err != nil {
		return handleError(c, h.logger, err)
	}
	if err := h.admin.DeleteAssignment(c.UserContext(), req.ID); err != nil {
		return handleError(c, h.logger, err)
	}
	return sendOK(c, nil)
}

func (h *AdminHandler) review(c *fiber.Ctx) error {
	var req reviewRequest
	if err := h.validator.bind(c, &req, fieldMessages{
		"submission_id": "缺少提交记录",
		"status":        "批改状态无效",
	}); err != nil {
		return handleError(c, h.logger, err)
	}

	sub, err := h.admin.Review(c.UserContext(), req.SubmissionID, app.ReviewRequest{
		Status:   req.Status,
		Score:    req.Score.Value(),
		Comment:  h.validator.sanitize(req.Comment),
		Reviewer: h.validator.sanitize(req.Reviewer),
	})
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return sendOK(c, fiber.Map{"review": sub.ReviewOrPending()})
}

func (h *AdminHandler) batchReview(c *fiber.Ctx) error {
	var req batchReviewRequest
	if err := h.validator.bind(c, &req, fieldMessages{
		"submission_ids": "缺少提交记录",
		"status":         "缺少批改状态",
	}); err != nil {
		return handleError(c, h.logger, err)
	}

	result, err := h.admin.BatchReview(c.UserContext(), req.SubmissionIDs, app.ReviewRequest{
		Status:   req.Status,
		Score:    req.Score.Value(),
		Comment:  h.validator.sanitize(req.Comment),
		Reviewer: h.validator.sanitize(req.Reviewer),
	})
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return sendOK(c, fiber.Map{"updated": result.Updated, "skipped": result.Skipped})
}

func (h *AdminHandler) setCompletion(c *fiber.Ctx) error {
	var req completionRequest
	if err := h.validator.bind(c, &req, fieldMessages{"date": "日期格式无效"}); err != nil {
		if msg, ok := homework.IsValidation(err); ok && msg == "参数无效" {
			err = &homework.ValidationError{Message: "参数不完整"}
		}
		return handleError(c, h.logger, err)
	}

	err := h.admin.SetCompletion(c.UserContext(), app.CompletionInput{
		Date:        req.Date,
		StudentName: req.StudentName,
		Subject:     req.Subject,
		Completed:   req.Completed,
	})
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return sendOK(c, nil)
}

func (h *AdminHandler) listStudents(c *fiber.Ctx) error {
	date := c.Query("date")
	if err := h.validator.checkDate(date); err != nil {
		return handleError(c, h.logger, err)
	}
	list, err := h.admin.ListStudents(c.UserContext(), date)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return c.JSON(list)
}

func (h *AdminHandler) addStudent(c *fiber.Ctx) error {
	var req studentCreateRequest
	if err := h.validator.bind(c, &req, fieldMessages{"name": "姓名不能为空且长度需小于 24"}); err != nil {
		return handleError(c, h.logger, err)
	}
	token, name, err := h.admin.AddStudent(c.UserContext(), req.Name)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return sendOK(c, fiber.Map{"token": token, "name": name})
}

func (h *AdminHandler) renameStudent(c *fiber.Ctx) error {
	var req studentPatchRequest
	if err := h.validator.bind(c, &req, fieldMessages{
		"token": "缺少学生",
		"name":  "姓名不能为空且长度需小于 24",
	}); err != nil {
		return handleError(c, h.logger, err)
	}
	if err := h.admin.RenameStudent(c.UserContext(), req.Token, req.Name); err != nil {
		return handleError(c, h.logger, err)
	}
	return sendOK(c, nil)
}

func (h *AdminHandler) deleteStudent(c *fiber.Ctx) error {
	var req studentDeleteRequest
	if err := h.validator.bind(c, &req, fieldMessages{"token": "缺少学生"}); err != nil {
		return handleError(c, h.logger, err)
	}
	if err := h.admin.DeleteStudent(c.UserContext(), req.Token); err != nil {
		return handleError(c, h.logger, err)
	}
	return sendOK(c, nil)
}

func (h *AdminHandler) recoverStudent(c *fiber.Ctx) error {
	var req recoverRequest
	if err := h.validator.bind(c, &req, fieldMessages{"name": "缺少姓名"}); err != nil {
		return handleError(c, h.logger, err)
	}
	token, err := h.admin.RecoverStudent(c.UserContext(), req.Name)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	if req.SetCookie {
		setTokenCookie(c, token, h.secureCookies)
	}
	return sendOK(c, fiber.Map{"token": token})
}

func (h *AdminHandler) updateReminders(c *fiber.Ctx) error {
	var req remindersRequest
	if err := h.validator.bind(c, &req, fieldMessages{"reminders": "提醒最多 20 条"}); err != nil {
		return handleError(c, h.logger, err)
	}
	for i, r := range req.Reminders {
		req.Reminders[i] = homework.Reminder{
			Title: h.validator.sanitize(r.Title),
			Body:  h.validator.sanitize(r.Body),
			Meta:  h.validator.sanitize(r.Meta),
		}
	}
	reminders, err := h.admin.UpdateReminders(c.UserContext(), req.Reminders)
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return sendOK(c, fiber.Map{"reminders": reminders})
}

func (h *AdminHandler) media(c *fiber.Ctx) error {
	body, err := h.admin.Media(c.UserContext(), c.Query("submission_id"), c.Query("file_id"))
	if err != nil {
		return handleError(c, h.logger, err)
	}
	return sendMedia(c, h.logger, body)
}

// exportData returns the XLSX report for a date range or the CSV of one day.
func (h *AdminHandler) exportData(c *fiber.Ctx) error {
	var (
		export *app.Export
		err    error
	)
	start, end := c.Query("start"), c.Query("end")
	if start != "" || end != "" {
		export, err = h.export.ReportWorkbook(c.UserContext(), start, end)
	} else {
		export, err = h.export.SubmissionsCSV(c.UserContext(), c.Query("date"))
	}
	if err != nil {
		return handleError(c, h.logger, err)
	}

	c.Set(fiber.HeaderContentType, export.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.FileName))
	return c.Send(export.Body)
}
