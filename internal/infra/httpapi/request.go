package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"mime/multipart"
	"reflect"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/microcosm-cc/bluemonday"

	"homework_portal/internal/domain/homework"
	domainTelegram "homework_portal/internal/domain/telegram"
)

const maxPhotoBytes = 10 << 20

type registerRequest struct {
	Name string `json:"name" validate:"required,max=24"`
}

type loginRequest struct {
	Secret string `json:"secret" validate:"required"`
}

type assignmentCreateRequest struct {
	Subject     string `json:"subject" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	DueDate     string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type assignmentPatchRequest struct {
	ID          string  `json:"id" validate:"required"`
	Subject     *string `json:"subject"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Active      *bool   `json:"active"`
}

type assignmentDeleteRequest struct {
	ID string `json:"id" validate:"required"`
}

type reviewRequest struct {
	SubmissionID string   `json:"submission_id" validate:"required"`
	Status       string   `json:"status" validate:"omitempty,oneof=pending reviewed returned"`
	Score        reviewScore `json:"score"`
	Comment      string      `json:"comment"`
	Reviewer     string      `json:"reviewer"`
}

type batchReviewRequest struct {
	SubmissionIDs []string    `json:"submission_ids" validate:"required,min=1"`
	Status        string      `json:"status" validate:"required,oneof=pending reviewed returned"`
	Score         reviewScore `json:"score"`
	Comment       string      `json:"comment"`
	Reviewer      string      `json:"reviewer"`
}

// reviewScore keeps a numeric score and silently drops anything else, so a
// stray string or object never fails the whole review.
type reviewScore struct {
	value *float64
}

func (s *reviewScore) UnmarshalJSON(b []byte) error {
	s.value = nil
	var v float64
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) || json.Unmarshal(b, &v) != nil {
		return nil
	}
	s.value = &v
	return nil
}

func (s reviewScore) Value() *float64 {
	return s.value
}

type completionRequest struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	StudentName string `json:"student_name" validate:"required"`
	Subject     string `json:"subject" validate:"required"`
	Completed   bool   `json:"completed"`
}

type studentCreateRequest struct {
	Name string `json:"name" validate:"required,max=24"`
}

type studentPatchRequest struct {
	Token string `json:"token" validate:"required"`
	Name  string `json:"name" validate:"required,max=24"`
}

type studentDeleteRequest struct {
	Token string `json:"token" validate:"required"`
}

type recoverRequest struct {
	Name      string `json:"name" validate:"required"`
	SetCookie bool   `json:"set_cookie"`
}

type remindersRequest struct {
	Reminders []homework.Reminder `json:"reminders" validate:"max=20"`
}

// fieldMessages maps a json field name to the message shown when it fails validation.
type fieldMessages map[string]string

// requestValidator wraps validator with user-facing messages and sanitising.
type requestValidator struct {
	validate *validator.Validate
	policy   *bluemonday.Policy
}

func newRequestValidator() *requestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: v, policy: bluemonday.StrictPolicy()}
}

// bind parses the JSON body into req, trims its string fields and validates it.
func (v *requestValidator) bind(c *fiber.Ctx, req interface{}, messages fieldMessages) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return &homework.ValidationError{Message: "请求格式无效"}
		}
	}
	trimStrings(reflect.ValueOf(req))
	return v.check(req, messages)
}

func (v *requestValidator) check(req interface{}, messages fieldMessages) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		if msg, ok := messages[fieldErrs[0].Field()]; ok {
			return &homework.ValidationError{Message: msg}
		}
	}
	return &homework.ValidationError{Message: "参数无效"}
}

// checkDate validates an optional YYYY-MM-DD value.
func (v *requestValidator) checkDate(value string) error {
	if err := v.validate.Var(value, "omitempty,datetime=2006-01-02"); err != nil {
		return &homework.ValidationError{Message: "日期格式无效"}
	}
	return nil
}

// sanitize strips markup from free text while keeping it readable as plain text.
func (v *requestValidator) sanitize(value string) string {
	return strings.TrimSpace(html.UnescapeString(v.policy.Sanitize(value)))
}

func trimStrings(v reflect.Value) {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		switch {
		case f.Kind() == reflect.String && f.CanSet():
			f.SetString(strings.TrimSpace(f.String()))
		case f.Kind() == reflect.Ptr && !f.IsNil() && f.Elem().Kind() == reflect.String:
			f.Elem().SetString(strings.TrimSpace(f.Elem().String()))
		}
	}
}

// readPhotos loads the image parts of a multipart form. Every file must be
// non-empty and sniff as an image.
func readPhotos(form *multipart.Form) ([]domainTelegram.Upload, error) {
	files := form.File["images"]
	if len(files) == 0 {
		files = form.File["image"]
	}
	if err := homework.ValidatePhotoCount(len(files)); err != nil {
		return nil, err
	}

	uploads := make([]domainTelegram.Upload, 0, len(files))
	for _, fh := range files {
		if fh.Size == 0 {
			return nil, &homework.ValidationError{Message: "请上传图片"}
		}
		if fh.Size > maxPhotoBytes {
			return nil, &homework.ValidationError{Message: "图片不能超过 10MB"}
		}
		content, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		if !isImage(content) {
			return nil, &homework.ValidationError{Message: "仅支持图片文件"}
		}
		uploads = append(uploads, domainTelegram.Upload{Name: fh.Filename, Reader: bytes.NewReader(content)})
	}
	return uploads, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}
	return content, nil
}

func isImage(content []byte) bool {
	for mime := mimetype.Detect(content); mime != nil; mime = mime.Parent() {
		if strings.HasPrefix(mime.String(), "image/") {
			return true
		}
	}
	return false
}
