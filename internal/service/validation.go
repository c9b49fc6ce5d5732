package service

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"todo-service/internal/auth"
	"todo-service/internal/entity"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// dueDateLayouts are tried in order; the last two are what HTML date and
// datetime-local inputs submit.
var dueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("bcryptmax", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= auth.MaxPasswordBytes
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		return isStrongPassword(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

type credentials struct {
	Username string `validate:"required,min=3,max=20,username"`
	Password string `validate:"required,min=8,bcryptmax,strongpassword"`
}

var fieldMessages = map[string]string{
	"Username.required":       "Username is required",
	"Username.min":            "Username must be at least 3 characters long",
	"Username.max":            "Username must be at most 20 characters long",
	"Username.username":       "Username must contain only letters, numbers and underscores",
	"Password.required":       "Password is required",
	"Password.min":            "Password must be at least 8 characters long",
	"Password.bcryptmax":      "Password must be at most 72 bytes",
	"Password.strongpassword": "Password must contain an uppercase letter, a number and a special character",
	"Title.required":          "Title is required",
	"Status.oneof":            "Status must be pending or completed",
	"Priority.oneof":          "Priority must be low, medium, or high",
}

func validateCredentials(username, password string) error {
	return toValidationError(validate.Struct(credentials{Username: username, Password: password}))
}

func validateTask(task *entity.Task) error {
	return toValidationError(validate.Struct(task))
}

// toValidationError reports the first failing field.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg = fe.Field() + " is invalid"
	}
	return entity.NewValidationError(strings.ToLower(fe.Field()[:1])+fe.Field()[1:], msg)
}

func isStrongPassword(p string) bool {
	var upper, digit, special bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && digit && special
}

func parseDueDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, entity.NewValidationError("dueDate", "Due date is invalid")
}

// applyInput merges the supplied fields over task, fills defaults and validates
// the result.
func applyInput(task *entity.Task, in entity.TaskInput) error {
	if in.Title != nil {
		task.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Status != nil {
		task.Status = *in.Status
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}
	if in.DueDate != nil {
		due, err := parseDueDate(*in.DueDate)
		if err != nil {
			return err
		}
		task.DueDate = due
	}

	if task.Status == "" {
		task.Status = entity.StatusPending
	}
	if task.Priority == "" {
		task.Priority = entity.PriorityMedium
	}
	return validateTask(task)
}
