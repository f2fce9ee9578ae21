package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Due date messages.
const (
	DueDateInPastMessage  = "dueDate must be in the future"
	InvalidDueDateMessage = "dueDate must be a valid date"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match what clients send.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateTask checks every field constraint of a task and returns a
// *ValidationError listing one message per violated field, or nil.
//
// The due date is only checked when checkDueDate is set, i.e. when the
// current write supplied it. Stored past due dates are not re-validated.
func ValidateTask(task *Task, now time.Time, checkDueDate bool) error {
	if task == nil {
		return NewValidationError("task is required")
	}

	vErr := &ValidationError{}
	if err := validate.Struct(task); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validating task: %w", err)
		}
		for _, fe := range fieldErrs {
			vErr.Add(fieldMessage(fe))
		}
	}

	if checkDueDate && task.DueDate != nil && task.DueDate.Before(NormalizeTime(now)) {
		vErr.Add(DueDateInPastMessage)
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

// ValidateWrite validates a task about to be written from patch. Besides the
// field constraints of ValidateTask it reports an unparsable due date, so a
// single *ValidationError lists every problem with the request.
func ValidateWrite(task *Task, patch TaskPatch, now time.Time) error {
	err := ValidateTask(task, now, patch.SetsDueDate())
	if !patch.InvalidDueDate {
		return err
	}

	vErr := &ValidationError{}
	if err != nil {
		var fieldErrs *ValidationError
		if !errors.As(err, &fieldErrs) {
			return err
		}
		vErr.Errors = append(vErr.Errors, fieldErrs.Errors...)
	}
	vErr.Add(InvalidDueDateMessage)
	return vErr
}

// ValidateStatus checks a raw status value for the status-only update.
func ValidateStatus(raw string) (TaskStatus, error) {
	status := TaskStatus(raw)
	if raw == "" {
		return "", NewValidationError("status is required")
	}
	if !IsValidTaskStatus(status) {
		return "", NewValidationError(oneOfMessage("status", "pending in-progress completed"))
	}
	return status, nil
}

// fieldMessage turns a validator failure into a client-facing sentence.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", fe.Field(), fe.Param())
	case "oneof":
		return oneOfMessage(fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

func oneOfMessage(field, options string) string {
	return fmt.Sprintf("%s must be one of: %s", field, strings.Join(strings.Fields(options), ", "))
}
