package middleware

import (
	"errors"
	"log"

	"skillscope/internal/core"
	"skillscope/internal/pkg/response"

	"github.com/gofiber/fiber/v3"
)

type AppError struct {
	StatusCode int
	Message    string
	Data       interface{}
	Cause      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewAppError(statusCode int, message string, data interface{}, cause error) *AppError {
	return &AppError{StatusCode: statusCode, Message: message, Data: data, Cause: cause}
}

type ErrorMiddleware struct{}

func NewErrorMiddleware() *ErrorMiddleware {
	return &ErrorMiddleware{}
}

func (m *ErrorMiddleware) Middleware() fiber.Handler {
	return func(c fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic recovered: %v", r)
				err = response.Error(c, fiber.StatusInternalServerError, response.MessageInternalServerError, nil)
			}
		}()

		err = c.Next()
		if err == nil {
			return nil
		}

		status, msg, data := normalizeError(err)
		return response.Error(c, status, msg, data)
	}
}

// coreStatus maps the core's error taxonomy onto HTTP statuses. The error
// text travels to the client verbatim for non-5xx outcomes so clients can
// pattern-match on it.
func coreStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return fiber.StatusUnauthorized, true
	case errors.Is(err, core.ErrNotFound):
		return fiber.StatusNotFound, true
	case errors.Is(err, core.ErrConflict):
		return fiber.StatusConflict, true
	case errors.Is(err, core.ErrInvalidArgument):
		return fiber.StatusBadRequest, true
	case errors.Is(err, core.ErrPreconditionFailed):
		return fiber.StatusPreconditionFailed, true
	case errors.Is(err, core.ErrInternal):
		return fiber.StatusInternalServerError, true
	}
	return 0, false
}

func normalizeError(err error) (int, string, interface{}) {
	if err == nil {
		return fiber.StatusInternalServerError, response.MessageInternalServerError, nil
	}

	if status, ok := coreStatus(err); ok {
		if status >= 500 {
			log.Printf("internal error: %v", err)
			return fiber.StatusInternalServerError, response.MessageInternalServerError, nil
		}
		return status, err.Error(), nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		status := appErr.StatusCode
		if status <= 0 || status >= 500 {
			return fiber.StatusInternalServerError, response.MessageInternalServerError, nil
		}
		msg := appErr.Message
		if msg == "" {
			msg = response.MessageForStatus(status)
		}
		return status, msg, appErr.Data
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		status := fiberErr.Code
		if status <= 0 || status >= 500 {
			return fiber.StatusInternalServerError, response.MessageInternalServerError, nil
		}
		msg := fiberErr.Message
		if msg == "" {
			msg = response.MessageForStatus(status)
		}
		return status, msg, nil
	}

	return fiber.StatusInternalServerError, response.MessageInternalServerError, nil
}
