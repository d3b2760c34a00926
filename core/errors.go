package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput          = "INTERACTIONS_BAD_INPUT"
	ErrorUnauthorized      = "INTERACTIONS_UNAUTHORIZED"
	ErrorCommandNotFound   = "INTERACTIONS_COMMAND_NOT_FOUND"
	ErrorComponentNotFound = "INTERACTIONS_COMPONENT_NOT_FOUND"
	ErrorHandlerFailed     = "INTERACTIONS_HANDLER_FAILED"
	ErrorUpstreamFailed    = "INTERACTIONS_UPSTREAM_FAILED"
	ErrorRateLimited       = "INTERACTIONS_RATE_LIMITED"
	ErrorConflict          = "INTERACTIONS_CONFLICT"
	ErrorInternal          = "INTERACTIONS_INTERNAL_ERROR"
)

// NewError builds an envelope that keeps source reachable through
// errors.Is/As while pinning category and codes, which goerrors.Wrap would
// otherwise inherit from a wrapped *goerrors.Error.
func NewError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	err.Source = source
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// NewRoutingError tags an interaction that matched no registered handler.
func NewRoutingError(source error, textCode string, metadata map[string]any) *goerrors.Error {
	message := "interaction has no registered handler"
	if source != nil {
		message = source.Error()
	}
	return NewError(source, goerrors.CategoryNotFound, message, http.StatusNotFound, textCode, metadata)
}

// NewHandlerError tags a failure raised inside a registered handler.
func NewHandlerError(source error, metadata map[string]any) *goerrors.Error {
	return NewError(
		source,
		goerrors.CategoryOperation,
		"core: interaction handler failed",
		http.StatusInternalServerError,
		ErrorHandlerFailed,
		metadata,
	)
}

func IsRoutingError(err error) bool {
	return errors.Is(err, ErrCommandNotFound) || errors.Is(err, ErrComponentNotFound)
}

func IsHandlerError(err error) bool {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return false
	}
	return rich.TextCode == ErrorHandlerFailed
}

// MapError normalizes any error into an envelope with a status and text code.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrCommandNotFound):
		return NewRoutingError(err, ErrorCommandNotFound, nil)
	case errors.Is(err, ErrComponentNotFound):
		return NewRoutingError(err, ErrorComponentNotFound, nil)
	case errors.Is(err, ErrInvalidInteraction), errors.Is(err, ErrInvalidCommandType):
		return newMappedError(err, goerrors.CategoryBadInput, ErrorBadInput)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return newMappedError(err, goerrors.CategoryRateLimit, ErrorRateLimited)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newMappedError(err, goerrors.CategoryBadInput, ErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func newMappedError(source error, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureErrorEnvelope(NewError(source, category, source.Error(), 0, textCode, nil))
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = HTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorCommandNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorUnauthorized
	case goerrors.CategoryConflict:
		return ErrorConflict
	case goerrors.CategoryRateLimit:
		return ErrorRateLimited
	case goerrors.CategoryExternal:
		return ErrorUpstreamFailed
	case goerrors.CategoryOperation:
		return ErrorHandlerFailed
	default:
		return ErrorInternal
	}
}

func HTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
