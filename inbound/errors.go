package inbound

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
)

func inboundError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	return core.NewError(nil, category, message, code, textCode, metadata)
}

func inboundWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) error {
	return core.NewError(source, category, message, code, textCode, metadata)
}

func inboundBadInput(source error, message string, metadata map[string]any) error {
	return inboundWrapError(
		source,
		goerrors.CategoryBadInput,
		message,
		http.StatusBadRequest,
		core.ErrorBadInput,
		metadata,
	)
}

func inboundUnauthorized(source error, metadata map[string]any) error {
	return inboundWrapError(
		source,
		goerrors.CategoryAuth,
		"inbound: request verification failed",
		http.StatusUnauthorized,
		core.ErrorUnauthorized,
		metadata,
	)
}

func inboundInternal(source error, message string, metadata map[string]any) error {
	return inboundWrapError(
		source,
		goerrors.CategoryInternal,
		message,
		http.StatusInternalServerError,
		core.ErrorInternal,
		metadata,
	)
}
