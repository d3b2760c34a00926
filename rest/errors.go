package rest

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-interactions/core"
)

func restError(message string, category goerrors.Category, code int, metadata map[string]any) error {
	return core.NewError(nil, category, message, code, restTextCode(category), metadata)
}

func restWrapError(source error, category goerrors.Category, message string, code int, metadata map[string]any) error {
	return core.NewError(source, category, message, code, restTextCode(category), metadata)
}

func restTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ErrorBadInput
	case goerrors.CategoryAuth:
		return core.ErrorUnauthorized
	case goerrors.CategoryRateLimit:
		return core.ErrorRateLimited
	case goerrors.CategoryNotFound, goerrors.CategoryExternal:
		return core.ErrorUpstreamFailed
	default:
		return core.ErrorInternal
	}
}
