package httpadapter

import (
	"net/http"

	"github.com/kirillkom/meta-search/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrOutcomeNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrAuthFailure):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrCancelled), domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
