package httpadapter

import (
	"net/http"

	"github.com/kirillkom/epi-console/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrNoEpiEvents):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrSubmissionInFlight):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrUpstream):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
