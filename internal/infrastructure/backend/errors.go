package backend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/meta-search/internal/core/domain"
	"github.com/kirillkom/meta-search/internal/infrastructure/resilience"
)

// HTTPStatusError carries a non-2xx provider response for
// classification.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "backend status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("%s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// Classify maps a transport failure onto the domain's backend error
// kinds. Auth failures indicate misconfiguration and abort the whole
// session; every other kind marks the tier unavailable and lets the
// retrieval loop escalate.
func Classify(operation string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return domain.WrapError(domain.ErrCancelled, operation, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrTimeout, operation, err)
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusForbidden:
			return domain.WrapError(domain.ErrAuthFailure, operation, err)
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return domain.WrapError(domain.ErrRateLimited, operation, err)
		case statusErr.StatusCode == http.StatusRequestTimeout || statusErr.StatusCode == http.StatusGatewayTimeout:
			return domain.WrapError(domain.ErrTimeout, operation, err)
		case statusErr.StatusCode >= 500:
			return domain.WrapError(domain.ErrUnreachable, operation, err)
		default:
			return domain.WrapError(domain.ErrMalformed, operation, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.WrapError(domain.ErrTimeout, operation, err)
		}
		return domain.WrapError(domain.ErrUnreachable, operation, err)
	}

	return domain.WrapError(domain.ErrUnreachable, operation, err)
}

// ClassifyForRetry feeds the resilience executor: transient kinds are
// retried within a tier attempt, misconfiguration and bad payloads are
// not.
func ClassifyForRetry(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
	if domain.IsKind(err, domain.ErrAuthFailure) || domain.IsKind(err, domain.ErrMalformed) || domain.IsKind(err, domain.ErrCancelled) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: domain.IsKind(err, domain.ErrAuthFailure)}
	}
	if domain.IsRecoverableBackendError(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
