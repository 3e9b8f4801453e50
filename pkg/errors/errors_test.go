package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/promising-service/internal/domain"
)

func TestMapDomainError_SentinelCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"unknown sku", domain.ErrUnknownSKU, CodeNotFound, http.StatusNotFound},
		{"concurrent modification", domain.ErrConcurrentModification, CodeConcurrentModification, http.StatusConflict},
		{"insufficient unlocked qty", domain.ErrInsufficientUnlockedQty, CodeInsufficientSupply, http.StatusConflict},
		{"lock not found", domain.ErrLockNotFound, CodeNotFound, http.StatusNotFound},
		{"shipment not found", domain.ErrShipmentNotFound, CodeNotFound, http.StatusNotFound},
		{"rules not found", domain.ErrRulesNotFound, CodeNotFound, http.StatusNotFound},
		{"lock already released", domain.ErrLockAlreadyReleased, CodeConflict, http.StatusConflict},
		{"invalid quantity", domain.ErrInvalidQuantity, CodeValidationError, http.StatusBadRequest},
		{"missing order id", domain.ErrMissingOrderID, CodeValidationError, http.StatusBadRequest},
		{"adapter unavailable", domain.ErrAdapterUnavailable, CodeServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appErr := MapDomainError(tc.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tc.code, appErr.Code)
			assert.Equal(t, tc.status, appErr.HTTPStatus)
		})
	}
}

func TestMapDomainError_WrappedSentinel(t *testing.T) {
	// The adapter surfaces driver failures wrapped around the sentinel
	err := fmt.Errorf("%w: read position: connection reset", domain.ErrAdapterUnavailable)

	appErr := MapDomainError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, CodeServiceUnavailable, appErr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus)
}

func TestMapDomainError_ConflictIsRetryable(t *testing.T) {
	appErr := MapDomainError(domain.ErrConcurrentModification)

	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusConflict, appErr.HTTPStatus)
	assert.Equal(t, "true", appErr.Details["retryable"])
}

func TestMapDomainError_PassesThroughAppError(t *testing.T) {
	original := ErrValidation("qty must be positive")

	appErr := MapDomainError(original)
	assert.Same(t, original, appErr)
}

func TestMapDomainError_UnknownErrorIsInternal(t *testing.T) {
	appErr := MapDomainError(fmt.Errorf("disk on fire"))

	require.NotNil(t, appErr)
	assert.Equal(t, CodeInternalError, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus)
}
