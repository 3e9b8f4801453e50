package domain

import "errors"

var (
	// Input errors - rejected before any side effect.
	ErrUnknownSKU      = errors.New("sku is not known to the inventory system")
	ErrInvalidQuantity = errors.New("requested quantity must be positive")
	ErrMissingOrderID  = errors.New("order id is required")

	// Consistency errors - retryable by the caller; the engine never retries.
	ErrConcurrentModification  = errors.New("position changed since evaluation, retry the allocation")
	ErrInsufficientUnlockedQty = errors.New("shipment has insufficient unlocked quantity")

	// Collaborator errors - surfaced verbatim, never mapped to a business rejection.
	ErrAdapterUnavailable = errors.New("inventory adapter unavailable")

	ErrLockNotFound        = errors.New("lock not found")
	ErrLockAlreadyReleased = errors.New("lock has already been released")
	ErrRulesNotFound       = errors.New("no business rules resolved for sku")
	ErrShipmentNotFound    = errors.New("shipment not found")
)
