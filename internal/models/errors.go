package models

import "errors"

// Domain errors the service layer maps to 4xx responses.
var (
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrUnknownWallet        = errors.New("unknown wallet")
	ErrSponsorNotFound      = errors.New("sponsor not found")
	ErrAlreadyMember        = errors.New("package already active for user")
	ErrPackageUnavailable   = errors.New("package not available")
	ErrOutOfStock           = errors.New("product out of stock")
	ErrInvalidClaimCode     = errors.New("invalid claim code")
	ErrClaimTransition      = errors.New("claim status cannot move to requested state")
	ErrOrderNotReady        = errors.New("order status does not allow claim verification")
	ErrOrderTransition      = errors.New("order status cannot move to requested state")
	ErrNotPickupOrder       = errors.New("order is not a pickup order")
	ErrWrongPickupCenter    = errors.New("claim belongs to another pickup center")
	ErrClaimInProgress      = errors.New("pickup claim already verified at the counter")
	ErrWithdrawalNotPending = errors.New("withdrawal is not pending")
	ErrBelowMinWithdrawal   = errors.New("amount below minimum withdrawal")
)
