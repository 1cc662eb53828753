package escrow

import "errors"

var (
	// Validation errors: rejected before any state mutation.
	ErrInvalidPrice         = errors.New("escrow: price must be positive")
	ErrInvalidContentID     = errors.New("escrow: invalid content id")
	ErrInvalidAsset         = errors.New("escrow: unsupported payment asset")
	ErrInvalidPaymentAmount = errors.New("escrow: payment amount does not match price")

	// Authorization errors: fatal, no partial effect.
	ErrInvalidBuyer   = errors.New("escrow: invalid buyer")
	ErrInvalidCreator = errors.New("escrow: invalid creator")

	// State errors: wrong lifecycle status for the requested operation.
	ErrInvalidEscrowStatus    = errors.New("escrow: purchase not in expected status")
	ErrEscrowAlreadyCompleted = errors.New("escrow: purchase already completed")
	ErrEscrowAlreadyCancelled = errors.New("escrow: purchase already cancelled")
	ErrPurchaseExists         = errors.New("escrow: purchase already exists")
	ErrPurchaseNotFound       = errors.New("escrow: purchase not found")

	// Arithmetic and custody errors.
	ErrNumericalOverflow = errors.New("escrow: numerical overflow")
	ErrInsufficientFunds = errors.New("escrow: insufficient funds")
)
