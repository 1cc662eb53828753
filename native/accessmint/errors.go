package accessmint

import "errors"

var (
	ErrInvalidCreator       = errors.New("accessmint: invalid creator")
	ErrInvalidContentID     = errors.New("accessmint: invalid content id")
	ErrInvalidBuyer         = errors.New("accessmint: invalid buyer")
	ErrInvalidIssuer        = errors.New("accessmint: issuer does not match series")
	ErrInvalidMintAuthority = errors.New("accessmint: mint authority mismatch")
	ErrSeriesExists         = errors.New("accessmint: series already exists")
	ErrSeriesNotFound       = errors.New("accessmint: series not found")
	ErrNumericalOverflow    = errors.New("accessmint: numerical overflow")
)
