package split

import "errors"

var (
	ErrInvalidCreator           = errors.New("split: invalid creator")
	ErrInvalidContentID         = errors.New("split: invalid content id")
	ErrInvalidPlatformFee       = errors.New("split: platform fee exceeds maximum")
	ErrInvalidShareDistribution = errors.New("split: total shares exceed 100%")
	ErrTooManyCollaborators     = errors.New("split: too many collaborators")
	ErrInvalidCollaborator      = errors.New("split: invalid collaborator")
	ErrInvalidRecipient         = errors.New("split: invalid payout recipient")
	ErrSplitExists              = errors.New("split: config already exists")
	ErrSplitNotFound            = errors.New("split: config not found")
	ErrInsufficientFunds        = errors.New("split: insufficient custody funds")
	ErrNumericalOverflow        = errors.New("split: numerical overflow")
)
