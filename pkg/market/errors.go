package market

import "errors"

// Every failure below is terminal for the enclosing trade call: the call
// aborts with no state change and the specific kind reaches the caller
// verbatim. Match with errors.Is.
var (
	// ErrOrderExpired means now is past the order's own expiration.
	ErrOrderExpired = errors.New("order expired")

	// ErrOperatorAuthorizationExpired means now is past the operator deadline.
	ErrOperatorAuthorizationExpired = errors.New("operator authorization expired")

	// ErrInvalidMakerSignature means the maker signature does not recover
	// to the order's maker.
	ErrInvalidMakerSignature = errors.New("invalid maker signature")

	// ErrInvalidOperatorSignature means the operator signature is malformed
	// or does not recover to any address.
	ErrInvalidOperatorSignature = errors.New("invalid operator signature")

	// ErrInvalidTakerSignature means the taking side's counter-signature is
	// missing, malformed, or does not recover to the resolved taker.
	ErrInvalidTakerSignature = errors.New("invalid taker signature")

	// ErrUnauthorizedOperator means the recovered co-signer lacks the
	// operator role.
	ErrUnauthorizedOperator = errors.New("unauthorized operator")

	// ErrInsufficientAllowanceOrBalance means the payer has not approved
	// enough spend, or lacks funds, on the external payment token.
	ErrInsufficientAllowanceOrBalance = errors.New("insufficient allowance or balance")

	// ErrInsufficientEscrowBalance means the payer's internal escrow
	// balance is below the order cost.
	ErrInsufficientEscrowBalance = errors.New("insufficient escrow balance")

	// ErrValueMismatch means the native value attached to a bridge trade
	// does not exactly equal the order cost.
	ErrValueMismatch = errors.New("attached value does not match order cost")

	// ErrNotAssetOwnerOrUnapproved means the selling side does not own the
	// item or has not approved the marketplace to move it.
	ErrNotAssetOwnerOrUnapproved = errors.New("not asset owner or unapproved")

	// ErrSchemeVersionMismatch means the order's field layout is
	// incompatible with the codec's active scheme version.
	ErrSchemeVersionMismatch = errors.New("scheme version mismatch")

	// ErrInvalidOrder means the order fails structural validation (nil or
	// negative amounts, values past uint256) independent of any scheme.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrOrderAlreadySettled means the maker hash was already consumed.
	// Only returned when replay protection is enabled.
	ErrOrderAlreadySettled = errors.New("order already settled")

	// ErrSelfTrade means the resolved counterparty is the maker itself.
	ErrSelfTrade = errors.New("maker cannot take own order")
)
