package molecule

import "errors"

// Protocol errors. Validation is all-or-nothing: the first failing check
// aborts the whole verification and the error is surfaced verbatim; whether
// a rejected molecule is retried or fixed up is the transport layer's call.
var (
	ErrAtomsMissing          = errors.New("molecule has no atoms")
	ErrAtomIndex             = errors.New("atom has a bad index")
	ErrMolecularHashMissing  = errors.New("molecular hash is not set")
	ErrMolecularHashMismatch = errors.New("molecular hash does not match atoms")
	ErrSignatureMalformed    = errors.New("ots signature is malformed")
	ErrSignatureMismatch     = errors.New("ots signature does not match sender")
	ErrBatchID               = errors.New("batch id inconsistency")
	ErrMetaMissing           = errors.New("required metadata is missing or invalid")
	ErrPolicyInvalid         = errors.New("policy metadata is invalid")
	ErrWrongTokenType        = errors.New("wrong token for isotope")
	ErrTransferMalformed     = errors.New("transfer atom is malformed")
	ErrTransferMismatched    = errors.New("transfer atoms reference mismatched tokens")
	ErrTransferToSelf        = errors.New("transfer sends value back to its source")
	ErrTransferUnbalanced    = errors.New("transfer values do not sum to zero")
	ErrTransferBalance       = errors.New("insufficient sender balance for transfer")
	ErrTransferRemainder     = errors.New("transfer remainder does not reconcile")
	ErrNegativeAmount        = errors.New("amount cannot be negative")
	ErrBalanceInsufficient   = errors.New("wallet balance is insufficient")
)
