package domain

import "errors"

// ErrorKind classifies ledger errors so transports can map them to responses.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindConflict
	KindNotFound
	KindPrecondition
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindPrecondition:
		return "precondition"
	default:
		return "internal"
	}
}

// Error is a classified ledger error. Sentinels below are compared with
// errors.Is; extra detail is attached by wrapping them with %w.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	// Validation
	ErrInvalidAddress  = newError(KindValidation, "invalid_address", "invalid wallet address")
	ErrInvalidReferrer = newError(KindValidation, "invalid_referrer", "invalid referrer")
	ErrInvalidAmount   = newError(KindValidation, "invalid_amount", "invalid amount")
	ErrInvalidTxHash   = newError(KindValidation, "invalid_tx_hash", "invalid transaction hash")
	ErrBelowMinimum    = newError(KindValidation, "below_minimum", "amount below plan minimum")
	ErrAboveMaximum    = newError(KindValidation, "above_maximum", "amount above plan maximum")
	ErrInvalidCurrency = newError(KindValidation, "invalid_currency", "unsupported currency")
	ErrInvalidStage    = newError(KindValidation, "invalid_stage", "invalid ICO stage")
	ErrInvalidPlan     = newError(KindValidation, "invalid_plan", "invalid staking plan")
	ErrReferrerNeeded  = newError(KindValidation, "referrer_required", "registration requires a referrer")

	// Conflict
	ErrAlreadyRegistered = newError(KindConflict, "already_registered", "wallet already has a referrer")
	ErrAlreadyFinalized  = newError(KindConflict, "already_finalized", "stake already finalized")
	ErrDuplicateTx       = newError(KindConflict, "duplicate_tx", "transaction already recorded")

	// Not found
	ErrWalletNotFound = newError(KindNotFound, "wallet_not_found", "wallet not found")
	ErrStakeNotFound  = newError(KindNotFound, "stake_not_found", "stake not found")
	ErrPlanNotFound   = newError(KindNotFound, "plan_not_found", "staking plan not found")
	ErrStageNotFound  = newError(KindNotFound, "stage_not_found", "ICO stage not found")

	// Precondition
	ErrNotMatured          = newError(KindPrecondition, "not_matured", "stake has not matured")
	ErrPlanInactive        = newError(KindPrecondition, "plan_inactive", "staking plan is not active")
	ErrInsufficientBalance = newError(KindPrecondition, "insufficient_balance", "insufficient token balance")
	ErrTxNotConfirmed      = newError(KindPrecondition, "tx_not_confirmed", "transaction not confirmed on chain")
)

// KindOf returns the kind of the first classified error in err's chain,
// or 0 when err is not a ledger error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// CodeOf returns the machine readable code of err, or "internal".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}
