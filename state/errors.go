package state

import "errors"

var (
	ErrInvalidPhase        = errors.New("invalid phase")
	ErrUnknownSegment      = errors.New("unknown segment")
	ErrInvalidChipValue    = errors.New("invalid chip value")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoActiveWagers      = errors.New("no active wagers")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrBetLimit            = errors.New("bet limit exceeded")
	ErrInvalidMultiplier   = errors.New("invalid multiplier")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidPhase, "INVALID_PHASE"},
	{ErrUnknownSegment, "UNKNOWN_SEGMENT"},
	{ErrInvalidChipValue, "INVALID_CHIP_VALUE"},
	{ErrInsufficientBalance, "INSUFFICIENT_BALANCE"},
	{ErrNoActiveWagers, "NO_ACTIVE_WAGERS"},
	{ErrInvalidAmount, "INVALID_AMOUNT"},
	{ErrBetLimit, "BET_LIMIT_EXCEEDED"},
	{ErrInvalidMultiplier, "INVALID_MULTIPLIER"},
}

// ErrorCode maps an engine error to a stable code for clients. Unknown errors map to "".
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return ""
}

// ErrorFromCode is the inverse of ErrorCode. Unknown codes map to nil.
func ErrorFromCode(code string) error {
	for _, ec := range errorCodes {
		if ec.code == code {
			return ec.err
		}
	}
	return nil
}
