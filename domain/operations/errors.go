package operations

import "errors"

// DomainError marks input that the operation cannot accept: an empty
// operand list, a zero divisor, a negative square root and so on.
type DomainError struct {
	msg string
}

func (e *DomainError) Error() string { return e.msg }

func newDomainError(msg string) *DomainError { return &DomainError{msg: msg} }

var (
	ErrEmptyValues       = newDomainError("values must not be empty")
	ErrDivisionByZero    = newDomainError("division by zero")
	ErrNegativeSqrt      = newDomainError("square root of a negative number")
	ErrResultOutOfRange  = newDomainError("result out of range")
	ErrMissingParameters = newDomainError("operation parameters are required")
)

// ErrUnknownOperation is returned by Lookup for names outside the catalog.
var ErrUnknownOperation = errors.New("unknown operation")

// IsDomainError reports whether err was caused by unacceptable input.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
