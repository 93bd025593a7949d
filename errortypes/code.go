package errortypes

// Defines numeric codes for well-known errors.
const (
	UnknownErrorCode = 999
	TimeoutErrorCode = iota
	NotFoundErrorCode
	MalformedBackingStoreErrorCode
	BadServerResponseErrorCode
)

// Defines numeric codes for well-known warnings.
const (
	UnknownWarningCode                 = 10999
	InvalidPriceGranularityWarningCode = iota + 10000
)

// Coder provides an error or warning code with severity.
type Coder interface {
	Code() int
	Severity() Severity
}

// ReadCode returns the error or warning code, or UnknownErrorCode if unavailable.
func ReadCode(err error) int {
	if e, ok := err.(Coder); ok {
		return e.Code()
	}
	return UnknownErrorCode
}

// IsTimeout returns true if the error is a Timeout.
func IsTimeout(err error) bool {
	return ReadCode(err) == TimeoutErrorCode
}

// IsNotFound returns true if the error is a NotFound.
func IsNotFound(err error) bool {
	return ReadCode(err) == NotFoundErrorCode
}
