package errortypes

import "fmt"

// Timeout should be used to flag that an operation could not complete because the request's
// timeout budget expired, either before the operation started or while it was in flight.
//
// Timeouts will not be written to the app log, since it's not an actionable item for the Prebid Server hosts.
type Timeout struct {
	Message string
}

func (err *Timeout) Error() string {
	return err.Message
}

func (err *Timeout) Code() int {
	return TimeoutErrorCode
}

func (err *Timeout) Severity() Severity {
	return SeverityFatal
}

// NotFound should be used when a single-key lookup (an account, an ad unit config) references
// an ID that the backing store does not know about.
//
// Missing stored requests and imps are not reported with this type. Those are returned as data
// alongside the fragments which were found.
type NotFound struct {
	ID       string
	DataType string
}

func (err *NotFound) Error() string {
	return fmt.Sprintf(`Stored %s with ID="%s" not found.`, err.DataType, err.ID)
}

func (err *NotFound) Code() int {
	return NotFoundErrorCode
}

func (err *NotFound) Severity() Severity {
	return SeverityFatal
}

// MalformedBackingStore should be used when the settings document or a stored data file
// could not be read or parsed while the backing store was being built.
//
// This only happens at startup. It is never returned while serving a request.
type MalformedBackingStore struct {
	Message string
}

func (err *MalformedBackingStore) Error() string {
	return err.Message
}

func (err *MalformedBackingStore) Code() int {
	return MalformedBackingStoreErrorCode
}

func (err *MalformedBackingStore) Severity() Severity {
	return SeverityFatal
}

// BadServerResponse should be used when returning errors which are caused by bad/unexpected behavior on a remote
// settings server.
//
// For example:
//
//   - The external server responded with a 500
//   - The external server gave a malformed or unexpected response.
//
// These should not be used to log _connection_ errors (e.g. "couldn't find host"),
// which may indicate config issues for the PBS host company
type BadServerResponse struct {
	Message string
}

func (err *BadServerResponse) Error() string {
	return err.Message
}

func (err *BadServerResponse) Code() int {
	return BadServerResponseErrorCode
}

func (err *BadServerResponse) Severity() Severity {
	return SeverityFatal
}

// Warning is a generic non-fatal error.
type Warning struct {
	Message     string
	WarningCode int
}

func (err *Warning) Error() string {
	return err.Message
}

func (err *Warning) Code() int {
	return err.WarningCode
}

func (err *Warning) Severity() Severity {
	return SeverityWarning
}
