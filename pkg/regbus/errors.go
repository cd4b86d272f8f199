package regbus

import "fmt"

// AccessError reports a failed discrete access on the hardware.
// It is not recoverable: nothing driven afterwards can be trusted.
type AccessError struct {
	Group   Group
	Channel Channel
	Write   bool
	Err     error
}

// Error implements error.
func (e *AccessError) Error() string {
	dir := "read"
	if e.Write {
		dir = "write"
	}
	return fmt.Sprintf("channel access failure: %s %s/%s: %v", dir, e.Group, e.Channel, e.Err)
}

// Unwrap returns the underlying error.
func (e *AccessError) Unwrap() error {
	return e.Err
}
