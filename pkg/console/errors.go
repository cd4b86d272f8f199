package console

import (
	"errors"
	"fmt"

	"github.com/robotalks/rigctl/pkg/regbus"
)

var (
	// ErrUnknownCommand indicates the token matches no command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrBufferOverflow indicates a token exceeds the line buffer.
	ErrBufferOverflow = errors.New("buffer overflow")
)

// ArgumentError indicates the argument of a command is not a decimal
// unsigned integer fitting the register.
type ArgumentError struct {
	Keyword string
	Token   string
	Err     error
}

// Error implements error.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("malformed argument %q for %s: %v", e.Token, e.Keyword, e.Err)
}

// Unwrap returns the parse error.
func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// IsFatal tells whether err must stop the console.
func IsFatal(err error) bool {
	var accessErr *regbus.AccessError
	return errors.As(err, &accessErr)
}
