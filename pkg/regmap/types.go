// Package regmap defines the registers of a rig and the command table
// derived from them.
package regmap

import (
	"fmt"
	"strings"
)

// Access is the direction of a register from the console's view.
type Access int

// Register access.
const (
	Write Access = iota
	Read
)

// String implements fmt.Stringer.
func (a Access) String() string {
	if a == Read {
		return "read"
	}
	return "write"
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Access) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "write", "w", "set":
		*a = Write
	case "read", "r", "get":
		*a = Read
	default:
		return fmt.Errorf("invalid access %q", string(text))
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Access) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Register is a named addressable target on the device.
type Register struct {
	Name    string `toml:"name"`
	Address uint32 `toml:"address"`
	Width   uint   `toml:"width"`
	Access  Access `toml:"access"`
	// Ack overrides the map's response policy for this register.
	Ack *bool `toml:"ack,omitempty"`
}

// DefaultWidth is used when a register doesn't declare a width.
const DefaultWidth uint = 32

// BitWidth returns the effective width.
func (r *Register) BitWidth() uint {
	if r.Width == 0 {
		return DefaultWidth
	}
	return r.Width
}

// Max returns the largest value the register holds.
func (r *Register) Max() uint32 {
	return uint32(1<<r.BitWidth() - 1)
}

// Keyword returns the console keyword addressing the register.
func (r *Register) Keyword() string {
	if r.Access == Read {
		return "GET_" + r.Name
	}
	return "SET_" + r.Name
}

// Kind identifies what a command does.
type Kind int

// Command kinds.
const (
	KindHello Kind = iota
	KindExit
	KindRead
	KindSet
)

// Policy is the response policy of a set command.
type Policy int

const (
	// Silent answers nothing.
	Silent Policy = iota
	// Ack answers the fixed acknowledgement.
	Ack
)

// Command is an immutable command descriptor.
type Command struct {
	Keyword  string
	Arity    int
	Kind     Kind
	Register *Register
	Policy   Policy
}

// Fixed keywords.
const (
	KeywordHello = "HELLO"
	KeywordExit  = "EXIT"
)
