package regbus

import (
	"fmt"
	"time"
)

// Group identifies a channel group on the hardware.
type Group int

const (
	// GroupSet carries outbound write transactions.
	GroupSet Group = iota
	// GroupGet carries the inbound read transaction.
	GroupGet
)

// String implements fmt.Stringer.
func (g Group) String() string {
	switch g {
	case GroupSet:
		return "set"
	case GroupGet:
		return "get"
	}
	return fmt.Sprintf("group(%d)", int(g))
}

// Channel identifies a sub-channel inside a Group.
type Channel int

const (
	// ChannelAddr is the control/address sub-channel.
	ChannelAddr Channel = iota
	// ChannelData is the data/value sub-channel.
	ChannelData
)

// String implements fmt.Stringer.
func (c Channel) String() string {
	switch c {
	case ChannelAddr:
		return "addr"
	case ChannelData:
		return "data"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// ValidBit is OR'd into the address to strobe a write transaction.
const ValidBit uint32 = 1 << 30

// DefaultSettleDelay is the hold time between handshake steps.
const DefaultSettleDelay = time.Microsecond

// HardwareContext provides discrete access to the channel groups.
// It is owned by a single Engine.
type HardwareContext interface {
	DiscreteWrite(group Group, ch Channel, value uint32) error
	DiscreteRead(group Group, ch Channel) (uint32, error)
}

// Op is the kind of a completed transaction.
type Op int

// Transaction operations.
const (
	OpWrite Op = iota
	OpRead
)

// String implements fmt.Stringer.
func (o Op) String() string {
	if o == OpRead {
		return "read"
	}
	return "write"
}

// Transaction describes a completed register transaction.
type Transaction struct {
	Op      Op
	Address uint32
	Value   uint32
	At      time.Time
}

// Observer is notified after each completed transaction.
type Observer interface {
	TransactionDone(Transaction)
}

// ObserverFunc is the func form of Observer.
type ObserverFunc func(Transaction)

// TransactionDone implements Observer.
func (f ObserverFunc) TransactionDone(txn Transaction) {
	f(txn)
}
