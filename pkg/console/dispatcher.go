package console

import (
	"strconv"

	"github.com/golang/glog"

	"github.com/robotalks/rigctl/pkg/regmap"
)

// Responses written to the link.
const (
	ResponseHello     = "Hello World!\r\n"
	ResponseAck       = "0\r\n"
	ResponseUnknown   = "ERROR: Unknown command\r\n"
	ResponseMalformed = "ERROR: Malformed argument\r\n"
	ResponseOverflow  = "ERROR: Buffer overflow\r\n"
	LineEnd           = "\r\n"
)

// Bus performs register transactions, implemented by regbus.Engine.
type Bus interface {
	Write(address, value uint32) error
	Read(address uint32) (uint32, error)
}

// State is the dispatch state. A nil Awaiting means no argument is
// pending.
type State struct {
	Awaiting *regmap.Command
}

// IsNone tells whether a bare command is expected.
func (s State) IsNone() bool {
	return s.Awaiting == nil
}

// Result is the outcome of feeding one byte.
type Result struct {
	// Response is written to the link, empty for no response.
	Response string
	// Exit requests the command loop to stop.
	Exit bool
}

// Dispatcher assembles tokens and runs commands.
type Dispatcher struct {
	table *regmap.Table
	bus   Bus
	line  *LineBuffer
	state State
	// discarding drops the remains of an overflowed token.
	discarding bool
}

// NewDispatcher creates a Dispatcher with a line buffer of capacity bytes.
func NewDispatcher(table *regmap.Table, bus Bus, capacity int) *Dispatcher {
	return &Dispatcher{
		table: table,
		bus:   bus,
		line:  NewLineBuffer(capacity),
	}
}

// State returns the current dispatch state.
func (d *Dispatcher) State() State {
	return d.state
}

// Pending returns the unterminated token.
func (d *Dispatcher) Pending() string {
	return d.line.Token()
}

// IsDelimiter tells whether b terminates a token.
func IsDelimiter(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// Feed consumes one byte. Recoverable errors come with a diagnostic
// Response; fatal errors (see IsFatal) come without.
func (d *Dispatcher) Feed(b byte) (Result, error) {
	if IsDelimiter(b) {
		if d.discarding {
			d.discarding = false
			return Result{}, nil
		}
		if d.line.Len() == 0 {
			return Result{}, nil
		}
		token := d.line.Token()
		d.line.Reset()
		return d.resolve(token)
	}
	if d.discarding {
		return Result{}, nil
	}
	if err := d.line.Append(b); err != nil {
		glog.Warningf("token %q... exceeds %d bytes, discarded", d.line.Token(), d.line.Cap())
		d.line.Reset()
		d.state = State{}
		d.discarding = true
		return Result{Response: ResponseOverflow}, err
	}
	return Result{}, nil
}

func (d *Dispatcher) resolve(token string) (Result, error) {
	if cmd := d.state.Awaiting; cmd != nil {
		d.state = State{}
		return d.complete(cmd, token)
	}
	cmd := d.table.Lookup(token)
	if cmd == nil {
		glog.V(1).Infof("unknown command %q", token)
		return Result{Response: ResponseUnknown}, ErrUnknownCommand
	}
	switch cmd.Kind {
	case regmap.KindHello:
		return Result{Response: ResponseHello}, nil
	case regmap.KindExit:
		glog.Info("exit requested")
		return Result{Exit: true}, nil
	case regmap.KindRead:
		value, err := d.bus.Read(cmd.Register.Address)
		if err != nil {
			return Result{}, err
		}
		return Result{Response: strconv.FormatUint(uint64(value), 10) + LineEnd}, nil
	case regmap.KindSet:
		d.state = State{Awaiting: cmd}
		return Result{}, nil
	}
	panic("unhandled command kind")
}

func (d *Dispatcher) complete(cmd *regmap.Command, token string) (Result, error) {
	value, err := strconv.ParseUint(token, 10, int(cmd.Register.BitWidth()))
	if err != nil {
		glog.V(1).Infof("%s: malformed argument %q", cmd.Keyword, token)
		return Result{Response: ResponseMalformed}, &ArgumentError{Keyword: cmd.Keyword, Token: token, Err: err}
	}
	if err := d.bus.Write(cmd.Register.Address, uint32(value)); err != nil {
		return Result{}, err
	}
	if cmd.Policy == regmap.Ack {
		return Result{Response: ResponseAck}, nil
	}
	return Result{}, nil
}
