// Package telemetry reports completed register transactions.
package telemetry

import (
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/rigctl/pkg/regbus"
	"github.com/robotalks/rigctl/pkg/regmap"
)

// Event is the published form of a transaction.
type Event struct {
	Op       string
	Address  uint32
	Value    uint32
	Register string
	At       time.Time
}

// NewEvent creates an Event from a transaction.
func NewEvent(txn regbus.Transaction, names Names) Event {
	return Event{
		Op:       txn.Op.String(),
		Address:  txn.Address,
		Value:    txn.Value,
		Register: names.Name(txn.Op, txn.Address),
		At:       txn.At,
	}
}

// String implements fmt.Stringer.
func (e Event) String() string {
	name := e.Register
	if name == "" {
		name = fmt.Sprintf("@%d", e.Address)
	}
	return fmt.Sprintf("%s %s=%d", e.Op, name, e.Value)
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func numberValue(n uint32) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: float64(n)}}
}

// Struct converts the Event to a google.protobuf.Struct.
func (e Event) Struct() *structpb.Struct {
	fields := map[string]*structpb.Value{
		"op":      stringValue(e.Op),
		"address": numberValue(e.Address),
		"value":   numberValue(e.Value),
		"at":      stringValue(e.At.UTC().Format(time.RFC3339Nano)),
	}
	if e.Register != "" {
		fields["register"] = stringValue(e.Register)
	}
	return &structpb.Struct{Fields: fields}
}

// Encode serializes the Event.
func (e Event) Encode() ([]byte, error) {
	return proto.Marshal(e.Struct())
}

// DecodeEvent parses an encoded Event.
func DecodeEvent(payload []byte) (*Event, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(payload, &s); err != nil {
		return nil, err
	}
	e := &Event{}
	for key, val := range s.Fields {
		switch key {
		case "op":
			e.Op = val.GetStringValue()
		case "register":
			e.Register = val.GetStringValue()
		case "address":
			e.Address = uint32(val.GetNumberValue())
		case "value":
			e.Value = uint32(val.GetNumberValue())
		case "at":
			at, err := time.Parse(time.RFC3339Nano, val.GetStringValue())
			if err != nil {
				return nil, fmt.Errorf("invalid event time: %w", err)
			}
			e.At = at
		}
	}
	if e.Op == "" {
		return nil, fmt.Errorf("event without op")
	}
	return e, nil
}

type nameKey struct {
	op   regbus.Op
	addr uint32
}

// Names resolves register names by operation and address.
type Names map[nameKey]string

// NamesOf indexes the registers of a map.
func NamesOf(m *regmap.Map) Names {
	names := make(Names)
	for _, reg := range m.Registers {
		op := regbus.OpWrite
		if reg.Access == regmap.Read {
			op = regbus.OpRead
		}
		names[nameKey{op: op, addr: reg.Address}] = reg.Name
	}
	return names
}

// Name returns the register name, empty if unknown.
func (n Names) Name(op regbus.Op, addr uint32) string {
	return n[nameKey{op: op, addr: addr}]
}
