// Package sim provides a simulated device under test.
package sim

import (
	"fmt"
	"sync"

	"github.com/robotalks/rigctl/pkg/regbus"
)

// Reference device addresses.
const (
	AddrC    uint32 = 1
	AddrA    uint32 = 4
	AddrB    uint32 = 5
	AddrMode uint32 = 6
)

// OutputFunc computes an output value from the latched input registers.
type OutputFunc func(regs map[uint32]uint32) uint32

// Access is a recorded discrete access.
type Access struct {
	Write   bool
	Group   regbus.Group
	Channel regbus.Channel
	Value   uint32
}

// String implements fmt.Stringer.
func (a Access) String() string {
	if a.Write {
		return fmt.Sprintf("W %s/%s %#x", a.Group, a.Channel, a.Value)
	}
	return fmt.Sprintf("R %s/%s %#x", a.Group, a.Channel, a.Value)
}

// Device implements regbus.HardwareContext with a register file that
// latches data on the rising edge of the valid strobe.
type Device struct {
	Outputs map[uint32]OutputFunc
	// Record enables access recording.
	Record bool

	regs    map[uint32]uint32
	latches []uint32
	chans   [2][2]uint32
	log     []Access
	lock    sync.Mutex
}

// New creates an empty device.
func New() *Device {
	return &Device{
		Outputs: make(map[uint32]OutputFunc),
		regs:    make(map[uint32]uint32),
	}
}

// NewReference creates the reference arithmetic device:
// C = f(A, B, MODE).
func NewReference() *Device {
	d := New()
	d.Outputs[AddrC] = func(regs map[uint32]uint32) uint32 {
		return Compute(regs[AddrA], regs[AddrB], regs[AddrMode])
	}
	return d
}

// Compute is the reference function of the device.
func Compute(a, b, mode uint32) uint32 {
	switch mode {
	case 0:
		return a + b
	case 1:
		return a - b
	case 2:
		return b - a
	case 3:
		return a * b
	case 4:
		return a >> b
	case 5:
		return a << b
	case 6:
		return b >> a
	case 7:
		return b << a
	default:
		return 42
	}
}

// DiscreteWrite implements regbus.HardwareContext.
func (d *Device) DiscreteWrite(group regbus.Group, ch regbus.Channel, value uint32) error {
	if err := checkChannel(group, ch); err != nil {
		return err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	d.record(Access{Write: true, Group: group, Channel: ch, Value: value})
	prev := d.chans[group][ch]
	d.chans[group][ch] = value
	if group == regbus.GroupSet && ch == regbus.ChannelAddr &&
		prev&regbus.ValidBit == 0 && value&regbus.ValidBit != 0 {
		addr := value &^ regbus.ValidBit
		d.regs[addr] = d.chans[regbus.GroupSet][regbus.ChannelData]
		d.latches = append(d.latches, addr)
	}
	return nil
}

// DiscreteRead implements regbus.HardwareContext.
func (d *Device) DiscreteRead(group regbus.Group, ch regbus.Channel) (uint32, error) {
	if err := checkChannel(group, ch); err != nil {
		return 0, err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	value := d.chans[group][ch]
	if group == regbus.GroupGet && ch == regbus.ChannelData {
		addr := d.chans[regbus.GroupGet][regbus.ChannelAddr]
		if fn := d.Outputs[addr]; fn != nil {
			value = fn(d.regs)
		} else {
			value = d.regs[addr]
		}
	}
	d.record(Access{Group: group, Channel: ch, Value: value})
	return value, nil
}

// Register returns the latched value of a register.
func (d *Device) Register(addr uint32) uint32 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.regs[addr]
}

// Latches returns the addresses latched so far, in order.
func (d *Device) Latches() []uint32 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]uint32(nil), d.latches...)
}

// Log returns recorded accesses.
func (d *Device) Log() []Access {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]Access(nil), d.log...)
}

func (d *Device) record(a Access) {
	if d.Record {
		d.log = append(d.log, a)
	}
}

func checkChannel(group regbus.Group, ch regbus.Channel) error {
	if group != regbus.GroupSet && group != regbus.GroupGet {
		return fmt.Errorf("no such group %s", group)
	}
	if ch != regbus.ChannelAddr && ch != regbus.ChannelData {
		return fmt.Errorf("no such channel %s", ch)
	}
	return nil
}
