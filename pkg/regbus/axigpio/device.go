// Package axigpio accesses two Xilinx AXI GPIO blocks mapped from
// physical memory, one per regbus channel group.
package axigpio

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/robotalks/rigctl/pkg/regbus"
)

// AXI GPIO register offsets.
const (
	regData  = 0x0
	regTri   = 0x4
	regData2 = 0x8
	regTri2  = 0xc

	// BlockSize is the mapped size of one GPIO block.
	BlockSize = 0x1000
)

// Config locates the GPIO blocks.
type Config struct {
	// MemPath is the physical memory device, usually /dev/mem.
	MemPath string
	// SetBase is the physical base address of the GPIO block for writes.
	SetBase uint64
	// GetBase is the physical base address of the GPIO block for reads.
	GetBase uint64
}

// DefaultConfig uses the default addresses of the first two AXI GPIO
// instances on a Zynq PL.
var DefaultConfig = Config{
	MemPath: "/dev/mem",
	SetBase: 0x41210000,
	GetBase: 0x41200000,
}

var errBlockSize = errors.New("mapped block too small")

// Device implements regbus.HardwareContext.
type Device struct {
	blocks [2][]byte
	closer func() error
}

// New wraps already mapped blocks. The direction registers are set up:
// every channel is an output except the get group's data channel.
func New(set, get []byte) (*Device, error) {
	if len(set) < BlockSize || len(get) < BlockSize {
		return nil, errBlockSize
	}
	d := &Device{}
	d.blocks[regbus.GroupSet] = set
	d.blocks[regbus.GroupGet] = get
	d.store(regbus.GroupSet, regTri, 0)
	d.store(regbus.GroupSet, regTri2, 0)
	d.store(regbus.GroupGet, regTri, 0)
	d.store(regbus.GroupGet, regTri2, 0xffffffff)
	return d, nil
}

// Close unmaps the blocks.
func (d *Device) Close() error {
	if d.closer != nil {
		return d.closer()
	}
	return nil
}

// DiscreteWrite implements regbus.HardwareContext.
func (d *Device) DiscreteWrite(group regbus.Group, ch regbus.Channel, value uint32) error {
	off, err := dataOffset(group, ch)
	if err != nil {
		return err
	}
	d.store(group, off, value)
	return nil
}

// DiscreteRead implements regbus.HardwareContext.
func (d *Device) DiscreteRead(group regbus.Group, ch regbus.Channel) (uint32, error) {
	off, err := dataOffset(group, ch)
	if err != nil {
		return 0, err
	}
	return atomic.LoadUint32(d.reg(group, off)), nil
}

func (d *Device) store(group regbus.Group, off int, value uint32) {
	atomic.StoreUint32(d.reg(group, off), value)
}

func (d *Device) reg(group regbus.Group, off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&d.blocks[group][off]))
}

func dataOffset(group regbus.Group, ch regbus.Channel) (int, error) {
	if group != regbus.GroupSet && group != regbus.GroupGet {
		return 0, fmt.Errorf("no such group %s", group)
	}
	switch ch {
	case regbus.ChannelAddr:
		return regData, nil
	case regbus.ChannelData:
		return regData2, nil
	}
	return 0, fmt.Errorf("no such channel %s", ch)
}
