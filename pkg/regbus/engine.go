package regbus

import (
	"sync"
	"time"
)

// Engine performs register transactions over a HardwareContext.
type Engine struct {
	// SettleDelay is the minimum hold time after driving a channel.
	SettleDelay time.Duration
	// Sleep waits for the settle delay, time.Sleep if nil.
	Sleep func(time.Duration)

	hw        HardwareContext
	observers []Observer
	lock      sync.Mutex
}

// New creates an Engine owning hw.
func New(hw HardwareContext) *Engine {
	return &Engine{
		SettleDelay: DefaultSettleDelay,
		hw:          hw,
	}
}

// Observe registers observers for completed transactions.
func (e *Engine) Observe(observers ...Observer) *Engine {
	e.observers = append(e.observers, observers...)
	return e
}

// Hardware returns the owned hardware context.
func (e *Engine) Hardware() HardwareContext {
	return e.hw
}

// Write performs the strobed write of value to address.
func (e *Engine) Write(address, value uint32) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if err := e.drive(GroupSet, ChannelAddr, address); err != nil {
		return err
	}
	if err := e.drive(GroupSet, ChannelData, value); err != nil {
		return err
	}
	e.settle()
	if err := e.drive(GroupSet, ChannelAddr, address|ValidBit); err != nil {
		return err
	}
	e.settle()
	if err := e.drive(GroupSet, ChannelAddr, address); err != nil {
		return err
	}
	e.settle()
	e.notify(Transaction{Op: OpWrite, Address: address, Value: value})
	return nil
}

// Read drives address on the get group and samples the value.
func (e *Engine) Read(address uint32) (uint32, error) {
	e.lock.Lock()
	defer e.lock.Unlock()
	if err := e.drive(GroupGet, ChannelAddr, address); err != nil {
		return 0, err
	}
	e.settle()
	value, err := e.hw.DiscreteRead(GroupGet, ChannelData)
	if err != nil {
		return 0, &AccessError{Group: GroupGet, Channel: ChannelData, Err: err}
	}
	e.notify(Transaction{Op: OpRead, Address: address, Value: value})
	return value, nil
}

func (e *Engine) drive(group Group, ch Channel, value uint32) error {
	if err := e.hw.DiscreteWrite(group, ch, value); err != nil {
		return &AccessError{Group: group, Channel: ch, Write: true, Err: err}
	}
	return nil
}

func (e *Engine) settle() {
	if sleep := e.Sleep; sleep != nil {
		sleep(e.SettleDelay)
		return
	}
	time.Sleep(e.SettleDelay)
}

func (e *Engine) notify(txn Transaction) {
	if len(e.observers) == 0 {
		return
	}
	txn.At = time.Now()
	for _, o := range e.observers {
		o.TransactionDone(txn)
	}
}
