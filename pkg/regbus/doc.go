// Package regbus drives the register bus of the device under test.
package regbus

// The bus is modeled as two channel groups exposed by the hardware,
// each with an address (control) channel and a data (value) channel.
//
// Writes go through GroupSet: address and data are driven, then the
// address is re-driven with ValidBit set to strobe the transaction and
// finally re-driven without it. There is no acknowledgement signal,
// the settle delay between steps is what makes the device latch a
// stable pair.
//
// Reads go through GroupGet: the address is driven and the data
// channel is sampled after the settle delay.
