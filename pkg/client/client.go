// Package client drives a rig console from the host side.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"
)

var (
	// ErrNoReply indicates the console didn't reply in time.
	ErrNoReply = errors.New("no reply from console")
	// ErrBlankArgument indicates a name or value containing blanks, which
	// the console would split into separate tokens.
	ErrBlankArgument = errors.New("blanks are not allowed in arguments")
	// ErrClosed indicates the link is gone.
	ErrClosed = errors.New("link closed")
)

// Command prefixes.
const (
	SetPrefix = "SET_"
	GetPrefix = "GET_"
)

// Emulator control registers of the extended profile.
const (
	RegReset    = "emu_rst"
	RegCtrlMode = "emu_ctrl_mode"
)

// Control modes of the emulator, see SetCtrlMode.
const (
	// CtrlRun doesn't stall the emulation.
	CtrlRun uint32 = iota
	// CtrlStall stalls immediately.
	CtrlStall
	// CtrlStallAfter stalls after emu_ctrl_data time has passed.
	CtrlStallAfter
	// CtrlStallAt stalls once emu_ctrl_data time is reached.
	CtrlStallAt
)

// DefaultTimeout bounds the wait for a reply.
const DefaultTimeout = time.Second

// ReplyError is a diagnostic line from the console.
type ReplyError struct {
	Line string
}

// Error implements error.
func (e *ReplyError) Error() string {
	return "console: " + e.Line
}

// Client talks the line protocol over a link.
type Client struct {
	// Ack expects "0" after each SET, as the extended profile replies.
	Ack bool
	// Timeout bounds the wait for a reply.
	Timeout time.Duration

	rw     io.ReadWriter
	lines  chan string
	err    error
	doneCh chan struct{}
	lock   sync.Mutex
}

// New creates a Client over rw and starts reading replies.
func New(rw io.ReadWriter) *Client {
	c := &Client{
		Timeout: DefaultTimeout,
		rw:      rw,
		lines:   make(chan string, 16),
		doneCh:  make(chan struct{}),
	}
	go c.readLines()
	return c
}

func (c *Client) readLines() {
	defer close(c.doneCh)
	r := bufio.NewReader(c.rw)
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			glog.V(3).Infof("RECV %q", line)
			c.lines <- line
		}
		if err != nil {
			c.err = err
			close(c.lines)
			return
		}
	}
}

// Close closes the link if it's closable.
func (c *Client) Close() error {
	if closer, ok := c.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func checkArgs(args ...string) error {
	for _, arg := range args {
		if arg == "" || strings.ContainsAny(arg, " \t\r\n") {
			return fmt.Errorf("%w: %q", ErrBlankArgument, arg)
		}
	}
	return nil
}

// drain discards late replies of earlier requests.
func (c *Client) drain() {
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return
			}
			glog.Warningf("discard stale reply %q", line)
		default:
			return
		}
	}
}

// Send writes a line without waiting for a reply.
func (c *Client) Send(line string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.send(line)
}

func (c *Client) send(line string) error {
	c.drain()
	glog.V(3).Infof("SEND %q", line)
	_, err := io.WriteString(c.rw, line+"\n")
	return err
}

func (c *Client) reply() (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case line, ok := <-c.lines:
		if !ok {
			if c.err != nil && c.err != io.EOF {
				return "", c.err
			}
			return "", ErrClosed
		}
		if strings.HasPrefix(line, "ERROR") {
			return "", &ReplyError{Line: line}
		}
		return line, nil
	case <-timer.C:
		return "", ErrNoReply
	}
}

// Raw sends a line and returns the reply line.
func (c *Client) Raw(line string) (string, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.send(line); err != nil {
		return "", err
	}
	return c.reply()
}

// Hello checks the console is alive.
func (c *Client) Hello() (string, error) {
	return c.Raw("HELLO")
}

// Set writes value to the register name.
func (c *Client) Set(name string, value uint32) error {
	if err := checkArgs(name); err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.send(SetPrefix + name + " " + strconv.FormatUint(uint64(value), 10)); err != nil {
		return err
	}
	if !c.Ack {
		return nil
	}
	line, err := c.reply()
	if err != nil {
		return err
	}
	if line != "0" {
		return fmt.Errorf("set %s=%d not acknowledged: %q", name, value, line)
	}
	return nil
}

// Get reads the register name.
func (c *Client) Get(name string) (uint32, error) {
	if err := checkArgs(name); err != nil {
		return 0, err
	}
	line, err := c.Raw(GetPrefix + name)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(line, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid reply %q: %w", line, err)
	}
	return uint32(value), nil
}

// SetReset drives the emulator reset: 1 holds it in reset, 0 releases.
func (c *Client) SetReset(value uint32) error {
	return c.Set(RegReset, value)
}

// SetCtrlMode selects how the emulation is stalled.
func (c *Client) SetCtrlMode(mode uint32) error {
	return c.Set(RegCtrlMode, mode)
}

// Exit stops the console.
func (c *Client) Exit() error {
	return c.Send("EXIT")
}

// Done is closed when the link stops delivering replies.
func (c *Client) Done() <-chan struct{} {
	return c.doneCh
}
