package link

import (
	"os"
	"sync"

	"github.com/golang/glog"
)

type stdio struct {
	in      *os.File
	out     *os.File
	restore func() error
	once    sync.Once
}

func newStdio(in, out *os.File) *stdio {
	return &stdio{in: in, out: out}
}

// OpenStdio uses the standard input/output as the link. When stdin is a
// terminal, input is read from a separate descriptor of the controlling
// terminal switched to raw mode, so Close interrupts a pending Read.
// A plain blocking stdin (e.g. a redirected file) can't be interrupted:
// Close then takes effect after the next byte or end of input.
func OpenStdio() (Stream, error) {
	s := newStdio(os.Stdin, os.Stdout)
	if isTerminal(int(os.Stdin.Fd())) {
		tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
		if err != nil {
			glog.Warningf("open controlling terminal: %v", err)
		} else {
			s.in = tty
		}
	}
	restore, err := makeRaw(int(s.in.Fd()))
	if err != nil {
		if s.in != os.Stdin {
			s.in.Close()
		}
		return nil, err
	}
	s.restore = restore
	return s, nil
}

func (s *stdio) Read(p []byte) (int, error) {
	return s.in.Read(p)
}

func (s *stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *stdio) Close() (err error) {
	s.once.Do(func() {
		if s.restore != nil {
			err = s.restore()
		}
		s.in.Close()
	})
	return
}
