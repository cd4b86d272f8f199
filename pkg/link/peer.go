package link

import (
	"errors"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// ErrNoPeer indicates a write while no peer is connected.
var ErrNoPeer = errors.New("no peer connected")

// PeerStream serves one peer connection at a time. When the peer goes
// away the next incoming connection takes its place, so the console
// sees a single uninterrupted stream.
type PeerStream struct {
	addr    net.Addr
	conns   chan io.ReadWriteCloser
	done    chan struct{}
	closeFn func() error

	lock sync.Mutex
	curr io.ReadWriteCloser
	once sync.Once
}

func newPeerStream(addr net.Addr, closeFn func() error) *PeerStream {
	return &PeerStream{
		addr:    addr,
		conns:   make(chan io.ReadWriteCloser),
		done:    make(chan struct{}),
		closeFn: closeFn,
	}
}

// Addr returns the listening address.
func (s *PeerStream) Addr() net.Addr {
	return s.addr
}

// offer hands a connection to the stream, false if the stream is closed.
func (s *PeerStream) offer(conn io.ReadWriteCloser) bool {
	select {
	case s.conns <- conn:
		return true
	case <-s.done:
		return false
	}
}

func (s *PeerStream) current() (io.ReadWriteCloser, error) {
	s.lock.Lock()
	conn := s.curr
	s.lock.Unlock()
	if conn != nil {
		return conn, nil
	}
	select {
	case conn = <-s.conns:
	case <-s.done:
		return nil, io.EOF
	}
	s.lock.Lock()
	s.curr = conn
	s.lock.Unlock()
	glog.Infof("peer connected")
	return conn, nil
}

func (s *PeerStream) drop(conn io.ReadWriteCloser) {
	s.lock.Lock()
	if s.curr == conn {
		s.curr = nil
	}
	s.lock.Unlock()
	conn.Close()
}

// Read implements io.Reader.
func (s *PeerStream) Read(p []byte) (int, error) {
	for {
		conn, err := s.current()
		if err != nil {
			return 0, err
		}
		n, err := conn.Read(p)
		if n > 0 || err == nil {
			return n, nil
		}
		s.drop(conn)
		select {
		case <-s.done:
			return 0, io.EOF
		default:
		}
		glog.Infof("peer disconnected: %v", err)
	}
}

// Write implements io.Writer.
func (s *PeerStream) Write(p []byte) (int, error) {
	s.lock.Lock()
	conn := s.curr
	s.lock.Unlock()
	if conn == nil {
		return 0, ErrNoPeer
	}
	n, err := conn.Write(p)
	if err != nil {
		glog.Warningf("write to peer failed: %v", err)
		s.drop(conn)
	}
	return n, err
}

// Close implements io.Closer.
func (s *PeerStream) Close() (err error) {
	s.once.Do(func() {
		close(s.done)
		err = s.closeFn()
		s.lock.Lock()
		conn := s.curr
		s.curr = nil
		s.lock.Unlock()
		if conn != nil {
			conn.Close()
		}
	})
	return
}

// ListenTCP accepts peers on a TCP address.
func ListenTCP(addr string) (*PeerStream, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := newPeerStream(ln.Addr(), ln.Close)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				glog.V(1).Infof("accept stopped: %v", err)
				return
			}
			if !s.offer(conn) {
				conn.Close()
				return
			}
		}
	}()
	glog.Infof("listening on tcp://%s", ln.Addr())
	return s, nil
}

type wsConn struct {
	*websocket.Conn
	closed chan struct{}
	once   sync.Once
}

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return c.Conn.Close()
}

// ListenWebsocket accepts websocket peers on addr at path. Each binary or
// text frame is fed as raw bytes.
func ListenWebsocket(addr, path string) (*PeerStream, error) {
	if path == "" {
		path = "/"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	server := &http.Server{}
	s := newPeerStream(ln.Addr(), server.Close)
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(func(conn *websocket.Conn) {
		conn.PayloadType = websocket.BinaryFrame
		c := &wsConn{Conn: conn, closed: make(chan struct{})}
		if !s.offer(c) {
			return
		}
		// the connection is closed when the handler returns.
		select {
		case <-c.closed:
		case <-s.done:
		}
	}))
	server.Handler = mux
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			glog.Errorf("websocket server: %v", err)
		}
	}()
	glog.Infof("listening on ws://%s%s", ln.Addr(), path)
	return s, nil
}
