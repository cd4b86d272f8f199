package client

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"

	"github.com/robotalks/rigctl/pkg/console"
	"github.com/robotalks/rigctl/pkg/regbus"
	"github.com/robotalks/rigctl/pkg/regbus/sim"
	"github.com/robotalks/rigctl/pkg/regmap"
)

type clientTestEnv struct {
	t      *testing.T
	client *Client
	dev    *sim.Device
	doneCh chan error
}

func newClientTestEnv(t *testing.T, m *regmap.Map) *clientTestEnv {
	table, err := m.Commands()
	require.NoError(t, err)
	dev := sim.NewReference()
	engine := regbus.New(dev)
	engine.Sleep = func(time.Duration) {}
	near, far := net.Pipe()
	env := &clientTestEnv{
		t:      t,
		client: New(near),
		dev:    dev,
		doneCh: make(chan error, 1),
	}
	env.client.Ack = m.Ack
	env.client.Timeout = 200 * time.Millisecond
	c := console.New(far, console.NewDispatcher(table, engine, 0))
	go func() {
		env.doneCh <- c.Run(context.Background())
	}()
	return env
}

func (e *clientTestEnv) close() {
	e.client.Close()
}

func (e *clientTestEnv) waitConsole() error {
	select {
	case err := <-e.doneCh:
		return err
	case <-time.After(time.Second):
		e.t.Fatal("console didn't stop")
		return nil
	}
}

func TestHello(t *testing.T) {
	env := newClientTestEnv(t, regmap.Basic())
	defer env.close()
	reply, err := env.client.Hello()
	require.NoError(t, err)
	require.Equal(t, "Hello World!", reply)
}

func TestSetGet(t *testing.T) {
	env := newClientTestEnv(t, regmap.Basic())
	defer env.close()
	require.NoError(t, env.client.Set("A", 12))
	require.NoError(t, env.client.Set("B", 34))
	require.NoError(t, env.client.Set("MODE", 0))
	value, err := env.client.Get("C")
	require.NoError(t, err)
	require.Equal(t, uint32(46), value)
	require.Equal(t, uint32(12), env.dev.Register(sim.AddrA))

	require.NoError(t, env.client.Set("MODE", 3))
	value, err = env.client.Get("C")
	require.NoError(t, err)
	require.Equal(t, uint32(12*34), value)
}

func TestSetAcknowledged(t *testing.T) {
	env := newClientTestEnv(t, regmap.Extended())
	defer env.close()
	require.NoError(t, env.client.Set("a_in", 9))
	require.NoError(t, env.client.Set("b_in", 1))
	require.NoError(t, env.client.Set("mode_in", 5))
	value, err := env.client.Get("c_out")
	require.NoError(t, err)
	require.Equal(t, uint32(18), value)

	err = env.client.Set("emu_rst", 2)
	var replyErr *ReplyError
	require.True(t, errors.As(err, &replyErr))
	require.Equal(t, "ERROR: Malformed argument", replyErr.Line)
}

func TestReplyErrors(t *testing.T) {
	env := newClientTestEnv(t, regmap.Basic())
	defer env.close()
	_, err := env.client.Get("D")
	var replyErr *ReplyError
	require.True(t, errors.As(err, &replyErr))
	require.Equal(t, "ERROR: Unknown command", replyErr.Line)

	_, err = env.client.Raw("SET_A x")
	require.True(t, errors.As(err, &replyErr))
	require.Equal(t, "ERROR: Malformed argument", replyErr.Line)

	reply, err := env.client.Hello()
	require.NoError(t, err)
	require.Equal(t, "Hello World!", reply)
}

func TestBlankArguments(t *testing.T) {
	env := newClientTestEnv(t, regmap.Basic())
	defer env.close()
	for _, name := range []string{"", "A B", "A\t", "C\n"} {
		require.True(t, errors.Is(env.client.Set(name, 1), ErrBlankArgument), name)
		_, err := env.client.Get(name)
		require.True(t, errors.Is(err, ErrBlankArgument), name)
	}
	require.Empty(t, env.dev.Latches())
}

func TestNoReply(t *testing.T) {
	env := newClientTestEnv(t, regmap.Basic())
	defer env.close()
	env.client.Timeout = 50 * time.Millisecond
	_, err := env.client.Raw("SET_A 1")
	require.Equal(t, ErrNoReply, err)
	reply, err := env.client.Hello()
	require.NoError(t, err)
	require.Equal(t, "Hello World!", reply)
}

func TestExit(t *testing.T) {
	env := newClientTestEnv(t, regmap.Basic())
	defer env.close()
	require.NoError(t, env.client.Exit())
	require.NoError(t, env.waitConsole())
	select {
	case <-env.client.Done():
	case <-time.After(time.Second):
		t.Fatal("link not closed")
	}
	_, err := env.client.Raw("HELLO")
	require.Error(t, err)
}

func TestFilter(t *testing.T) {
	ports := []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6001", SerialNumber: "FT0001A"},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "0403", PID: "6010", SerialNumber: "210249B"},
		{Name: "/dev/ttyUSB2", IsUSB: true, VID: "10C4", PID: "EA60", SerialNumber: "0001"},
	}
	for _, tc := range []struct {
		name   string
		filter Filter
		expect []string
	}{
		{"any", Filter{}, []string{"/dev/ttyS0", "/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB2"}},
		{"vid", Filter{VID: "0x403"}, []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}},
		{"vid-pid", Filter{VID: "0403", PID: "6010"}, []string{"/dev/ttyUSB1"}},
		{"case", Filter{VID: "10c4", PID: "ea60"}, []string{"/dev/ttyUSB2"}},
		{"suffix", Filter{VID: "0403", SerialSuffix: "1A"}, []string{"/dev/ttyUSB0"}},
		{"none", Filter{PID: "1234"}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, FilterPorts(ports, tc.filter))
		})
	}
}

func TestDialUnknownScheme(t *testing.T) {
	conf := NewConfig()
	conf.Port = "gopher://host"
	_, err := conf.Dial(context.Background())
	require.Error(t, err)

	conf.Port = "mqtt://localhost:1883/rig/"
	_, err = conf.Dial(context.Background())
	require.Error(t, err)
}

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 6)
		if _, err := io.ReadFull(conn, buf); err == nil {
			conn.Write([]byte(console.ResponseHello))
		}
	}()
	conf := NewConfig()
	conf.Port = "tcp://" + ln.Addr().String()
	cl, err := conf.Dial(context.Background())
	require.NoError(t, err)
	defer cl.Close()
	reply, err := cl.Hello()
	require.NoError(t, err)
	require.Equal(t, "Hello World!", reply)
}

func TestEmulatorControl(t *testing.T) {
	env := newClientTestEnv(t, regmap.Extended())
	defer env.close()
	require.NoError(t, env.client.SetReset(1))
	require.NoError(t, env.client.SetCtrlMode(CtrlStallAt))
	require.NoError(t, env.client.SetReset(0))
	require.Equal(t, []uint32{0, 3, 0}, env.dev.Latches())
	require.Equal(t, CtrlStallAt, env.dev.Register(3))

	var replyErr *ReplyError
	require.True(t, errors.As(env.client.SetCtrlMode(4), &replyErr))
	require.True(t, errors.As(env.client.SetReset(2), &replyErr))
}
