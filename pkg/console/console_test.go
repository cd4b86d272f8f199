package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rigctl/pkg/regbus"
	"github.com/robotalks/rigctl/pkg/regbus/sim"
	"github.com/robotalks/rigctl/pkg/regmap"
)

type testLink struct {
	in  *strings.Reader
	out bytes.Buffer
}

func newTestLink(in string) *testLink {
	return &testLink{in: strings.NewReader(in)}
}

func (l *testLink) Read(p []byte) (int, error) {
	return l.in.Read(p)
}

func (l *testLink) Write(p []byte) (int, error) {
	return l.out.Write(p)
}

func newSimConsole(t *testing.T, m *regmap.Map, link *testLink) (*Console, *sim.Device) {
	dev := sim.NewReference()
	dev.Record = true
	engine := regbus.New(dev)
	engine.Sleep = func(time.Duration) {}
	table, err := m.Commands()
	require.NoError(t, err)
	return New(link, NewDispatcher(table, engine, DefaultLineCapacity)), dev
}

func TestConsoleSetA(t *testing.T) {
	link := newTestLink("SET_A 7\r\n")
	c, dev := newSimConsole(t, regmap.Basic(), link)
	require.NoError(t, c.Run(context.Background()))
	require.Empty(t, link.out.String())
	require.Equal(t, []uint32{sim.AddrA}, dev.Latches())
	require.Equal(t, uint32(7), dev.Register(sim.AddrA))
}

func TestConsoleGetC(t *testing.T) {
	link := newTestLink("GET_C\r\n")
	c, dev := newSimConsole(t, regmap.Basic(), link)
	require.NoError(t, c.Run(context.Background()))
	require.Equal(t, "0\r\n", link.out.String())
	require.Equal(t, []sim.Access{
		{Write: true, Group: regbus.GroupGet, Channel: regbus.ChannelAddr, Value: sim.AddrC},
		{Group: regbus.GroupGet, Channel: regbus.ChannelData, Value: 0},
	}, dev.Log())
}

func TestConsoleReferenceScenario(t *testing.T) {
	var in, expect strings.Builder
	in.WriteString("HELLO\n")
	expect.WriteString(ResponseHello)
	for _, tc := range []struct{ a, b, mode, c string }{
		{"12", "34", "0", "46"},
		{"45", "10", "1", "35"},
		{"10", "44", "2", "34"},
		{"3", "7", "3", "21"},
		{"9", "1", "4", "4"},
		{"9", "1", "5", "18"},
		{"2", "32", "6", "8"},
		{"3", "3", "7", "24"},
		{"56", "78", "8", "42"},
	} {
		in.WriteString("SET_A " + tc.a + "\nSET_B " + tc.b + "\nSET_MODE " + tc.mode + "\nGET_C\n")
		expect.WriteString(tc.c + "\r\n")
	}
	in.WriteString("EXIT\n")
	link := newTestLink(in.String())
	c, _ := newSimConsole(t, regmap.Basic(), link)
	require.NoError(t, c.Run(context.Background()))
	require.Equal(t, expect.String(), link.out.String())
	require.Equal(t, 0, link.in.Len())
}

func TestConsoleExitStopsConsuming(t *testing.T) {
	link := newTestLink("EXIT\r\nHELLO\r\n")
	c, _ := newSimConsole(t, regmap.Basic(), link)
	require.NoError(t, c.Run(context.Background()))
	require.Empty(t, link.out.String())
	require.Equal(t, len("\nHELLO\r\n"), link.in.Len())
}

func TestConsoleDiagnostics(t *testing.T) {
	link := newTestLink("FOOBAR\r\nSET_A x\r\n" + strings.Repeat("Z", 40) + "\r\nHELLO\r\n")
	c, _ := newSimConsole(t, regmap.Basic(), link)
	require.NoError(t, c.Run(context.Background()))
	require.Equal(t, ResponseUnknown+ResponseMalformed+ResponseOverflow+ResponseHello, link.out.String())
}

type failingHW struct{}

func (failingHW) DiscreteWrite(regbus.Group, regbus.Channel, uint32) error {
	return errors.New("device not present")
}

func (failingHW) DiscreteRead(regbus.Group, regbus.Channel) (uint32, error) {
	return 0, errors.New("device not present")
}

func TestConsoleFatal(t *testing.T) {
	link := newTestLink("HELLO\nSET_A 1\nHELLO\n")
	table, err := regmap.Basic().Commands()
	require.NoError(t, err)
	engine := regbus.New(failingHW{})
	c := New(link, NewDispatcher(table, engine, 0))
	err = c.Run(context.Background())
	require.Error(t, err)
	require.True(t, IsFatal(err))
	require.True(t, strings.HasPrefix(link.out.String(), ResponseHello+"ERROR: channel access failure"))
	require.True(t, strings.HasSuffix(link.out.String(), LineEnd))
	require.Equal(t, len("HELLO\n"), link.in.Len())
}

func TestConsoleCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _ := newSimConsole(t, regmap.Basic(), newTestLink("HELLO\n"))
	require.Equal(t, context.Canceled, c.Run(ctx))
}

func TestConfigNewDispatcher(t *testing.T) {
	conf := NewConfig()
	conf.Map = "basic"
	conf.Ack = true
	conf.LineCapacity = 4
	m, err := conf.LoadMap()
	require.NoError(t, err)
	require.True(t, m.Ack)
	d, err := conf.NewDispatcher(m, &recordingBus{})
	require.NoError(t, err)
	res, err := d.Feed('H')
	require.NoError(t, err)
	require.Empty(t, res.Response)
	require.Equal(t, "H", d.Pending())
	for _, b := range []byte("ELLO") {
		res, err = d.Feed(b)
	}
	require.Equal(t, ErrBufferOverflow, err)
	require.Equal(t, ResponseOverflow, res.Response)

	conf.Map = "nope.toml"
	_, err = conf.LoadMap()
	require.Error(t, err)

	_, err = conf.NewDispatcher(&regmap.Map{
		Name:      "wide",
		Registers: []regmap.Register{{Name: "A", Address: 4, Width: 33}},
	}, &recordingBus{})
	require.Error(t, err)
}

func TestConsoleLastByteWithEOF(t *testing.T) {
	for _, tc := range []struct {
		in, out string
	}{
		{"HELLO\n", ResponseHello},
		{"SET_A 3\nGET_C\r", "3\r\n"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			var out bytes.Buffer
			engine := regbus.New(sim.NewReference())
			engine.Sleep = func(time.Duration) {}
			table, err := regmap.Basic().Commands()
			require.NoError(t, err)
			rw := struct {
				io.Reader
				io.Writer
			}{iotest.DataErrReader(strings.NewReader(tc.in)), &out}
			c := New(rw, NewDispatcher(table, engine, 0))
			require.NoError(t, c.Run(context.Background()))
			require.Equal(t, tc.out, out.String())
		})
	}
}
