package console

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rigctl/pkg/regbus"
	"github.com/robotalks/rigctl/pkg/regmap"
)

type busOp struct {
	read    bool
	address uint32
	value   uint32
}

type recordingBus struct {
	ops     []busOp
	readVal uint32
	err     error
}

func (b *recordingBus) Write(address, value uint32) error {
	if b.err != nil {
		return b.err
	}
	b.ops = append(b.ops, busOp{address: address, value: value})
	return nil
}

func (b *recordingBus) Read(address uint32) (uint32, error) {
	if b.err != nil {
		return 0, b.err
	}
	b.ops = append(b.ops, busOp{read: true, address: address, value: b.readVal})
	return b.readVal, nil
}

type dispatchTestEnv struct {
	t        *testing.T
	bus      *recordingBus
	d        *Dispatcher
	output   string
	errs     []error
	exit     bool
	consumed int
}

func newDispatchTestEnv(t *testing.T, m *regmap.Map, capacity int) *dispatchTestEnv {
	table, err := m.Commands()
	require.NoError(t, err)
	bus := &recordingBus{}
	return &dispatchTestEnv{t: t, bus: bus, d: NewDispatcher(table, bus, capacity)}
}

func (e *dispatchTestEnv) feed(in string) *dispatchTestEnv {
	for i := 0; i < len(in) && !e.exit; i++ {
		res, err := e.d.Feed(in[i])
		e.consumed++
		e.output += res.Response
		if err != nil {
			e.errs = append(e.errs, err)
		}
		e.exit = res.Exit
	}
	return e
}

func (e *dispatchTestEnv) expectOutput(out string) *dispatchTestEnv {
	require.Equal(e.t, out, e.output)
	e.output = ""
	return e
}

func (e *dispatchTestEnv) expectOps(ops ...busOp) *dispatchTestEnv {
	if len(ops) == 0 {
		require.Empty(e.t, e.bus.ops)
	} else {
		require.Equal(e.t, ops, e.bus.ops)
	}
	e.bus.ops = nil
	return e
}

func (e *dispatchTestEnv) expectNone() *dispatchTestEnv {
	require.True(e.t, e.d.State().IsNone(), "dispatch state not None")
	return e
}

func (e *dispatchTestEnv) expectAwaiting(keyword string) *dispatchTestEnv {
	st := e.d.State()
	require.NotNil(e.t, st.Awaiting)
	require.Equal(e.t, keyword, st.Awaiting.Keyword)
	return e
}

func (e *dispatchTestEnv) expectErrs(errs ...error) *dispatchTestEnv {
	require.Len(e.t, e.errs, len(errs))
	for n, err := range errs {
		require.Truef(e.t, errors.Is(e.errs[n], err), "errs[%d] = %v, want %v", n, e.errs[n], err)
	}
	e.errs = nil
	return e
}

func write(address, value uint32) busOp {
	return busOp{address: address, value: value}
}

func read(address, value uint32) busOp {
	return busOp{read: true, address: address, value: value}
}

func TestZeroArgumentQueries(t *testing.T) {
	for _, delim := range []string{" ", "\t", "\r", "\n"} {
		t.Run(fmt.Sprintf("%q", delim), func(t *testing.T) {
			env := newDispatchTestEnv(t, regmap.Basic(), 0)
			env.feed("HELLO" + delim).expectOutput(ResponseHello).expectNone().expectOps()
			env.bus.readVal = 46
			env.feed("GET_C" + delim).expectOutput("46\r\n").expectNone().expectOps(read(1, 46))
			env.expectErrs()
		})
	}
}

func TestSetRegister(t *testing.T) {
	testCases := []struct {
		keyword string
		address uint32
	}{
		{"SET_A", 4},
		{"SET_B", 5},
		{"SET_MODE", 6},
	}
	for _, tc := range testCases {
		t.Run(tc.keyword, func(t *testing.T) {
			env := newDispatchTestEnv(t, regmap.Basic(), 0)
			env.feed(tc.keyword + " ").expectOutput("").expectOps().expectAwaiting(tc.keyword)
			env.feed("7").expectOps().expectAwaiting(tc.keyword)
			env.feed("\r\n").expectOutput("").expectOps(write(tc.address, 7)).expectNone()
			env.expectErrs()
		})
	}
}

func TestRepeatedDelimiters(t *testing.T) {
	single := newDispatchTestEnv(t, regmap.Basic(), 0).feed("HELLO ")
	multi := newDispatchTestEnv(t, regmap.Basic(), 0).feed("HELLO   \r\n")
	require.Equal(t, single.output, multi.output)
	require.Equal(t, ResponseHello, multi.output)

	newDispatchTestEnv(t, regmap.Basic(), 0).
		feed(" \t\r\n\r\n  SET_A \t\r\n 12 \r\n\n").
		expectOutput("").
		expectOps(write(4, 12)).
		expectNone()
}

func TestUnknownCommand(t *testing.T) {
	newDispatchTestEnv(t, regmap.Basic(), 0).
		feed("FOOBAR\r\n").
		expectOutput(ResponseUnknown).
		expectNone().
		expectErrs(ErrUnknownCommand).
		feed("hello\n").
		expectOutput(ResponseUnknown).
		expectErrs(ErrUnknownCommand).
		feed("HELLO\n").
		expectOutput(ResponseHello)
}

func TestUnknownDoesNotDisturbPendingArgument(t *testing.T) {
	// an argument token is never matched against the table.
	newDispatchTestEnv(t, regmap.Basic(), 0).
		feed("SET_B HELLO\n").
		expectOutput(ResponseMalformed).
		expectOps().
		expectNone().
		feed("HELLO\n").
		expectOutput(ResponseHello)
}

func TestMalformedArgument(t *testing.T) {
	for _, arg := range []string{"x7", "-1", "+1", "0x10", "4294967296", "1.5"} {
		t.Run(arg, func(t *testing.T) {
			env := newDispatchTestEnv(t, regmap.Basic(), 0)
			env.feed("SET_A " + arg + "\r\n").
				expectOutput(ResponseMalformed).
				expectOps().
				expectNone()
			require.Len(t, env.errs, 1)
			var argErr *ArgumentError
			require.True(t, errors.As(env.errs[0], &argErr))
			require.Equal(t, "SET_A", argErr.Keyword)
			require.Equal(t, arg, argErr.Token)
			require.False(t, IsFatal(env.errs[0]))
		})
	}
}

func TestArgumentWidth(t *testing.T) {
	env := newDispatchTestEnv(t, regmap.Extended(), 0)
	env.feed("SET_emu_rst 1\n").expectOutput(ResponseAck).expectOps(write(0, 1))
	env.feed("SET_emu_rst 2\n").expectOutput(ResponseMalformed).expectOps()
	env.feed("SET_a_in 4294967295\n").expectOutput(ResponseAck).expectOps(write(4, 4294967295))
}

func TestAckPolicy(t *testing.T) {
	env := newDispatchTestEnv(t, regmap.Extended(), 0)
	env.feed("SET_a_in 12\rSET_b_in 34\rSET_mode_in 0\r").
		expectOutput(ResponseAck + ResponseAck + ResponseAck).
		expectOps(write(4, 12), write(5, 34), write(6, 0))
	env.bus.readVal = 46
	env.feed("GET_c_out\r").expectOutput("46\r\n").expectOps(read(1, 46))
}

func TestBufferOverflow(t *testing.T) {
	env := newDispatchTestEnv(t, regmap.Basic(), 8)
	env.feed("ABCDEFGH").expectOutput("").expectErrs()
	require.Equal(t, "ABCDEFGH", env.d.Pending())
	env.feed("IJKLMNOP").expectOutput(ResponseOverflow).expectErrs(ErrBufferOverflow)
	require.Empty(t, env.d.Pending())
	env.feed(" HELLO\n").expectOutput(ResponseHello).expectNone()
}

func TestBufferOverflowResetsState(t *testing.T) {
	newDispatchTestEnv(t, regmap.Basic(), 8).
		feed("SET_A ").
		expectAwaiting("SET_A").
		feed("123456789012 ").
		expectOutput(ResponseOverflow).
		expectErrs(ErrBufferOverflow).
		expectNone().
		feed("SET_A 9 ").
		expectOutput("").
		expectOps(write(4, 9))
}

func TestExit(t *testing.T) {
	env := newDispatchTestEnv(t, regmap.Basic(), 0)
	env.feed("EXIT\r\nHELLO\r\n")
	require.True(t, env.exit)
	require.Equal(t, len("EXIT\r"), env.consumed)
	env.expectOutput("").expectOps()
}

func TestFatalAccess(t *testing.T) {
	env := newDispatchTestEnv(t, regmap.Basic(), 0)
	env.bus.err = &regbus.AccessError{Group: regbus.GroupSet, Channel: regbus.ChannelAddr, Write: true, Err: errors.New("gone")}
	env.feed("SET_A 1 ").expectOutput("")
	require.Len(t, env.errs, 1)
	require.True(t, IsFatal(env.errs[0]))
	env.errs = nil
	env.feed("GET_C ").expectOutput("")
	require.Len(t, env.errs, 1)
	require.True(t, IsFatal(env.errs[0]))
}

func TestLineBuffer(t *testing.T) {
	b := NewLineBuffer(2)
	require.Equal(t, 2, b.Cap())
	require.NoError(t, b.Append('a'))
	require.NoError(t, b.Append('b'))
	require.Equal(t, ErrBufferOverflow, b.Append('c'))
	require.Equal(t, "ab", b.Token())
	b.Reset()
	require.Equal(t, 0, b.Len())
	require.Equal(t, DefaultLineCapacity, NewLineBuffer(0).Cap())
}
