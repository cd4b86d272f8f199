package telemetry

import (
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/rigctl/pkg/regbus"
	"github.com/robotalks/rigctl/pkg/regmap"
)

func TestNames(t *testing.T) {
	names := NamesOf(regmap.Basic())
	require.Equal(t, "A", names.Name(regbus.OpWrite, 4))
	require.Equal(t, "C", names.Name(regbus.OpRead, 1))
	require.Empty(t, names.Name(regbus.OpRead, 4))
	require.Empty(t, names.Name(regbus.OpWrite, 1))

	ext := NamesOf(regmap.Extended())
	require.Equal(t, "emu_dec_thr", ext.Name(regbus.OpWrite, 1))
	require.Equal(t, "c_out", ext.Name(regbus.OpRead, 1))
}

func TestEventEncoding(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 1500, time.UTC)
	txn := regbus.Transaction{Op: regbus.OpRead, Address: 1, Value: 46, At: at}
	ev := NewEvent(txn, NamesOf(regmap.Basic()))
	require.Equal(t, "read C=46", ev.String())

	payload, err := ev.Encode()
	require.NoError(t, err)
	decoded, err := DecodeEvent(payload)
	require.NoError(t, err)
	require.Equal(t, ev.Op, decoded.Op)
	require.Equal(t, ev.Register, decoded.Register)
	require.Equal(t, ev.Address, decoded.Address)
	require.Equal(t, ev.Value, decoded.Value)
	require.True(t, at.Equal(decoded.At))

	var s structpb.Struct
	require.NoError(t, proto.Unmarshal(payload, &s))
	require.Equal(t, "C", s.Fields["register"].GetStringValue())
	require.Equal(t, float64(46), s.Fields["value"].GetNumberValue())
}

func TestUnknownRegister(t *testing.T) {
	ev := NewEvent(regbus.Transaction{Op: regbus.OpWrite, Address: 9, Value: 0xffffffff}, nil)
	require.Equal(t, "write @9=4294967295", ev.String())
	payload, err := ev.Encode()
	require.NoError(t, err)
	decoded, err := DecodeEvent(payload)
	require.NoError(t, err)
	require.Empty(t, decoded.Register)
	require.Equal(t, uint32(0xffffffff), decoded.Value)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := DecodeEvent([]byte{0xff, 0xff})
	require.Error(t, err)

	payload, err := proto.Marshal(&structpb.Struct{})
	require.NoError(t, err)
	_, err = DecodeEvent(payload)
	require.Error(t, err)
}
