package axigpio

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/rigctl/pkg/regbus"
)

func TestDirections(t *testing.T) {
	set, get := make([]byte, BlockSize), make([]byte, BlockSize)
	for i := range set {
		set[i], get[i] = 0xff, 0xff
	}
	_, err := New(set, get)
	require.NoError(t, err)
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(set[regTri:]))
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(set[regTri2:]))
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(get[regTri:]))
	require.Equal(t, uint32(0xffffffff), binary.LittleEndian.Uint32(get[regTri2:]))
}

func TestChannels(t *testing.T) {
	set, get := make([]byte, BlockSize), make([]byte, BlockSize)
	d, err := New(set, get)
	require.NoError(t, err)

	e := regbus.New(d)
	e.Sleep = func(time.Duration) {}
	require.NoError(t, e.Write(4, 7))
	require.Equal(t, uint32(4), binary.LittleEndian.Uint32(set[regData:]))
	require.Equal(t, uint32(7), binary.LittleEndian.Uint32(set[regData2:]))

	binary.LittleEndian.PutUint32(get[regData2:], 46)
	v, err := e.Read(1)
	require.NoError(t, err)
	require.Equal(t, uint32(46), v)
	require.Equal(t, uint32(1), binary.LittleEndian.Uint32(get[regData:]))
}

func TestBadMapping(t *testing.T) {
	_, err := New(make([]byte, 16), make([]byte, BlockSize))
	require.Error(t, err)

	d, err := New(make([]byte, BlockSize), make([]byte, BlockSize))
	require.NoError(t, err)
	require.Error(t, d.DiscreteWrite(regbus.Group(2), regbus.ChannelAddr, 0))
	_, err = d.DiscreteRead(regbus.GroupGet, regbus.Channel(2))
	require.Error(t, err)
}
