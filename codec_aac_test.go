package isdbtmux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAACHasADTSSync(t *testing.T) {
	require.True(t, aacHasADTSSync([]byte{0xff, 0xf1, 0x00}))
	require.False(t, aacHasADTSSync([]byte{0x00, 0x00}))
	require.False(t, aacHasADTSSync([]byte{0xff}))
}

func TestParseAACAudioSpecificConfig(t *testing.T) {
	// AAC-LC (object type 2), 44.1kHz (index 4), stereo (channel config 2):
	// 00010 0100 0010 xxx -> bytes 0x12 0x10.
	cfg, err := parseAACAudioSpecificConfig([]byte{0x12, 0x10})
	require.NoError(t, err)
	require.Equal(t, uint8(2), cfg.ObjectType)
	require.Equal(t, uint8(4), cfg.SampleRateIndex)
	require.Equal(t, uint8(2), cfg.ChannelConfig)
}

func TestParseAACAudioSpecificConfigTooShort(t *testing.T) {
	_, err := parseAACAudioSpecificConfig([]byte{0x12})
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestAACEnsureADTSFramedWrapsRawFrame(t *testing.T) {
	extradata := []byte{0x12, 0x10}
	raw := []byte{0xaa, 0xbb, 0xcc}
	out, err := aacEnsureADTSFramed(raw, extradata)
	require.NoError(t, err)
	require.Len(t, out, 7+len(raw))
	require.Equal(t, byte(0xff), out[0])
	require.Equal(t, byte(0xf1), out[1])
	require.Equal(t, raw, out[7:])
}

func TestAACEnsureADTSFramedLeavesExistingADTSAlone(t *testing.T) {
	framed := []byte{0xff, 0xf1, 0x4c, 0x80, 0x01, 0xbf, 0xfc, 0xaa}
	out, err := aacEnsureADTSFramed(framed, []byte{0x12, 0x10})
	require.NoError(t, err)
	require.Equal(t, framed, out)
}

func TestAACEnsureLATMFramedHeaderIs24Bit(t *testing.T) {
	extradata := []byte{0x12, 0x10}
	raw := []byte{0x01, 0x02, 0x03}
	out, err := aacEnsureLATMFramed(raw, extradata)
	require.NoError(t, err)

	// The 11-bit sync (0x2B7) + 13-bit StreamMuxLength needs 3 full bytes,
	// not 2: the top byte must carry the sync pattern's high bits intact.
	require.GreaterOrEqual(t, len(out), 3)
	header := uint32(out[0])<<16 | uint32(out[1])<<8 | uint32(out[2])
	sync := header >> 13
	length := header & 0x1fff
	require.Equal(t, uint32(0x2b7), sync)
	require.Equal(t, uint32(len(out)-3), length)
}

func TestAACEnsureFramedDispatchesOnLATMFlag(t *testing.T) {
	extradata := []byte{0x12, 0x10}
	raw := []byte{0x01, 0x02}

	adts, err := aacEnsureFramed(raw, extradata, false)
	require.NoError(t, err)
	require.Equal(t, byte(0xff), adts[0])

	latm, err := aacEnsureFramed(raw, extradata, true)
	require.NoError(t, err)
	require.NotEqual(t, byte(0xff), latm[0])
}
