package isdbtmux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPESHeaderPTSOnly(t *testing.T) {
	h := buildPESHeader(0xe0, 0, 90000, 90000, false, true, false)
	require.Equal(t, []byte{0x00, 0x00, 0x01, 0xe0}, h[:4])
	require.Equal(t, byte(0x80|0x04), h[6]) // data_alignment_indicator
	require.Equal(t, byte(0b10<<6), h[7])   // PTS_DTS_flags = '10'
	require.Equal(t, byte(5), h[8])         // header_data_length: one 5-byte PTS field
	require.Len(t, h, pesFixedHeaderSize+5)
}

func TestBuildPESHeaderWithDTS(t *testing.T) {
	h := buildPESHeader(0xc0, 0, 180000, 90000, true, false, false)
	require.Equal(t, byte(0b11<<6), h[7]) // PTS_DTS_flags = '11'
	require.Equal(t, byte(10), h[8])      // two 5-byte fields
	require.Len(t, h, pesFixedHeaderSize+10)
}

func TestBuildPESHeaderTeletextPadding(t *testing.T) {
	h := buildPESHeader(0xbd, 0, 90000, 90000, false, true, true)
	require.Len(t, h, 0x24)
}

func TestWrapDVBSubtitlePayload(t *testing.T) {
	out := wrapDVBSubtitlePayload([]byte{0x01, 0x02})
	require.Equal(t, []byte{0x20, 0x00, 0x01, 0x02, 0xff}, out)
}

func TestPesStreamIDDefault(t *testing.T) {
	require.Equal(t, byte(0xe0), pesStreamIDDefault(CodecH264, false))
	require.Equal(t, byte(0xfd), pesStreamIDDefault(CodecDirac, false))
	require.Equal(t, byte(0xc0), pesStreamIDDefault(CodecAAC, false))
	require.Equal(t, byte(0xbd), pesStreamIDDefault(CodecAC3, false))
	require.Equal(t, byte(0xfd), pesStreamIDDefault(CodecAC3, true))
	require.Equal(t, byte(0xfc), pesStreamIDDefault(CodecKLV, false))
}

func TestPCRFormulas(t *testing.T) {
	// pcr = (offset+11)*8*27e6/mux_rate + first_pcr
	got := pcrAtOffset(0, 27000*8, 0)
	require.Equal(t, uint64(11*8*PCRHz/(27000*8)), got)

	// pcrFromDTS clamps at zero instead of underflowing.
	require.Equal(t, uint64(0), pcrFromDTS(100, 900))
	require.Equal(t, uint64(100*ClockReferenceScale), pcrFromDTS(200, 100))
}
