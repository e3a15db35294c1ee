package isdbtmux

import (
	"bytes"
	"testing"

	"github.com/asticode/go-astikit"
	"github.com/stretchr/testify/require"
)

func TestBuildSectionCRCVerifies(t *testing.T) {
	section, err := buildSection(sectionReservedPrefix, tableIDPAT, 1, 0, 0, 0, []byte{0x00, 0x01, 0xe1, 0x00})
	require.NoError(t, err)

	// Re-running the CRC over everything but the trailing 4 bytes must
	// reproduce those same trailing bytes.
	body := section[:len(section)-4]
	crc := crc32MPEG2(body)
	require.Equal(t, byte(crc>>24), section[len(section)-4])
	require.Equal(t, byte(crc>>16), section[len(section)-3])
	require.Equal(t, byte(crc>>8), section[len(section)-2])
	require.Equal(t, byte(crc), section[len(section)-1])

	require.Equal(t, tableIDPAT, section[0])
	wantSectionLength := len(section) - 3
	gotSectionLength := int(section[1]&0x0f)<<8 | int(section[2])
	require.Equal(t, wantSectionLength, gotSectionLength)
}

func TestBuildSectionTooLarge(t *testing.T) {
	_, err := buildSection(sectionReservedPrefix, tableIDPAT, 1, 0, 0, 0, make([]byte, maxSectionLength))
	require.ErrorIs(t, err, ErrSectionTooLarge)
}

func TestBuildPrivateSectionLayout(t *testing.T) {
	section, err := buildPrivateSection(tableIDTOT, []byte{0xaa, 0xbb})
	require.NoError(t, err)
	require.Equal(t, tableIDTOT, section[0])
	require.Equal(t, byte(0x00), section[1]&0xc0) // section_syntax_indicator=0, private=0
	require.Len(t, section, 1+2+2+4)               // table_id+length(2)+payload(2)+crc(4)
}

func TestWriteSectionPacketsChunksAndPads(t *testing.T) {
	var buf bytes.Buffer
	bw := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: &buf})
	var bb [8]byte
	cc := newWrappingCounter(0b1111)

	section := bytes.Repeat([]byte{0x42}, 400) // forces at least 3 packets
	n, err := writeSectionPackets(bw, &bb, PIDPAT, &cc, false, 0, section)
	require.NoError(t, err)
	require.Equal(t, n, buf.Len())
	require.Zero(t, buf.Len()%MpegTsPacketSize)

	out := buf.Bytes()
	for i := 0; i+4 <= len(out); i += MpegTsPacketSize {
		require.Equal(t, byte(syncByte), out[i])
	}
}

func TestWriteSectionPacketsM2TSPrefixesHeader(t *testing.T) {
	var buf bytes.Buffer
	bw := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: &buf})
	var bb [8]byte
	cc := newWrappingCounter(0b1111)

	section := []byte{0x01, 0x02, 0x03}
	n, err := writeSectionPackets(bw, &bb, PIDSDT, &cc, true, 12345, section)
	require.NoError(t, err)
	require.Equal(t, M2TsPacketSize, n)
	require.Equal(t, M2TsPacketSize, buf.Len())
	require.Equal(t, byte(syncByte), buf.Bytes()[4])
}
