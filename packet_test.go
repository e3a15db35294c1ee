package isdbtmux

import (
	"bytes"
	"testing"

	"github.com/asticode/go-astikit"
	"github.com/stretchr/testify/require"
)

func TestPacketHeaderWrite(t *testing.T) {
	var buf bytes.Buffer
	bw := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: &buf})
	var bb [8]byte

	h := PacketHeader{
		PID:                       0x0100,
		HasPayload:                true,
		PayloadUnitStartIndicator: true,
		ContinuityCounter:         5,
	}
	n, err := h.write(bw, &bb)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	out := buf.Bytes()
	require.Equal(t, byte(syncByte), out[0])
	require.Equal(t, byte(0x40|(0x0100>>8)&0x1f), out[1])
	require.Equal(t, byte(0x00), out[2])
	require.Equal(t, byte(0x10|5), out[3]) // HasPayload bit + CC
}

func TestPacketWritePadsToTargetSize(t *testing.T) {
	var buf bytes.Buffer
	bw := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: &buf})
	var bb [8]byte

	pkt := Packet{
		Header: PacketHeader{
			PID:                       0x20,
			HasPayload:                true,
			PayloadUnitStartIndicator: true,
		},
		Payload: []byte{0x01, 0x02, 0x03},
	}
	n, err := pkt.write(bw, &bb, MpegTsPacketSize)
	require.NoError(t, err)
	require.Equal(t, MpegTsPacketSize, n)
	require.Equal(t, MpegTsPacketSize, buf.Len())

	out := buf.Bytes()
	require.Equal(t, []byte{0x01, 0x02, 0x03}, out[4:7])
	for _, b := range out[7:] {
		require.Equal(t, byte(0xff), b)
	}
}

func TestNewStuffingAdaptationFieldWireSize(t *testing.T) {
	for _, total := range []int{1, 2, 3, 10, 183} {
		af := newStuffingAdaptationField(total)
		var buf bytes.Buffer
		bw := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: &buf})
		var bb [8]byte
		n, err := af.write(bw, &bb)
		require.NoError(t, err)
		require.Equalf(t, total, n, "newStuffingAdaptationField(%d) wrote %d bytes", total, n)
	}
}

func TestAdaptationFieldWithPCR(t *testing.T) {
	var buf bytes.Buffer
	bw := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: &buf})
	var bb [8]byte

	af := &PacketAdaptationField{
		HasPCR:                true,
		PCR:                   newClockReferenceFromPCR(27000000),
		RandomAccessIndicator: true,
		StuffingLength:        4,
	}
	n, err := af.write(bw, &bb)
	require.NoError(t, err)
	// length byte(1) + flags(1) + pcr(6) + stuffing(4)
	require.Equal(t, 1+1+pcrBytesSize+4, n)
	require.Equal(t, byte(1+pcrBytesSize+4), buf.Bytes()[0])
}

func TestWriteM2TSHeader(t *testing.T) {
	var buf bytes.Buffer
	bw := astikit.NewBitsWriter(astikit.BitsWriterOptions{Writer: &buf})
	require.NoError(t, writeM2TSHeader(bw, 1<<30+5))
	require.Equal(t, 4, buf.Len())
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x05}, buf.Bytes()) // wraps modulo 2^30
}
