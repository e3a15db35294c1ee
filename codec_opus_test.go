package isdbtmux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpusPacketSamplesCodeZero(t *testing.T) {
	// config 0 (SILK NB 10ms == 480 samples), code 0 -> one frame.
	n, err := opusPacketSamples([]byte{0x00})
	require.NoError(t, err)
	require.Equal(t, 480, n)
}

func TestOpusPacketSamplesCodeTwoFrames(t *testing.T) {
	// config 3 (SILK NB 60ms == 2880), code 1 -> two frames.
	toc := byte(3<<3 | 1)
	n, err := opusPacketSamples([]byte{toc})
	require.NoError(t, err)
	require.Equal(t, 2880*2, n)
}

func TestOpusPacketSamplesCodeThreeArbitraryCount(t *testing.T) {
	// config 16 (CELT NB 2.5ms == 120), code 3, frame count byte = 5.
	toc := byte(16<<3 | 3)
	n, err := opusPacketSamples([]byte{toc, 5})
	require.NoError(t, err)
	require.Equal(t, 120*5, n)
}

func TestOpusPacketSamplesTruncatedErrors(t *testing.T) {
	_, err := opusPacketSamples(nil)
	require.ErrorIs(t, err, ErrInvalidData)

	toc := byte(16<<3 | 3)
	_, err = opusPacketSamples([]byte{toc})
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestOpusChannelConfigCodeFamily0(t *testing.T) {
	code, err := opusChannelConfigCode(1)
	require.NoError(t, err)
	require.Equal(t, byte(1), code)

	code, err = opusChannelConfigCode(2)
	require.NoError(t, err)
	require.Equal(t, byte(2), code)
}

func TestOpusChannelConfigCodeFamily1(t *testing.T) {
	code, err := opusChannelConfigCode(3)
	require.NoError(t, err)
	require.Equal(t, byte(2<<4|1), code)
}

func TestOpusChannelConfigCodeOutOfRange(t *testing.T) {
	_, err := opusChannelConfigCode(0)
	require.ErrorIs(t, err, ErrNotSupported)

	_, err = opusChannelConfigCode(9)
	require.ErrorIs(t, err, ErrNotSupported)
}

func TestBuildOpusControlHeaderNoTrim(t *testing.T) {
	h := buildOpusControlHeader(10, nil, nil)
	require.Equal(t, []byte{0x7f, 0xe0, 10}, h)
}

func TestBuildOpusControlHeaderLargeSizeIsRunLength(t *testing.T) {
	h := buildOpusControlHeader(260, nil, nil)
	require.Equal(t, []byte{0x7f, 0xe0, 255, 5}, h)
}

func TestBuildOpusControlHeaderWithTrims(t *testing.T) {
	start := uint16(100)
	end := uint16(200)
	h := buildOpusControlHeader(1, &start, &end)
	require.Equal(t, byte(0xe0|0x10|0x08), h[1])
	require.Equal(t, []byte{0x00, 100}, h[3:5])
	require.Equal(t, []byte{0x00, 200}, h[5:7])
}

func TestOpusPendingTrimConsumeZeroesAndClears(t *testing.T) {
	trim := &opusPendingTrim{trimStart: 42}
	v := trim.consume()
	require.NotNil(t, v)
	require.Equal(t, uint16(42), *v)
	require.Equal(t, uint32(0), trim.trimStart)

	require.Nil(t, trim.consume())
}
