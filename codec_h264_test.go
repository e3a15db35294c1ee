package isdbtmux

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func nal(nalType byte, rest ...byte) []byte {
	out := []byte{0x00, 0x00, 0x00, 0x01, nalType}
	return append(out, rest...)
}

func TestH264MissingStartCodeFirstFrameIsFatal(t *testing.T) {
	_, err := processH264Keyframe([]byte{0x01, 0x02}, true, 0, nil, nil)
	require.ErrorIs(t, err, ErrInvalidData)
}

func TestH264MissingStartCodeLaterFrameWarns(t *testing.T) {
	var warned string
	out, err := processH264Keyframe([]byte{0x01, 0x02}, true, 5, nil, func(s string) { warned = s })
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, out)
	require.NotEmpty(t, warned)
}

func TestH264NonKeyframePassesThrough(t *testing.T) {
	data := nal(1, 0xaa)
	out, err := processH264Keyframe(data, false, 3, nil, nil)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestH264KeyframeWithExistingAUDUntouched(t *testing.T) {
	data := nal(h264NALTypeAUD, 0xf0)
	out, err := processH264Keyframe(data, true, 1, nil, nil)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestH264KeyframeInsertsAUDAndExtradata(t *testing.T) {
	extradata := nal(h264NALTypeSPS, 0x01, 0x02)
	data := nal(5, 0xbb) // IDR slice, no AUD, no SPS
	out, err := processH264Keyframe(data, true, 1, extradata, nil)
	require.NoError(t, err)
	require.Equal(t, audNAL, out[:len(audNAL)])
	require.True(t, h264ContainsNAL(out, h264NALTypeSPS))
	require.True(t, h264ContainsNAL(out, 5))
}

func TestH264KeyframeWithOwnSPSSkipsExtradata(t *testing.T) {
	extradata := nal(h264NALTypeSPS, 0xee)
	data := append(nal(h264NALTypeSPS, 0x01), nal(5, 0xbb)...)
	out, err := processH264Keyframe(data, true, 1, extradata, nil)
	require.NoError(t, err)
	require.NotContains(t, out, byte(0xee))
}
