package isdbtmux

import "fmt"

// audNAL is the Annex-B Access Unit Delimiter NAL this mux injects ahead of
// a keyframe that doesn't already start with one: nal_ref_idc=0,
// nal_unit_type=9, primary_pic_type=7 (any slice type).
var audNAL = []byte{0x00, 0x00, 0x00, 0x01, 0x09, 0xf0}

const (
	h264NALTypeSPS = 7
	h264NALTypeAUD = 9
)

// h264HasStartCode reports whether data begins with an Annex-B start code
// (either 3- or 4-byte form).
func h264HasStartCode(data []byte) bool {
	if len(data) >= 4 && data[0] == 0 && data[1] == 0 && data[2] == 0 && data[3] == 1 {
		return true
	}
	return len(data) >= 3 && data[0] == 0 && data[1] == 0 && data[2] == 1
}

// h264WalkNALs calls fn for each NAL unit type found in an Annex-B stream,
// stopping early if fn returns false.
func h264WalkNALs(data []byte, fn func(nalType byte) bool) {
	i := 0
	for i < len(data)-3 {
		if data[i] == 0 && data[i+1] == 0 && data[i+2] == 1 {
			start := i + 3
			if start < len(data) {
				if !fn(data[start] & 0x1f) {
					return
				}
			}
			i = start
			continue
		}
		i++
	}
}

func h264ContainsNAL(data []byte, nalType byte) bool {
	found := false
	h264WalkNALs(data, func(t byte) bool {
		if t == nalType {
			found = true
			return false
		}
		return true
	})
	return found
}

// processH264Keyframe implements spec §4.6's H.264 adapter: verifies the
// Annex-B start code (a missing one is a warning once frames have already
// been seen, and a fatal error on the very first frame), then on keyframes
// without a leading AUD prepends one, and — when that keyframe also lacks an
// SPS — prepends extradata (the stream's out-of-band SPS/PPS) ahead of it.
func processH264Keyframe(data []byte, isKeyframe bool, nbFramesSeen int, extradata []byte, warn func(string)) ([]byte, error) {
	if !h264HasStartCode(data) {
		if nbFramesSeen == 0 {
			return nil, fmt.Errorf("%w: h264 stream does not start with an Annex-B start code", ErrInvalidData)
		}
		if warn != nil {
			warn("h264: packet missing Annex-B start code")
		}
		return data, nil
	}

	if !isKeyframe {
		return data, nil
	}

	if h264ContainsNAL(data, h264NALTypeAUD) {
		return data, nil
	}

	out := make([]byte, 0, len(audNAL)+len(extradata)+len(data))
	out = append(out, audNAL...)
	if !h264ContainsNAL(data, h264NALTypeSPS) && len(extradata) > 0 {
		out = append(out, extradata...)
	}
	out = append(out, data...)
	return out, nil
}
