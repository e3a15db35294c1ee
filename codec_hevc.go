package isdbtmux

import "fmt"

// processHEVC implements spec §4.6's HEVC adapter: the same Annex-B
// start-code validation as H.264, with no AUD insertion (HEVC decoders don't
// require one to locate access-unit boundaries the way broadcast H.264
// chains commonly do).
func processHEVC(data []byte, nbFramesSeen int, warn func(string)) ([]byte, error) {
	if !h264HasStartCode(data) {
		if nbFramesSeen == 0 {
			return nil, fmt.Errorf("%w: hevc stream does not start with an Annex-B start code", ErrInvalidData)
		}
		if warn != nil {
			warn("hevc: packet missing Annex-B start code")
		}
	}
	return data, nil
}
