package isdbtmux

import "time"

const tableIDTOT = 0x73

// buildTOT serialises the Time Offset Table: a short-form section carrying
// the current UTC time plus a single local_time_offset_descriptor, per spec
// §4.2. TOT has no version/current_next_indicator — it is simply
// re-emitted on every cadence tick with a fresh timestamp.
func buildTOT(now time.Time, lto LocalTimeOffset) ([]byte, error) {
	var payload scopeBuf
	mjdutc := encodeMJDUTC(now)
	payload.Write(mjdutc[:])

	descPos := payload.reserve12()
	appendLocalTimeOffsetDescriptor(&payload, lto)
	payload.patch12(descPos, 0xf)

	return buildPrivateSection(tableIDTOT, payload.Bytes())
}
