package isdbtmux

import "time"

const tableIDEITPresentFollowing = 0x4e

// EITEvent carries the present-event fields the EIT needs for one service.
type EITEvent struct {
	StartTime time.Time
	Duration  time.Duration
	EventName string
	Text      string
	Rating    byte

	// Component/audio-component fields, written only for full-seg services.
	ComponentStreamContent byte
	ComponentType           byte
	AudioStreamType         byte
	AudioSamplingRate       byte
}

// buildEITSections serialises one present/following EIT section per
// service, per spec §4.2. Per spec §9 open question #3, the closing
// section's table_id_extension is documented as using the *last* service's
// sid where DVB calls for the TSID instead; useTSIDForLastSection swaps in
// the TSID for the closing section when true, and when false every
// section, the last one included, carries its own service's sid as the
// source does (see DESIGN.md).
func buildEITSections(tsid uint16, version uint8, services []*Service, events map[uint16]EITEvent, useTSIDForLastSection bool) ([][]byte, error) {
	sections := make([][]byte, 0, len(services))
	for i, s := range services {
		ev, ok := events[s.SID]
		if !ok {
			continue
		}

		var payload scopeBuf
		payload.WriteByte(byte(s.SID >> 8))
		payload.WriteByte(byte(s.SID))

		mjdutc := encodeMJDUTC(ev.StartTime)
		payload.Write(mjdutc[:])
		payload.Write(bcdDuration(ev.Duration))

		descPos := payload.reserve12()
		appendShortEventDescriptor(&payload, "por", ev.EventName, ev.Text)
		appendParentalRatingDescriptor(&payload, ev.Rating)
		if !s.IsOneSeg() {
			appendComponentDescriptor(&payload, ev.ComponentStreamContent, ev.ComponentType, 0x00, "por", "")
			appendAudioComponentDescriptor(&payload, 0x01, 0x10, ev.AudioStreamType, ev.AudioSamplingRate, true, "por")
			appendContentDescriptor(&payload, 0x0, 0x0, 0xf, 0xf)
		}
		// running_status=4 (running), free_CA_mode=0.
		payload.patch12(descPos, sdtRunningStatusRunning<<1|0)

		tableIDExt := s.SID
		if useTSIDForLastSection && i == len(services)-1 {
			tableIDExt = tsid
		}

		section, err := buildSection(sectionReservedPrefix, tableIDEITPresentFollowing, tableIDExt, version, 0, 0, payload.Bytes())
		if err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}
	return sections, nil
}

// bcdDuration encodes a duration as 3 BCD bytes HHMMSS, per spec §4.2.
func bcdDuration(d time.Duration) []byte {
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	return []byte{toBCD(h), toBCD(m), toBCD(sec)}
}
