package isdbtmux

const tableIDSDTActual = 0x42

// Running-status values, per spec §4.2.
const sdtRunningStatusRunning = 0x4

// Service-type bytes written into the SDT's service_descriptor.
const (
	serviceTypeDigitalTV    = 0x01
	serviceTypeDigitalOneSeg = 0xc0
)

// buildSDT serialises the actual Service Description Table: one entry per
// service carrying a service_descriptor, per spec §4.2. The one-seg service
// type byte uses sdtIsOneSegBuggy rather than Service.IsOneSeg — see spec
// §9 open question #2.
func buildSDT(tsid, onid uint16, version uint8, services []*Service) ([]byte, error) {
	var payload scopeBuf
	payload.WriteByte(byte(onid >> 8))
	payload.WriteByte(byte(onid))
	payload.WriteByte(0xff) // reserved_future_use, all ones

	for _, s := range services {
		payload.WriteByte(byte(s.SID >> 8))
		payload.WriteByte(byte(s.SID))
		payload.WriteByte(0xfc) // reserved_future_use(6)=111111, EIT_schedule=0, EIT_present_following=0

		descPos := payload.reserve12()
		serviceType := byte(serviceTypeDigitalTV)
		if sdtIsOneSegBuggy(s.SID) {
			serviceType = serviceTypeDigitalOneSeg
		}
		appendServiceDescriptor(&payload, serviceType, s.ProviderName, s.Name)
		// patch12's "reserved nibble" argument is exactly running_status(3
		// bits) | free_CA_mode(1 bit) here — the two fields share the same
		// 4-bit slot ahead of descriptors_loop_length.
		payload.patch12(descPos, sdtRunningStatusRunning<<1|0)
	}

	return buildSection(sdtSectionReservedPrefix, tableIDSDTActual, tsid, version, 0, 0, payload.Bytes())
}
