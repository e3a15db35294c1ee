package isdbtmux

const tableIDPAT = 0x00

// buildPAT serialises the Program Association Table, per spec §4.2: one
// sid + pmt_pid entry per service.
func buildPAT(tsid uint16, version uint8, services []*Service) ([]byte, error) {
	var payload scopeBuf
	for _, s := range services {
		payload.WriteByte(byte(s.SID >> 8))
		payload.WriteByte(byte(s.SID))
		payload.WriteByte(0xe0 | byte(s.PMTPID>>8)&0x1f)
		payload.WriteByte(byte(s.PMTPID))
	}
	return buildSection(sectionReservedPrefix, tableIDPAT, tsid, version, 0, 0, payload.Bytes())
}
