package isdbtmux

// NetworkConfig carries the caller-supplied identity fields the NIT needs
// beyond what Service/WriteStream already track.
type NetworkConfig struct {
	NetworkID          uint16
	NetworkName        string
	AreaCode           uint16
	GuardInterval      uint8
	TransmissionMode   uint8
	PhysicalChannel    int
	RemoteControlKeyID byte
	TSName             string
	FrequencyFormula   isdbFrequencyFormula
}

const tableIDNITActual = 0x40

// buildNIT serialises the actual Network Information Table. It carries one
// transport stream loop entry (this mux only ever describes its own
// output), whose descriptor loop lists every service plus the one-seg
// subset, per spec §4.2. Partial-reception and ts_information entries use
// the corrected Service.IsOneSeg, unlike the SDT (see spec §9 open
// question #2).
func buildNIT(tsid uint16, version uint8, cfg NetworkConfig, services []*Service) ([]byte, error) {
	var payload scopeBuf

	netDescPos := payload.reserve12()
	appendNetworkNameDescriptor(&payload, cfg.NetworkName)
	appendSystemManagementDescriptor(&payload)
	payload.patch12(netDescPos, 0xf)

	loopPos := payload.reserve12()

	payload.WriteByte(byte(tsid >> 8))
	payload.WriteByte(byte(tsid))
	payload.WriteByte(byte(cfg.NetworkID >> 8))
	payload.WriteByte(byte(cfg.NetworkID))

	tsDescPos := payload.reserve12()

	sids := make([]uint16, 0, len(services))
	oneSegSIDs := make([]uint16, 0)
	tsInfoTypes := make([]TSInfoTransmissionType, 0, len(services))
	for _, s := range services {
		sids = append(sids, s.SID)
		oneSeg := s.IsOneSeg()
		if oneSeg {
			oneSegSIDs = append(oneSegSIDs, s.SID)
		}
		tsInfoTypes = append(tsInfoTypes, TSInfoTransmissionType{OneSeg: oneSeg, SID: s.SID})
	}

	appendServiceListDescriptor(&payload, sids)
	if len(oneSegSIDs) > 0 {
		appendPartialReceptionDescriptor(&payload, oneSegSIDs)
	}
	appendTerrestrialDeliverySystemDescriptor(&payload, cfg.AreaCode, cfg.GuardInterval, cfg.TransmissionMode, cfg.PhysicalChannel, cfg.FrequencyFormula)
	appendTSInformationDescriptor(&payload, cfg.RemoteControlKeyID, cfg.TSName, tsInfoTypes)

	payload.patch12(tsDescPos, 0xf)
	payload.patch12(loopPos, 0xf)

	return buildSection(sectionReservedPrefix, tableIDNITActual, cfg.NetworkID, version, 0, 0, payload.Bytes())
}
