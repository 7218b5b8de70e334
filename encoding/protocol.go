package encoding

// ProtocolVersion identifies the MQTT protocol revision a CONNECT packet
// declares. Only V3_1_1 and V5_0 are accepted by the handshake validator;
// V3_1 and Invalid exist so an out-of-range byte can be rejected with a
// precise reason rather than treated as "unknown".
type ProtocolVersion byte

const (
	ProtocolVersionInvalid ProtocolVersion = 0
	ProtocolVersionV3_1    ProtocolVersion = 3
	ProtocolVersionV3_1_1  ProtocolVersion = 4
	ProtocolVersionV5_0    ProtocolVersion = 5
)

// ProtocolVersionFromByte decodes the CONNECT protocol-level byte.
func ProtocolVersionFromByte(b byte) ProtocolVersion {
	switch b {
	case 3:
		return ProtocolVersionV3_1
	case 4:
		return ProtocolVersionV3_1_1
	case 5:
		return ProtocolVersionV5_0
	default:
		return ProtocolVersionInvalid
	}
}

// Supported reports whether this broker implements the given version.
// V3_1 ("MQIsdp") is recognized only so the validator can distinguish it
// from a garbage byte; the broker's feature set targets V3_1_1 and V5_0.
func (v ProtocolVersion) Supported() bool {
	return v == ProtocolVersionV3_1_1 || v == ProtocolVersionV5_0
}

// ProtocolName returns the protocol-name string a CONNECT packet of this
// version is required to carry.
func (v ProtocolVersion) ProtocolName() string {
	if v == ProtocolVersionV3_1 {
		return "MQIsdp"
	}
	return "MQTT"
}

func (v ProtocolVersion) String() string {
	switch v {
	case ProtocolVersionV3_1:
		return "3.1"
	case ProtocolVersionV3_1_1:
		return "3.1.1"
	case ProtocolVersionV5_0:
		return "5.0"
	default:
		return "invalid"
	}
}
