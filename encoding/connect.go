package encoding

// ConnectFlags decodes the CONNECT variable header's flags byte. Bit
// layout (high to low): username(7) password(6) will_retain(5)
// will_qos(4..3) will(2) clean_start(1) reserved(0).
type ConnectFlags struct {
	UsernameFlag bool
	PasswordFlag bool
	WillRetain   bool
	WillQoS      QoS
	WillFlag     bool
	CleanStart   bool
	Reserved     bool
}

// DecodeConnectFlags unpacks the raw flags byte without validating it —
// validation (reserved-bit, will-flag-consistency, password-without-
// username) is the handshake validator's job so every violation can be
// accumulated rather than rejected here.
func DecodeConnectFlags(b byte) ConnectFlags {
	return ConnectFlags{
		UsernameFlag: b&0x80 != 0,
		PasswordFlag: b&0x40 != 0,
		WillRetain:   b&0x20 != 0,
		WillQoS:      QoS((b >> 3) & 0x03),
		WillFlag:     b&0x04 != 0,
		CleanStart:   b&0x02 != 0,
		Reserved:     b&0x01 != 0,
	}
}

// Encode packs the flags back into a single byte.
func (f ConnectFlags) Encode() byte {
	var b byte
	if f.UsernameFlag {
		b |= 0x80
	}
	if f.PasswordFlag {
		b |= 0x40
	}
	if f.WillRetain {
		b |= 0x20
	}
	b |= byte(f.WillQoS&0x03) << 3
	if f.WillFlag {
		b |= 0x04
	}
	if f.CleanStart {
		b |= 0x02
	}
	return b
}

// ConnectPacket is the decoded CONNECT variable header and payload. This
// bootstrap broker does not parse individual MQTT5 properties (Non-goal);
// PropertiesLen is a placeholder that the validator does not fill in and
// CONNACK encoding does not read (a V5 CONNACK always carries a
// zero-length properties field).
type ConnectPacket struct {
	ProtocolName    string
	ProtocolVersion ProtocolVersion
	Flags           ConnectFlags
	KeepAlive       uint16
	ClientID        string
	WillTopic       string
	WillPayload     []byte
	Username        string
	Password        []byte
	PropertiesLen   uint32
}

// ConnAckPacket is the CONNACK variable header.
type ConnAckPacket struct {
	SessionPresent bool
	ReasonCode     ReasonCode
}

// Encode writes CONNACK onto w. For V3_1_1 the reason code is carried in
// the legacy "return code" byte; the value is written as given, with no
// translation to the 0x00-0x05 set, so a V3_1_1 client can receive codes
// such as 0x81, 0x85 or 0x86. For V5_0 a zero-length properties byte
// follows.
func (p *ConnAckPacket) Encode(w *Writer, version ProtocolVersion) error {
	if err := w.StartPacket(CommandConnAck, 0x00); err != nil {
		return err
	}
	var ackFlags byte
	if p.SessionPresent {
		ackFlags = 0x01
	}
	if err := w.WriteByte(ackFlags); err != nil {
		return err
	}
	if err := w.WriteByte(byte(p.ReasonCode)); err != nil {
		return err
	}
	if version == ProtocolVersionV5_0 {
		if err := w.WriteByte(0x00); err != nil {
			return err
		}
	}
	return w.FinishPacket()
}
