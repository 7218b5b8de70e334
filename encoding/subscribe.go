package encoding

// SubscriptionOptions packs the per-filter options byte of a SUBSCRIBE
// packet: qos (bits 0-1), no_local (bit 2), retain_as_published (bit 3),
// retain_handling (bits 4-5), reserved (bits 6-7, must be 0).
type SubscriptionOptions struct {
	QoS               QoS
	NoLocal           bool
	RetainAsPublished bool
	RetainHandling    byte
	ReservedNonZero   bool
}

// DecodeSubscriptionOptions unpacks the raw options byte without
// validating it (the connection driver validates each filter and answers
// with a per-filter SUBACK reason code), except that it reports whether
// the reserved bits were nonzero since the caller needs that to reject
// the filter.
func DecodeSubscriptionOptions(b byte) SubscriptionOptions {
	return SubscriptionOptions{
		QoS:               QoS(b & 0x03),
		NoLocal:           b&0x04 != 0,
		RetainAsPublished: b&0x08 != 0,
		RetainHandling:    (b >> 4) & 0x03,
		ReservedNonZero:   b&0xC0 != 0,
	}
}

// Subscription is one (topic_filter, options) entry in a SUBSCRIBE packet.
type Subscription struct {
	TopicFilter string
	Options     SubscriptionOptions
}

// SubscribePacket is the decoded SUBSCRIBE variable header and payload.
type SubscribePacket struct {
	PacketID      uint16
	Subscriptions []Subscription
}

// SubAckPacket is the SUBACK variable header and payload: one reason code
// per subscription in the originating SUBSCRIBE, in request order.
type SubAckPacket struct {
	PacketID    uint16
	ReasonCodes []ReasonCode
}

// Encode writes SUBACK onto w.
func (p *SubAckPacket) Encode(w *Writer) error {
	if err := w.StartPacket(CommandSubAck, 0x00); err != nil {
		return err
	}
	if err := w.WriteTwoBytes(p.PacketID); err != nil {
		return err
	}
	for _, rc := range p.ReasonCodes {
		if err := w.WriteByte(byte(rc)); err != nil {
			return err
		}
	}
	return w.FinishPacket()
}
