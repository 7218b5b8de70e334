package handshake

import (
	"errors"

	"github.com/nexmq/broker/encoding"
)

const (
	minClientIDLen = 2
	maxClientIDLen = 64
)

// isUTF8Violation reports whether err came from ReadUTF8String's MQTT
// UTF-8 content rules (ValidateUTF8String) rather than a short read. Those
// are accumulated as violations like any other CONNECT defect; a short
// read leaves the rest of the packet unparseable and stays fatal.
func isUTF8Violation(err error) bool {
	return errors.Is(err, encoding.ErrInvalidUTF8) ||
		errors.Is(err, encoding.ErrNullCharacter) ||
		errors.Is(err, encoding.ErrSurrogateCodePoint) ||
		errors.Is(err, encoding.ErrNonCharacterCodePoint) ||
		errors.Is(err, encoding.ErrControlCharacter)
}

// ValidateConnect reads a CONNECT packet's variable header and payload
// from r (already positioned just past the fixed header) and returns the
// decoded packet along with every violation found. Unlike a typical
// parser this never stops at the first problem that leaves the wire
// format still parseable — it keeps reading so later fields can also be
// checked, and appends to the violations slice instead of returning an
// error. A violation that makes the remaining bytes impossible to
// interpret at all (a truncated length-prefixed field) does abort the
// read early; that case is reported through the plain error return
// (not as a Violation), which the caller treats as a fatal
// codec-tier failure rather than an accumulated violation.
func ValidateConnect(r *encoding.Reader) (*encoding.ConnectPacket, []Violation, error) {
	pkt := &encoding.ConnectPacket{}
	var violations []Violation

	// Step 1: protocol name.
	nameOffset := r.Pos()
	name, _, err := r.ReadUTF8String(false)
	if err != nil {
		return nil, nil, err
	}
	pkt.ProtocolName = name
	if name != "MQTT" && name != "MQIsdp" {
		violations = append(violations, Violation{ProtocolNameNotMQTT, nameOffset})
	}

	// Step 2: protocol version.
	versionOffset := r.Pos()
	versionByte, err := r.ReadByte()
	if err != nil {
		return nil, nil, err
	}
	pkt.ProtocolVersion = encoding.ProtocolVersionFromByte(versionByte)
	switch {
	case pkt.ProtocolVersion == encoding.ProtocolVersionInvalid:
		violations = append(violations, Violation{ProtocolVersionInvalid, versionOffset})
	case !pkt.ProtocolVersion.Supported():
		violations = append(violations, Violation{UnsupportedVersion, versionOffset})
	}

	// Step 3: connect flags.
	flagsOffset := r.Pos()
	flagsByte, err := r.ReadByte()
	if err != nil {
		return nil, nil, err
	}
	pkt.Flags = encoding.DecodeConnectFlags(flagsByte)
	if pkt.Flags.Reserved {
		violations = append(violations, Violation{ReservedFlagSet, flagsOffset})
	}

	// Step 4: keep alive.
	keepAlive, err := r.ReadTwoBytes()
	if err != nil {
		return nil, nil, err
	}
	pkt.KeepAlive = keepAlive

	// Step 5: client identifier.
	clientIDOffset := r.Pos()
	clientID, _, err := r.ReadUTF8String(true)
	if err != nil {
		if !isUTF8Violation(err) {
			return nil, nil, err
		}
		violations = append(violations, Violation{ClientIDNotUTF8, clientIDOffset})
	} else {
		pkt.ClientID = clientID
		validateClientID(clientID, pkt.Flags.CleanStart, clientIDOffset, &violations)
	}

	// Step 6: will topic/payload.
	if pkt.Flags.WillFlag {
		if !pkt.Flags.WillQoS.Valid() {
			violations = append(violations, Violation{InvalidWillQoS, flagsOffset})
		}

		topicOffset := r.Pos()
		willTopic, present, err := r.ReadUTF8String(false)
		if err != nil {
			if !isUTF8Violation(err) {
				return nil, nil, err
			}
			violations = append(violations, Violation{WillTopicNotUTF8, topicOffset})
		} else {
			pkt.WillTopic = willTopic
			if !present {
				violations = append(violations, Violation{WillTopicMustBePresent, topicOffset})
			}
		}

		payloadOffset := r.Pos()
		payloadLen, err := r.ReadTwoBytes()
		if err != nil {
			return nil, nil, err
		}
		if payloadLen == 0 {
			violations = append(violations, Violation{WillMessageMustBePresent, payloadOffset})
		} else {
			payload, err := r.ReadBytes(int(payloadLen))
			if err != nil {
				return nil, nil, err
			}
			pkt.WillPayload = payload
		}
	} else if pkt.Flags.WillQoS != encoding.QoSAtMostOnce {
		violations = append(violations, Violation{WillQoSMustBeZero, flagsOffset})
	}

	// Step 7: password-without-username (V3.1.1 semantics).
	if pkt.Flags.PasswordFlag && !pkt.Flags.UsernameFlag {
		violations = append(violations, Violation{PasswordMustNotBeSet, flagsOffset})
	}

	// Step 8: username.
	if pkt.Flags.UsernameFlag {
		usernameOffset := r.Pos()
		username, present, err := r.ReadUTF8String(false)
		if err != nil {
			if !isUTF8Violation(err) {
				return nil, nil, err
			}
			violations = append(violations, Violation{UsernameNotUTF8, usernameOffset})
		} else {
			pkt.Username = username
			if !present {
				violations = append(violations, Violation{UsernameMustBePresent, usernameOffset})
			}
		}
	}

	// Step 9: password.
	if pkt.Flags.PasswordFlag {
		passwordOffset := r.Pos()
		passwordLen, err := r.ReadTwoBytes()
		if err != nil {
			return nil, nil, err
		}
		if passwordLen == 0 {
			violations = append(violations, Violation{PasswordMustBePresent, passwordOffset})
		} else {
			password, err := r.ReadBytes(int(passwordLen))
			if err != nil {
				return nil, nil, err
			}
			pkt.Password = password
		}
	}

	// Step 10: no trailing garbage.
	if r.Remaining() != 0 {
		violations = append(violations, Violation{UnexpectedExtraData, r.Pos()})
	}

	return pkt, violations, nil
}

func validateClientID(id string, cleanStart bool, offset int, violations *[]Violation) {
	if len(id) == 0 {
		if !cleanStart {
			*violations = append(*violations, Violation{EmptyClientIDWithoutCleanSession, offset})
		}
		return
	}
	if len(id) < minClientIDLen {
		*violations = append(*violations, Violation{ClientIDTooShort, offset})
		return
	}
	if len(id) > maxClientIDLen {
		*violations = append(*violations, Violation{ClientIDTooLong, offset})
		return
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		isDigit := c >= '0' && c <= '9'
		isUpper := c >= 'A' && c <= 'Z'
		isLower := c >= 'a' && c <= 'z'
		if c >= 0x80 {
			*violations = append(*violations, Violation{ClientIDNotUTF8, offset})
			return
		}
		if !isDigit && !isUpper && !isLower {
			*violations = append(*violations, Violation{InvalidClientID, offset})
			return
		}
	}
}
