// Package handshake validates the CONNECT packet against the rules a
// conforming MQTT broker must enforce before issuing CONNACK. Unlike a
// typical parser, it never stops at the first problem: every violation in
// the packet is recorded, in order, with the byte offset at which it was
// found, so a single malformed CONNECT can be logged and diagnosed in
// full. Only the first recorded violation determines the CONNACK reason
// code sent back to the client.
package handshake

// Kind names one specific way a CONNECT packet can violate the protocol.
type Kind int

const (
	ProtocolNameNotMQTT Kind = iota
	ProtocolVersionInvalid
	UnsupportedVersion
	ReservedFlagSet
	EmptyClientIDWithoutCleanSession
	ClientIDTooShort
	ClientIDTooLong
	InvalidClientID
	ClientIDNotUTF8
	InvalidWillQoS
	WillTopicMustBePresent
	WillMessageMustBePresent
	WillQoSMustBeZero
	PasswordMustNotBeSet
	UsernameMustBePresent
	UsernameNotUTF8
	PasswordMustBePresent
	WillTopicNotUTF8
	UnexpectedExtraData
)

func (k Kind) String() string {
	switch k {
	case ProtocolNameNotMQTT:
		return "ProtocolNameNotMQTT"
	case ProtocolVersionInvalid:
		return "ProtocolVersionInvalid"
	case UnsupportedVersion:
		return "UnsupportedVersion"
	case ReservedFlagSet:
		return "ReservedFlagSet"
	case EmptyClientIDWithoutCleanSession:
		return "EmptyClientIDWithoutCleanSession"
	case ClientIDTooShort:
		return "ClientIDTooShort"
	case ClientIDTooLong:
		return "ClientIDTooLong"
	case InvalidClientID:
		return "InvalidClientID"
	case ClientIDNotUTF8:
		return "ClientIDNotUTF8"
	case InvalidWillQoS:
		return "InvalidWillQoS"
	case WillTopicMustBePresent:
		return "WillTopicMustBePresent"
	case WillMessageMustBePresent:
		return "WillMessageMustBePresent"
	case WillQoSMustBeZero:
		return "WillQoSMustBeZero"
	case PasswordMustNotBeSet:
		return "PasswordMustNotBeSet"
	case UsernameMustBePresent:
		return "UsernameMustBePresent"
	case UsernameNotUTF8:
		return "UsernameNotUTF8"
	case PasswordMustBePresent:
		return "PasswordMustBePresent"
	case WillTopicNotUTF8:
		return "WillTopicNotUTF8"
	case UnexpectedExtraData:
		return "UnexpectedExtraData"
	default:
		return "Unknown"
	}
}

// Violation is one recorded protocol breach: what went wrong, and where.
type Violation struct {
	Kind   Kind
	Offset int
}
