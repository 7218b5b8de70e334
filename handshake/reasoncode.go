package handshake

import "github.com/nexmq/broker/encoding"

// ClassifyReasonCode maps the first recorded violation to the CONNACK
// reason code the client receives. Every later violation in the slice is
// retained only for diagnostics (logging) — the wire never carries more
// than one reason code, so only one classification can win.
func ClassifyReasonCode(violations []Violation) encoding.ReasonCode {
	if len(violations) == 0 {
		return encoding.ReasonSuccess
	}

	switch violations[0].Kind {
	case UsernameMustBePresent, UsernameNotUTF8, PasswordMustBePresent, PasswordMustNotBeSet:
		return encoding.ReasonBadUserNameOrPassword
	case ClientIDNotUTF8, ClientIDTooShort, ClientIDTooLong, InvalidClientID,
		EmptyClientIDWithoutCleanSession:
		return encoding.ReasonClientIdentifierNotValid
	case ProtocolVersionInvalid, UnsupportedVersion:
		return encoding.ReasonUnsupportedProtocolVersion
	default:
		return encoding.ReasonMalformedPacket
	}
}
