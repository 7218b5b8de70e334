package encoding

// ReasonCode is the one-byte result code carried in CONNACK, SUBACK, and
// DISCONNECT packets. Values below 0x80 indicate success; 0x80 and above
// indicate failure.
type ReasonCode byte

const (
	ReasonSuccess                           ReasonCode = 0x00
	ReasonGrantedQoS1                       ReasonCode = 0x01
	ReasonGrantedQoS2                       ReasonCode = 0x02
	ReasonDisconnectWithWillMessage         ReasonCode = 0x04
	ReasonNoMatchingSubscribers             ReasonCode = 0x10
	ReasonNoSubscriptionExisted             ReasonCode = 0x11
	ReasonContinueAuthentication            ReasonCode = 0x18
	ReasonReAuthenticate                    ReasonCode = 0x19
	ReasonUnspecifiedError                  ReasonCode = 0x80
	ReasonMalformedPacket                   ReasonCode = 0x81
	ReasonProtocolError                     ReasonCode = 0x82
	ReasonImplementationSpecificError       ReasonCode = 0x83
	ReasonUnsupportedProtocolVersion        ReasonCode = 0x84
	ReasonClientIdentifierNotValid          ReasonCode = 0x85
	ReasonBadUserNameOrPassword             ReasonCode = 0x86
	ReasonNotAuthorized                     ReasonCode = 0x87
	ReasonServerUnavailable                 ReasonCode = 0x88
	ReasonServerBusy                        ReasonCode = 0x89
	ReasonBanned                            ReasonCode = 0x8A
	ReasonServerShuttingDown                ReasonCode = 0x8B
	ReasonBadAuthenticationMethod           ReasonCode = 0x8C
	ReasonKeepAliveTimeout                  ReasonCode = 0x8D
	ReasonSessionTakenOver                  ReasonCode = 0x8E
	ReasonTopicFilterInvalid                ReasonCode = 0x8F
	ReasonTopicNameInvalid                  ReasonCode = 0x90
	ReasonPacketIdentifierInUse             ReasonCode = 0x91
	ReasonPacketIdentifierNotFound          ReasonCode = 0x92
	ReasonReceiveMaximumExceeded            ReasonCode = 0x93
	ReasonTopicAliasInvalid                 ReasonCode = 0x94
	ReasonPacketTooLarge                    ReasonCode = 0x95
	ReasonMessageRateTooHigh                ReasonCode = 0x96
	ReasonQuotaExceeded                     ReasonCode = 0x97
	ReasonAdministrativeAction              ReasonCode = 0x98
	ReasonPayloadFormatInvalid              ReasonCode = 0x99
	ReasonRetainNotSupported                ReasonCode = 0x9A
	ReasonQoSNotSupported                   ReasonCode = 0x9B
	ReasonUseAnotherServer                  ReasonCode = 0x9C
	ReasonServerMoved                       ReasonCode = 0x9D
	ReasonSharedSubscriptionsNotSupported   ReasonCode = 0x9E
	ReasonConnectionRateExceeded            ReasonCode = 0x9F
	ReasonMaximumConnectTime                ReasonCode = 0xA0
	ReasonSubscriptionIdentifiersNotSupport ReasonCode = 0xA1
	ReasonWildcardSubscriptionsNotSupported ReasonCode = 0xA2
)

func (r ReasonCode) String() string {
	switch r {
	case ReasonSuccess:
		return "Success"
	case ReasonGrantedQoS1:
		return "GrantedQoS1"
	case ReasonGrantedQoS2:
		return "GrantedQoS2"
	case ReasonDisconnectWithWillMessage:
		return "DisconnectWithWillMessage"
	case ReasonNoMatchingSubscribers:
		return "NoMatchingSubscribers"
	case ReasonNoSubscriptionExisted:
		return "NoSubscriptionExisted"
	case ReasonContinueAuthentication:
		return "ContinueAuthentication"
	case ReasonReAuthenticate:
		return "ReAuthenticate"
	case ReasonUnspecifiedError:
		return "UnspecifiedError"
	case ReasonMalformedPacket:
		return "MalformedPacket"
	case ReasonProtocolError:
		return "ProtocolError"
	case ReasonImplementationSpecificError:
		return "ImplementationSpecificError"
	case ReasonUnsupportedProtocolVersion:
		return "UnsupportedProtocolVersion"
	case ReasonClientIdentifierNotValid:
		return "ClientIdentifierNotValid"
	case ReasonBadUserNameOrPassword:
		return "BadUserNameOrPassword"
	case ReasonNotAuthorized:
		return "NotAuthorized"
	case ReasonServerUnavailable:
		return "ServerUnavailable"
	case ReasonServerBusy:
		return "ServerBusy"
	case ReasonBanned:
		return "Banned"
	case ReasonServerShuttingDown:
		return "ServerShuttingDown"
	case ReasonBadAuthenticationMethod:
		return "BadAuthenticationMethod"
	case ReasonKeepAliveTimeout:
		return "KeepAliveTimeout"
	case ReasonSessionTakenOver:
		return "SessionTakenOver"
	case ReasonTopicFilterInvalid:
		return "TopicFilterInvalid"
	case ReasonTopicNameInvalid:
		return "TopicNameInvalid"
	case ReasonPacketIdentifierInUse:
		return "PacketIdentifierInUse"
	case ReasonPacketIdentifierNotFound:
		return "PacketIdentifierNotFound"
	case ReasonReceiveMaximumExceeded:
		return "ReceiveMaximumExceeded"
	case ReasonTopicAliasInvalid:
		return "TopicAliasInvalid"
	case ReasonPacketTooLarge:
		return "PacketTooLarge"
	case ReasonMessageRateTooHigh:
		return "MessageRateTooHigh"
	case ReasonQuotaExceeded:
		return "QuotaExceeded"
	case ReasonAdministrativeAction:
		return "AdministrativeAction"
	case ReasonPayloadFormatInvalid:
		return "PayloadFormatInvalid"
	case ReasonRetainNotSupported:
		return "RetainNotSupported"
	case ReasonQoSNotSupported:
		return "QoSNotSupported"
	case ReasonUseAnotherServer:
		return "UseAnotherServer"
	case ReasonServerMoved:
		return "ServerMoved"
	case ReasonSharedSubscriptionsNotSupported:
		return "SharedSubscriptionsNotSupported"
	case ReasonConnectionRateExceeded:
		return "ConnectionRateExceeded"
	case ReasonMaximumConnectTime:
		return "MaximumConnectTime"
	case ReasonSubscriptionIdentifiersNotSupport:
		return "SubscriptionIdentifiersNotSupported"
	case ReasonWildcardSubscriptionsNotSupported:
		return "WildcardSubscriptionsNotSupported"
	default:
		return "Unknown"
	}
}

// Success reports whether the code is below the 0x80 failure threshold.
func (r ReasonCode) Success() bool {
	return r < 0x80
}
