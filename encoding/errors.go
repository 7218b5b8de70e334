package encoding

import "errors"

var (
	// ErrVariableByteIntegerTooLarge indicates the value exceeds the maximum encodable value (268,435,455)
	ErrVariableByteIntegerTooLarge = errors.New("variable byte integer value exceeds maximum (268,435,455)")

	// ErrMalformedVariableByteInteger indicates invalid variable byte integer encoding
	ErrMalformedVariableByteInteger = errors.New("malformed variable byte integer")

	// ErrUnexpectedEOF indicates unexpected end of input while reading
	ErrUnexpectedEOF = errors.New("unexpected end of input")

	// ErrBufferTooSmall indicates the buffer is too small for the operation
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrInvalidCommand indicates an unrecognized control packet command
	ErrInvalidCommand = errors.New("invalid packet command")

	// ErrInvalidFlags indicates a fixed header flags nibble that does not
	// match the fixed value required for its command
	ErrInvalidFlags = errors.New("invalid flags for packet command")

	// ErrInvalidQoS indicates a QoS value outside {0,1,2}
	ErrInvalidQoS = errors.New("invalid QoS level")

	// ErrMalformedPacket is the catch-all framing error: the packet cannot
	// be decoded regardless of its content
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrInvalidRemainingLength indicates the remaining length field could
	// not be decoded: it needs a fifth byte, or the packet ends inside it
	ErrInvalidRemainingLength = errors.New("remaining length exceeds maximum or packet bounds")

	// ErrNoPacketStarted indicates FinishPacket was called without a
	// matching StartPacket
	ErrNoPacketStarted = errors.New("no packet started")

	// ErrStreamWriteError indicates a short write to the underlying stream
	ErrStreamWriteError = errors.New("short write to stream")

	// ErrAllocatedBufferTooSmall indicates Reader.Start was given a byte
	// count the underlying buffer cannot hold
	ErrAllocatedBufferTooSmall = errors.New("allocated read buffer too small")

	// UTF-8 validation errors
	ErrInvalidUTF8           = errors.New("invalid UTF-8 encoding")
	ErrNullCharacter         = errors.New("null character (U+0000) not allowed in UTF-8 string")
	ErrSurrogateCodePoint    = errors.New("UTF-16 surrogate code points (U+D800 to U+DFFF) not allowed")
	ErrNonCharacterCodePoint = errors.New("non-character code points (U+FFFE, U+FFFF) not allowed")
	ErrControlCharacter      = errors.New("control characters (U+0001 to U+001F, U+007F to U+009F) should be avoided")
)

// PacketError represents a packet parsing error with associated protocol reason code
type PacketError struct {
	Err        error      // The underlying error
	ReasonCode ReasonCode // MQTT reason code (0x81 malformed, 0x82 protocol error, etc.)
	Message    string     // Additional context message
}

func (e *PacketError) Error() string {
	if e.Message != "" {
		return e.Err.Error() + ": " + e.Message
	}
	return e.Err.Error()
}

func (e *PacketError) Unwrap() error {
	return e.Err
}

// NewMalformedPacketError creates a PacketError for malformed packets
func NewMalformedPacketError(err error, message string) *PacketError {
	return &PacketError{
		Err:        err,
		ReasonCode: ReasonMalformedPacket,
		Message:    message,
	}
}

// NewProtocolError creates a PacketError for protocol violations
func NewProtocolError(err error, message string) *PacketError {
	return &PacketError{
		Err:        err,
		ReasonCode: ReasonProtocolError,
		Message:    message,
	}
}

// GetReasonCode extracts the reason code from an error, defaulting to
// ReasonUnspecifiedError for anything it does not recognize. Handshake
// violations are classified separately by handshake.ClassifyReasonCode;
// this function covers codec-level (pre-handshake) framing failures.
func GetReasonCode(err error) ReasonCode {
	var pktErr *PacketError
	if errors.As(err, &pktErr) {
		return pktErr.ReasonCode
	}

	switch {
	case errors.Is(err, ErrMalformedPacket),
		errors.Is(err, ErrMalformedVariableByteInteger),
		errors.Is(err, ErrInvalidQoS),
		errors.Is(err, ErrInvalidRemainingLength):
		return ReasonMalformedPacket
	case errors.Is(err, ErrInvalidCommand),
		errors.Is(err, ErrInvalidFlags):
		return ReasonProtocolError
	default:
		return ReasonUnspecifiedError
	}
}
