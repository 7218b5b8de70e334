package broker

import (
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/nexmq/broker/encoding"
	"github.com/nexmq/broker/handshake"
	"github.com/nexmq/broker/hook"
	"github.com/nexmq/broker/session"
	"github.com/nexmq/broker/topic"
)

// driveConnection owns one accepted connection end to end: handshake,
// dispatch loop, and teardown. It never returns until the connection is
// gone, so the caller's goroutine lifetime equals the connection's.
func (b *Broker) driveConnection(conn net.Conn) {
	connID := b.clients.NextConnectionID()
	client := session.NewClient(connID, conn)
	b.clients.Add(client)

	logger := b.log.With(slog.Uint64("conn_id", connID), slog.String("remote_addr", client.RemoteAddr))

	defer func() {
		b.teardown(client, logger)
	}()

	reader := encoding.NewReader(b.config.ReadBufferSize)
	writer := encoding.NewWriter(b.config.WriteBufferSize)

	if !b.handshake(client, reader, writer, logger) {
		return
	}

	ka := newKeepAlive(client, b.config.KeepAliveMultiplier, logger)
	ka.Start()
	defer ka.Stop()

	for {
		n, err := conn.Read(reader.Buffer())
		if n > 0 {
			client.Touch()
			ka.resetDeadline()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				logger.Debug("connection read error", slog.Any("error", err))
			}
			return
		}
		if n == 0 {
			continue
		}

		if err := reader.Start(n); err != nil {
			logger.Warn("codec error framing read", slog.Any("error", err))
			return
		}

		if !b.dispatchLoop(client, reader, writer, logger) {
			return
		}
	}
}

// handshake reads and validates exactly one CONNECT packet, emits CONNACK,
// and reports whether the connection should continue to the dispatch loop.
func (b *Broker) handshake(client *session.Client, reader *encoding.Reader, writer *encoding.Writer, logger *slog.Logger) bool {
	n, err := client.Conn.Read(reader.Buffer())
	if err != nil {
		logger.Debug("handshake read error", slog.Any("error", err))
		return false
	}
	if err := reader.Start(n); err != nil {
		logger.Warn("codec error framing CONNECT", slog.Any("error", err))
		return false
	}

	cmd, err := reader.ReadCommand()
	if err != nil || cmd != encoding.CommandConnect {
		logger.Warn("first packet was not CONNECT", slog.Any("error", err))
		return false
	}
	if _, err := reader.ReadRemainingLength(); err != nil {
		logger.Warn("codec error reading CONNECT remaining length", slog.Any("error", err))
		return false
	}

	pkt, violations, err := handshake.ValidateConnect(reader)
	if err != nil {
		logger.Warn("codec error parsing CONNECT", slog.Any("error", err))
		return false
	}

	for _, v := range violations {
		logger.Info("CONNECT violation", slog.String("kind", v.Kind.String()), slog.Int("offset", v.Offset))
	}

	reasonCode := handshake.ClassifyReasonCode(violations)

	if reasonCode.Success() && b.rate != nil {
		if err := b.rate.Allow(client.RemoteAddr); err != nil {
			logger.Info("CONNECT rejected by rate limiter", slog.String("remote_addr", client.RemoteAddr))
			b.sendDisconnect(writer, client.Conn, pkt.ProtocolVersion, encoding.ReasonServerBusy, logger)
			return false
		}
	}

	hookClient := &hook.Client{ID: pkt.ClientID, RemoteAddr: client.Conn.RemoteAddr(), ConnectedAt: client.ConnectedAt}
	hookPacket := &hook.ConnectPacket{
		ProtocolVersion: byte(pkt.ProtocolVersion),
		CleanStart:      pkt.Flags.CleanStart,
		KeepAlive:       pkt.KeepAlive,
		ClientID:        pkt.ClientID,
		Username:        pkt.Username,
		Password:        pkt.Password,
	}

	if reasonCode.Success() && !b.hooks.OnConnectAuthenticate(hookClient, hookPacket) {
		reasonCode = encoding.ReasonBadUserNameOrPassword
	}

	ack := &encoding.ConnAckPacket{SessionPresent: false, ReasonCode: reasonCode}
	if err := ack.Encode(writer, pkt.ProtocolVersion); err != nil {
		logger.Warn("failed to encode CONNACK", slog.Any("error", err))
		return false
	}
	if err := writer.WriteToStream(client.Conn); err != nil {
		logger.Debug("failed to write CONNACK", slog.Any("error", err))
		return false
	}

	if !reasonCode.Success() {
		return false
	}

	client.ClientID = pkt.ClientID
	client.ProtocolVersion = pkt.ProtocolVersion
	client.CleanStart = pkt.Flags.CleanStart
	client.KeepAlive = pkt.KeepAlive
	client.Username = pkt.Username
	client.Password = pkt.Password
	if pkt.Flags.WillFlag {
		client.SetWill(&session.WillMessage{
			Topic:   pkt.WillTopic,
			Payload: pkt.WillPayload,
			QoS:     pkt.Flags.WillQoS,
			Retain:  pkt.Flags.WillRetain,
		})
	}
	client.SetState(session.StateConnected)
	b.clients.BindClientID(client)

	hookClient.ID = client.ClientID
	if err := b.hooks.OnConnect(hookClient, hookPacket); err != nil {
		logger.Info("OnConnect hook rejected client", slog.Any("error", err))
		return false
	}

	logger.Info("client connected", slog.String("client_id", client.ClientID))
	return true
}

// dispatchLoop drains every complete packet already sitting in reader and
// reports whether the connection should keep reading from the socket.
func (b *Broker) dispatchLoop(client *session.Client, reader *encoding.Reader, writer *encoding.Writer, logger *slog.Logger) bool {
	for reader.Remaining() > 0 {
		cmd, err := reader.ReadCommand()
		if err != nil {
			logger.Warn("codec error reading command", slog.Any("error", err))
			return false
		}

		if cmd == encoding.CommandDisconnect {
			logger.Info("client sent DISCONNECT", slog.String("client_id", client.ClientID))
			return false
		}

		remLen, err := reader.ReadRemainingLength()
		if err != nil {
			logger.Warn("codec error reading remaining length", slog.Any("error", err))
			return false
		}

		switch cmd {
		case encoding.CommandSubscribe:
			if !b.handleSubscribe(client, reader, writer, logger) {
				return false
			}
		case encoding.CommandPingReq:
			if !b.handlePing(client, writer, logger) {
				return false
			}
		case encoding.CommandPublish, encoding.CommandPubRec, encoding.CommandUnsubscribe:
			logger.Info("packet type not implemented, skipping", slog.String("command", cmd.String()))
			if _, err := reader.ReadBytes(int(remLen)); err != nil {
				return false
			}
		default:
			logger.Warn("unexpected packet in dispatch loop", slog.String("command", cmd.String()))
			if _, err := reader.ReadBytes(int(remLen)); err != nil {
				return false
			}
		}
	}
	return true
}

func (b *Broker) handleSubscribe(client *session.Client, reader *encoding.Reader, writer *encoding.Writer, logger *slog.Logger) bool {
	packetID, err := reader.ReadTwoBytes()
	if err != nil {
		logger.Warn("codec error reading SUBSCRIBE packet id", slog.Any("error", err))
		return false
	}

	var reasonCodes []encoding.ReasonCode
	for reader.Remaining() > 0 {
		filter, present, err := reader.ReadUTF8String(false)
		if err != nil {
			logger.Warn("codec error reading topic filter", slog.Any("error", err))
			return false
		}
		optByte, err := reader.ReadByte()
		if err != nil {
			logger.Warn("codec error reading subscription options", slog.Any("error", err))
			return false
		}
		opts := encoding.DecodeSubscriptionOptions(optByte)

		reasonCodes = append(reasonCodes, b.subscribeOne(client, filter, present, opts, logger))
	}

	ack := &encoding.SubAckPacket{PacketID: packetID, ReasonCodes: reasonCodes}
	if err := ack.Encode(writer); err != nil {
		logger.Warn("failed to encode SUBACK", slog.Any("error", err))
		return false
	}
	if err := writer.WriteToStream(client.Conn); err != nil {
		logger.Debug("failed to write SUBACK", slog.Any("error", err))
		return false
	}
	return true
}

func (b *Broker) subscribeOne(client *session.Client, filter string, present bool, opts encoding.SubscriptionOptions, logger *slog.Logger) encoding.ReasonCode {
	if !present || opts.ReservedNonZero || !opts.QoS.Valid() {
		return encoding.ReasonMalformedPacket
	}
	if err := topic.ValidateTopicFilter(filter); err != nil {
		return encoding.ReasonTopicFilterInvalid
	}

	hookClient := &hook.Client{ID: client.ClientID, RemoteAddr: client.Conn.RemoteAddr(), ConnectedAt: client.ConnectedAt}
	sub := &hook.Subscription{ClientID: client.ClientID, TopicFilter: filter, QoS: byte(opts.QoS)}

	if !b.hooks.OnACLCheck(hookClient, filter, hook.AccessTypeRead) {
		return encoding.ReasonNotAuthorized
	}
	if err := b.hooks.OnSubscribe(hookClient, sub); err != nil {
		logger.Info("OnSubscribe hook denied subscription", slog.String("filter", filter), slog.Any("error", err))
		return encoding.ReasonNotAuthorized
	}

	if err := b.subs.Subscribe(filter, topic.SubscriberInfo{
		ClientID:          client.ClientID,
		QoS:               opts.QoS,
		NoLocal:           opts.NoLocal,
		RetainAsPublished: opts.RetainAsPublished,
		RetainHandling:    opts.RetainHandling,
	}); err != nil {
		return encoding.ReasonTopicFilterInvalid
	}
	client.AddSubscription(filter)

	b.hooks.OnSubscribed(hookClient, sub)

	switch opts.QoS {
	case encoding.QoSAtLeastOnce:
		return encoding.ReasonGrantedQoS1
	case encoding.QoSExactlyOnce:
		return encoding.ReasonGrantedQoS2
	default:
		return encoding.ReasonSuccess
	}
}

func (b *Broker) handlePing(client *session.Client, writer *encoding.Writer, logger *slog.Logger) bool {
	if err := writer.StartPacket(encoding.CommandPingResp, 0x00); err != nil {
		return false
	}
	if err := writer.FinishPacket(); err != nil {
		return false
	}
	if err := writer.WriteToStream(client.Conn); err != nil {
		logger.Debug("failed to write PINGRESP", slog.Any("error", err))
		return false
	}
	return true
}

// sendDisconnect emits a best-effort DISCONNECT to a V5 client before the
// connection is dropped. V3.1.1 has no broker-initiated DISCONNECT on the
// wire, so the connection is simply closed for that version.
func (b *Broker) sendDisconnect(writer *encoding.Writer, conn net.Conn, version encoding.ProtocolVersion, reason encoding.ReasonCode, logger *slog.Logger) {
	if version != encoding.ProtocolVersionV5_0 {
		return
	}
	pkt := &encoding.DisconnectPacket{ReasonCode: reason}
	if err := pkt.Encode(writer); err != nil {
		return
	}
	if err := writer.WriteToStream(conn); err != nil {
		logger.Debug("failed to write DISCONNECT", slog.Any("error", err))
	}
}

// teardown removes client from the broker's shared state and closes its
// connection. Called exactly once per connection, on every exit path.
func (b *Broker) teardown(client *session.Client, logger *slog.Logger) {
	client.SetState(session.StateDisconnected)
	b.clients.Remove(client.ID)

	for _, filter := range client.SubscribedFilters() {
		b.subs.Unsubscribe(filter, client.ClientID)
	}

	if client.ClientID != "" {
		hookClient := &hook.Client{ID: client.ClientID, RemoteAddr: client.Conn.RemoteAddr(), ConnectedAt: client.ConnectedAt}
		b.hooks.OnDisconnect(hookClient, nil)
	}

	if err := client.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Debug("error closing connection", slog.Any("error", err))
	}

	logger.Info("client disconnected", slog.String("client_id", client.ClientID))
}
