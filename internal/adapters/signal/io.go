package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"classroom-signaling/internal/app"
	"classroom-signaling/internal/core"
	"classroom-signaling/internal/domain"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsSignalConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.cfg.WriteTimeout)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump drains the socket and dispatches events in arrival order. When
// the read side fails for any reason the connection is treated as an
// implicit leave.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, connID domain.ConnID, c *wsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("readPump closing")
		ctl.handleDisconnect(connID)
		cancel()
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * ctl.cfg.PingPeriod))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * ctl.cfg.PingPeriod))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(connID, c, data)
		}
	}
}

func (ctl *Controller) handleEvent(connID domain.ConnID, c *wsSignalConn, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad envelope")
		return
	}

	switch msg.Event {
	case EventJoinRoom:
		ctl.handleJoin(connID, c, msg.Data)
	case EventLeaveRoom:
		ctl.handleLeave(msg.Data)
	case EventSignal:
		ctl.handleSignalForward(connID, msg.Data)
	case EventChatMessage:
		ctl.handleChat(connID, msg.Data)
	case EventMediaChanged:
		ctl.handleMediaChanged(connID, msg.Data)
	case EventEndRoom:
		ctl.handleEndRoom(connID, msg.Data)
	case EventScreenShareStarted:
		ctl.handleScreenShare(connID, msg.Data, EventUserScreenShareStarted)
	case EventScreenShareStopped:
		ctl.handleScreenShare(connID, msg.Data, EventUserScreenShareStopped)
	case EventKickParticipant:
		ctl.handleKick(msg.Data)
	case EventForceMute:
		ctl.handleForceMute(msg.Data)
	case EventUpdatePermissions:
		ctl.handleUpdatePermissions(msg.Data)
	default:
		log.Warn().Str("module", "signal").Str("event", msg.Event).Msg("unknown event")
	}
}

// decode unmarshals an event payload and validates required fields. A
// payload failing either check is a malformed event and is dropped.
func (ctl *Controller) decode(data json.RawMessage, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return err
	}
	return ctl.validate.Struct(dst)
}

func (ctl *Controller) sendEvent(conn core.SignalConnection, event string, data any) {
	b, err := json.Marshal(outMessage{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", event).Msg("sendEvent marshal")
		return
	}
	_ = conn.TrySend(b)
}

func (ctl *Controller) broadcast(clients []app.Client, event string, data any) {
	b, err := json.Marshal(outMessage{Event: event, Data: data})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("event", event).Msg("broadcast marshal")
		return
	}
	for _, cl := range clients {
		_ = cl.Conn.TrySend(b)
	}
}
