package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"classroom-signaling/internal/domain"
)

// handleSignalForward relays an opaque WebRTC negotiation payload (SDP
// offer/answer or ICE candidate) to exactly one peer. The relay never
// inspects the payload. A missing target means the peer already left and
// the event is dropped without error.
func (ctl *Controller) handleSignalForward(connID domain.ConnID, data json.RawMessage) {
	var p signalPayload
	if err := ctl.decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad signal payload")
		return
	}

	from, ok := ctl.relay.Sender(connID)
	if !ok {
		log.Warn().Str("module", "signal").Str("conn", string(connID)).Msg("signal from connection outside any room")
		return
	}
	if from.RoomID != domain.RoomID(p.RoomID) {
		log.Warn().Str("module", "signal").Str("conn", string(connID)).Str("room", p.RoomID).Msg("signal addressed outside sender's room")
		return
	}
	target, ok := ctl.relay.Target(domain.RoomID(p.RoomID), domain.UserID(p.TargetUserID))
	if !ok {
		log.Debug().Str("module", "signal").Str("room", p.RoomID).Str("target", p.TargetUserID).Msg("signal target gone")
		return
	}

	ctl.sendEvent(target.Conn, EventReceiveSignal, receiveSignalPayload{
		FromUserID: string(from.UserID),
		Signal:     p.Signal,
		Type:       p.Type,
	})
}

func (ctl *Controller) handleMediaChanged(connID domain.ConnID, data json.RawMessage) {
	var p mediaChangedPayload
	if err := ctl.decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad media-changed payload")
		return
	}

	ctl.broadcast(ctl.relay.Peers(domain.RoomID(p.RoomID), connID), EventUserMediaChanged, userMediaChangedPayload{
		UserID:       p.UserID,
		IsAudioMuted: p.IsAudioMuted,
		IsVideoOff:   p.IsVideoOff,
	})
}

// handleScreenShare covers both the started and stopped variants; no
// permission check happens here, the client is trusted to have been
// granted canShareScreen.
func (ctl *Controller) handleScreenShare(connID domain.ConnID, data json.RawMessage, outEvent string) {
	var p screenSharePayload
	if err := ctl.decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad screen-share payload")
		return
	}

	ctl.broadcast(ctl.relay.Peers(domain.RoomID(p.RoomID), connID), outEvent, screenShareEventPayload{
		UserID: p.UserID,
	})
}
